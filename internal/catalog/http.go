package catalog

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"NetShop/internal/notify"
	"NetShop/pkg/kit"
)

type Server struct {
	Catalog *Manager
	// Notifier picks the toast feed for the caller; nil reports nowhere.
	Notifier func(*http.Request) notify.Notifier
	Log      *zap.Logger
}

func (s *Server) ListHandler() http.HandlerFunc   { return s.list }
func (s *Server) GetHandler() http.HandlerFunc    { return s.get }
func (s *Server) CreateHandler() http.HandlerFunc { return s.create }
func (s *Server) SyncHandler() http.HandlerFunc   { return s.sync }

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products := s.Catalog.Products(r.Context())
	products = Match(products, q.Get("search"))
	products = InCategory(products, q.Get("category"))
	products = Sort(products, SortKey(q.Get("sort")))
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	p, ok := s.Catalog.ProductByID(r.Context(), id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	p.Image = s.Catalog.Image(r.Context(), p)
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := kit.DecodeJSON(w, r, &raw); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	p, err := Ingest(raw)
	if err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}

	switch err := s.catalogFor(r).Add(r.Context(), p); {
	case err == nil:
		if stored, ok := s.Catalog.ProductByID(r.Context(), p.ID); ok {
			p = stored
		}
		kit.WriteJSON(w, http.StatusCreated, p)
	case errors.Is(err, ErrDuplicate):
		kit.WriteError(w, r, http.StatusConflict, MsgDuplicate, map[string]any{"id": p.ID})
	case errors.Is(err, ErrNameRequired):
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
	default:
		kit.WriteError(w, r, http.StatusInsufficientStorage, "product not saved", nil)
	}
}

func (s *Server) sync(w http.ResponseWriter, r *http.Request) {
	n, err := s.Catalog.Sync(r.Context())
	switch {
	case err == nil:
		kit.WriteJSON(w, http.StatusOK, map[string]int{"products": n})
	case errors.Is(err, ErrNoSource):
		kit.WriteError(w, r, http.StatusNotImplemented, "catalog sync disabled", nil)
	case errors.Is(err, ErrNotSaved):
		kit.WriteError(w, r, http.StatusInsufficientStorage, "catalog not saved", nil)
	default:
		if s.Log != nil {
			s.Log.Warn("catalog sync failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusBadGateway, "backend unavailable", nil)
	}
}

func (s *Server) catalogFor(r *http.Request) *Manager {
	if s.Notifier == nil {
		return s.Catalog
	}
	return s.Catalog.WithNotifier(s.Notifier(r))
}
