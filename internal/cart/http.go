package cart

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"NetShop/internal/backend"
	"NetShop/internal/catalog"
	"NetShop/pkg/kit"
)

// Remote resolves product ids the local catalog does not hold.
type Remote interface {
	Product(ctx context.Context, id string) (map[string]any, error)
}

type Server struct {
	Catalog *catalog.Manager
	// Remote is optional.
	Remote Remote
	// Cart returns the cart of the session making the request.
	Cart func(*http.Request) *Manager
	Log  *zap.Logger
}

// View is the cart as returned to clients.
type View struct {
	Items    []Item  `json:"items"`
	Count    int     `json:"count"`
	Subtotal float64 `json:"subtotal"`
}

func viewOf(items []Item) View {
	return View{Items: items, Count: count(items), Subtotal: SubtotalOf(items)}
}

func (s *Server) GetHandler() http.HandlerFunc    { return s.get }
func (s *Server) CountHandler() http.HandlerFunc  { return s.count }
func (s *Server) AddHandler() http.HandlerFunc    { return s.add }
func (s *Server) UpdateHandler() http.HandlerFunc { return s.update }
func (s *Server) RemoveHandler() http.HandlerFunc { return s.remove }
func (s *Server) ClearHandler() http.HandlerFunc  { return s.clear }

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, viewOf(s.Cart(r).Items(r.Context())))
}

func (s *Server) count(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, map[string]int{"count": s.Cart(r).ItemCount(r.Context())})
}

func (s *Server) add(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := kit.DecodeJSON(w, r, &raw); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	p, err := catalog.Ingest(raw)
	if err != nil {
		// A bare {"id": ...} refers to a catalog product.
		id := strings.TrimSpace(stringField(raw, "id"))
		if id != "" {
			found, status := s.lookup(r, id)
			switch status {
			case http.StatusOK:
				p = found
			case http.StatusNotFound:
				kit.WriteError(w, r, status, "product not found", map[string]any{"id": id})
				return
			default:
				kit.WriteError(w, r, status, "product lookup failed", map[string]any{"id": id})
				return
			}
		}
	}

	c := s.Cart(r)
	if !c.AddItem(r.Context(), p) {
		if strings.TrimSpace(p.Name) == "" {
			kit.WriteError(w, r, http.StatusBadRequest, MsgInvalidProduct, nil)
			return
		}
		kit.WriteError(w, r, http.StatusInsufficientStorage, "cart not saved", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, viewOf(c.Items(r.Context())))
}

// lookup finds id in the local catalog, then upstream.
func (s *Server) lookup(r *http.Request, id string) (catalog.Product, int) {
	ctx := r.Context()
	if s.Catalog != nil {
		if p, ok := s.Catalog.ProductByID(ctx, id); ok {
			return p, http.StatusOK
		}
	}
	if s.Remote == nil {
		return catalog.Product{}, http.StatusNotFound
	}

	raw, err := s.Remote.Product(ctx, id)
	switch {
	case errors.Is(err, backend.ErrNotFound):
		return catalog.Product{}, http.StatusNotFound
	case err != nil:
		if s.Log != nil {
			s.Log.Warn("remote product lookup failed", zap.String("id", id), zap.Error(err))
		}
		return catalog.Product{}, http.StatusBadGateway
	}

	p, err := catalog.Ingest(raw)
	if err != nil {
		if s.Log != nil {
			s.Log.Warn("remote product unusable", zap.String("id", id), zap.Error(err))
		}
		return catalog.Product{}, http.StatusBadGateway
	}
	return p, http.StatusOK
}

type quantityReq struct {
	Quantity *int `json:"quantity"`
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	var req quantityReq
	if err := kit.DecodeJSON(w, r, &req); err != nil || req.Quantity == nil {
		kit.WriteError(w, r, http.StatusBadRequest, "quantity required", nil)
		return
	}

	id := chi.URLParam(r, "id")
	c := s.Cart(r)
	if !c.UpdateQuantity(r.Context(), id, *req.Quantity) {
		s.writeMutationError(w, r, c, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, viewOf(c.Items(r.Context())))
}

func (s *Server) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := s.Cart(r)
	if !c.RemoveItem(r.Context(), id) {
		s.writeMutationError(w, r, c, id)
		return
	}
	kit.WriteJSON(w, http.StatusOK, viewOf(c.Items(r.Context())))
}

func (s *Server) clear(w http.ResponseWriter, r *http.Request) {
	c := s.Cart(r)
	if !c.Clear(r.Context()) {
		kit.WriteError(w, r, http.StatusInsufficientStorage, "cart not saved", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, viewOf([]Item{}))
}

// writeMutationError tells a missing line apart from a failed write.
func (s *Server) writeMutationError(w http.ResponseWriter, r *http.Request, c *Manager, id string) {
	for _, it := range c.Items(r.Context()) {
		if matches(it, id) {
			if s.Log != nil {
				s.Log.Warn("cart write failed", zap.String("item", id))
			}
			kit.WriteError(w, r, http.StatusInsufficientStorage, "cart not saved", nil)
			return
		}
	}
	kit.WriteError(w, r, http.StatusNotFound, "item not in cart", map[string]any{"id": id})
}
