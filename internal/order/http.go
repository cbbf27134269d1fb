package order

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"NetShop/internal/cart"
	"NetShop/pkg/kit"
)

type Server struct {
	// Orders and Cart return the managers of the session making the request.
	Orders func(*http.Request) *Manager
	Cart   func(*http.Request) *cart.Manager
	Log    *zap.Logger
}

func (s *Server) CheckoutHandler() http.HandlerFunc { return s.checkout }
func (s *Server) ListHandler() http.HandlerFunc     { return s.list }
func (s *Server) GetHandler() http.HandlerFunc      { return s.get }
func (s *Server) ReceiptHandler() http.HandlerFunc  { return s.receipt }

func (s *Server) checkout(w http.ResponseWriter, r *http.Request) {
	var f Form
	if err := kit.DecodeJSON(w, r, &f); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", nil)
		return
	}

	o, err := s.Orders(r).Checkout(r.Context(), s.Cart(r), f)
	if err != nil {
		s.writeCheckoutError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, o)
}

func (s *Server) writeCheckoutError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *kit.ValidationError
	switch {
	case errors.As(err, &ve):
		kit.WriteError(w, r, http.StatusBadRequest, MsgFillForm, ve.Fields)
	case errors.Is(err, ErrEmptyCart):
		kit.WriteError(w, r, http.StatusConflict, MsgEmptyCart, nil)
	case errors.Is(err, ErrNotSaved):
		kit.WriteError(w, r, http.StatusInsufficientStorage, "order not saved", nil)
	case errors.Is(err, context.DeadlineExceeded):
		kit.WriteError(w, r, http.StatusGatewayTimeout, "timeout", nil)
	case errors.Is(err, context.Canceled):
		if s.Log != nil {
			s.Log.Info("checkout abandoned by client")
		}
		kit.WriteError(w, r, http.StatusServiceUnavailable, "checkout cancelled", nil)
	default:
		if s.Log != nil {
			s.Log.Error("checkout failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	kit.WriteJSON(w, http.StatusOK, s.Orders(r).History(r.Context()))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	o, ok := s.Orders(r).Find(r.Context(), id)
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not found", map[string]any{"id": id})
		return
	}
	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) receipt(w http.ResponseWriter, r *http.Request) {
	o, ok := s.Orders(r).Receipt(r.Context(), r.URL.Query().Get("orderId"))
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "no order found", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, ReceiptOf(o))
}
