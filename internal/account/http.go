package account

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"NetShop/internal/backend"
	"NetShop/pkg/kit"
)

type Server struct {
	// Account returns the account of the session making the request.
	Account func(*http.Request) *Manager
	Log     *zap.Logger
}

type loginReq struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

type registerReq struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

func (s *Server) LoginHandler() http.HandlerFunc    { return s.login }
func (s *Server) RegisterHandler() http.HandlerFunc { return s.register }
func (s *Server) ProfileHandler() http.HandlerFunc  { return s.profile }
func (s *Server) LogoutHandler() http.HandlerFunc   { return s.logout }

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if !kit.DecodeValid(w, r, &req) {
		return
	}
	u, err := s.Account(r).Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req registerReq
	if !kit.DecodeValid(w, r, &req) {
		return
	}
	u, err := s.Account(r).Register(r.Context(), backend.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		s.writeAuthError(w, r, err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, u)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	acc := s.Account(r)
	if r.URL.Query().Get("refresh") == "1" {
		u, err := acc.Refresh(r.Context())
		if err != nil {
			s.writeAuthError(w, r, err)
			return
		}
		kit.WriteJSON(w, http.StatusOK, u)
		return
	}

	u, ok := acc.Profile(r.Context())
	if !ok {
		kit.WriteError(w, r, http.StatusNotFound, "not signed in", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, u)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if !s.Account(r).Logout(r.Context()) {
		kit.WriteError(w, r, http.StatusInsufficientStorage, "sign out not saved", nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *backend.APIError
	msg := ""
	if errors.As(err, &apiErr) {
		msg = apiErr.Message
	}

	switch {
	case errors.Is(err, ErrSignedOut):
		kit.WriteError(w, r, http.StatusNotFound, "not signed in", nil)
	case errors.Is(err, backend.ErrUnauthorized):
		kit.WriteError(w, r, http.StatusUnauthorized, orDefault(msg, "invalid credentials"), nil)
	case errors.Is(err, backend.ErrBadStatus) && apiErr != nil && apiErr.Status >= 400:
		kit.WriteError(w, r, apiErr.Status, orDefault(msg, "rejected"), nil)
	case errors.Is(err, ErrNotSaved):
		kit.WriteError(w, r, http.StatusInsufficientStorage, "account not saved", nil)
	case errors.Is(err, ErrUnavailable), errors.Is(err, backend.ErrUnavailable), errors.Is(err, backend.ErrNotFound):
		if s.Log != nil {
			s.Log.Warn("account backend unavailable", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusBadGateway, "account service unavailable", nil)
	default:
		if s.Log != nil {
			s.Log.Error("account request failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusBadGateway, "account service error", nil)
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
