package session

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"NetShop/pkg/kit"
)

type Server struct {
	Tokens *TokenMaker
	Log    *zap.Logger
}

type issueResp struct {
	Token     string    `json:"token"`
	SessionID string    `json:"sessionId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) IssueHandler() http.HandlerFunc { return s.issue }

// issue starts a session. A caller presenting a still-valid token gets a
// fresh token for the same session instead.
func (s *Server) issue(w http.ResponseWriter, r *http.Request) {
	id := ""
	status := http.StatusCreated
	if raw, ok := kit.BearerToken(r); ok {
		if c, err := s.Tokens.Parse(raw); err == nil {
			id = c.SessionID
			status = http.StatusOK
		}
	}
	if id == "" {
		id = NewID()
	}

	tok, exp, err := s.Tokens.New(id)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("sign session token failed", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	kit.WriteJSON(w, status, issueResp{Token: tok, SessionID: id, ExpiresAt: exp.UTC()})
}
