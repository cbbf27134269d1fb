package session

import (
	"context"
	"net/http"

	"NetShop/internal/kvstore"
	"NetShop/pkg/kit"
)

type ctxKey struct{}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxKey{}).(string)
	return id, ok && id != ""
}

// Require rejects requests without a valid session bearer token and puts the
// session id into the request context.
func Require(tokens *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := kit.BearerToken(r)
			if !ok {
				kit.WriteError(w, r, http.StatusUnauthorized, "missing session token", nil)
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				kit.WriteError(w, r, http.StatusUnauthorized, "invalid session token", nil)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithID(r.Context(), claims.SessionID)))
		})
	}
}

// Scope is the part of store owned by one session.
func Scope(store *kvstore.Store, id string) *kvstore.Store {
	return store.Scope("session").Scope(id)
}
