package storefront

import (
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"NetShop/pkg/kit"
)

// newBackendProxy forwards requests to the REST API under target's path.
func newBackendProxy(target string, log *zap.Logger) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, err
	}

	p := httputil.NewSingleHostReverseProxy(u)
	director := p.Director
	p.Director = func(r *http.Request) {
		director(r)
		r.Host = u.Host
	}
	p.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		if log != nil {
			log.Warn("backend proxy failed", zap.String("path", r.URL.Path), zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusBadGateway, "backend unavailable", nil)
	}
	return p, nil
}

// injectBackendToken swaps the storefront session token for the session's
// backend token. Sessions that never signed in are turned away.
func (s *sessions) injectBackendToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := s.account(r).Token(r.Context())
		if tok == "" {
			kit.WriteError(w, r, http.StatusUnauthorized, "sign in required", nil)
			return
		}

		r.Header.Del("Cookie")
		r.Header.Set("Authorization", "Bearer "+tok)
		next.ServeHTTP(w, r)
	})
}
