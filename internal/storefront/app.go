// Package storefront assembles the HTTP surface of the shop: public catalog
// routes, session-scoped cart, checkout and account routes, and operational
// endpoints.
package storefront

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"NetShop/internal/account"
	"NetShop/internal/backend"
	"NetShop/internal/cart"
	"NetShop/internal/catalog"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
	"NetShop/internal/order"
	"NetShop/internal/session"
	"NetShop/pkg/kit"
)

type HTTPDeps struct {
	Log      *zap.Logger
	Service  string
	Registry *prometheus.Registry

	MetricsEnabled bool
	MetricsToken   string
}

type Deps struct {
	// Store is the root store; sessions get scoped children of it.
	Store   *kvstore.Store
	Catalog *catalog.Manager
	Tokens  *session.TokenMaker
	Locks   *session.Locks
	Feed    *notify.Feed
	// Backend is optional. Without it catalog sync, sign-in and the
	// wishlist are unavailable.
	Backend *backend.Client

	CartMetrics     *cart.Metrics
	DeliveryFee     float64
	ProcessingDelay time.Duration
}

const (
	readyTimeout = 2 * time.Second

	sessionRate = 20
	signInRate  = 10
	rateWindow  = time.Minute
)

var errNoStore = errors.New("storefront: store is required")

func NewHandler(deps Deps, httpDeps HTTPDeps) (http.Handler, error) {
	if deps.Store == nil || deps.Catalog == nil || deps.Tokens == nil {
		return nil, errNoStore
	}
	if deps.Locks == nil {
		deps.Locks = session.NewLocks()
	}
	log := httpDeps.Log
	if log == nil {
		log = zap.NewNop()
	}

	sess := &sessions{deps: deps, log: log}

	r := chi.NewRouter()
	setupMiddleware(r, httpDeps)
	setupMetrics(r, httpDeps)

	r.Get("/healthz", healthz)
	r.Get("/readyz", readyz(deps, log))

	sessionSrv := &session.Server{Tokens: deps.Tokens, Log: log}
	r.With(kit.NewIPRateLimiter(sessionRate, rateWindow).Middleware).
		Post("/session", sessionSrv.IssueHandler())

	catalogSrv := &catalog.Server{Catalog: deps.Catalog, Notifier: sess.notifier, Log: log}
	r.Get("/products", catalogSrv.ListHandler())
	r.Get("/products/{id}", catalogSrv.GetHandler())

	cartSrv := &cart.Server{Catalog: deps.Catalog, Cart: sess.cart, Log: log}
	if deps.Backend != nil {
		cartSrv.Remote = deps.Backend
	}
	orderSrv := &order.Server{Orders: sess.orders, Cart: sess.cart, Log: log}
	accountSrv := &account.Server{Account: sess.account, Log: log}

	wishlist, err := wishlistHandler(deps, sess, log)
	if err != nil {
		return nil, err
	}

	r.Group(func(pr chi.Router) {
		pr.Use(session.Require(deps.Tokens))

		pr.Post("/products", catalogSrv.CreateHandler())
		pr.Post("/products/sync", catalogSrv.SyncHandler())

		pr.Get("/cart", cartSrv.GetHandler())
		pr.Delete("/cart", cartSrv.ClearHandler())
		pr.Get("/cart/count", cartSrv.CountHandler())
		pr.Post("/cart/items", cartSrv.AddHandler())
		pr.Put("/cart/items/{id}", cartSrv.UpdateHandler())
		pr.Delete("/cart/items/{id}", cartSrv.RemoveHandler())

		pr.Post("/checkout", orderSrv.CheckoutHandler())
		pr.Get("/orders", orderSrv.ListHandler())
		pr.Get("/orders/receipt", orderSrv.ReceiptHandler())
		pr.Get("/orders/{id}", orderSrv.GetHandler())

		signIn := kit.NewIPRateLimiter(signInRate, rateWindow)
		pr.With(signIn.Middleware).Post("/account/login", accountSrv.LoginHandler())
		pr.With(signIn.Middleware).Post("/account/register", accountSrv.RegisterHandler())
		pr.Get("/account", accountSrv.ProfileHandler())
		pr.Delete("/account", accountSrv.LogoutHandler())

		pr.Get("/notifications", notifications(deps.Feed, sess))

		pr.Handle("/wishlist", wishlist)
		pr.Handle("/wishlist/*", wishlist)
	})

	return r, nil
}

func wishlistHandler(deps Deps, sess *sessions, log *zap.Logger) (http.Handler, error) {
	if deps.Backend == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			kit.WriteError(w, r, http.StatusNotImplemented, "wishlist unavailable", nil)
		}), nil
	}
	p, err := newBackendProxy(deps.Backend.BaseURL, log)
	if err != nil {
		return nil, err
	}
	return sess.injectBackendToken(p), nil
}

func setupMiddleware(r *chi.Mux, deps HTTPDeps) {
	r.Use(chimw.RequestID)
	r.Use(kit.Recoverer)
	r.Use(kit.Logging(deps.Log))
}

func setupMetrics(r *chi.Mux, deps HTTPDeps) {
	if deps.Registry == nil {
		return
	}

	metrics := kit.NewMetrics(deps.Registry)
	r.Use(metrics.Middleware(deps.Service, kit.RoutePattern))

	if !deps.MetricsEnabled {
		return
	}

	r.With(kit.MetricsAuth(deps.MetricsToken)).
		Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func readyz(deps Deps, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		if err := deps.Store.Ping(ctx); err != nil {
			log.Warn("readyz failed: store", zap.Error(err))
			kit.WriteError(w, r, http.StatusServiceUnavailable, "store not ready", nil)
			return
		}

		if deps.Backend != nil {
			if err := deps.Backend.Ping(ctx); err != nil {
				log.Warn("readyz failed: backend", zap.Error(err))
				kit.WriteError(w, r, http.StatusServiceUnavailable, "backend not ready", nil)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
	}
}

func notifications(feed *notify.Feed, sess *sessions) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if feed == nil {
			kit.WriteJSON(w, http.StatusOK, []notify.Toast{})
			return
		}
		kit.WriteJSON(w, http.StatusOK, feed.Pending(sess.id(r)))
	}
}
