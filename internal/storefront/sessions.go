package storefront

import (
	"net/http"

	"go.uber.org/zap"

	"NetShop/internal/account"
	"NetShop/internal/backend"
	"NetShop/internal/cart"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
	"NetShop/internal/order"
	"NetShop/internal/session"
)

// sessions builds the per-request managers of the calling session. Managers
// hold no state of their own beyond the shared lock, so building them per
// request is cheap.
type sessions struct {
	deps Deps
	log  *zap.Logger
}

func (s *sessions) id(r *http.Request) string {
	id, _ := session.FromContext(r.Context())
	return id
}

func (s *sessions) notifier(r *http.Request) notify.Notifier {
	id := s.id(r)
	if id == "" || s.deps.Feed == nil {
		return notify.Log{L: s.log}
	}
	return s.deps.Feed.For(id)
}

func (s *sessions) store(r *http.Request) *kvstore.Store {
	return session.Scope(s.deps.Store, s.id(r)).WithNotifier(s.notifier(r))
}

func (s *sessions) cart(r *http.Request) *cart.Manager {
	return cart.NewManager(s.store(r), cart.Options{
		Lock:    s.deps.Locks.For(s.id(r)),
		Metrics: s.deps.CartMetrics,
		Log:     s.log,
	})
}

func (s *sessions) orders(r *http.Request) *order.Manager {
	return order.NewManager(s.store(r), order.Options{
		DeliveryFee: s.deps.DeliveryFee,
		Delay:       s.deps.ProcessingDelay,
		Log:         s.log,
	})
}

func (s *sessions) account(r *http.Request) *account.Manager {
	var auth account.Authenticator
	if s.deps.Backend != nil {
		auth = s.deps.Backend
	}
	return account.NewManager(s.store(r), auth, s.log)
}

var _ account.Authenticator = (*backend.Client)(nil)
