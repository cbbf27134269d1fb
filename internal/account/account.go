// Package account keeps the signed-in user of a session: the backend bearer
// token and a lightweight profile, each under its own key.
package account

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"NetShop/internal/backend"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
)

const (
	UserKey  = "user"
	TokenKey = "token"
)

var (
	ErrNotSaved    = errors.New("account not saved")
	ErrSignedOut   = errors.New("not signed in")
	ErrUnavailable = errors.New("account service unavailable")
)

// Authenticator is the slice of the backend API used for sign-in.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (backend.Auth, error)
	Register(ctx context.Context, in backend.RegisterInput) (backend.Auth, error)
	Me(ctx context.Context, token string) (backend.User, error)
}

type Manager struct {
	store *kvstore.Store
	auth  Authenticator
	log   *zap.Logger
}

func NewManager(store *kvstore.Store, auth Authenticator, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, auth: auth, log: log}
}

func (m *Manager) Login(ctx context.Context, email, password string) (backend.User, error) {
	if m.auth == nil {
		return backend.User{}, ErrUnavailable
	}
	a, err := m.auth.Login(ctx, email, password)
	if err != nil {
		return backend.User{}, err
	}
	if err := m.save(ctx, a); err != nil {
		return backend.User{}, err
	}
	m.store.Notifier().Notify(ctx, fmt.Sprintf("Welcome back, %s", displayName(a.User)), notify.Success)
	return a.User, nil
}

func (m *Manager) Register(ctx context.Context, in backend.RegisterInput) (backend.User, error) {
	if m.auth == nil {
		return backend.User{}, ErrUnavailable
	}
	a, err := m.auth.Register(ctx, in)
	if err != nil {
		return backend.User{}, err
	}
	if err := m.save(ctx, a); err != nil {
		return backend.User{}, err
	}
	m.store.Notifier().Notify(ctx, fmt.Sprintf("Welcome, %s", displayName(a.User)), notify.Success)
	return a.User, nil
}

func (m *Manager) save(ctx context.Context, a backend.Auth) error {
	if !m.store.Write(ctx, TokenKey, a.Token) {
		return ErrNotSaved
	}
	if !m.store.Write(ctx, UserKey, a.User) {
		m.store.Remove(ctx, TokenKey)
		return ErrNotSaved
	}
	return nil
}

func displayName(u backend.User) string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// Profile returns the stored profile. A session without a token is signed out
// even if a stale profile is left behind.
func (m *Manager) Profile(ctx context.Context) (backend.User, bool) {
	if m.Token(ctx) == "" {
		return backend.User{}, false
	}
	u := kvstore.Read(ctx, m.store, UserKey, backend.User{})
	return u, u.ID != "" || u.Email != ""
}

func (m *Manager) Token(ctx context.Context) string {
	return kvstore.Read(ctx, m.store, TokenKey, "")
}

// Refresh re-reads the profile from the API. A rejected token signs the
// session out.
func (m *Manager) Refresh(ctx context.Context) (backend.User, error) {
	tok := m.Token(ctx)
	if tok == "" {
		return backend.User{}, ErrSignedOut
	}
	if m.auth == nil {
		return backend.User{}, ErrUnavailable
	}

	u, err := m.auth.Me(ctx, tok)
	if errors.Is(err, backend.ErrUnauthorized) {
		m.log.Info("backend token rejected, signing out")
		m.Logout(ctx)
		return backend.User{}, ErrSignedOut
	}
	if err != nil {
		return backend.User{}, err
	}
	if !m.store.Write(ctx, UserKey, u) {
		return backend.User{}, ErrNotSaved
	}
	return u, nil
}

// Logout forgets the token and the profile.
func (m *Manager) Logout(ctx context.Context) bool {
	okTok := m.store.Remove(ctx, TokenKey)
	okUser := m.store.Remove(ctx, UserKey)
	return okTok && okUser
}
