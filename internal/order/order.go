// Package order turns a session's cart into a placed order and keeps the
// session's order history.
package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"NetShop/internal/cart"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
	"NetShop/pkg/kit"
)

const (
	Key = "orders"

	DefaultDeliveryFee = 1200
	DefaultDelay       = time.Second

	StatusPending = "pending"

	MsgEmptyCart = "Your cart is empty!"
	MsgFillForm  = "Please fill in all fields."
)

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrInvalidForm = errors.New("invalid checkout form")
	ErrNotSaved    = errors.New("order not saved")
)

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city,omitempty"`
	Email   string `json:"email,omitempty"`
}

type Order struct {
	ID            string      `json:"id"`
	Items         []cart.Item `json:"items"`
	Subtotal      float64     `json:"subtotal"`
	DeliveryFee   float64     `json:"deliveryFee"`
	Total         float64     `json:"total"`
	Customer      Customer    `json:"customer"`
	PaymentMethod string      `json:"paymentMethod"`
	Status        string      `json:"status"`
	CreatedAt     time.Time   `json:"createdAt"`
}

// Form is what the shopper submits at checkout.
type Form struct {
	Name          string `json:"name" validate:"required,max=100"`
	Phone         string `json:"phone" validate:"required,min=7,max=20"`
	Address       string `json:"address" validate:"required,max=300"`
	City          string `json:"city" validate:"max=100"`
	Email         string `json:"email" validate:"omitempty,email"`
	PaymentMethod string `json:"paymentMethod" validate:"omitempty,oneof=card transfer cash"`
}

func (f Form) trimmed() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.Email = strings.TrimSpace(f.Email)
	if f.PaymentMethod == "" {
		f.PaymentMethod = "cash"
	}
	return f
}

type Options struct {
	DeliveryFee float64
	// Delay simulates payment processing before the order is stored.
	Delay time.Duration
	Log   *zap.Logger
	Now   func() time.Time
}

type Manager struct {
	store *kvstore.Store
	fee   float64
	delay time.Duration
	log   *zap.Logger
	now   func() time.Time
}

func NewManager(store *kvstore.Store, o Options) *Manager {
	m := &Manager{
		store: store,
		fee:   o.DeliveryFee,
		delay: o.Delay,
		log:   o.Log,
		now:   o.Now,
	}
	if m.fee < 0 {
		m.fee = 0
	}
	if m.delay < 0 {
		m.delay = 0
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

func (m *Manager) notify(ctx context.Context, msg string, kind notify.Kind) {
	m.store.Notifier().Notify(ctx, msg, kind)
}

// Checkout places an order for everything in c and empties it. The whole
// sequence runs under the cart's lock: a change made to the cart while the
// payment is processing waits for the checkout to finish, and a repeated
// submit finds the cart already empty. The order is stored before the cart
// is cleared; a failed clear leaves the order in place.
func (m *Manager) Checkout(ctx context.Context, c *cart.Manager, f Form) (Order, error) {
	f = f.trimmed()
	if err := kit.Validate(f); err != nil {
		m.notify(ctx, MsgFillForm, notify.Error)
		return Order{}, fmt.Errorf("%w: %w", ErrInvalidForm, err)
	}

	var o Order
	cleared, err := c.Drain(ctx, func(items []cart.Item) error {
		if len(items) == 0 {
			return ErrEmptyCart
		}

		sub := decimal.NewFromFloat(cart.SubtotalOf(items))
		fee := decimal.NewFromFloat(m.fee)

		if err := m.wait(ctx); err != nil {
			return err
		}

		o = Order{
			ID:            "o_" + uuid.NewString(),
			Items:         items,
			Subtotal:      sub.InexactFloat64(),
			DeliveryFee:   fee.InexactFloat64(),
			Total:         sub.Add(fee).InexactFloat64(),
			Customer:      Customer{Name: f.Name, Phone: f.Phone, Address: f.Address, City: f.City, Email: f.Email},
			PaymentMethod: f.PaymentMethod,
			Status:        StatusPending,
			CreatedAt:     m.now().UTC(),
		}
		if !m.append(ctx, o) {
			return ErrNotSaved
		}
		return nil
	})
	if errors.Is(err, ErrEmptyCart) {
		m.notify(ctx, MsgEmptyCart, notify.Warning)
	}
	if err != nil {
		return Order{}, err
	}

	if !cleared {
		m.log.Warn("order stored but cart not cleared", zap.String("order_id", o.ID))
	}
	m.notify(ctx, fmt.Sprintf("Thank you %s! Your order has been placed successfully.", o.Customer.Name), notify.Success)
	return o, nil
}

func (m *Manager) wait(ctx context.Context) error {
	if m.delay == 0 {
		return ctx.Err()
	}
	t := time.NewTimer(m.delay)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// append is only called from inside a cart drain, which already serializes
// the session.
func (m *Manager) append(ctx context.Context, o Order) bool {
	orders := kvstore.Read[[]Order](ctx, m.store, Key, nil)
	return m.store.Write(ctx, Key, append(orders, o))
}

// History lists the session's orders, newest first.
func (m *Manager) History(ctx context.Context) []Order {
	orders := kvstore.Read[[]Order](ctx, m.store, Key, nil)
	if orders == nil {
		return []Order{}
	}
	slices.Reverse(orders)
	return orders
}

func (m *Manager) Find(ctx context.Context, id string) (Order, bool) {
	for _, o := range kvstore.Read[[]Order](ctx, m.store, Key, nil) {
		if o.ID == id {
			return o, true
		}
	}
	return Order{}, false
}

// Receipt returns the order with the given id, or the most recent order when
// there is no such order.
func (m *Manager) Receipt(ctx context.Context, id string) (Order, bool) {
	orders := kvstore.Read[[]Order](ctx, m.store, Key, nil)
	if id != "" {
		for _, o := range orders {
			if o.ID == id {
				return o, true
			}
		}
	}
	if len(orders) == 0 {
		return Order{}, false
	}
	return orders[len(orders)-1], true
}
