// Package cart keeps a session's shopping cart as a single JSON list in the
// key-value store. Every mutation is a full read-modify-write of that list.
package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"NetShop/internal/catalog"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
)

const (
	Key = "cart"

	MsgInvalidProduct = "Invalid product"
)

type Item struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Image     string  `json:"image"`
	BrandName string  `json:"brandName"`
	Quantity  int     `json:"quantity"`
}

// Listener is told the new item count after every persisted change.
type Listener func(ctx context.Context, count int)

type Options struct {
	// Notifier overrides the store's notifier for outcome toasts.
	Notifier  notify.Notifier
	Listeners []Listener
	// Lock serializes mutations of one cart. Nil means no locking.
	Lock    sync.Locker
	Metrics *Metrics
	Log     *zap.Logger
}

type Manager struct {
	store     *kvstore.Store
	listeners []Listener
	lock      sync.Locker
	metrics   *Metrics
	log       *zap.Logger
}

type noLock struct{}

func (noLock) Lock()   {}
func (noLock) Unlock() {}

func NewManager(store *kvstore.Store, o Options) *Manager {
	if o.Notifier != nil {
		store = store.WithNotifier(o.Notifier)
	}
	m := &Manager{
		store:     store,
		listeners: o.Listeners,
		lock:      o.Lock,
		metrics:   o.Metrics,
		log:       o.Log,
	}
	if m.lock == nil {
		m.lock = noLock{}
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	return m
}

// OnChange registers l for count refreshes.
func (m *Manager) OnChange(l Listener) {
	m.listeners = append(m.listeners, l)
}

func (m *Manager) notify(ctx context.Context, msg string, kind notify.Kind) {
	m.store.Notifier().Notify(ctx, msg, kind)
}

// Items returns the stored cart, or an empty list when it is absent or corrupt.
// Entries that are not objects, carry neither id nor name, or hold no unit
// are dropped.
func (m *Manager) Items(ctx context.Context) []Item {
	raws := kvstore.Read[[]json.RawMessage](ctx, m.store, Key, nil)
	items := make([]Item, 0, len(raws))
	for _, raw := range raws {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			continue
		}
		if it, ok := itemFrom(doc); ok {
			items = append(items, it)
		}
	}
	return items
}

func itemFrom(doc map[string]any) (Item, bool) {
	it := Item{
		ID:        stringField(doc, "id"),
		Name:      stringField(doc, "name"),
		Price:     catalog.NormalizePrice(doc["price"]),
		Image:     stringField(doc, "image"),
		BrandName: stringField(doc, "brandName"),
		Quantity:  int(catalog.NormalizePrice(doc["quantity"])),
	}
	if it.BrandName == "" {
		it.BrandName = stringField(doc, "brand")
	}
	if it.ID == "" && it.Name == "" {
		return Item{}, false
	}
	if it.Quantity < 1 {
		return Item{}, false
	}
	return it, true
}

func stringField(doc map[string]any, key string) string {
	switch v := doc[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func (m *Manager) save(ctx context.Context, items []Item) bool {
	if items == nil {
		items = []Item{}
	}
	if !m.store.Write(ctx, Key, items) {
		return false
	}
	m.changed(ctx, items)
	return true
}

func (m *Manager) changed(ctx context.Context, items []Item) {
	n := count(items)
	for _, l := range m.listeners {
		l(ctx, n)
	}
}

// AddItem puts one unit of p into the cart, merging with an existing line
// matched by id first and by name second.
func (m *Manager) AddItem(ctx context.Context, p catalog.Product) bool {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		m.log.Warn("rejecting cart item without name", zap.String("id", p.ID))
		m.notify(ctx, MsgInvalidProduct, notify.Error)
		m.metrics.observe("add", false)
		return false
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	items := m.Items(ctx)
	if i := indexOf(items, p.ID, name); i >= 0 {
		items[i].Quantity++
	} else {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			id = catalog.Slugify(name)
		}
		price := catalog.NormalizePrice(p.Price)
		if price < 0 {
			price = 0
		}
		items = append(items, Item{
			ID:        id,
			Name:      name,
			Price:     price,
			Image:     p.Image,
			BrandName: p.BrandName,
			Quantity:  1,
		})
	}

	ok := m.save(ctx, items)
	m.metrics.observe("add", ok)
	if ok {
		m.notify(ctx, fmt.Sprintf("%s added to cart", name), notify.Success)
	}
	return ok
}

func indexOf(items []Item, id, name string) int {
	if id != "" {
		for i, it := range items {
			if it.ID == id {
				return i
			}
		}
	}
	for i, it := range items {
		if it.Name == name {
			return i
		}
	}
	return -1
}

func matches(it Item, idOrName string) bool {
	return it.ID == idOrName || it.Name == idOrName
}

// RemoveItem drops every line whose id or name equals idOrName. Nothing is
// written when no line matched.
func (m *Manager) RemoveItem(ctx context.Context, idOrName string) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.remove(ctx, idOrName)
}

func (m *Manager) remove(ctx context.Context, idOrName string) bool {
	items := m.Items(ctx)
	kept := make([]Item, 0, len(items))
	for _, it := range items {
		if !matches(it, idOrName) {
			kept = append(kept, it)
		}
	}
	if len(kept) == len(items) {
		m.metrics.observe("remove", false)
		return false
	}

	ok := m.save(ctx, kept)
	m.metrics.observe("remove", ok)
	return ok
}

// UpdateQuantity sets the quantity of an existing line. Zero or less removes it.
func (m *Manager) UpdateQuantity(ctx context.Context, idOrName string, qty int) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	items := m.Items(ctx)
	i := -1
	for j, it := range items {
		if matches(it, idOrName) {
			i = j
			break
		}
	}
	if i < 0 {
		m.metrics.observe("update", false)
		return false
	}
	if qty <= 0 {
		return m.remove(ctx, idOrName)
	}

	items[i].Quantity = qty
	ok := m.save(ctx, items)
	m.metrics.observe("update", ok)
	return ok
}

// Clear stores an empty cart regardless of its current contents. Listeners
// hear the resulting count even when the write fails.
func (m *Manager) Clear(ctx context.Context) bool {
	m.lock.Lock()
	defer m.lock.Unlock()

	return m.clear(ctx)
}

func (m *Manager) clear(ctx context.Context) bool {
	ok := m.save(ctx, nil)
	m.metrics.observe("clear", ok)
	if !ok {
		m.changed(ctx, m.Items(ctx))
	}
	return ok
}

// Drain hands the current items to fn and empties the cart once fn returns
// nil. The cart's lock is held throughout, so no other mutation of this cart
// can land between the read and the clear. A nil error with false means fn
// succeeded but the empty cart could not be stored.
func (m *Manager) Drain(ctx context.Context, fn func(items []Item) error) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	if err := fn(m.Items(ctx)); err != nil {
		return false, err
	}
	return m.clear(ctx), nil
}

func (m *Manager) ItemCount(ctx context.Context) int {
	return count(m.Items(ctx))
}

func count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// Subtotal sums price times quantity. Prices are re-normalized on the way.
func (m *Manager) Subtotal(ctx context.Context) float64 {
	return SubtotalOf(m.Items(ctx))
}

// SubtotalOf is computed in decimal and converted once at the end.
func SubtotalOf(items []Item) float64 {
	sum := decimal.Zero
	for _, it := range items {
		line := decimal.NewFromFloat(catalog.NormalizePrice(it.Price)).Mul(decimal.NewFromInt(int64(it.Quantity)))
		sum = sum.Add(line)
	}
	return sum.InexactFloat64()
}
