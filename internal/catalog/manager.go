// Package catalog owns the shop's product list: ingestion of loosely shaped
// product documents, persistence under a single key, queries and images.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
)

const (
	ProductsKey = "shopProducts"

	// SyncTimeout bounds one shared upstream fetch.
	SyncTimeout = 30 * time.Second

	MsgDuplicate = "Product already exists"
)

var (
	ErrNoSource  = errors.New("catalog has no remote source")
	ErrNotSaved  = errors.New("catalog not saved")
	ErrDuplicate = errors.New("product already exists")
)

// Source lists product documents from an upstream system.
type Source interface {
	Products(ctx context.Context) ([]map[string]any, error)
}

type Options struct {
	Images   ImageStore
	Source   Source
	Log      *zap.Logger
	Defaults []Product
}

type Manager struct {
	store    *kvstore.Store
	images   ImageStore
	source   Source
	log      *zap.Logger
	defaults []Product

	// Shared by copies from WithNotifier: read-modify-write cycles on the
	// catalog key run one at a time within the process.
	mu     *sync.Mutex
	flight *singleflight.Group
}

func NewManager(store *kvstore.Store, o Options) *Manager {
	m := &Manager{
		store:    store,
		images:   o.Images,
		source:   o.Source,
		log:      o.Log,
		defaults: o.Defaults,
		mu:       &sync.Mutex{},
		flight:   &singleflight.Group{},
	}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.defaults == nil {
		m.defaults = DefaultProducts
	}
	return m
}

// WithNotifier returns a view of the same catalog that reports to n.
func (m *Manager) WithNotifier(n notify.Notifier) *Manager {
	c := *m
	c.store = m.store.WithNotifier(n)
	return &c
}

// Init seeds the default products when the catalog is absent or empty.
func (m *Manager) Init(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.Products(ctx)) > 0 {
		return true
	}
	seed := make([]Product, 0, len(m.defaults))
	for _, p := range m.defaults {
		seed = append(seed, Normalize(p))
	}
	m.log.Info("seeding catalog", zap.Int("products", len(seed)))
	return m.store.Write(ctx, ProductsKey, seed)
}

// Products reads the catalog fresh from the store. Entries that cannot be
// ingested are skipped.
func (m *Manager) Products(ctx context.Context) []Product {
	raws := kvstore.Read[[]json.RawMessage](ctx, m.store, ProductsKey, nil)
	out := make([]Product, 0, len(raws))
	for i, raw := range raws {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			m.log.Warn("skipping malformed catalog entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		p, err := Ingest(doc)
		if err != nil {
			m.log.Warn("skipping catalog entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out
}

func (m *Manager) SetProducts(ctx context.Context, products []Product) bool {
	if products == nil {
		products = []Product{}
	}
	return m.store.Write(ctx, ProductsKey, products)
}

// AddProduct appends p unless a product with the same id or name exists.
// Inline data-URL images are moved to the image store.
func (m *Manager) AddProduct(ctx context.Context, p Product) bool {
	return m.Add(ctx, p) == nil
}

// Add is AddProduct reporting why the product was rejected.
func (m *Manager) Add(ctx context.Context, p Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		m.store.Notifier().Notify(ctx, "Product name is required", notify.Error)
		return ErrNameRequired
	}
	p = Normalize(p)

	m.mu.Lock()
	defer m.mu.Unlock()

	products := m.Products(ctx)
	for _, existing := range products {
		if existing.ID == p.ID || existing.Name == p.Name {
			m.store.Notifier().Notify(ctx, MsgDuplicate, notify.Error)
			return ErrDuplicate
		}
	}

	if m.images != nil && strings.HasPrefix(p.Image, "data:") {
		if err := m.images.Put(ctx, p.ID, p.Image); err != nil {
			m.log.Warn("image not stored, keeping it inline", zap.String("product_id", p.ID), zap.Error(err))
		} else {
			p.Image = ""
			p.HasImage = true
		}
	}

	if !m.SetProducts(ctx, append(products, p)) {
		return ErrNotSaved
	}
	m.store.Notifier().Notify(ctx, fmt.Sprintf("%s added to catalog", p.Name), notify.Success)
	return nil
}

// ProductByID finds a product by id, then by exact name.
func (m *Manager) ProductByID(ctx context.Context, idOrName string) (Product, bool) {
	products := m.Products(ctx)
	for _, p := range products {
		if p.ID == idOrName {
			return p, true
		}
	}
	for _, p := range products {
		if p.Name == idOrName {
			return p, true
		}
	}
	return Product{}, false
}

func (m *Manager) Search(ctx context.Context, query string) []Product {
	return Match(m.Products(ctx), query)
}

func (m *Manager) FilterByCategory(ctx context.Context, category string) []Product {
	return InCategory(m.Products(ctx), category)
}

// Image resolves the displayable image for p. Image store misses and errors
// fall back to the inline reference.
func (m *Manager) Image(ctx context.Context, p Product) string {
	if !p.HasImage || m.images == nil {
		return p.Image
	}
	data, ok, err := m.images.Get(ctx, p.ID)
	if err != nil {
		m.log.Warn("image lookup failed", zap.String("product_id", p.ID), zap.Error(err))
		return p.Image
	}
	if !ok {
		return p.Image
	}
	return data
}

// Sync replaces the catalog with the upstream product list. Concurrent calls
// share one upstream fetch, which runs detached from any single caller: a
// caller that gives up returns its own context error and leaves the fetch
// running for the others.
func (m *Manager) Sync(ctx context.Context) (int, error) {
	if m.source == nil {
		return 0, ErrNoSource
	}

	ch := m.flight.DoChan("products", func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), SyncTimeout)
		defer cancel()
		return m.fetch(fctx)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return 0, res.Err
	}
	m.log.Info("catalog synced", zap.Int("products", res.Val.(int)), zap.Bool("shared", res.Shared))
	return res.Val.(int), nil
}

func (m *Manager) fetch(ctx context.Context) (int, error) {
	raws, err := m.source.Products(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch products: %w", err)
	}

	products := make([]Product, 0, len(raws))
	seen := make(map[string]struct{}, len(raws))
	for _, raw := range raws {
		p, err := Ingest(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		products = append(products, p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.SetProducts(ctx, products) {
		return 0, ErrNotSaved
	}
	return len(products), nil
}
