package cart

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NetShop/internal/catalog"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
)

type toast struct {
	msg  string
	kind notify.Kind
}

type recorder struct {
	mu  sync.Mutex
	got []toast
}

func (r *recorder) Notify(_ context.Context, msg string, kind notify.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, toast{msg, kind})
}

func newCart(t *testing.T, quota int) (*Manager, *kvstore.Store, *recorder) {
	t.Helper()
	store := kvstore.New(kvstore.NewMemBackend(quota), kvstore.Options{Prefix: "test"}).Scope("session:s1")
	rec := &recorder{}
	return NewManager(store, Options{Notifier: rec, Lock: &sync.Mutex{}}), store, rec
}

var shoe = catalog.Product{ID: "a", Name: "Shoe", Price: 100}

func TestAddTwiceThenRemove(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newCart(t, 0)

	require.True(t, m.AddItem(ctx, shoe))
	assert.Equal(t, []Item{{ID: "a", Name: "Shoe", Price: 100, Quantity: 1}}, m.Items(ctx))

	require.True(t, m.AddItem(ctx, shoe))
	items := m.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)

	require.True(t, m.RemoveItem(ctx, "a"))
	assert.Empty(t, m.Items(ctx))

	assert.Equal(t, toast{"Shoe added to cart", notify.Success}, rec.got[0])
}

func TestAddMatchesByIDThenName(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newCart(t, 0)

	require.True(t, m.AddItem(ctx, catalog.Product{ID: "x", Name: "First"}))
	require.True(t, m.AddItem(ctx, catalog.Product{ID: "y", Name: "Second"}))

	// id wins over a name that points at another line
	require.True(t, m.AddItem(ctx, catalog.Product{ID: "y", Name: "First"}))
	// unknown id falls back to name
	require.True(t, m.AddItem(ctx, catalog.Product{ID: "zzz", Name: "First"}))

	items := m.Items(ctx)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 2, items[1].Quantity)
}

func TestAddDerivesIDAndNormalizesPrice(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newCart(t, 0)

	require.True(t, m.AddItem(ctx, catalog.Product{Name: "New Balance 550", BrandName: "New Balance", Price: -4}))
	items := m.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "new-balance-550", items[0].ID)
	assert.Zero(t, items[0].Price)
	assert.Equal(t, "New Balance", items[0].BrandName)
}

func TestAddRejectsNamelessProduct(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newCart(t, 0)

	assert.False(t, m.AddItem(ctx, catalog.Product{ID: "a", Name: "  "}))
	assert.Empty(t, m.Items(ctx))
	assert.Equal(t, []toast{{MsgInvalidProduct, notify.Error}}, rec.got)
}

func TestQuantityFloor(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newCart(t, 0)

	require.True(t, m.AddItem(ctx, shoe))
	require.True(t, m.AddItem(ctx, catalog.Product{ID: "b", Name: "Hat", Price: 10}))

	require.True(t, m.UpdateQuantity(ctx, "a", 0))
	require.True(t, m.UpdateQuantity(ctx, "Hat", -5))
	assert.Empty(t, m.Items(ctx))

	assert.False(t, m.UpdateQuantity(ctx, "a", 3))
	assert.False(t, m.RemoveItem(ctx, "a"))
}

func TestUpdateQuantitySets(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newCart(t, 0)

	require.True(t, m.AddItem(ctx, shoe))
	require.True(t, m.UpdateQuantity(ctx, "Shoe", 7))
	assert.Equal(t, 7, m.ItemCount(ctx))
}

func TestRemoveMissingDoesNotWrite(t *testing.T) {
	ctx := context.Background()
	backend := kvstore.NewMemBackend(0)
	m := NewManager(kvstore.New(backend, kvstore.Options{}), Options{})

	assert.False(t, m.RemoveItem(ctx, "ghost"))
	assert.Zero(t, backend.Used())
}

func TestCountAndSubtotal(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newCart(t, 0)

	require.True(t, m.AddItem(ctx, catalog.Product{ID: "a", Name: "A", Price: 0.1}))
	require.True(t, m.AddItem(ctx, catalog.Product{ID: "b", Name: "B", Price: 0.2}))
	require.True(t, m.UpdateQuantity(ctx, "b", 3))

	assert.Equal(t, 4, m.ItemCount(ctx))
	assert.Equal(t, 0.7, m.Subtotal(ctx))
}

func TestLegacyEntriesAreCoerced(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newCart(t, 0)

	require.True(t, store.Write(ctx, Key, []any{
		map[string]any{"id": "a", "name": "Shoe", "price": "₦1,200.50", "quantity": 2, "brand": "Acme"},
		map[string]any{"price": 5},
		42,
	}))

	items := m.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "Acme", items[0].BrandName)
	assert.Equal(t, 2, m.ItemCount(ctx))
	assert.Equal(t, 2401.0, m.Subtotal(ctx))
}

func TestLinesWithoutUnitsAreDropped(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newCart(t, 0)

	require.True(t, store.Write(ctx, Key, []any{
		map[string]any{"id": "a", "name": "Shoe", "price": 10, "quantity": 1},
		map[string]any{"id": "b", "name": "Hat", "price": 5},
		map[string]any{"id": "c", "name": "Sock", "price": 2, "quantity": 0},
		map[string]any{"id": "d", "name": "Belt", "price": 2, "quantity": "-3"},
	}))

	items := m.Items(ctx)
	require.Len(t, items, 1)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, 1, m.ItemCount(ctx))

	// The next mutation rewrites the list without them.
	require.True(t, m.AddItem(ctx, catalog.Product{ID: "b", Name: "Hat", Price: 5}))
	assert.Equal(t, 2, m.ItemCount(ctx))
	hat := m.Items(ctx)[1]
	assert.Equal(t, 1, hat.Quantity)
}

func TestCorruptCartIsEmpty(t *testing.T) {
	ctx := context.Background()
	m, store, _ := newCart(t, 0)

	require.True(t, store.Write(ctx, Key, "not a list"))
	assert.Empty(t, m.Items(ctx))
	assert.Zero(t, m.Subtotal(ctx))
}

func TestQuotaFailureIsReported(t *testing.T) {
	ctx := context.Background()
	m, _, rec := newCart(t, 40)

	assert.False(t, m.AddItem(ctx, catalog.Product{ID: "big", Name: strings.Repeat("x", 64)}))
	assert.Empty(t, m.Items(ctx))
	assert.Equal(t, []toast{{kvstore.MsgStorageFull, notify.Error}}, rec.got)
}

func TestListenersAndMetrics(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := kvstore.New(kvstore.NewMemBackend(0), kvstore.Options{})

	var counts []int
	m := NewManager(store, Options{Metrics: metrics})
	m.OnChange(func(_ context.Context, n int) { counts = append(counts, n) })

	require.True(t, m.AddItem(ctx, shoe))
	require.True(t, m.AddItem(ctx, shoe))
	assert.False(t, m.RemoveItem(ctx, "ghost"))
	require.True(t, m.Clear(ctx))

	assert.Equal(t, []int{1, 2, 0}, counts)
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("remove", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Mutations.WithLabelValues("clear", "ok")))
}

func TestConcurrentAddsAreSerialized(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newCart(t, 0)

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddItem(ctx, shoe)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, m.ItemCount(ctx))
}

// readOnly serves reads from a memory backend and rejects every write.
type readOnly struct {
	kvstore.Backend
}

func (readOnly) Set(context.Context, string, []byte) error { return errors.New("read-only") }

func TestClearRefreshesListenersWhenWriteFails(t *testing.T) {
	ctx := context.Background()
	mem := kvstore.NewMemBackend(0)
	seed := kvstore.New(mem, kvstore.Options{})
	require.True(t, seed.Write(ctx, Key, []Item{{ID: "a", Name: "Shoe", Price: 1, Quantity: 2}}))

	var counts []int
	m := NewManager(kvstore.New(readOnly{mem}, kvstore.Options{}), Options{})
	m.OnChange(func(_ context.Context, n int) { counts = append(counts, n) })

	assert.False(t, m.Clear(ctx))
	assert.Equal(t, []int{2}, counts)
}

func TestDrainClearsOnlyOnSuccess(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newCart(t, 0)
	require.True(t, m.AddItem(ctx, shoe))

	errStop := errors.New("stop")
	cleared, err := m.Drain(ctx, func(items []Item) error {
		assert.Len(t, items, 1)
		return errStop
	})
	assert.ErrorIs(t, err, errStop)
	assert.False(t, cleared)
	assert.Equal(t, 1, m.ItemCount(ctx))

	var got []Item
	cleared, err = m.Drain(ctx, func(items []Item) error {
		got = items
		return nil
	})
	require.NoError(t, err)
	assert.True(t, cleared)
	assert.Len(t, got, 1)
	assert.Empty(t, m.Items(ctx))
}
