package storefront_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"NetShop/internal/backend"
	"NetShop/internal/catalog"
	"NetShop/internal/kvstore"
	"NetShop/internal/notify"
	"NetShop/internal/order"
	"NetShop/internal/session"
	"NetShop/internal/storefront"
)

const jwtSecret = "test-secret-test-secret-test-secret"

// newBackendTS fakes the REST API: sign-in and a wishlist that echoes the
// bearer token it received.
func newBackendTS(t *testing.T) *httptest.Server {
	t.Helper()

	write := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products", func(w http.ResponseWriter, _ *http.Request) {
		write(w, 200, map[string]any{"success": true, "data": []any{
			map[string]any{"_id": "r1", "name": "Remote Runner", "price": "₦25,000"},
		}})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, _ *http.Request) {
		write(w, 200, map[string]any{"success": true, "data": map[string]any{
			"token": "backend-token",
			"user":  map[string]any{"_id": "u1", "name": "Ada", "email": "ada@example.com", "role": "customer"},
		}})
	})
	mux.HandleFunc("GET /api/wishlist", func(w http.ResponseWriter, r *http.Request) {
		write(w, 200, map[string]any{"success": true, "data": map[string]any{"authz": r.Header.Get("Authorization")}})
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newStorefrontTS(t *testing.T, backendURL string) *httptest.Server {
	t.Helper()

	store := kvstore.New(kvstore.NewMemBackend(kvstore.DefaultQuotaBytes), kvstore.Options{Prefix: "test"})

	var be *backend.Client
	if backendURL != "" {
		be = backend.New(backendURL+"/api", time.Second)
	}

	var src catalog.Source
	if be != nil {
		src = be
	}
	cat := catalog.NewManager(store, catalog.Options{Images: catalog.NewKVImages(store), Source: src})
	if !cat.Init(context.Background()) {
		t.Fatal("catalog init failed")
	}

	h, err := storefront.NewHandler(
		storefront.Deps{
			Store:       store,
			Catalog:     cat,
			Tokens:      session.NewTokenMaker(jwtSecret, time.Hour),
			Feed:        notify.NewFeed(time.Minute),
			Backend:     be,
			DeliveryFee: order.DefaultDeliveryFee,
		},
		storefront.HTTPDeps{
			Log:     zap.NewNop(),
			Service: "storefront",
			// Registry: nil
		},
	)
	if err != nil {
		t.Fatalf("storefront.NewHandler: %v", err)
	}

	ts := httptest.NewServer(h)
	t.Cleanup(ts.Close)
	return ts
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func doJSON(t *testing.T, method, url string, body any, token string) (int, envelope) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("decode: %v body=%s", err, string(raw))
		}
	}
	return resp.StatusCode, env
}

func newSession(t *testing.T, baseURL string) string {
	t.Helper()

	code, env := doJSON(t, http.MethodPost, baseURL+"/session", nil, "")
	if code != http.StatusCreated {
		t.Fatalf("session status=%d env=%+v", code, env)
	}
	var s struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(env.Data, &s); err != nil || s.Token == "" {
		t.Fatalf("session token: %v data=%s", err, string(env.Data))
	}
	return s.Token
}

func TestStorefront_PublicAPI_HappyPath(t *testing.T) {
	ts := newStorefrontTS(t, "")
	tok := newSession(t, ts.URL)

	{
		code, env := doJSON(t, http.MethodPost, ts.URL+"/cart/items", map[string]any{"id": "nike-air-sneakers"}, tok)
		if code != http.StatusOK {
			t.Fatalf("add status=%d env=%+v", code, env)
		}
		code, env = doJSON(t, http.MethodPost, ts.URL+"/cart/items", map[string]any{"id": "nike-air-sneakers"}, tok)
		if code != http.StatusOK {
			t.Fatalf("add again status=%d env=%+v", code, env)
		}
	}

	{
		code, env := doJSON(t, http.MethodGet, ts.URL+"/cart/count", nil, tok)
		var c struct {
			Count int `json:"count"`
		}
		_ = json.Unmarshal(env.Data, &c)
		if code != http.StatusOK || c.Count != 2 {
			t.Fatalf("count status=%d count=%d", code, c.Count)
		}
	}

	var created order.Order
	{
		code, env := doJSON(t, http.MethodPost, ts.URL+"/checkout", map[string]any{
			"name":    "Ada Obi",
			"phone":   "08012345678",
			"address": "1 Marina Road",
		}, tok)
		if code != http.StatusCreated {
			t.Fatalf("checkout status=%d env=%+v", code, env)
		}
		if err := json.Unmarshal(env.Data, &created); err != nil {
			t.Fatalf("decode order: %v", err)
		}
		if created.Subtotal != 240 || created.Total != 1440 || created.Status != order.StatusPending {
			t.Fatalf("order=%+v", created)
		}
	}

	{
		code, env := doJSON(t, http.MethodGet, ts.URL+"/orders/"+created.ID, nil, tok)
		var got order.Order
		_ = json.Unmarshal(env.Data, &got)
		if code != http.StatusOK || got.ID != created.ID {
			t.Fatalf("get order status=%d got=%+v", code, got)
		}
	}

	{
		code, env := doJSON(t, http.MethodGet, ts.URL+"/orders/receipt?orderId=missing", nil, tok)
		var rc order.Receipt
		_ = json.Unmarshal(env.Data, &rc)
		if code != http.StatusOK || rc.Order.ID != created.ID || rc.Total != "1,440.00" {
			t.Fatalf("receipt status=%d receipt=%+v", code, rc)
		}
	}

	{
		code, env := doJSON(t, http.MethodGet, ts.URL+"/cart", nil, tok)
		var v struct {
			Items []any `json:"items"`
		}
		_ = json.Unmarshal(env.Data, &v)
		if code != http.StatusOK || len(v.Items) != 0 {
			t.Fatalf("cart after checkout status=%d items=%d", code, len(v.Items))
		}
	}

	{
		code, env := doJSON(t, http.MethodGet, ts.URL+"/notifications", nil, tok)
		var toasts []notify.Toast
		_ = json.Unmarshal(env.Data, &toasts)
		if code != http.StatusOK || len(toasts) != 3 {
			t.Fatalf("notifications status=%d toasts=%+v", code, toasts)
		}
		if toasts[2].Kind != notify.Success {
			t.Fatalf("last toast=%+v", toasts[2])
		}
	}
}

func TestStorefront_SessionsAreIsolated(t *testing.T) {
	ts := newStorefrontTS(t, "")
	a := newSession(t, ts.URL)
	b := newSession(t, ts.URL)

	if code, _ := doJSON(t, http.MethodPost, ts.URL+"/cart/items", map[string]any{"id": "puma-classic"}, a); code != http.StatusOK {
		t.Fatalf("add status=%d", code)
	}

	_, env := doJSON(t, http.MethodGet, ts.URL+"/cart/count", nil, b)
	var c struct {
		Count int `json:"count"`
	}
	_ = json.Unmarshal(env.Data, &c)
	if c.Count != 0 {
		t.Fatalf("session b sees %d items", c.Count)
	}

	_, env = doJSON(t, http.MethodGet, ts.URL+"/notifications", nil, b)
	var toasts []notify.Toast
	_ = json.Unmarshal(env.Data, &toasts)
	if len(toasts) != 0 {
		t.Fatalf("session b got toasts %+v", toasts)
	}
}

func TestStorefront_SessionRequired(t *testing.T) {
	ts := newStorefrontTS(t, "")

	for _, path := range []string{"/cart", "/orders", "/account", "/notifications"} {
		code, _ := doJSON(t, http.MethodGet, ts.URL+path, nil, "")
		if code != http.StatusUnauthorized {
			t.Fatalf("%s status=%d", path, code)
		}
	}

	code, _ := doJSON(t, http.MethodGet, ts.URL+"/products", nil, "")
	if code != http.StatusOK {
		t.Fatalf("products status=%d", code)
	}
}

func TestStorefront_BackendFeatures(t *testing.T) {
	be := newBackendTS(t)
	ts := newStorefrontTS(t, be.URL)
	tok := newSession(t, ts.URL)

	if code, _ := doJSON(t, http.MethodGet, ts.URL+"/wishlist", nil, tok); code != http.StatusUnauthorized {
		t.Fatalf("wishlist before sign-in status=%d", code)
	}

	code, env := doJSON(t, http.MethodPost, ts.URL+"/account/login", map[string]any{
		"email":    "ada@example.com",
		"password": "secret123",
	}, tok)
	if code != http.StatusOK {
		t.Fatalf("login status=%d env=%+v", code, env)
	}

	code, env = doJSON(t, http.MethodGet, ts.URL+"/wishlist", nil, tok)
	var echoed struct {
		Authz string `json:"authz"`
	}
	_ = json.Unmarshal(env.Data, &echoed)
	if code != http.StatusOK || echoed.Authz != "Bearer backend-token" {
		t.Fatalf("wishlist status=%d env=%+v", code, env)
	}

	code, env = doJSON(t, http.MethodPost, ts.URL+"/products/sync", nil, tok)
	if code != http.StatusOK {
		t.Fatalf("sync status=%d env=%+v", code, env)
	}
	code, env = doJSON(t, http.MethodGet, ts.URL+"/products/r1", nil, "")
	if code != http.StatusOK {
		t.Fatalf("synced product status=%d env=%+v", code, env)
	}

	if code, _ := doJSON(t, http.MethodGet, ts.URL+"/readyz", nil, ""); code != http.StatusOK {
		t.Fatalf("readyz status=%d", code)
	}

	if code, _ := doJSON(t, http.MethodDelete, ts.URL+"/account", nil, tok); code != http.StatusNoContent {
		t.Fatalf("logout status=%d", code)
	}
	if code, _ := doJSON(t, http.MethodGet, ts.URL+"/account", nil, tok); code != http.StatusNotFound {
		t.Fatalf("profile after logout status=%d", code)
	}
}
