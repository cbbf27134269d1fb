package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, body any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}

	mux.HandleFunc("GET /products", func(w http.ResponseWriter, r *http.Request) {
		write(w, 200, map[string]any{
			"success": true,
			"data": map[string]any{
				"products":   []any{map[string]any{"_id": "p1", "name": "Remote", "price": 10}},
				"pagination": map[string]any{"total": 1},
			},
		})
	})
	mux.HandleFunc("GET /products/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "p1" {
			write(w, 404, map[string]any{"success": false, "message": "Product not found"})
			return
		}
		write(w, 200, map[string]any{"success": true, "data": map[string]any{"_id": "p1", "name": "Remote"}})
	})
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["password"] != "secret123" {
			write(w, 401, map[string]any{"success": false, "message": "Invalid email or password"})
			return
		}
		write(w, 200, map[string]any{"success": true, "data": map[string]any{
			"token": "tok-1",
			"user":  map[string]any{"_id": "u1", "firstName": "Ada", "lastName": "Obi", "email": in["email"], "role": "customer"},
		}})
	})
	mux.HandleFunc("POST /auth/register", func(w http.ResponseWriter, r *http.Request) {
		var in map[string]string
		_ = json.NewDecoder(r.Body).Decode(&in)
		if in["firstName"] != "Ada" || in["lastName"] != "Obi" {
			write(w, 400, map[string]any{"success": false, "message": "Validation failed"})
			return
		}
		write(w, 201, map[string]any{"success": true, "data": map[string]any{
			"token": "tok-2",
			"user":  map[string]any{"id": "u2", "name": in["name"], "email": in["email"], "role": "customer"},
		}})
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			write(w, 401, map[string]any{"success": false, "error": "Invalid token"})
			return
		}
		write(w, 200, map[string]any{"success": true, "data": map[string]any{"_id": "u1", "name": "Ada Obi"}})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestProducts_PaginatedShape(t *testing.T) {
	c := New(fakeAPI(t).URL+"/", time.Second)

	ps, err := c.Products(context.Background())
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(ps) != 1 || ps[0]["_id"] != "p1" {
		t.Fatalf("products=%v", ps)
	}

	if err := c.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func TestProduct_NotFound(t *testing.T) {
	c := New(fakeAPI(t).URL, time.Second)

	if _, err := c.Product(context.Background(), "p1"); err != nil {
		t.Fatalf("product: %v", err)
	}

	_, err := c.Product(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Product not found" {
		t.Fatalf("api error=%+v", apiErr)
	}
}

func TestLoginRegisterMe(t *testing.T) {
	ctx := context.Background()
	c := New(fakeAPI(t).URL, time.Second)

	a, err := c.Login(ctx, "ada@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if a.Token != "tok-1" || a.User.ID != "u1" || a.User.Name != "Ada Obi" || a.User.Role != "customer" {
		t.Fatalf("auth=%+v", a)
	}

	if _, err := c.Login(ctx, "ada@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad login err=%v", err)
	}

	a, err = c.Register(ctx, RegisterInput{Name: "Ada Obi", Email: "ada@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if a.Token != "tok-2" || a.User.ID != "u2" {
		t.Fatalf("register auth=%+v", a)
	}

	if _, err := c.Register(ctx, RegisterInput{Name: "Mononym"}); !errors.Is(err, ErrBadStatus) {
		t.Fatalf("bad register err=%v", err)
	}

	u, err := c.Me(ctx, "tok-1")
	if err != nil || u.ID != "u1" {
		t.Fatalf("me=%+v err=%v", u, err)
	}
	if _, err := c.Me(ctx, "other"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("me err=%v", err)
	}
}

func TestUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if err := New(url, 200*time.Millisecond).Ping(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("err=%v", err)
	}
}
