// Package backend talks to the NetShop REST API, which wraps every response
// as {"success": bool, "data": ..., "message"|"error": ...}.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultTimeout = 3 * time.Second

var (
	ErrNotFound     = errors.New("backend: not found")
	ErrUnauthorized = errors.New("backend: unauthorized")
	ErrUnavailable  = errors.New("backend: unavailable")
	ErrBadStatus    = errors.New("backend: bad status")
)

// APIError carries the status and message of a rejected request. It matches
// one of the sentinel errors above with errors.Is.
type APIError struct {
	Status  int
	Message string
	kind    error
}

func NewAPIError(status int, message string) *APIError {
	return &APIError{Status: status, Message: message, kind: kindOf(status)}
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status=%d", e.kind, e.Status)
	}
	return fmt.Sprintf("%s: status=%d: %s", e.kind, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.kind }

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

func (e envelope) text() string {
	if e.Error != "" {
		return e.Error
	}
	return e.Message
}

func (c *Client) do(ctx context.Context, method, path, token string, body any) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	var env envelope
	decErr := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env)
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 || (decErr == nil && !env.Success) {
		return nil, NewAPIError(resp.StatusCode, env.text())
	}
	if decErr != nil {
		return nil, fmt.Errorf("%w: decode envelope: %v", ErrBadStatus, decErr)
	}
	return env.Data, nil
}

func kindOf(status int) error {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status >= 500:
		return ErrUnavailable
	default:
		return ErrBadStatus
	}
}

// Products lists raw product documents. Both a bare array and the paginated
// {"products": [...]} shape are accepted.
func (c *Client) Products(ctx context.Context) ([]map[string]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/products?limit=1000", "", nil)
	if err != nil {
		return nil, err
	}

	var list []map[string]any
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var page struct {
		Products []map[string]any `json:"products"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("%w: products payload: %v", ErrBadStatus, err)
	}
	return page.Products, nil
}

func (c *Client) Product(ctx context.Context, id string) (map[string]any, error) {
	data, err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), "", nil)
	if err != nil {
		return nil, err
	}
	var p map[string]any
	if err := json.Unmarshal(data, &p); err != nil || p == nil {
		return nil, fmt.Errorf("%w: product payload", ErrBadStatus)
	}
	return p, nil
}

// Ping succeeds when the API answers a cheap listing request.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/products?limit=1", "", nil)
	return err
}
