package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// User is the lightweight profile kept by the storefront.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type Auth struct {
	Token string
	User  User
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type rawUser struct {
	ID        string `json:"id"`
	MongoID   string `json:"_id"`
	Name      string `json:"name"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

func (r rawUser) user() User {
	u := User{ID: r.ID, Name: r.Name, Email: r.Email, Role: r.Role}
	if u.ID == "" {
		u.ID = r.MongoID
	}
	if u.Name == "" {
		u.Name = strings.TrimSpace(r.FirstName + " " + r.LastName)
	}
	return u
}

func decodeAuth(data json.RawMessage) (Auth, error) {
	var payload struct {
		Token string  `json:"token"`
		User  rawUser `json:"user"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return Auth{}, fmt.Errorf("%w: auth payload: %v", ErrBadStatus, err)
	}
	if payload.Token == "" {
		return Auth{}, fmt.Errorf("%w: auth payload without token", ErrBadStatus)
	}
	return Auth{Token: payload.Token, User: payload.User.user()}, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Auth, error) {
	data, err := c.do(ctx, http.MethodPost, "/auth/login", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return Auth{}, err
	}
	return decodeAuth(data)
}

// Register sends both a full name and first/last parts; each API revision
// reads the fields it knows.
func (c *Client) Register(ctx context.Context, in RegisterInput) (Auth, error) {
	first, last, _ := strings.Cut(strings.TrimSpace(in.Name), " ")
	data, err := c.do(ctx, http.MethodPost, "/auth/register", "", map[string]string{
		"name":      in.Name,
		"firstName": first,
		"lastName":  strings.TrimSpace(last),
		"email":     in.Email,
		"password":  in.Password,
	})
	if err != nil {
		return Auth{}, err
	}
	return decodeAuth(data)
}

func (c *Client) Me(ctx context.Context, token string) (User, error) {
	data, err := c.do(ctx, http.MethodGet, "/auth/me", token, nil)
	if err != nil {
		return User{}, err
	}
	var u rawUser
	if err := json.Unmarshal(data, &u); err != nil {
		return User{}, fmt.Errorf("%w: user payload: %v", ErrBadStatus, err)
	}
	return u.user(), nil
}
