package session

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	Issuer     = "netshop-storefront"
	DefaultTTL = 30 * 24 * time.Hour

	idPrefix = "s_"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrInvalidID    = errors.New("invalid session id")
)

// TokenMaker signs and verifies HS256 session tokens.
type TokenMaker struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenMaker(secret string, ttl time.Duration) *TokenMaker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TokenMaker{
		secret: []byte(secret),
		issuer: Issuer,
		ttl:    ttl,
		now:    time.Now,
	}
}

type Claims struct {
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// NewID returns a fresh session id.
func NewID() string { return idPrefix + uuid.NewString() }

// ValidID reports whether id has the shape produced by NewID.
func ValidID(id string) bool {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok {
		return false
	}
	_, err := uuid.Parse(rest)
	return err == nil
}

// New signs a token for sessionID and returns it with its expiry.
func (t *TokenMaker) New(sessionID string) (string, time.Time, error) {
	if !ValidID(sessionID) {
		return "", time.Time{}, ErrInvalidID
	}
	now := t.now()
	exp := now.Add(t.ttl)

	claims := Claims{
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID,
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return s, exp, nil
}

func (t *TokenMaker) Parse(tokenStr string) (Claims, error) {
	var c Claims

	token, err := jwt.ParseWithClaims(tokenStr, &c, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithIssuer(t.issuer), jwt.WithTimeFunc(t.now))
	if err != nil || token == nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}
	if !ValidID(c.SessionID) {
		return Claims{}, ErrInvalidToken
	}

	return c, nil
}
