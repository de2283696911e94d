// Package auth issues and verifies the bearer tokens that bind an HTTP
// client to its session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("auth: missing bearer token")
	ErrInvalidToken = errors.New("auth: invalid token")
)

const (
	DefaultIssuer = "agrotwin"
	DefaultTTL    = 24 * time.Hour
)

// Claims carries the session a token belongs to in the subject.
type Claims struct {
	jwt.RegisteredClaims
}

// SessionID returns the subject.
func (c *Claims) SessionID() string { return c.Subject }

// Issuer signs HS256 session tokens.
type Issuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

type Option func(*Issuer)

// WithTTL sets token lifetime.
func WithTTL(d time.Duration) Option { return func(i *Issuer) { i.ttl = d } }

// WithClock makes issuing and expiry checks follow now.
func WithClock(now func() time.Time) Option { return func(i *Issuer) { i.now = now } }

func WithIssuer(name string) Option { return func(i *Issuer) { i.issuer = name } }

func NewIssuer(secret string, opts ...Option) (*Issuer, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("auth: secret must be at least 16 bytes, got %d", len(secret))
	}
	i := &Issuer{secret: []byte(secret), issuer: DefaultIssuer, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(i)
	}
	return i, nil
}

// Issue returns a signed token for sessionID.
func (i *Issuer) Issue(sessionID string) (string, time.Time, error) {
	now := i.now()
	exp := now.Add(i.ttl)
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    i.issuer,
		Subject:   sessionID,
		Audience:  jwt.ClaimStrings{i.issuer},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
		ID:        uuid.NewString(),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns its claims.
func (i *Issuer) Parse(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return claims, nil
}

// BearerToken extracts the token from an Authorization header.
func BearerToken(r *http.Request) (string, error) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

type ctxKey struct{}

// WithSession stores the session id in ctx.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, sessionID)
}

// SessionFrom returns the session id stored by WithSession.
func SessionFrom(ctx context.Context) (string, bool) {
	sid, ok := ctx.Value(ctxKey{}).(string)
	return sid, ok && sid != ""
}

// Middleware rejects requests without a valid token and stores the session
// id in the request context. onError writes the rejection.
func (i *Issuer) Middleware(onError func(http.ResponseWriter, *http.Request, error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := BearerToken(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			claims, err := i.Parse(raw)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), claims.SessionID())))
		})
	}
}
