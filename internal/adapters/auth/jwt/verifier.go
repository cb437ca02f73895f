// Package jwt verifica localmente los access tokens del proveedor de
// identidad (HS256 con el secreto del proyecto).
package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"client-docs-portal/internal/ports/auth"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

var ErrTokenEmpty = errors.New("token is empty")

// Claims son los campos que emite el proveedor; sub es el id del usuario.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwtlib.RegisteredClaims
}

type Verifier struct {
	secret   []byte
	audience string
	leeway   time.Duration
	now      func() time.Time
}

var _ auth.AuthVerifier = (*Verifier)(nil)

// NewVerifier: audience vacío no valida aud.
func NewVerifier(secret, audience string) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("jwt secret required")
	}
	return &Verifier{secret: []byte(secret), audience: audience, leeway: 30 * time.Second, now: time.Now}, nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	opts := []jwtlib.ParserOption{
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithLeeway(v.leeway),
		jwtlib.WithTimeFunc(v.now),
		jwtlib.WithExpirationRequired(),
	}
	if v.audience != "" {
		opts = append(opts, jwtlib.WithAudience(v.audience))
	}

	var c Claims
	parsed, err := jwtlib.ParseWithClaims(token, &c, func(t *jwtlib.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("jwt verify failed: %w", err)
	}
	if !parsed.Valid {
		return auth.Claims{}, errors.New("jwt invalid")
	}

	sub := strings.TrimSpace(c.Subject)
	if sub == "" {
		return auth.Claims{}, errors.New("jwt claims missing sub")
	}
	return auth.Claims{UserID: sub, Email: strings.TrimSpace(c.Email)}, nil
}
