package gotrue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"client-docs-portal/internal/ports/auth"
)

var ErrTokenEmpty = errors.New("token is empty")

// Verifier implementa auth.AuthVerifier preguntándole al servicio de auth.
// Sirve cuando no se tiene el secreto JWT del proyecto.
type Verifier struct {
	client *Client
}

var _ auth.AuthVerifier = (*Verifier)(nil)

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, token string) (auth.Claims, error) {
	if v == nil || v.client == nil {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrTokenEmpty
	}

	claims, err := v.client.VerifyToken(ctx, token)
	if err != nil {
		return auth.Claims{}, fmt.Errorf("gotrue verify failed: %w", err)
	}
	return claims, nil
}
