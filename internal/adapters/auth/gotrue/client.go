// Package gotrue habla con el servicio de auth de la plataforma: verifica
// access tokens (anon key) y administra identidades (service role).
package gotrue

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"client-docs-portal/internal/platform/httpclient"
	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/identity"
)

var (
	ErrNotConfigured = errors.New("gotrue client not configured")
	ErrUnauthorized  = errors.New("gotrue unauthorized")
	ErrUpstream      = errors.New("gotrue upstream error")
)

type Config struct {
	BaseURL string
	// AnonKey va en el header apikey para verificar tokens de usuario.
	AnonKey string
	// ServiceKey habilita la API de admin. Vacío = solo verificación.
	ServiceKey string
	// RedirectTo es a dónde lleva el link de invitación.
	RedirectTo string

	Timeout time.Duration
}

type Client struct {
	http       *httpclient.Client
	anonKey    string
	serviceKey string
	redirectTo string
}

var _ identity.Admin = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	hc, err := httpclient.New(strings.TrimSpace(cfg.BaseURL), timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:       hc,
		anonKey:    strings.TrimSpace(cfg.AnonKey),
		serviceKey: strings.TrimSpace(cfg.ServiceKey),
		redirectTo: strings.TrimSpace(cfg.RedirectTo),
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http.BaseURL != "" && c.anonKey != ""
}

func (c *Client) adminConfigured() bool {
	return c != nil && c.http.BaseURL != "" && c.serviceKey != ""
}

type userPayload struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u userPayload) toUser() identity.User {
	return identity.User{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// VerifyToken pide el usuario dueño del access token.
func (c *Client) VerifyToken(ctx context.Context, token string) (auth.Claims, error) {
	if !c.IsConfigured() {
		return auth.Claims{}, ErrNotConfigured
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return auth.Claims{}, ErrUnauthorized
	}

	var out userPayload
	err := c.http.DoJSON(ctx, http.MethodGet, "/auth/v1/user", map[string]string{
		"apikey":        c.anonKey,
		"Authorization": "Bearer " + token,
	}, nil, &out)
	switch code := httpclient.StatusCode(err); {
	case err == nil:
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return auth.Claims{}, ErrUnauthorized
	default:
		return auth.Claims{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	out.ID = strings.TrimSpace(out.ID)
	if out.ID == "" {
		return auth.Claims{}, errors.New("gotrue response missing id")
	}
	return auth.Claims{UserID: out.ID, Email: strings.TrimSpace(out.Email)}, nil
}

func (c *Client) adminHeaders() map[string]string {
	return map[string]string{
		"apikey":        c.serviceKey,
		"Authorization": "Bearer " + c.serviceKey,
	}
}

func (c *Client) InviteUserByEmail(ctx context.Context, email string, metadata map[string]any) (identity.User, error) {
	if !c.adminConfigured() {
		return identity.User{}, ErrNotConfigured
	}
	path := "/auth/v1/invite"
	if c.redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(c.redirectTo)
	}
	in := map[string]any{"email": email, "data": metadata}

	var out userPayload
	if err := c.http.DoJSON(ctx, http.MethodPost, path, c.adminHeaders(), in, &out); err != nil {
		return identity.User{}, fmt.Errorf("%w: invite: %v", ErrUpstream, err)
	}
	return out.toUser(), nil
}

func (c *Client) ListUsers(ctx context.Context) ([]identity.User, error) {
	if !c.adminConfigured() {
		return nil, ErrNotConfigured
	}

	out := make([]identity.User, 0)
	for page := 1; ; page++ {
		var resp struct {
			Users []userPayload `json:"users"`
		}
		path := fmt.Sprintf("/auth/v1/admin/users?page=%d&per_page=%d", page, listPageSize)
		if err := c.http.DoJSON(ctx, http.MethodGet, path, c.adminHeaders(), nil, &resp); err != nil {
			return nil, fmt.Errorf("%w: list users: %v", ErrUpstream, err)
		}
		for _, u := range resp.Users {
			out = append(out, u.toUser())
		}
		if len(resp.Users) < listPageSize {
			return out, nil
		}
	}
}

const listPageSize = 200

func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	if !c.adminConfigured() {
		return ErrNotConfigured
	}
	path := "/auth/v1/admin/users/" + url.PathEscape(userID)
	if err := c.http.DoJSON(ctx, http.MethodDelete, path, c.adminHeaders(), nil, nil); err != nil {
		return fmt.Errorf("%w: delete user: %v", ErrUpstream, err)
	}
	return nil
}

func (c *Client) UpdatePassword(ctx context.Context, userID, password string) error {
	if !c.adminConfigured() {
		return ErrNotConfigured
	}
	path := "/auth/v1/admin/users/" + url.PathEscape(userID)
	in := map[string]string{"password": password}
	if err := c.http.DoJSON(ctx, http.MethodPut, path, c.adminHeaders(), in, nil); err != nil {
		return fmt.Errorf("%w: update password: %v", ErrUpstream, err)
	}
	return nil
}
