// Package resend envía correo transaccional por la API HTTP de Resend.
package resend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"client-docs-portal/internal/platform/httpclient"
	"client-docs-portal/internal/ports/mailer"
)

const DefaultBaseURL = "https://api.resend.com"

type Mailer struct {
	c    *httpclient.Client
	from string
}

var _ mailer.Mailer = (*Mailer)(nil)

type Config struct {
	APIKey  string
	From    string
	BaseURL string
}

func New(cfg Config) (*Mailer, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("resend: api key required")
	}
	if strings.TrimSpace(cfg.From) == "" {
		return nil, errors.New("resend: from address required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	c, err := httpclient.New(cfg.BaseURL, 0)
	if err != nil {
		return nil, err
	}
	c.WithHeader("Authorization", "Bearer "+cfg.APIKey)
	return &Mailer{c: c, from: cfg.From}, nil
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

func (m *Mailer) Send(ctx context.Context, e mailer.Email) error {
	var out sendResponse
	err := m.c.DoJSON(ctx, http.MethodPost, "/emails", nil, sendRequest{
		From:    m.from,
		To:      []string{e.To},
		Subject: e.Subject,
		HTML:    e.HTML,
	}, &out)
	if err != nil {
		return fmt.Errorf("resend: send: %w", err)
	}
	return nil
}
