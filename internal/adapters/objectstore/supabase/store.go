// Package supabase implementa objectstore.Store sobre la API de Storage
// (bucket público "documentos").
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"client-docs-portal/internal/platform/httpclient"
	"client-docs-portal/internal/ports/objectstore"
)

type Store struct {
	c      *httpclient.Client
	bucket string
}

var _ objectstore.Store = (*Store)(nil)

type Config struct {
	BaseURL    string
	ServiceKey string
	Bucket     string
}

func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("supabase storage: base url required")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, errors.New("supabase storage: service key required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		cfg.Bucket = "documentos"
	}
	c, err := httpclient.New(cfg.BaseURL, 0)
	if err != nil {
		return nil, err
	}
	c.WithHeader("apikey", cfg.ServiceKey).
		WithHeader("Authorization", "Bearer "+cfg.ServiceKey)
	return &Store{c: c, bucket: cfg.Bucket}, nil
}

// Upload no sobrescribe: la key ya lleva timestamp.
func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.c.Do(ctx, http.MethodPost, s.objectPath(key), map[string]string{"x-upsert": "false"}, body, contentType)
	if err != nil {
		return fmt.Errorf("supabase storage: upload %s: %w", key, err)
	}
	return nil
}

func (s *Store) PublicURL(key string) string {
	return s.c.BaseURL + "/storage/v1/object/public/" + s.bucket + "/" + escapeKey(key)
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	in := struct {
		Prefixes []string `json:"prefixes"`
	}{Prefixes: keys}
	if err := s.c.DoJSON(ctx, http.MethodDelete, "/storage/v1/object/"+s.bucket, nil, in, nil); err != nil {
		return fmt.Errorf("supabase storage: remove: %w", err)
	}
	return nil
}

func (s *Store) objectPath(key string) string {
	return "/storage/v1/object/" + s.bucket + "/" + escapeKey(key)
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
