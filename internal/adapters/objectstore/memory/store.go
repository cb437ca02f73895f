package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"client-docs-portal/internal/ports/objectstore"
)

// Object es lo que quedó guardado bajo una key.
type Object struct {
	ContentType string
	Data        []byte
}

// Store es un bucket en memoria para dev y tests.
type Store struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

var _ objectstore.Store = (*Store)(nil)

func New(baseURL string) *Store {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = "memory://documentos"
	}
	return &Store{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string]Object{}}
}

func (s *Store) Upload(ctx context.Context, key, contentType string, body io.Reader) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, body); err != nil {
		return fmt.Errorf("memory store: read body: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objects[key]; exists {
		return fmt.Errorf("memory store: key %q already exists", key)
	}
	s.objects[key] = Object{ContentType: contentType, Data: buf.Bytes()}
	return nil
}

func (s *Store) PublicURL(key string) string {
	return s.baseURL + "/" + key
}

func (s *Store) Remove(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		delete(s.objects, k)
	}
	return nil
}

// Get se usa en tests.
func (s *Store) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}
