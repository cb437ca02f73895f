package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"client-docs-portal/internal/domain/templates"
)

type templateRepo struct {
	mu   sync.RWMutex
	byID map[string]templates.Template
}

func NewTemplateRepo() templates.Repository {
	return &templateRepo{byID: make(map[string]templates.Template)}
}

func (r *templateRepo) Create(ctx context.Context, t templates.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(t.ID) == "" {
		return errors.New("template id required")
	}
	if _, exists := r.byID[t.ID]; exists {
		return errors.New("template already exists")
	}
	t.Documents = append([]string(nil), t.Documents...)
	r.byID[t.ID] = t
	return nil
}

func (r *templateRepo) GetByID(ctx context.Context, id string) (templates.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byID[id]
	if !ok {
		return templates.Template{}, ErrNotFound
	}
	t.Documents = append([]string(nil), t.Documents...)
	return t, nil
}

func (r *templateRepo) ListByUser(ctx context.Context, userID string) ([]templates.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]templates.Template, 0)
	for _, t := range r.byID {
		if t.UserID == userID {
			t.Documents = append([]string(nil), t.Documents...)
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *templateRepo) Update(ctx context.Context, t templates.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[t.ID]; !exists {
		return ErrNotFound
	}
	t.Documents = append([]string(nil), t.Documents...)
	r.byID[t.ID] = t
	return nil
}

func (r *templateRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[id]; !exists {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
