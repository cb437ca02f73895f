package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"client-docs-portal/internal/domain/clients"
)

type clientRepo struct {
	mu   sync.RWMutex
	byID map[string]clients.Client
}

func NewClientRepo() clients.Repository {
	return &clientRepo{byID: make(map[string]clients.Client)}
}

func (r *clientRepo) Create(ctx context.Context, c clients.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(c.ID) == "" {
		return errors.New("client id required")
	}
	if _, exists := r.byID[c.ID]; exists {
		return errors.New("client already exists")
	}
	r.byID[c.ID] = c
	return nil
}

func (r *clientRepo) GetByID(ctx context.Context, id string) (clients.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.byID[id]
	if !ok {
		return clients.Client{}, ErrNotFound
	}
	return c, nil
}

func (r *clientRepo) ListByOrganization(ctx context.Context, organizationID string) ([]clients.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]clients.Client, 0)
	for _, c := range r.byID {
		if c.OrganizationID == organizationID {
			out = append(out, c)
		}
	}
	// más nuevos primero
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *clientRepo) Update(ctx context.Context, c clients.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[c.ID]; !exists {
		return ErrNotFound
	}
	r.byID[c.ID] = c
	return nil
}

func (r *clientRepo) DeleteByCreator(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for id, c := range r.byID {
		if c.CreatedBy == userID {
			delete(r.byID, id)
			n++
		}
	}
	return n, nil
}
