package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"client-docs-portal/internal/domain/documents"
)

// documentRepo guarda todo bajo un único mutex: SetOrder y UpdateAttachments
// son atómicos sin más.
type documentRepo struct {
	mu   sync.RWMutex
	byID map[string]documents.DocumentRequest
}

func NewDocumentRepo() documents.Repository {
	return &documentRepo{byID: make(map[string]documents.DocumentRequest)}
}

func (r *documentRepo) Append(ctx context.Context, d documents.DocumentRequest) (documents.DocumentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(d.ID) == "" {
		return documents.DocumentRequest{}, errors.New("document id required")
	}
	if _, exists := r.byID[d.ID]; exists {
		return documents.DocumentRequest{}, errors.New("document already exists")
	}
	d.Order = r.countLocked(d.ClientID)
	d.Attachments = cloneAttachments(d.Attachments)
	r.byID[d.ID] = d
	return d, nil
}

func (r *documentRepo) CreateMany(ctx context.Context, ds []documents.DocumentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range ds {
		if _, exists := r.byID[d.ID]; exists || strings.TrimSpace(d.ID) == "" {
			return errors.New("invalid or duplicated document id")
		}
	}
	for _, d := range ds {
		d.Attachments = cloneAttachments(d.Attachments)
		r.byID[d.ID] = d
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, id string) (documents.DocumentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.byID[id]
	if !ok {
		return documents.DocumentRequest{}, ErrNotFound
	}
	d.Attachments = cloneAttachments(d.Attachments)
	return d, nil
}

func (r *documentRepo) ListByClient(ctx context.Context, clientID string) ([]documents.DocumentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]documents.DocumentRequest, 0)
	for _, d := range r.byID {
		if d.ClientID == clientID {
			d.Attachments = cloneAttachments(d.Attachments)
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *documentRepo) Rename(ctx context.Context, id, name string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	d.Name = name
	d.UpdatedAt = at
	r.byID[id] = d
	return nil
}

func (r *documentRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *documentRepo) SetOrder(ctx context.Context, clientID string, orderedIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range orderedIDs {
		d, ok := r.byID[id]
		if !ok || d.ClientID != clientID {
			return ErrNotFound
		}
	}
	for i, id := range orderedIDs {
		d := r.byID[id]
		d.Order = i
		r.byID[id] = d
	}
	return nil
}

func (r *documentRepo) UpdateAttachments(ctx context.Context, id string, at time.Time, fn func([]documents.Attachment) ([]documents.Attachment, error)) (documents.DocumentRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.byID[id]
	if !ok {
		return documents.DocumentRequest{}, ErrNotFound
	}
	next, err := fn(cloneAttachments(d.Attachments))
	if err != nil {
		return documents.DocumentRequest{}, err
	}
	d.Attachments = cloneAttachments(next)
	d.UpdatedAt = at
	r.byID[id] = d

	d.Attachments = cloneAttachments(d.Attachments)
	return d, nil
}

func (r *documentRepo) countLocked(clientID string) int {
	n := 0
	for _, d := range r.byID {
		if d.ClientID == clientID {
			n++
		}
	}
	return n
}

func cloneAttachments(in []documents.Attachment) []documents.Attachment {
	out := make([]documents.Attachment, len(in))
	copy(out, in)
	return out
}
