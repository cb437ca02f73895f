package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"client-docs-portal/internal/domain/messages"
	"client-docs-portal/internal/domain/notifications"
)

// MessageRepo implementa messages.Repository y notifications.Repository:
// los no leídos se cuentan sobre los mismos mensajes.
type MessageRepo struct {
	mu      sync.RWMutex
	items   []messages.Message
	markers map[string]time.Time // viewer|clientID -> visto hasta
}

var (
	_ messages.Repository      = (*MessageRepo)(nil)
	_ notifications.Repository = (*MessageRepo)(nil)
)

func NewMessageRepo() *MessageRepo {
	return &MessageRepo{markers: make(map[string]time.Time)}
}

func (r *MessageRepo) Append(ctx context.Context, m messages.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if strings.TrimSpace(m.ID) == "" {
		return errors.New("message id required")
	}
	r.items = append(r.items, m)
	return nil
}

func (r *MessageRepo) ListByClient(ctx context.Context, clientID string) ([]messages.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]messages.Message, 0)
	for _, m := range r.items {
		if m.ClientID == clientID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *MessageRepo) DeleteByUser(ctx context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.items[:0]
	n := 0
	for _, m := range r.items {
		if m.UserID == userID {
			n++
			continue
		}
		kept = append(kept, m)
	}
	r.items = kept
	return n, nil
}

func (r *MessageRepo) MarkRead(ctx context.Context, viewer, clientID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := markerKey(viewer, clientID)
	if prev, ok := r.markers[k]; ok && !at.After(prev) {
		return nil
	}
	r.markers[k] = at
	return nil
}

func (r *MessageRepo) UnreadCounts(ctx context.Context, viewer string, fromClient bool, clientIDs []string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[string]bool, len(clientIDs))
	for _, id := range clientIDs {
		wanted[id] = true
	}

	out := make(map[string]int)
	for _, m := range r.items {
		if !wanted[m.ClientID] || m.IsClient != fromClient {
			continue
		}
		if seen, ok := r.markers[markerKey(viewer, m.ClientID)]; ok && !m.CreatedAt.After(seen) {
			continue
		}
		out[m.ClientID]++
	}
	return out, nil
}

func markerKey(viewer, clientID string) string {
	return viewer + "|" + clientID
}
