package memory

import (
	"context"
	"errors"
	"sync"

	"client-docs-portal/internal/domain/accesstokens"
)

// tokenRepo guarda client_access y shared_document_access. Los tokens
// vencidos no se borran.
type tokenRepo struct {
	mu     sync.RWMutex
	portal map[string]accesstokens.PortalToken
	share  map[string]accesstokens.ShareToken
}

func NewTokenRepo() accesstokens.Repository {
	return &tokenRepo{
		portal: make(map[string]accesstokens.PortalToken),
		share:  make(map[string]accesstokens.ShareToken),
	}
}

func (r *tokenRepo) CreatePortal(ctx context.Context, t accesstokens.PortalToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.portal[t.Token]; exists {
		return errors.New("portal token already exists")
	}
	r.portal[t.Token] = t
	return nil
}

func (r *tokenRepo) GetPortal(ctx context.Context, token string) (accesstokens.PortalToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.portal[token]
	if !ok {
		return accesstokens.PortalToken{}, ErrNotFound
	}
	return t, nil
}

func (r *tokenRepo) CreateShare(ctx context.Context, t accesstokens.ShareToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.share[t.Token]; exists {
		return errors.New("share token already exists")
	}
	r.share[t.Token] = t
	return nil
}

func (r *tokenRepo) GetShare(ctx context.Context, token string) (accesstokens.ShareToken, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.share[token]
	if !ok {
		return accesstokens.ShareToken{}, ErrNotFound
	}
	return t, nil
}
