package accesstokens

import (
	"context"
	"errors"
	"strings"
	"time"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/metrics"

	"github.com/google/uuid"
)

type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// IssuePortalToken emite un token opaco (UUIDv4, crypto/rand) válido 30 días.
func (s *Service) IssuePortalToken(ctx context.Context, clientID, issuerID string) (PortalToken, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return PortalToken{}, apperr.Validation("client id required")
	}

	now := s.now()
	t := PortalToken{
		Token:     s.newID(),
		ClientID:  clientID,
		CreatedBy: issuerID,
		ExpiresAt: now.Add(PortalTTL),
		CreatedAt: now,
	}
	if err := s.repo.CreatePortal(ctx, t); err != nil {
		return PortalToken{}, apperr.Persistence(err)
	}
	s.metrics.TokenIssued(string(KindPortal))
	return t, nil
}

func (s *Service) IssueShareToken(ctx context.Context, clientID, issuerID string, expiresAt time.Time, accessType AccessType) (ShareToken, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return ShareToken{}, apperr.Validation("client id required")
	}
	if !accessType.Valid() {
		return ShareToken{}, apperr.Validation("access type must be view or download")
	}
	if expiresAt.IsZero() {
		return ShareToken{}, apperr.Validation("expiration required")
	}

	t := ShareToken{
		Token:      s.newID(),
		ClientID:   clientID,
		CreatedBy:  issuerID,
		AccessType: accessType,
		ExpiresAt:  expiresAt,
		CreatedAt:  s.now(),
	}
	if err := s.repo.CreateShare(ctx, t); err != nil {
		return ShareToken{}, apperr.Persistence(err)
	}
	s.metrics.TokenIssued(string(KindShare))
	return t, nil
}

// ResolvePortal: ErrNotFound si no existe, ErrExpired si now > expiresAt.
// El vencimiento se evalúa en cada resolución.
func (s *Service) ResolvePortal(ctx context.Context, token string) (PortalToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.metrics.TokenResolved(string(KindPortal), "not_found")
		return PortalToken{}, apperr.ErrNotFound
	}

	t, err := s.repo.GetPortal(ctx, token)
	if err != nil {
		s.metrics.TokenResolved(string(KindPortal), resultLabel(err))
		return PortalToken{}, apperr.Persistence(err)
	}
	if Expired(t.ExpiresAt, s.now()) {
		s.metrics.TokenResolved(string(KindPortal), "expired")
		return PortalToken{}, apperr.ErrExpired
	}
	s.metrics.TokenResolved(string(KindPortal), "ok")
	return t, nil
}

func (s *Service) ResolveShare(ctx context.Context, token string) (ShareToken, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		s.metrics.TokenResolved(string(KindShare), "not_found")
		return ShareToken{}, apperr.ErrNotFound
	}

	t, err := s.repo.GetShare(ctx, token)
	if err != nil {
		s.metrics.TokenResolved(string(KindShare), resultLabel(err))
		return ShareToken{}, apperr.Persistence(err)
	}
	if Expired(t.ExpiresAt, s.now()) {
		s.metrics.TokenResolved(string(KindShare), "expired")
		return ShareToken{}, apperr.ErrExpired
	}
	s.metrics.TokenResolved(string(KindShare), "ok")
	return t, nil
}

func resultLabel(err error) string {
	if errors.Is(err, apperr.ErrNotFound) {
		return "not_found"
	}
	return "error"
}
