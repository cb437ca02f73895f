// Package sharing publica los documentos aprobados de un cliente mediante
// links con vencimiento (/shared-docs/{token}).
package sharing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"client-docs-portal/internal/domain/accesstokens"
	"client-docs-portal/internal/domain/documents"
	"client-docs-portal/internal/platform/apperr"
)

// DefaultTTL se usa cuando el link no trae vencimiento.
const DefaultTTL = 30 * 24 * time.Hour

// ErrNotFullyApproved: compartir exige todos los documentos aprobados.
var ErrNotFullyApproved = fmt.Errorf("%w: all documents must be approved before sharing", apperr.ErrConflict)

// DocumentSource lo implementa documents.Service.
type DocumentSource interface {
	List(ctx context.Context, clientID string) ([]documents.DocumentRequest, error)
}

// ClientNames lo implementa clients.Service (nombre visible en la página compartida).
type ClientNames interface {
	ClientName(ctx context.Context, clientID string) (string, error)
}

type Service struct {
	tokens  *accesstokens.Service
	docs    DocumentSource
	clients ClientNames
	now     func() time.Time
}

func NewService(tokens *accesstokens.Service, docs DocumentSource, clients ClientNames) *Service {
	return &Service{
		tokens:  tokens,
		docs:    docs,
		clients: clients,
		now:     time.Now,
	}
}

type LinkInput struct {
	ExpiresAt  time.Time // cero = ahora + 30 días
	AccessType accesstokens.AccessType
}

// CreateLink emite un token de share si todos los documentos del cliente
// tienen un adjunto aprobado.
func (s *Service) CreateLink(ctx context.Context, issuerID, clientID string, in LinkInput) (accesstokens.ShareToken, error) {
	docs, err := s.docs.List(ctx, clientID)
	if err != nil {
		return accesstokens.ShareToken{}, err
	}
	if !documents.AllApproved(docs) {
		return accesstokens.ShareToken{}, ErrNotFullyApproved
	}

	now := s.now()
	exp := in.ExpiresAt
	if exp.IsZero() {
		exp = now.Add(DefaultTTL)
	}
	if !exp.After(now) {
		return accesstokens.ShareToken{}, apperr.Validation("expiration must be in the future")
	}

	at := in.AccessType
	if strings.TrimSpace(string(at)) == "" {
		at = accesstokens.AccessDownload
	}
	return s.tokens.IssueShareToken(ctx, clientID, issuerID, exp, at)
}

// Shared es lo que ve quien abre un link: solo documentos y adjuntos aprobados.
type Shared struct {
	Token      accesstokens.ShareToken
	ClientName string
	Documents  []documents.DocumentRequest
}

func (s *Service) Resolve(ctx context.Context, token string) (Shared, error) {
	t, err := s.tokens.ResolveShare(ctx, token)
	if err != nil {
		return Shared{}, err
	}
	docs, err := s.docs.List(ctx, t.ClientID)
	if err != nil {
		return Shared{}, err
	}

	out := Shared{Token: t, Documents: documents.ApprovedOnly(docs)}
	if s.clients != nil {
		name, err := s.clients.ClientName(ctx, t.ClientID)
		if err != nil {
			return Shared{}, err
		}
		out.ClientName = name
	}
	return out, nil
}

// File devuelve un adjunto aprobado para descargar. Los links view no
// pueden descargar (ErrForbidden). index es la posición entre los aprobados.
func (s *Service) File(ctx context.Context, token, documentID string, index int) (documents.Attachment, error) {
	sh, err := s.Resolve(ctx, token)
	if err != nil {
		return documents.Attachment{}, err
	}
	if sh.Token.AccessType != accesstokens.AccessDownload {
		return documents.Attachment{}, apperr.ErrForbidden
	}
	for _, d := range sh.Documents {
		if d.ID != documentID {
			continue
		}
		if index < 0 || index >= len(d.Attachments) {
			break
		}
		return d.Attachments[index], nil
	}
	return documents.Attachment{}, fmt.Errorf("shared file: %w", apperr.ErrNotFound)
}
