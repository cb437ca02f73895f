// Package portal es la superficie pública /client-access/{token}: el cliente
// final entra con su token de portal, sin cuenta.
package portal

import (
	"context"
	"iter"
	"time"

	"client-docs-portal/internal/domain/accesstokens"
	"client-docs-portal/internal/domain/clients"
	"client-docs-portal/internal/domain/documents"
	"client-docs-portal/internal/domain/messages"
	"client-docs-portal/internal/domain/notifications"
	"client-docs-portal/internal/platform/apperr"
)

// ClientLookup lo implementa clients.Service.
type ClientLookup interface {
	GetByID(ctx context.Context, id string) (clients.Client, error)
}

type Service struct {
	tokens        *accesstokens.Service
	clients       ClientLookup
	docs          *documents.Service
	messages      *messages.Service
	notifications *notifications.Service
}

type Deps struct {
	Tokens        *accesstokens.Service
	Clients       ClientLookup
	Documents     *documents.Service
	Messages      *messages.Service
	Notifications *notifications.Service
}

func NewService(deps Deps) *Service {
	return &Service{
		tokens:        deps.Tokens,
		clients:       deps.Clients,
		docs:          deps.Documents,
		messages:      deps.Messages,
		notifications: deps.Notifications,
	}
}

// Access es lo que habilita un token de portal válido.
type Access struct {
	Token     string
	ExpiresAt time.Time
	Client    clients.Client
}

// Open resuelve el token (NotFound / Expired) y carga el cliente.
func (s *Service) Open(ctx context.Context, token string) (Access, error) {
	t, err := s.tokens.ResolvePortal(ctx, token)
	if err != nil {
		return Access{}, err
	}
	c, err := s.clients.GetByID(ctx, t.ClientID)
	if err != nil {
		return Access{}, err
	}
	return Access{Token: t.Token, ExpiresAt: t.ExpiresAt, Client: c}, nil
}

// Documents lista los pedidos del cliente ordenados por `order`.
func (s *Service) Documents(ctx context.Context, a Access) ([]documents.DocumentRequest, error) {
	return s.docs.List(ctx, a.Client.ID)
}

// Document devuelve un pedido solo si pertenece al cliente del token.
func (s *Service) Document(ctx context.Context, a Access, documentID string) (documents.DocumentRequest, error) {
	d, err := s.docs.Get(ctx, documentID)
	if err != nil {
		return documents.DocumentRequest{}, err
	}
	if d.ClientID != a.Client.ID {
		return documents.DocumentRequest{}, apperr.ErrNotFound
	}
	return d, nil
}

func (s *Service) Messages(ctx context.Context, a Access) ([]messages.Message, error) {
	return s.messages.List(ctx, a.Client.ID)
}

func (s *Service) Post(ctx context.Context, a Access, text string) (messages.Message, error) {
	return s.messages.PostAsClient(ctx, a.Client.ID, text)
}

func (s *Service) Unread(ctx context.Context, a Access) (notifications.ClientUnread, error) {
	return s.notifications.ClientUnread(ctx, a.Token, a.Client.ID)
}

// MarkRead: el marcador del portal es por token.
func (s *Service) MarkRead(ctx context.Context, a Access) error {
	return s.notifications.MarkRead(ctx, notifications.PortalViewer(a.Token), a.Client.ID)
}

func (s *Service) WatchUnread(ctx context.Context, a Access) iter.Seq2[notifications.ClientUnread, error] {
	return s.notifications.WatchClient(ctx, a.Token, a.Client.ID)
}
