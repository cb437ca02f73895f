package accesstokens

import "context"

// Repository persiste tokens. Los tokens vencidos no se borran nunca:
// quedan inutilizables al resolverse.
type Repository interface {
	CreatePortal(ctx context.Context, t PortalToken) error
	GetPortal(ctx context.Context, token string) (PortalToken, error)
	CreateShare(ctx context.Context, t ShareToken) error
	GetShare(ctx context.Context, token string) (ShareToken, error)
}
