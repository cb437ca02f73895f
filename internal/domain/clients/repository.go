package clients

import "context"

type Repository interface {
	Create(ctx context.Context, c Client) error
	GetByID(ctx context.Context, id string) (Client, error)
	// ListByOrganization devuelve los más nuevos primero.
	ListByOrganization(ctx context.Context, organizationID string) ([]Client, error)
	Update(ctx context.Context, c Client) error
	// DeleteByCreator borra los clientes creados por userID y devuelve cuántos.
	DeleteByCreator(ctx context.Context, userID string) (int, error)
}
