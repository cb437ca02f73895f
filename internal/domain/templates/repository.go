package templates

import "context"

type Repository interface {
	Create(ctx context.Context, t Template) error
	GetByID(ctx context.Context, id string) (Template, error)
	ListByUser(ctx context.Context, userID string) ([]Template, error)
	Update(ctx context.Context, t Template) error
	Delete(ctx context.Context, id string) error
}
