package messages

import "context"

type Repository interface {
	Append(ctx context.Context, m Message) error
	// ListByClient ordena por created_at ascendente (el id ULID desempata).
	ListByClient(ctx context.Context, clientID string) ([]Message, error)
	// DeleteByUser borra los mensajes escritos por un miembro del staff.
	DeleteByUser(ctx context.Context, userID string) (int, error)
}
