package documents

import (
	"context"
	"time"
)

type Repository interface {
	// Append inserta con orden = cantidad actual de documentos del cliente.
	Append(ctx context.Context, d DocumentRequest) (DocumentRequest, error)
	CreateMany(ctx context.Context, ds []DocumentRequest) error
	GetByID(ctx context.Context, id string) (DocumentRequest, error)
	// ListByClient ordena por orden, luego created_at, luego id.
	ListByClient(ctx context.Context, clientID string) ([]DocumentRequest, error)
	Rename(ctx context.Context, id, name string, at time.Time) error
	Delete(ctx context.Context, id string) error

	// SetOrder asigna orden = posición en orderedIDs en una sola operación atómica.
	SetOrder(ctx context.Context, clientID string, orderedIDs []string) error

	// UpdateAttachments hace read-modify-write atómico de los adjuntos.
	// Si fn devuelve error no se escribe nada y el error se propaga tal cual.
	UpdateAttachments(ctx context.Context, id string, at time.Time, fn func([]Attachment) ([]Attachment, error)) (DocumentRequest, error)
}
