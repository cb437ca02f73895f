package notifications

import (
	"context"
	"time"
)

type Repository interface {
	// MarkRead avanza el marcador del viewer para el cliente (nunca retrocede).
	MarkRead(ctx context.Context, viewer, clientID string, at time.Time) error
	// UnreadCounts cuenta, por cliente, los mensajes con is_client = fromClient
	// posteriores al marcador del viewer (todos si no tiene marcador).
	// Los clientes sin no leídos pueden faltar en el mapa.
	UnreadCounts(ctx context.Context, viewer string, fromClient bool, clientIDs []string) (map[string]int, error)
}
