package objectstore

import (
	"context"
	"io"
)

// Store es el bucket de archivos (bucket "documentos" en la plataforma).
type Store interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) error
	PublicURL(key string) string
	Remove(ctx context.Context, keys ...string) error
}
