package templates

import "time"

// Template es una lista ordenada de nombres de documentos reutilizable.
type Template struct {
	ID        string
	UserID    string
	Name      string
	Documents []string

	CreatedAt time.Time
	UpdatedAt time.Time
}
