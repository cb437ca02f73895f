package memory

import (
	"fmt"

	"client-docs-portal/internal/platform/apperr"
)

// ErrNotFound envuelve apperr.ErrNotFound para que los servicios lo traduzcan a 404.
var ErrNotFound = fmt.Errorf("memory: %w", apperr.ErrNotFound)
