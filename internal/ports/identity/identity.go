package identity

import (
	"context"
	"time"
)

// User es la identidad en el proveedor de auth.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Admin son las operaciones privilegiadas (service role) sobre identidades.
type Admin interface {
	InviteUserByEmail(ctx context.Context, email string, metadata map[string]any) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeleteUser(ctx context.Context, userID string) error
	UpdatePassword(ctx context.Context, userID, password string) error
}
