package users

import (
	"time"

	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/identity"
)

// UserRole es la fila de user_roles: una por usuario. El rol no cambia
// después de creado; los permisos los administra el admin.
type UserRole struct {
	UserID         string
	OrganizationID string
	Role           auth.Role
	Permissions    auth.PermissionSet
	CreatedAt      time.Time
}

// Organization la crea el admin al darse de alta; el nombre por defecto es
// su email.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Member es una identidad de la organización con su fila de rol.
type Member struct {
	identity.User
	Role        auth.Role
	Permissions auth.PermissionSet
}

// User es la fila espejo de la identidad en la tabla users.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// EmailType es el tipo de correo transaccional de /api/send.
type EmailType string

const EmailNewUser EmailType = "new_user"

// MinPasswordLength para /api/password.
const MinPasswordLength = 6
