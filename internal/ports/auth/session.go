package auth

import "strings"

type Role string

const (
	RoleAdmin        Role = "admin"
	RoleCollaborator Role = "colaborador"
	RoleClient       Role = "cliente"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCollaborator, RoleClient:
		return true
	}
	return false
}

type Permission string

const (
	PermCreateClients   Permission = "can_create_clients"
	PermSendMessages    Permission = "can_send_messages"
	PermManageDocuments Permission = "can_manage_documents"
)

// AllPermissions en orden estable (respuestas JSON, columnas SQL).
var AllPermissions = []Permission{PermCreateClients, PermSendMessages, PermManageDocuments}

// PermissionSet es el conjunto explícito de flags de un usuario.
type PermissionSet map[Permission]bool

// ParsePermissions acepta solo flags conocidos; los demás se ignoran.
func ParsePermissions(in map[string]bool) PermissionSet {
	out := PermissionSet{}
	for _, p := range AllPermissions {
		if in[string(p)] {
			out[p] = true
		}
	}
	return out
}

func (s PermissionSet) Has(p Permission) bool { return s[p] }

// Session es el contexto explícito del usuario autenticado que reciben
// servicios y handlers (reemplaza la consulta global de sesión/rol).
type Session struct {
	UserID         string
	Email          string
	OrganizationID string
	Role           Role
	Permissions    PermissionSet
}

func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.UserID) != ""
}

// IsStaff: admin o colaborador con organización.
func (s Session) IsStaff() bool {
	if !s.Authenticated() || strings.TrimSpace(s.OrganizationID) == "" {
		return false
	}
	return s.Role == RoleAdmin || s.Role == RoleCollaborator
}

func (s Session) IsAdmin() bool {
	return s.IsStaff() && s.Role == RoleAdmin
}

// Can: admin tiene todos los permisos; colaborador según flags.
func (s Session) Can(p Permission) bool {
	if !s.IsStaff() {
		return false
	}
	if s.Role == RoleAdmin {
		return true
	}
	return s.Permissions.Has(p)
}
