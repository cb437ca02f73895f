package auth

import "context"

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// SessionResolver arma la sesión (rol, organización, permisos) de un usuario
// ya verificado. Lo implementa users.Service.
type SessionResolver interface {
	SessionFor(ctx context.Context, claims Claims) (Session, error)
}
