package middleware

import (
	"context"
	"net/http"
	"strings"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/httpx"
	"client-docs-portal/internal/ports/auth"
)

type ctxKey string

const sessionKey ctxKey = "session"

// Headers del modo dev (sin verifier).
const (
	HeaderDebugUserID      = "X-Debug-User-ID"
	HeaderDebugEmail       = "X-Debug-Email"
	HeaderDebugOrgID       = "X-Debug-Org-ID"
	HeaderDebugRole        = "X-Debug-Role"
	HeaderDebugPermissions = "X-Debug-Permissions"
)

// AuthContext:
// - Si verifier != nil y viene Bearer token => Verify() y resolver arma la sesión.
// - Si verifier == nil => modo dev: la sesión sale de los headers X-Debug-*.
// - Si no hay sesión, el request sigue igual; los handlers decidirán si exigen auth.
func AuthContext(verifier auth.AuthVerifier, resolver auth.SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				sess auth.Session
				ok   bool
			)
			if verifier == nil {
				sess, ok = debugSession(r)
			} else {
				sess, ok = verifiedSession(r, verifier, resolver)
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			setRequestUser(r.Context(), sess.UserID)
			ctx := context.WithValue(r.Context(), sessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func debugSession(r *http.Request) (auth.Session, bool) {
	uid := strings.TrimSpace(r.Header.Get(HeaderDebugUserID))
	if uid == "" {
		return auth.Session{}, false
	}

	perms := map[string]bool{}
	for _, p := range strings.Split(r.Header.Get(HeaderDebugPermissions), ",") {
		if p = strings.TrimSpace(p); p != "" {
			perms[p] = true
		}
	}

	return auth.Session{
		UserID:         uid,
		Email:          strings.TrimSpace(r.Header.Get(HeaderDebugEmail)),
		OrganizationID: strings.TrimSpace(r.Header.Get(HeaderDebugOrgID)),
		Role:           auth.Role(strings.TrimSpace(r.Header.Get(HeaderDebugRole))),
		Permissions:    auth.ParsePermissions(perms),
	}, true
}

func verifiedSession(r *http.Request, verifier auth.AuthVerifier, resolver auth.SessionResolver) (auth.Session, bool) {
	token := bearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return auth.Session{}, false
	}

	claims, err := verifier.Verify(r.Context(), token)
	if err != nil {
		// No cortamos aquí para no acoplar. El handler decide 401/403.
		return auth.Session{}, false
	}
	if resolver == nil {
		return auth.Session{UserID: claims.UserID, Email: claims.Email}, true
	}

	sess, err := resolver.SessionFor(r.Context(), claims)
	if err != nil {
		// usuario válido sin fila de rol: autenticado pero no staff
		return auth.Session{UserID: claims.UserID, Email: claims.Email}, true
	}
	return sess, true
}

func GetSession(ctx context.Context) (auth.Session, bool) {
	v := ctx.Value(sessionKey)
	if v == nil {
		return auth.Session{}, false
	}
	s, ok := v.(auth.Session)
	return s, ok
}

// WithSession inyecta una sesión (tests y llamadas internas).
func WithSession(ctx context.Context, s auth.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// RequireAuth escribe 401 si no hay sesión.
func RequireAuth(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	s, ok := GetSession(r.Context())
	if !ok || !s.Authenticated() {
		httpx.WriteError(w, apperr.ErrUnauthorized)
		return auth.Session{}, false
	}
	return s, true
}

// RequireStaff escribe 401 sin sesión y 403 si no es admin/colaborador con organización.
func RequireStaff(w http.ResponseWriter, r *http.Request) (auth.Session, bool) {
	s, ok := RequireAuth(w, r)
	if !ok {
		return auth.Session{}, false
	}
	if !s.IsStaff() {
		httpx.WriteError(w, apperr.ErrForbidden)
		return auth.Session{}, false
	}
	return s, true
}

func bearerToken(authHeader string) string {
	if strings.TrimSpace(authHeader) == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
