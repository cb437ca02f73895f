package middleware

import (
	"context"
	"net/http"
	"time"

	"client-docs-portal/internal/platform/logger"

	chimw "github.com/go-chi/chi/v5/middleware"
)

// requestUser lo completa AuthContext: la sesión vive en un request derivado
// que RequestLogger no ve.
type requestUser struct {
	id string
}

const requestUserKey ctxKey = "request_user"

func setRequestUser(ctx context.Context, userID string) {
	if h, ok := ctx.Value(requestUserKey).(*requestUser); ok {
		h.id = userID
	}
}

// RequestLogger loguea una línea por request con el id de chi/middleware.RequestID
// (debe ir después de él en la cadena).
func RequestLogger(log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			user := &requestUser{}
			r = r.WithContext(context.WithValue(r.Context(), requestUserKey, user))
			next.ServeHTTP(ww, r)

			fields := map[string]any{
				"request_id":  chimw.GetReqID(r.Context()),
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"bytes":       ww.BytesWritten(),
				"duration_ms": time.Since(start).Milliseconds(),
			}
			if user.id != "" {
				fields["user_id"] = user.id
			}

			switch {
			case ww.Status() >= 500:
				log.Error("request", fields)
			case ww.Status() >= 400:
				log.Warn("request", fields)
			default:
				log.Debug("request", fields)
			}
		})
	}
}
