package accesstokens

import (
	"context"
	"net/http"
	"strings"
	"time"

	"client-docs-portal/internal/middleware"
	"client-docs-portal/internal/platform/httpx"
	"client-docs-portal/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// ClientAuthorizer evita importar el paquete clients.
type ClientAuthorizer interface {
	Authorize(ctx context.Context, sess auth.Session, clientID string) error
}

// RegisterRoutes expone la emisión de tokens de portal. publicBaseURL puede
// ser vacío: se usa el origin del request.
func RegisterRoutes(r chi.Router, svc *Service, clients ClientAuthorizer, publicBaseURL string) {
	r.Post("/clients/{clientID}/portal-tokens", issuePortalTokenHandler(svc, clients, publicBaseURL))
}

type portalTokenResponse struct {
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ClientID  string    `json:"client_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// issuePortalTokenHandler godoc
// @Summary Generar acceso de portal para un cliente
// @Description Token opaco válido 30 días. El link es /client-access/{token}.
// @Tags access
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Success 201 {object} portalTokenResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /clients/{clientID}/portal-tokens [post]
func issuePortalTokenHandler(svc *Service, clients ClientAuthorizer, publicBaseURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		clientID := chi.URLParam(r, "clientID")
		if err := clients.Authorize(r.Context(), sess, clientID); err != nil {
			httpx.WriteError(w, err)
			return
		}

		t, err := svc.IssuePortalToken(r.Context(), clientID, sess.UserID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		httpx.WriteJSON(w, http.StatusCreated, portalTokenResponse{
			Token:     t.Token,
			URL:       BuildURL(BaseURL(publicBaseURL, r), "/client-access/", t.Token),
			ClientID:  t.ClientID,
			ExpiresAt: t.ExpiresAt,
		})
	}
}

// BaseURL prefiere la URL pública configurada sobre el origin del request.
func BaseURL(configured string, r *http.Request) string {
	if b := strings.TrimRight(strings.TrimSpace(configured), "/"); b != "" {
		return b
	}
	return httpx.Origin(r)
}

func BuildURL(base, prefix, token string) string {
	return strings.TrimRight(base, "/") + prefix + token
}
