package sharing

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"client-docs-portal/internal/domain/accesstokens"
	"client-docs-portal/internal/middleware"
	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/httpx"
	"client-docs-portal/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// ClientAuthorizer evita importar el paquete clients.
type ClientAuthorizer interface {
	Authorize(ctx context.Context, sess auth.Session, clientID string) error
}

// RegisterRoutes registra la creación (staff).
func RegisterRoutes(r chi.Router, svc *Service, clients ClientAuthorizer, publicBaseURL string) {
	r.Post("/clients/{clientID}/share-links", createLinkHandler(svc, clients, publicBaseURL))
}

// RegisterPublicRoutes registra la resolución pública (sin sesión, con rate limit).
func RegisterPublicRoutes(r chi.Router, svc *Service) {
	r.Route("/shared-docs/{token}", func(sr chi.Router) {
		sr.Get("/", resolveHandler(svc))
		sr.Get("/files/{documentID}/{index}", downloadHandler(svc))
	})
}

type createLinkRequest struct {
	// RFC3339 o YYYY-MM-DD (fin de ese día, UTC). Vacío = 30 días.
	ExpiresAt  string                  `json:"expires_at"`
	AccessType accesstokens.AccessType `json:"access_type" enums:"view,download" validate:"omitempty,oneof=view download"`
}

type linkResponse struct {
	Token      string                  `json:"token"`
	URL        string                  `json:"url"`
	AccessType accesstokens.AccessType `json:"access_type"`
	ExpiresAt  time.Time               `json:"expires_at"`
}

type sharedFileResponse struct {
	Name        string    `json:"nombre"`
	ViewURL     string    `json:"view_url"`
	DownloadURL string    `json:"download_url,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type sharedDocumentResponse struct {
	ID    string               `json:"id"`
	Name  string               `json:"nombre"`
	Files []sharedFileResponse `json:"archivos"`
}

type sharedResponse struct {
	ClientName string                   `json:"cliente"`
	AccessType accesstokens.AccessType  `json:"access_type"`
	ExpiresAt  time.Time                `json:"expires_at"`
	Documents  []sharedDocumentResponse `json:"documents"`
}

// createLinkHandler godoc
// @Summary Compartir documentos aprobados
// @Description Solo si todos los documentos del cliente tienen un archivo aprobado (409 si no). Por defecto 30 días y `download`.
// @Tags sharing
// @Accept json
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Param payload body createLinkRequest false "Vencimiento y tipo de acceso"
// @Success 201 {object} linkResponse
// @Failure 400 {string} string "invalid input"
// @Failure 409 {string} string "not fully approved"
// @Router /clients/{clientID}/share-links [post]
func createLinkHandler(svc *Service, clients ClientAuthorizer, publicBaseURL string) http.HandlerFunc {
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

		var req createLinkRequest
		if r.ContentLength != 0 {
			if err := httpx.DecodeJSON(w, r, &req); err != nil {
				httpx.WriteError(w, err)
				return
			}
		}
		exp, err := parseExpiry(req.ExpiresAt)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		t, err := svc.CreateLink(r.Context(), sess.UserID, clientID, LinkInput{ExpiresAt: exp, AccessType: req.AccessType})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, linkResponse{
			Token:      t.Token,
			URL:        accesstokens.BuildURL(accesstokens.BaseURL(publicBaseURL, r), "/shared-docs/", t.Token),
			AccessType: t.AccessType,
			ExpiresAt:  t.ExpiresAt,
		})
	}
}

// resolveHandler godoc
// @Summary Ver documentos compartidos
// @Description Solo documentos con archivos aprobados. Los links `view` no incluyen `download_url`.
// @Tags sharing
// @Produce json
// @Param token path string true "Token del link"
// @Success 200 {object} sharedResponse
// @Failure 404 {string} string "not found"
// @Failure 410 {string} string "expired"
// @Router /shared-docs/{token} [get]
func resolveHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := chi.URLParam(r, "token")
		sh, err := svc.Resolve(r.Context(), token)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		download := sh.Token.AccessType == accesstokens.AccessDownload
		out := sharedResponse{
			ClientName: sh.ClientName,
			AccessType: sh.Token.AccessType,
			ExpiresAt:  sh.Token.ExpiresAt,
			Documents:  make([]sharedDocumentResponse, 0, len(sh.Documents)),
		}
		for _, d := range sh.Documents {
			doc := sharedDocumentResponse{ID: d.ID, Name: d.Name, Files: make([]sharedFileResponse, 0, len(d.Attachments))}
			for i, a := range d.Attachments {
				f := sharedFileResponse{Name: a.OriginalName, ViewURL: a.URL, UploadedAt: a.UploadedAt}
				if download {
					f.DownloadURL = fmt.Sprintf("/shared-docs/%s/files/%s/%d", token, d.ID, i)
				}
				doc.Files = append(doc.Files, f)
			}
			out.Documents = append(out.Documents, doc)
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// downloadHandler godoc
// @Summary Descargar archivo compartido
// @Description Redirige al archivo. 403 para links `view`.
// @Tags sharing
// @Param token path string true "Token del link"
// @Param documentID path string true "ID del documento"
// @Param index path int true "Índice entre los archivos aprobados"
// @Success 302
// @Failure 403 {string} string "forbidden"
// @Router /shared-docs/{token}/files/{documentID}/{index} [get]
func downloadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		idx, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			httpx.WriteError(w, apperr.Validation("index must be an integer"))
			return
		}
		a, err := svc.File(r.Context(), chi.URLParam(r, "token"), chi.URLParam(r, "documentID"), idx)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		http.Redirect(w, r, a.URL, http.StatusFound)
	}
}

func parseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, apperr.Validation("expires_at must be RFC3339 or YYYY-MM-DD")
	}
	return d.Add(24*time.Hour - time.Nanosecond), nil
}
