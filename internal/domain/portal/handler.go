package portal

import (
	"net/http"
	"time"

	"client-docs-portal/internal/domain/clients"
	"client-docs-portal/internal/domain/documents"
	"client-docs-portal/internal/domain/messages"
	"client-docs-portal/internal/domain/notifications"
	"client-docs-portal/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes monta las rutas públicas del portal. El router las envuelve
// con el rate limit por IP.
func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/client-access/{token}", func(pr chi.Router) {
		pr.Get("/", overviewHandler(svc))
		pr.Post("/documents/{documentID}/attachments", uploadHandler(svc))
		pr.Delete("/documents/{documentID}/attachments/{index}", deleteAttachmentHandler(svc))
		pr.Get("/messages", listMessagesHandler(svc))
		pr.Post("/messages", postMessageHandler(svc))
		pr.Get("/messages/stream", streamMessagesHandler(svc))
		pr.Get("/unread", unreadHandler(svc))
		pr.Get("/unread/stream", streamUnreadHandler(svc))
		pr.Post("/read", markReadHandler(svc))
	})
}

type clientResponse struct {
	ID    string `json:"id"`
	Name  string `json:"nombre"`
	Email string `json:"email"`
	Phone string `json:"telefono,omitempty"`
}

type overviewResponse struct {
	Client    clientResponse               `json:"cliente"`
	ExpiresAt time.Time                    `json:"expires_at"`
	Documents []documents.DocumentResponse `json:"documentos"`
}

// overviewHandler godoc
// @Summary Portal del cliente
// @Description Valida el token y devuelve el cliente con sus documentos en orden.
// @Tags portal
// @Produce json
// @Param token path string true "Token de portal"
// @Success 200 {object} overviewResponse
// @Failure 404 {string} string "not found"
// @Failure 410 {string} string "expired"
// @Router /client-access/{token} [get]
func overviewHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		docs, err := svc.Documents(r.Context(), a)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, overviewResponse{
			Client:    toClientResponse(a.Client),
			ExpiresAt: a.ExpiresAt,
			Documents: documents.ToResponses(docs),
		})
	}
}

// uploadHandler godoc
// @Summary Subir archivo desde el portal
// @Description Multipart, campo `file`. 409 si el documento ya tiene un archivo aprobado.
// @Tags portal
// @Accept mpfd
// @Produce json
// @Param token path string true "Token de portal"
// @Param documentID path string true "ID del documento"
// @Param file formData file true "Archivo"
// @Success 201 {object} documents.AttachmentResponse
// @Failure 409 {string} string "already approved"
// @Router /client-access/{token}/documents/{documentID}/attachments [post]
func uploadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		d, err := svc.Document(r.Context(), a, chi.URLParam(r, "documentID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		documents.ServeUpload(w, r, svc.docs, d)
	}
}

// deleteAttachmentHandler godoc
// @Summary Borrar archivo desde el portal
// @Tags portal
// @Param token path string true "Token de portal"
// @Param documentID path string true "ID del documento"
// @Param index path int true "Índice del archivo"
// @Success 204
// @Failure 409 {string} string "already approved"
// @Router /client-access/{token}/documents/{documentID}/attachments/{index} [delete]
func deleteAttachmentHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		d, err := svc.Document(r.Context(), a, chi.URLParam(r, "documentID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		documents.ServeDeleteAttachment(w, r, svc.docs, d)
	}
}

// listMessagesHandler godoc
// @Summary Mensajes del portal
// @Tags portal
// @Produce json
// @Param token path string true "Token de portal"
// @Success 200 {array} messages.MessageResponse
// @Router /client-access/{token}/messages [get]
func listMessagesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		items, err := svc.Messages(r.Context(), a)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]messages.MessageResponse, 0, len(items))
		for _, m := range items {
			out = append(out, messages.ToResponse(m))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// postMessageHandler godoc
// @Summary Escribir como cliente
// @Tags portal
// @Accept json
// @Produce json
// @Param token path string true "Token de portal"
// @Param payload body messages.PostRequest true "Texto"
// @Success 201 {object} messages.MessageResponse
// @Failure 400 {string} string "invalid input"
// @Router /client-access/{token}/messages [post]
func postMessageHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		var req messages.PostRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		m, err := svc.Post(r.Context(), a, req.Text)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, messages.ToResponse(m))
	}
}

func streamMessagesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		messages.ServeStream(w, r, svc.messages, a.Client.ID)
	}
}

// unreadHandler godoc
// @Summary ¿Hay mensajes nuevos del staff?
// @Description No marca como leído.
// @Tags portal
// @Produce json
// @Param token path string true "Token de portal"
// @Success 200 {object} notifications.ClientUnread
// @Router /client-access/{token}/unread [get]
func unreadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		u, err := svc.Unread(r.Context(), a)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, u)
	}
}

func streamUnreadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		notifications.ServeWatch(w, r, svc.WatchUnread(r.Context(), a))
	}
}

// markReadHandler godoc
// @Summary Marcar mensajes como leídos
// @Tags portal
// @Param token path string true "Token de portal"
// @Success 204
// @Router /client-access/{token}/read [post]
func markReadHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok := open(w, r, svc)
		if !ok {
			return
		}
		if err := svc.MarkRead(r.Context(), a); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func open(w http.ResponseWriter, r *http.Request, svc *Service) (Access, bool) {
	a, err := svc.Open(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		httpx.WriteError(w, err)
		return Access{}, false
	}
	return a, true
}

func toClientResponse(c clients.Client) clientResponse {
	return clientResponse{ID: c.ID, Name: c.Name, Email: c.Email, Phone: c.Phone}
}
