package messages

import (
	"context"
	"net/http"
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

func RegisterRoutes(r chi.Router, svc *Service, clients ClientAuthorizer) {
	r.Route("/clients/{clientID}/messages", func(mr chi.Router) {
		mr.Get("/", listMessagesHandler(svc, clients))
		mr.Post("/", postMessageHandler(svc, clients))
		mr.Get("/stream", streamMessagesHandler(svc, clients))
	})
}

type PostRequest struct {
	Text string `json:"text" validate:"required"`
}

// MessageResponse es un mensaje tal como lo ven staff y portal.
type MessageResponse struct {
	ID          string    `json:"id"`
	ClientID    string    `json:"client_id"`
	UserID      *string   `json:"user_id"`
	IsClient    bool      `json:"is_client"`
	Text        string    `json:"text"`
	AuthorEmail string    `json:"author_email,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// listMessagesHandler godoc
// @Summary Mensajes de un cliente
// @Description Orden ascendente por fecha. Los mensajes del staff traen el email del autor.
// @Tags messages
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Success 200 {array} MessageResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /clients/{clientID}/messages [get]
func listMessagesHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		if _, ok := authorize(w, r, clients, clientID); !ok {
			return
		}

		items, err := svc.ListWithAuthors(r.Context(), clientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]MessageResponse, 0, len(items))
		for _, v := range items {
			resp := ToResponse(v.Message)
			resp.AuthorEmail = v.AuthorEmail
			out = append(out, resp)
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// postMessageHandler godoc
// @Summary Enviar mensaje al cliente
// @Description Requiere `can_send_messages` (admin siempre).
// @Tags messages
// @Accept json
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Param payload body PostRequest true "Texto"
// @Success 201 {object} MessageResponse
// @Failure 400 {string} string "message text required"
// @Failure 403 {string} string "forbidden"
// @Router /clients/{clientID}/messages [post]
func postMessageHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		sess, ok := authorize(w, r, clients, clientID)
		if !ok {
			return
		}

		var req PostRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		m, err := svc.Post(r.Context(), sess, clientID, req.Text)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, ToResponse(m))
	}
}

// streamMessagesHandler godoc
// @Summary Stream de mensajes nuevos (SSE)
// @Description Cada evento `message` lleva el id del mensaje como `id:` para deduplicar.
// @Tags messages
// @Produce text/event-stream
// @Param clientID path string true "ID del cliente"
// @Success 200 {string} string "event stream"
// @Router /clients/{clientID}/messages/stream [get]
func streamMessagesHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		if _, ok := authorize(w, r, clients, clientID); !ok {
			return
		}
		ServeStream(w, r, svc, clientID)
	}
}

// ServeStream empuja por SSE los mensajes nuevos de clientID hasta que el
// cliente corta la conexión.
func ServeStream(w http.ResponseWriter, r *http.Request, svc *Service, clientID string) {
	sse, err := httpx.NewSSE(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for m, err := range svc.Stream(r.Context(), clientID) {
		if err != nil {
			_ = sse.Send("error", "", map[string]string{"error": "stream unavailable"})
			return
		}
		if err := sse.Send("message", m.ID, ToResponse(m)); err != nil {
			return
		}
	}
}

func ToResponse(m Message) MessageResponse {
	var uid *string
	if m.UserID != "" {
		id := m.UserID
		uid = &id
	}
	return MessageResponse{
		ID:        m.ID,
		ClientID:  m.ClientID,
		UserID:    uid,
		IsClient:  m.IsClient,
		Text:      m.Text,
		CreatedAt: m.CreatedAt,
	}
}

func authorize(w http.ResponseWriter, r *http.Request, clients ClientAuthorizer, clientID string) (auth.Session, bool) {
	sess, ok := middleware.RequireStaff(w, r)
	if !ok {
		return auth.Session{}, false
	}
	if err := clients.Authorize(r.Context(), sess, clientID); err != nil {
		httpx.WriteError(w, err)
		return auth.Session{}, false
	}
	return sess, true
}
