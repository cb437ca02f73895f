package notifications

import (
	"context"
	"iter"
	"net/http"

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
	r.Route("/notifications", func(nr chi.Router) {
		nr.Get("/", summaryHandler(svc))
		nr.Get("/stream", streamSummaryHandler(svc))
		nr.Post("/{clientID}/read", markReadHandler(svc, clients))
	})
}

// summaryHandler godoc
// @Summary Mensajes sin leer por cliente
// @Description Cuenta mensajes de clientes posteriores al último acuse del usuario. No marca nada como leído.
// @Tags notifications
// @Produce json
// @Success 200 {object} Summary
// @Failure 401 {string} string "unauthorized"
// @Router /notifications [get]
func summaryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}
		sum, err := svc.StaffSummary(r.Context(), sess)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, sum)
	}
}

// streamSummaryHandler godoc
// @Summary Resumen de no leídos en vivo (SSE)
// @Description Evento `unread` inicial y uno por cada mensaje insertado.
// @Tags notifications
// @Produce text/event-stream
// @Success 200 {string} string "event stream"
// @Router /notifications/stream [get]
func streamSummaryHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}
		ServeWatch(w, r, svc.WatchStaff(r.Context(), sess))
	}
}

// markReadHandler godoc
// @Summary Marcar conversación como leída
// @Description Acuse explícito: avanza el marcador del usuario para ese cliente.
// @Tags notifications
// @Param clientID path string true "ID del cliente"
// @Success 204
// @Router /notifications/{clientID}/read [post]
func markReadHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
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
		if err := svc.MarkRead(r.Context(), StaffViewer(sess.UserID), clientID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ServeWatch escribe cada valor de seq como evento SSE `unread`.
func ServeWatch[T any](w http.ResponseWriter, r *http.Request, seq iter.Seq2[T, error]) {
	sse, err := httpx.NewSSE(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	for v, err := range seq {
		if err != nil {
			_ = sse.Send("error", "", map[string]string{"error": "stream unavailable"})
			return
		}
		if err := sse.Send("unread", "", v); err != nil {
			return
		}
	}
}
