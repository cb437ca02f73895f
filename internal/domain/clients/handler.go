package clients

import (
	"net/http"
	"time"

	"client-docs-portal/internal/domain/documents"
	"client-docs-portal/internal/middleware"
	"client-docs-portal/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service, stats StatsSource, unread UnreadSource) {
	r.Route("/clients", func(cr chi.Router) {
		cr.Post("/", createClientHandler(svc))
		cr.Get("/", listClientsHandler(svc, stats, unread))

		cr.Get("/{clientID}", getClientHandler(svc))
		cr.Patch("/{clientID}", updateClientHandler(svc))
	})
}

type createClientRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

type updateClientRequest struct {
	// Punteros para PATCH real: nil = no tocar.
	Name  *string `json:"name" validate:"omitnil,min=1"`
	Email *string `json:"email" validate:"omitempty,email"`
	Phone *string `json:"phone"`
}

type clientResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"nombre"`
	Email          string    `json:"email"`
	Phone          string    `json:"telefono"`
	OrganizationID string    `json:"organization_id"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type clientOverviewResponse struct {
	clientResponse
	Stats       documents.Stats `json:"stats"`
	HasUnread   bool            `json:"has_unread"`
	UnreadCount int             `json:"unread_count"`
}

// createClientHandler godoc
// @Summary Crear cliente
// @Description Requiere `can_create_clients` (admin siempre). La organización sale de la sesión.
// @Tags clients
// @Accept json
// @Produce json
// @Param payload body createClientRequest true "Datos del cliente"
// @Success 201 {object} clientResponse
// @Failure 400 {string} string "invalid input"
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Router /clients [post]
func createClientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req createClientRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		c, err := svc.Create(r.Context(), sess, CreateInput{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toClientResponse(c))
	}
}

// listClientsHandler godoc
// @Summary Listar clientes de la organización
// @Description Más nuevos primero, con estadísticas de documentos y mensajes sin leer.
// @Tags clients
// @Produce json
// @Success 200 {array} clientOverviewResponse
// @Failure 401 {string} string "unauthorized"
// @Router /clients [get]
func listClientsHandler(svc *Service, stats StatsSource, unread UnreadSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		items, err := svc.ListOverview(r.Context(), sess, stats, unread)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		out := make([]clientOverviewResponse, 0, len(items))
		for _, ov := range items {
			out = append(out, clientOverviewResponse{
				clientResponse: toClientResponse(ov.Client),
				Stats:          ov.Stats,
				HasUnread:      ov.UnreadCount > 0,
				UnreadCount:    ov.UnreadCount,
			})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

// getClientHandler godoc
// @Summary Obtener cliente
// @Tags clients
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Success 200 {object} clientResponse
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /clients/{clientID} [get]
func getClientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		c, err := svc.Get(r.Context(), sess, chi.URLParam(r, "clientID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toClientResponse(c))
	}
}

func updateClientHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req updateClientRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		c, err := svc.Update(r.Context(), sess, chi.URLParam(r, "clientID"), UpdateInput{
			Name:  req.Name,
			Email: req.Email,
			Phone: req.Phone,
		})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toClientResponse(c))
	}
}

func toClientResponse(c Client) clientResponse {
	return clientResponse{
		ID:             c.ID,
		Name:           c.Name,
		Email:          c.Email,
		Phone:          c.Phone,
		OrganizationID: c.OrganizationID,
		CreatedBy:      c.CreatedBy,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}
