package templates

import (
	"net/http"
	"time"

	"client-docs-portal/internal/middleware"
	"client-docs-portal/internal/platform/httpx"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Route("/templates", func(tr chi.Router) {
		tr.Post("/", createTemplateHandler(svc))
		tr.Get("/", listTemplatesHandler(svc))
		tr.Get("/{templateID}", getTemplateHandler(svc))
		tr.Put("/{templateID}", updateTemplateHandler(svc))
		tr.Delete("/{templateID}", deleteTemplateHandler(svc))
	})
}

type templateRequest struct {
	Name      string   `json:"name" validate:"required"`
	Documents []string `json:"documentos"`
}

type templateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"nombre"`
	Documents []string  `json:"documentos"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// createTemplateHandler godoc
// @Summary Crear template de documentos
// @Description Los nombres vacíos se descartan.
// @Tags templates
// @Accept json
// @Produce json
// @Param payload body templateRequest true "Template"
// @Success 201 {object} templateResponse
// @Failure 400 {string} string "invalid input"
// @Router /templates [post]
func createTemplateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req templateRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		t, err := svc.Create(r.Context(), sess.UserID, Input{Name: req.Name, Documents: req.Documents})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, toTemplateResponse(t))
	}
}

func listTemplatesHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		items, err := svc.List(r.Context(), sess.UserID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := make([]templateResponse, 0, len(items))
		for _, t := range items {
			out = append(out, toTemplateResponse(t))
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func getTemplateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		t, err := svc.Get(r.Context(), sess.UserID, chi.URLParam(r, "templateID"))
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toTemplateResponse(t))
	}
}

func updateTemplateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req templateRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		t, err := svc.Update(r.Context(), sess.UserID, chi.URLParam(r, "templateID"), Input{Name: req.Name, Documents: req.Documents})
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toTemplateResponse(t))
	}
}

func deleteTemplateHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), sess.UserID, chi.URLParam(r, "templateID")); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func toTemplateResponse(t Template) templateResponse {
	docs := t.Documents
	if docs == nil {
		docs = []string{}
	}
	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Documents: docs,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}
