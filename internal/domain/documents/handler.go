package documents

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"client-docs-portal/internal/middleware"
	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/httpx"
	"client-docs-portal/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

// MaxUploadBytes limita el tamaño de un archivo subido.
const MaxUploadBytes = 25 << 20

// ClientAuthorizer evita importar el paquete clients (rompe ciclos).
type ClientAuthorizer interface {
	Authorize(ctx context.Context, sess auth.Session, clientID string) error
}

func RegisterRoutes(r chi.Router, svc *Service, clients ClientAuthorizer) {
	r.Route("/clients/{clientID}/documents", func(cr chi.Router) {
		cr.Get("/", listDocumentsHandler(svc, clients))
		cr.Post("/", addDocumentHandler(svc, clients))
		cr.Get("/status", reviewStatusHandler(svc, clients))
		cr.Post("/import", importTemplateHandler(svc, clients))
		cr.Post("/reorder", reorderHandler(svc, clients))
	})

	r.Route("/documents/{documentID}", func(dr chi.Router) {
		dr.Patch("/", renameDocumentHandler(svc, clients))
		dr.Delete("/", removeDocumentHandler(svc, clients))

		dr.Post("/attachments", uploadAttachmentHandler(svc, clients))
		dr.Delete("/attachments/{index}", deleteAttachmentHandler(svc, clients))
		dr.Post("/attachments/{index}/approve", approveHandler(svc, clients))
		dr.Post("/attachments/{index}/reject", rejectHandler(svc, clients))
	})
}

// AttachmentResponse es un adjunto tal como lo ve el staff o el portal.
type AttachmentResponse struct {
	Index           int       `json:"index"`
	URL             string    `json:"url"`
	Name            string    `json:"nombre"`
	State           State     `json:"estado"`
	RejectionReason string    `json:"motivo_rechazo,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// DocumentResponse es un documento con su estado agregado.
type DocumentResponse struct {
	ID          string               `json:"id"`
	ClientID    string               `json:"cliente_id"`
	Name        string               `json:"nombre"`
	Order       int                  `json:"orden"`
	Status      State                `json:"estado"`
	Attachments []AttachmentResponse `json:"archivos"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

type documentListResponse struct {
	Documents   []DocumentResponse `json:"documents"`
	AllApproved bool               `json:"all_approved"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type importRequest struct {
	TemplateID string `json:"template_id" validate:"required"`
}

type importResponse struct {
	Inserted int `json:"inserted"`
}

type reorderRequest struct {
	Index     int       `json:"index"`
	Direction Direction `json:"direction" enums:"up,down" validate:"required,oneof=up down"`
}

type rejectRequest struct {
	Reason string `json:"reason" validate:"required"`
}

type reviewStatusResponse struct {
	AllApproved bool  `json:"all_approved"`
	Stats       Stats `json:"stats"`
}

// listDocumentsHandler godoc
// @Summary Listar documentos solicitados a un cliente
// @Description Documentos ordenados por `orden`, con adjuntos y estado agregado. Requiere staff de la organización del cliente.
// @Tags documents
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Success 200 {object} documentListResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /clients/{clientID}/documents [get]
func listDocumentsHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		if _, ok := authorizeClient(w, r, clients, clientID, ""); !ok {
			return
		}

		docs, err := svc.List(r.Context(), clientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, documentListResponse{
			Documents:   ToResponses(docs),
			AllApproved: AllApproved(docs),
		})
	}
}

// addDocumentHandler godoc
// @Summary Agregar documento solicitado
// @Description Se agrega al final (orden = cantidad actual). Sin nombre usa "Nuevo Documento". Requiere `can_manage_documents`.
// @Tags documents
// @Accept json
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Param payload body nameRequest false "Nombre del documento"
// @Success 201 {object} DocumentResponse
// @Router /clients/{clientID}/documents [post]
func addDocumentHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		if _, ok := authorizeClient(w, r, clients, clientID, auth.PermManageDocuments); !ok {
			return
		}

		var req nameRequest
		if r.ContentLength != 0 {
			if err := httpx.DecodeJSON(w, r, &req); err != nil {
				httpx.WriteError(w, err)
				return
			}
		}

		d, err := svc.Add(r.Context(), clientID, req.Name)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, ToResponse(d))
	}
}

// reviewStatusHandler godoc
// @Summary Estado de revisión del cliente
// @Description `all_approved` habilita la acción de compartir documentos.
// @Tags documents
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Success 200 {object} reviewStatusResponse
// @Router /clients/{clientID}/documents/status [get]
func reviewStatusHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		if _, ok := authorizeClient(w, r, clients, clientID, ""); !ok {
			return
		}
		rv, err := svc.ReviewStatus(r.Context(), clientID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, reviewStatusResponse{AllApproved: rv.AllApproved, Stats: rv.Stats})
	}
}

// importTemplateHandler godoc
// @Summary Importar template
// @Description Inserta solo los nombres que el cliente aún no tiene. 409 si no hay nada para importar.
// @Tags documents
// @Accept json
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Param payload body importRequest true "Template a importar"
// @Success 201 {object} importResponse
// @Failure 409 {string} string "nothing to import"
// @Router /clients/{clientID}/documents/import [post]
func importTemplateHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		sess, ok := authorizeClient(w, r, clients, clientID, auth.PermManageDocuments)
		if !ok {
			return
		}

		var req importRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		n, err := svc.ImportTemplate(r.Context(), sess.UserID, clientID, req.TemplateID)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, importResponse{Inserted: n})
	}
}

// reorderHandler godoc
// @Summary Mover documento arriba/abajo
// @Description Intercambia con el vecino. En los bordes no cambia nada. Devuelve la lista releída.
// @Tags documents
// @Accept json
// @Produce json
// @Param clientID path string true "ID del cliente"
// @Param payload body reorderRequest true "Índice y dirección"
// @Success 200 {array} DocumentResponse
// @Router /clients/{clientID}/documents/reorder [post]
func reorderHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := chi.URLParam(r, "clientID")
		if _, ok := authorizeClient(w, r, clients, clientID, auth.PermManageDocuments); !ok {
			return
		}

		var req reorderRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		docs, err := svc.Reorder(r.Context(), clientID, req.Index, req.Direction)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponses(docs))
	}
}

func renameDocumentHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := authorizeDocument(w, r, svc, clients, auth.PermManageDocuments)
		if !ok {
			return
		}

		var req nameRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		updated, err := svc.Rename(r.Context(), d.ID, req.Name)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(updated))
	}
}

func removeDocumentHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := authorizeDocument(w, r, svc, clients, auth.PermManageDocuments)
		if !ok {
			return
		}
		if err := svc.Remove(r.Context(), d.ID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// uploadAttachmentHandler godoc
// @Summary Subir archivo a un documento
// @Description multipart/form-data con campo `file`. 409 si el documento ya tiene un archivo aprobado.
// @Tags documents
// @Accept mpfd
// @Produce json
// @Param documentID path string true "ID del documento"
// @Param file formData file true "Archivo"
// @Success 201 {object} AttachmentResponse
// @Failure 409 {string} string "already approved"
// @Router /documents/{documentID}/attachments [post]
func uploadAttachmentHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := authorizeDocument(w, r, svc, clients, auth.PermManageDocuments)
		if !ok {
			return
		}
		ServeUpload(w, r, svc, d)
	}
}

func deleteAttachmentHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := authorizeDocument(w, r, svc, clients, auth.PermManageDocuments)
		if !ok {
			return
		}
		ServeDeleteAttachment(w, r, svc, d)
	}
}

// approveHandler godoc
// @Summary Aprobar archivo
// @Description pending -> approved. Un archivo aprobado ya no puede borrarse ni reemplazarse.
// @Tags documents
// @Produce json
// @Param documentID path string true "ID del documento"
// @Param index path int true "Índice del archivo"
// @Success 200 {object} DocumentResponse
// @Failure 409 {string} string "already approved / invalid transition"
// @Router /documents/{documentID}/attachments/{index}/approve [post]
func approveHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := authorizeDocument(w, r, svc, clients, auth.PermManageDocuments)
		if !ok {
			return
		}
		idx, err := attachmentIndex(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		updated, err := svc.Approve(r.Context(), d.ID, idx)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// rejectHandler godoc
// @Summary Rechazar archivo
// @Description pending -> rejected con motivo obligatorio.
// @Tags documents
// @Accept json
// @Produce json
// @Param documentID path string true "ID del documento"
// @Param index path int true "Índice del archivo"
// @Param payload body rejectRequest true "Motivo"
// @Success 200 {object} DocumentResponse
// @Router /documents/{documentID}/attachments/{index}/reject [post]
func rejectHandler(svc *Service, clients ClientAuthorizer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, ok := authorizeDocument(w, r, svc, clients, auth.PermManageDocuments)
		if !ok {
			return
		}
		idx, err := attachmentIndex(r)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}

		var req rejectRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		updated, err := svc.Reject(r.Context(), d.ID, idx, req.Reason)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, ToResponse(updated))
	}
}

// ServeUpload lee el multipart y sube el archivo a d. Lo comparten staff y portal.
func ServeUpload(w http.ResponseWriter, r *http.Request, svc *Service, d DocumentRequest) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		httpx.WriteError(w, apperr.Validation("invalid multipart form"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.WriteError(w, apperr.Validation("file required"))
		return
	}
	defer file.Close()

	att, err := svc.UploadAttachment(r.Context(), d.ID, FileUpload{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toAttachmentResponse(len(d.Attachments), att))
}

// ServeDeleteAttachment borra el adjunto {index} de d.
func ServeDeleteAttachment(w http.ResponseWriter, r *http.Request, svc *Service, d DocumentRequest) {
	idx, err := attachmentIndex(r)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if err := svc.DeleteAttachment(r.Context(), d.ID, idx); err != nil {
		httpx.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func ToResponse(d DocumentRequest) DocumentResponse {
	atts := make([]AttachmentResponse, 0, len(d.Attachments))
	for i, a := range d.Attachments {
		atts = append(atts, toAttachmentResponse(i, a))
	}
	return DocumentResponse{
		ID:          d.ID,
		ClientID:    d.ClientID,
		Name:        d.Name,
		Order:       d.Order,
		Status:      Status(d),
		Attachments: atts,
		UpdatedAt:   d.UpdatedAt,
	}
}

func ToResponses(docs []DocumentRequest) []DocumentResponse {
	out := make([]DocumentResponse, 0, len(docs))
	for _, d := range docs {
		out = append(out, ToResponse(d))
	}
	return out
}

func toAttachmentResponse(i int, a Attachment) AttachmentResponse {
	return AttachmentResponse{
		Index:           i,
		URL:             a.URL,
		Name:            a.OriginalName,
		State:           a.State,
		RejectionReason: a.RejectionReason,
		UploadedAt:      a.UploadedAt,
	}
}

func attachmentIndex(r *http.Request) (int, error) {
	idx, err := strconv.Atoi(strings.TrimSpace(chi.URLParam(r, "index")))
	if err != nil || idx < 0 {
		return 0, apperr.Validation("index must be a non-negative integer")
	}
	return idx, nil
}

// authorizeClient exige staff de la organización del cliente y, si perm != "",
// ese permiso. Escribe la respuesta de error y devuelve ok=false si no pasa.
func authorizeClient(w http.ResponseWriter, r *http.Request, clients ClientAuthorizer, clientID string, perm auth.Permission) (auth.Session, bool) {
	sess, ok := middleware.RequireStaff(w, r)
	if !ok {
		return auth.Session{}, false
	}
	if perm != "" && !sess.Can(perm) {
		httpx.WriteError(w, apperr.ErrForbidden)
		return auth.Session{}, false
	}
	if err := clients.Authorize(r.Context(), sess, clientID); err != nil {
		httpx.WriteError(w, err)
		return auth.Session{}, false
	}
	return sess, true
}

func authorizeDocument(w http.ResponseWriter, r *http.Request, svc *Service, clients ClientAuthorizer, perm auth.Permission) (DocumentRequest, bool) {
	sess, ok := middleware.RequireStaff(w, r)
	if !ok {
		return DocumentRequest{}, false
	}
	if perm != "" && !sess.Can(perm) {
		httpx.WriteError(w, apperr.ErrForbidden)
		return DocumentRequest{}, false
	}

	d, err := svc.Get(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		httpx.WriteError(w, err)
		return DocumentRequest{}, false
	}
	if err := clients.Authorize(r.Context(), sess, d.ClientID); err != nil {
		// un documento de otra organización se reporta como inexistente
		if errors.Is(err, apperr.ErrForbidden) {
			err = apperr.ErrNotFound
		}
		httpx.WriteError(w, err)
		return DocumentRequest{}, false
	}
	return d, true
}
