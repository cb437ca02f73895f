package documents

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/logger"
	"client-docs-portal/internal/platform/metrics"
	"client-docs-portal/internal/ports/objectstore"

	"github.com/google/uuid"
)

// TemplateSource evita importar el paquete templates.
type TemplateSource interface {
	DocumentNames(ctx context.Context, userID, templateID string) ([]string, error)
}

type Service struct {
	repo      Repository
	store     objectstore.Store
	templates TemplateSource
	log       logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

type Deps struct {
	Store     objectstore.Store
	Templates TemplateSource
	Logger    logger.Logger
	Metrics   *metrics.Metrics
}

func NewService(repo Repository, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:      repo,
		store:     deps.Store,
		templates: deps.Templates,
		log:       log.With(map[string]any{"component": "documents"}),
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

func (s *Service) List(ctx context.Context, clientID string) ([]DocumentRequest, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, apperr.Validation("client id required")
	}
	docs, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return docs, nil
}

func (s *Service) Get(ctx context.Context, id string) (DocumentRequest, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return DocumentRequest{}, apperr.Validation("document id required")
	}
	d, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return DocumentRequest{}, apperr.Persistence(err)
	}
	return d, nil
}

func (s *Service) Add(ctx context.Context, clientID, name string) (DocumentRequest, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return DocumentRequest{}, apperr.Validation("client id required")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName
	}

	now := s.now()
	d, err := s.repo.Append(ctx, DocumentRequest{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		Name:        name,
		Attachments: []Attachment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return DocumentRequest{}, apperr.Persistence(err)
	}
	return d, nil
}

// ImportTemplate agrega los nombres del template que el cliente todavía no
// tiene (comparación exacta). Devuelve ErrNothingToImport si no hay ninguno.
func (s *Service) ImportTemplate(ctx context.Context, userID, clientID, templateID string) (int, error) {
	clientID = strings.TrimSpace(clientID)
	templateID = strings.TrimSpace(templateID)
	if clientID == "" || templateID == "" {
		return 0, apperr.Validation("client id and template id required")
	}
	if s.templates == nil {
		return 0, apperr.Validation("templates not available")
	}

	names, err := s.templates.DocumentNames(ctx, userID, templateID)
	if err != nil {
		return 0, apperr.Persistence(err)
	}

	existing, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, d := range existing {
		have[d.Name] = struct{}{}
	}

	now := s.now()
	toInsert := make([]DocumentRequest, 0, len(names))
	for _, name := range names {
		if _, ok := have[name]; ok {
			continue
		}
		// un template con nombres repetidos no duplica documentos
		have[name] = struct{}{}
		toInsert = append(toInsert, DocumentRequest{
			ID:          uuid.NewString(),
			ClientID:    clientID,
			Name:        name,
			Order:       len(existing) + len(toInsert),
			Attachments: []Attachment{},
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	if len(toInsert) == 0 {
		return 0, apperr.ErrNothingToImport
	}
	if err := s.repo.CreateMany(ctx, toInsert); err != nil {
		return 0, apperr.Persistence(err)
	}
	return len(toInsert), nil
}

// Reorder intercambia el documento en index con su vecino y persiste el orden
// completo en un solo batch atómico; luego relee la lista ordenada.
// En los bordes no hace nada y devuelve la lista actual.
func (s *Service) Reorder(ctx context.Context, clientID string, index int, dir Direction) ([]DocumentRequest, error) {
	docs, err := s.List(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(docs) {
		return nil, apperr.Validation("index out of range")
	}

	var other int
	switch dir {
	case Up:
		if index == 0 {
			return docs, nil
		}
		other = index - 1
	case Down:
		if index == len(docs)-1 {
			return docs, nil
		}
		other = index + 1
	default:
		return nil, apperr.Validation("direction must be up or down")
	}

	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	ids[index], ids[other] = ids[other], ids[index]

	if err := s.repo.SetOrder(ctx, clientID, ids); err != nil {
		return nil, apperr.Persistence(err)
	}
	return s.List(ctx, clientID)
}

func (s *Service) Rename(ctx context.Context, id, name string) (DocumentRequest, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" {
		return DocumentRequest{}, apperr.Validation("document id required")
	}
	if name == "" {
		return DocumentRequest{}, apperr.Validation("name required")
	}
	if err := s.repo.Rename(ctx, id, name, s.now()); err != nil {
		return DocumentRequest{}, apperr.Persistence(err)
	}
	return s.Get(ctx, id)
}

// Remove borra el documento sin mirar el estado de sus adjuntos: es la única
// forma de deshacer una aprobación. Los archivos se limpian best-effort.
func (s *Service) Remove(ctx context.Context, id string) error {
	d, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, d.ID); err != nil {
		return apperr.Persistence(err)
	}

	keys := make([]string, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		if a.Key != "" {
			keys = append(keys, a.Key)
		}
	}
	s.removeObjects(ctx, d.ID, keys...)
	return nil
}

// FileUpload es el archivo recibido del cliente o del staff.
type FileUpload struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// StorageKey arma clientID/documentID/<unixmillis>_<nombre saneado>.
func StorageKey(clientID, documentID string, at time.Time, fileName string) string {
	return fmt.Sprintf("%s/%s/%d_%s", clientID, documentID, at.UnixMilli(), SanitizeFileName(fileName))
}

// UploadAttachment sube el archivo y lo agrega como pendiente.
// Falla con ErrAlreadyApproved si el documento ya tiene un adjunto aprobado;
// el chequeo se repite dentro de la escritura atómica.
func (s *Service) UploadAttachment(ctx context.Context, documentID string, f FileUpload) (Attachment, error) {
	name := strings.TrimSpace(f.Name)
	if name == "" || f.Body == nil {
		return Attachment{}, apperr.Validation("file required")
	}
	if s.store == nil {
		return Attachment{}, apperr.Persistence(errors.New("object store not configured"))
	}

	d, err := s.Get(ctx, documentID)
	if err != nil {
		return Attachment{}, err
	}
	if HasApproved(d) {
		return Attachment{}, apperr.ErrAlreadyApproved
	}

	now := s.now()
	key := StorageKey(d.ClientID, d.ID, now, name)
	if err := s.store.Upload(ctx, key, f.ContentType, f.Body); err != nil {
		return Attachment{}, apperr.Persistence(fmt.Errorf("upload %s: %w", key, err))
	}

	att := Attachment{
		URL:          s.store.PublicURL(key),
		Key:          key,
		OriginalName: name,
		State:        StatePending,
		UploadedAt:   now,
	}

	_, err = s.repo.UpdateAttachments(ctx, d.ID, now, func(cur []Attachment) ([]Attachment, error) {
		for _, a := range cur {
			if a.State == StateApproved {
				return nil, apperr.ErrAlreadyApproved
			}
		}
		return append(cur, att), nil
	})
	if err != nil {
		// el registro no cambió: el archivo quedaría huérfano
		s.removeObjects(ctx, d.ID, key)
		return Attachment{}, apperr.Persistence(err)
	}
	return att, nil
}

// DeleteAttachment quita un adjunto no aprobado: primero el registro, con el
// chequeo de aprobado bajo la escritura atómica, y recién después el archivo
// (best-effort, se loguea si falla). Un adjunto aprobado nunca pierde su objeto.
func (s *Service) DeleteAttachment(ctx context.Context, documentID string, index int) error {
	d, err := s.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(d.Attachments) {
		return fmt.Errorf("attachment %d: %w", index, apperr.ErrNotFound)
	}
	target := d.Attachments[index]
	if target.State == StateApproved {
		return apperr.ErrAlreadyApproved
	}

	_, err = s.repo.UpdateAttachments(ctx, d.ID, s.now(), func(cur []Attachment) ([]Attachment, error) {
		i := indexOf(cur, index, target)
		if i < 0 {
			return nil, fmt.Errorf("attachment %d: %w", index, apperr.ErrNotFound)
		}
		if cur[i].State == StateApproved {
			return nil, apperr.ErrAlreadyApproved
		}
		out := make([]Attachment, 0, len(cur)-1)
		out = append(out, cur[:i]...)
		return append(out, cur[i+1:]...), nil
	})
	if err != nil {
		return apperr.Persistence(err)
	}

	if target.Key != "" {
		s.removeObjects(ctx, d.ID, target.Key)
	}
	return nil
}

func (s *Service) Approve(ctx context.Context, documentID string, index int) (DocumentRequest, error) {
	return s.review(ctx, documentID, index, StateApproved, "")
}

func (s *Service) Reject(ctx context.Context, documentID string, index int, reason string) (DocumentRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return DocumentRequest{}, apperr.Validation("rejection reason required")
	}
	return s.review(ctx, documentID, index, StateRejected, reason)
}

func (s *Service) review(ctx context.Context, documentID string, index int, to State, reason string) (DocumentRequest, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return DocumentRequest{}, apperr.Validation("document id required")
	}

	d, err := s.repo.UpdateAttachments(ctx, documentID, s.now(), func(cur []Attachment) ([]Attachment, error) {
		if index < 0 || index >= len(cur) {
			return nil, fmt.Errorf("attachment %d: %w", index, apperr.ErrNotFound)
		}
		next, err := Transition(cur[index], to, reason)
		if err != nil {
			return nil, err
		}
		out := append([]Attachment(nil), cur...)
		out[index] = next
		return out, nil
	})
	if err != nil {
		return DocumentRequest{}, apperr.Persistence(err)
	}
	s.metrics.Reviewed(string(to))
	return d, nil
}

// ClientReview es el estado agregado de un cliente.
type ClientReview struct {
	AllApproved bool
	Stats       Stats
}

func (s *Service) ReviewStatus(ctx context.Context, clientID string) (ClientReview, error) {
	docs, err := s.List(ctx, clientID)
	if err != nil {
		return ClientReview{}, err
	}
	return ClientReview{AllApproved: AllApproved(docs), Stats: ComputeStats(docs)}, nil
}

// StatsFor implementa clients.StatsSource.
func (s *Service) StatsFor(ctx context.Context, clientID string) (Stats, error) {
	rv, err := s.ReviewStatus(ctx, clientID)
	if err != nil {
		return Stats{}, err
	}
	return rv.Stats, nil
}

func (s *Service) removeObjects(ctx context.Context, documentID string, keys ...string) {
	if s.store == nil || len(keys) == 0 {
		return
	}
	if err := s.store.Remove(ctx, keys...); err != nil {
		s.log.Warn("storage cleanup failed", map[string]any{
			"document_id": documentID,
			"keys":        keys,
			"err":         err,
		})
	}
}

// indexOf ubica el adjunto a borrar: se confirma por key para no borrar otro
// si la lista cambió entre la lectura y la escritura.
func indexOf(cur []Attachment, hint int, target Attachment) int {
	if hint >= 0 && hint < len(cur) && cur[hint].Key == target.Key && cur[hint].UploadedAt.Equal(target.UploadedAt) {
		return hint
	}
	for i, a := range cur {
		if a.Key == target.Key && a.UploadedAt.Equal(target.UploadedAt) {
			return i
		}
	}
	return -1
}
