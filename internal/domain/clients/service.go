package clients

import (
	"context"
	"strings"
	"time"

	"client-docs-portal/internal/domain/documents"
	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/validate"
	"client-docs-portal/internal/ports/auth"

	"github.com/google/uuid"
)

// StatsSource lo implementa documents.Service.
type StatsSource interface {
	StatsFor(ctx context.Context, clientID string) (documents.Stats, error)
}

// UnreadSource lo implementa notifications.Service: mensajes de clientes no
// leídos por el staff, por cliente.
type UnreadSource interface {
	UnreadCounts(ctx context.Context, sess auth.Session, clientIDs []string) (map[string]int, error)
}

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

type CreateInput struct {
	Name  string
	Email string
	Phone string
}

// UpdateInput: nil = no tocar.
type UpdateInput struct {
	Name  *string
	Email *string
	Phone *string
}

// Create exige can_create_clients (los admin siempre pueden). La organización
// sale de la sesión, nunca del request.
func (s *Service) Create(ctx context.Context, sess auth.Session, in CreateInput) (Client, error) {
	if !sess.IsStaff() {
		return Client{}, apperr.ErrForbidden
	}
	if !sess.Can(auth.PermCreateClients) {
		return Client{}, apperr.ErrForbidden
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Client{}, apperr.Validation("name required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return Client{}, err
	}

	now := s.now()
	c := Client{
		ID:             uuid.NewString(),
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(in.Phone),
		OrganizationID: sess.OrganizationID,
		CreatedBy:      sess.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return Client{}, apperr.Persistence(err)
	}
	return c, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Client, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Client{}, apperr.Validation("client id required")
	}
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Client{}, apperr.Persistence(err)
	}
	return c, nil
}

// Get devuelve el cliente si pertenece a la organización de la sesión.
func (s *Service) Get(ctx context.Context, sess auth.Session, id string) (Client, error) {
	c, err := s.GetByID(ctx, id)
	if err != nil {
		return Client{}, err
	}
	if !sameOrganization(sess, c) {
		return Client{}, apperr.ErrForbidden
	}
	return c, nil
}

// Authorize implementa los lookups de documents, accesstokens, messages y sharing.
func (s *Service) Authorize(ctx context.Context, sess auth.Session, clientID string) error {
	_, err := s.Get(ctx, sess, clientID)
	return err
}

func (s *Service) List(ctx context.Context, sess auth.Session) ([]Client, error) {
	if !sess.IsStaff() {
		return nil, apperr.ErrForbidden
	}
	items, err := s.repo.ListByOrganization(ctx, sess.OrganizationID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return items, nil
}

// ClientIDs implementa notifications.ClientDirectory.
func (s *Service) ClientIDs(ctx context.Context, sess auth.Session) ([]string, error) {
	items, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(items))
	for i, c := range items {
		ids[i] = c.ID
	}
	return ids, nil
}

// Overview es un cliente con sus estadísticas para el listado del staff.
type Overview struct {
	Client      Client
	Stats       documents.Stats
	UnreadCount int
}

// ListOverview agrega estadísticas de documentos y mensajes sin leer.
// stats y unread pueden ser nil.
func (s *Service) ListOverview(ctx context.Context, sess auth.Session, stats StatsSource, unread UnreadSource) ([]Overview, error) {
	items, err := s.List(ctx, sess)
	if err != nil {
		return nil, err
	}

	var counts map[string]int
	if unread != nil && len(items) > 0 {
		ids := make([]string, len(items))
		for i, c := range items {
			ids[i] = c.ID
		}
		counts, err = unread.UnreadCounts(ctx, sess, ids)
		if err != nil {
			return nil, err
		}
	}

	out := make([]Overview, 0, len(items))
	for _, c := range items {
		ov := Overview{Client: c, UnreadCount: counts[c.ID]}
		if stats != nil {
			st, err := stats.StatsFor(ctx, c.ID)
			if err != nil {
				return nil, err
			}
			ov.Stats = st
		}
		out = append(out, ov)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, sess auth.Session, id string, in UpdateInput) (Client, error) {
	c, err := s.Get(ctx, sess, id)
	if err != nil {
		return Client{}, err
	}
	if !sess.Can(auth.PermCreateClients) {
		return Client{}, apperr.ErrForbidden
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return Client{}, apperr.Validation("name cannot be empty")
		}
		c.Name = name
	}
	if in.Email != nil {
		email, err := normalizeEmail(*in.Email)
		if err != nil {
			return Client{}, err
		}
		c.Email = email
	}
	if in.Phone != nil {
		c.Phone = strings.TrimSpace(*in.Phone)
	}
	c.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, c); err != nil {
		return Client{}, apperr.Persistence(err)
	}
	return c, nil
}

// DeleteByCreator se usa al dar de baja un usuario.
func (s *Service) DeleteByCreator(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, apperr.Validation("user id required")
	}
	n, err := s.repo.DeleteByCreator(ctx, userID)
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	return n, nil
}

func sameOrganization(sess auth.Session, c Client) bool {
	return sess.IsStaff() && c.OrganizationID == sess.OrganizationID
}

// normalizeEmail acepta vacío: el email del cliente es opcional.
func normalizeEmail(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	return validate.Email(raw)
}

// ClientName implementa sharing.ClientNames.
func (s *Service) ClientName(ctx context.Context, clientID string) (string, error) {
	c, err := s.GetByID(ctx, clientID)
	if err != nil {
		return "", err
	}
	return c.Name, nil
}
