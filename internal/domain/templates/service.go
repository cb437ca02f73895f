package templates

import (
	"context"
	"strings"
	"time"

	"client-docs-portal/internal/platform/apperr"

	"github.com/google/uuid"
)

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

type Input struct {
	Name      string
	Documents []string
}

func (s *Service) Create(ctx context.Context, userID string, in Input) (Template, error) {
	if strings.TrimSpace(userID) == "" {
		return Template{}, apperr.ErrUnauthorized
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Template{}, apperr.Validation("template name required")
	}

	now := s.now()
	t := Template{
		ID:        uuid.NewString(),
		UserID:    userID,
		Name:      name,
		Documents: cleanNames(in.Documents),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Template{}, apperr.Persistence(err)
	}
	return t, nil
}

// Get solo devuelve templates del usuario; los ajenos se reportan como inexistentes.
func (s *Service) Get(ctx context.Context, userID, id string) (Template, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Template{}, apperr.Validation("template id required")
	}
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return Template{}, apperr.Persistence(err)
	}
	if t.UserID != userID {
		return Template{}, apperr.ErrNotFound
	}
	return t, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Template, error) {
	items, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return items, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in Input) (Template, error) {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return Template{}, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Template{}, apperr.Validation("template name required")
	}
	t.Name = name
	t.Documents = cleanNames(in.Documents)
	t.UpdatedAt = s.now()

	if err := s.repo.Update(ctx, t); err != nil {
		return Template{}, apperr.Persistence(err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	t, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, t.ID); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}

// DocumentNames implementa documents.TemplateSource.
func (s *Service) DocumentNames(ctx context.Context, userID, templateID string) ([]string, error) {
	t, err := s.Get(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}
	return t.Documents, nil
}

// cleanNames recorta y descarta vacíos; conserva el orden.
func cleanNames(in []string) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
