package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/logger"
	"client-docs-portal/internal/platform/validate"
	"client-docs-portal/internal/ports/auth"
	"client-docs-portal/internal/ports/identity"
	"client-docs-portal/internal/ports/mailer"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// MessageCleanup lo implementa messages.Service.
type MessageCleanup interface {
	DeleteByUser(ctx context.Context, userID string) (int, error)
}

// ClientCleanup lo implementa clients.Service.
type ClientCleanup interface {
	DeleteByCreator(ctx context.Context, userID string) (int, error)
}

type Service struct {
	repo     Repository
	identity identity.Admin
	mail     mailer.Mailer
	messages MessageCleanup
	clients  ClientCleanup
	log      logger.Logger
	now      func() time.Time
}

type Deps struct {
	Identity identity.Admin
	Mailer   mailer.Mailer
	Messages MessageCleanup
	Clients  ClientCleanup
	Logger   logger.Logger
}

func NewService(repo Repository, deps Deps) *Service {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		identity: deps.Identity,
		mail:     deps.Mailer,
		messages: deps.Messages,
		clients:  deps.Clients,
		log:      log.With(map[string]any{"component": "users"}),
		now:      time.Now,
	}
}

// SetMessageCleanup se llama después de construir messages.Service, que a su
// vez usa este servicio como directorio de autores.
func (s *Service) SetMessageCleanup(m MessageCleanup) {
	s.messages = m
}

// SessionFor implementa auth.SessionResolver.
func (s *Service) SessionFor(ctx context.Context, claims auth.Claims) (auth.Session, error) {
	role, err := s.repo.GetRole(ctx, claims.UserID)
	if err != nil {
		return auth.Session{}, apperr.Persistence(err)
	}
	return auth.Session{
		UserID:         claims.UserID,
		Email:          claims.Email,
		OrganizationID: role.OrganizationID,
		Role:           role.Role,
		Permissions:    role.Permissions,
	}, nil
}

// Bootstrap da de alta la organización de un usuario recién registrado y lo
// deja como su admin. Un usuario que ya tiene rol (en cualquier organización)
// recibe ErrConflict.
func (s *Service) Bootstrap(ctx context.Context, sess auth.Session, name string) (Organization, error) {
	if !sess.Authenticated() {
		return Organization{}, apperr.ErrUnauthorized
	}
	if _, err := s.repo.GetRole(ctx, sess.UserID); err == nil {
		return Organization{}, fmt.Errorf("user %s already has a role: %w", sess.UserID, apperr.ErrConflict)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return Organization{}, apperr.Persistence(err)
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = sess.Email
	}
	if name == "" {
		return Organization{}, apperr.Validation("organization name required")
	}

	now := s.now()
	org := Organization{ID: uuid.NewString(), Name: name, CreatedAt: now}
	if err := s.repo.CreateOrganization(ctx, org); err != nil {
		return Organization{}, apperr.Persistence(err)
	}
	if err := s.repo.CreateRole(ctx, UserRole{
		UserID:         sess.UserID,
		OrganizationID: org.ID,
		Role:           auth.RoleAdmin,
		Permissions:    auth.PermissionSet{},
		CreatedAt:      now,
	}); err != nil {
		return Organization{}, apperr.Persistence(err)
	}
	if sess.Email != "" {
		if err := s.repo.CreateUser(ctx, User{ID: sess.UserID, Email: strings.ToLower(sess.Email), CreatedAt: now}); err != nil {
			return Organization{}, apperr.Persistence(err)
		}
	}

	s.log.Info("organization created", map[string]any{"organization_id": org.ID, "user_id": sess.UserID})
	return org, nil
}

// Invite crea un colaborador en la organización del admin: invitación por
// email en el proveedor de identidad, fila de rol con permisos y fila en users.
func (s *Service) Invite(ctx context.Context, sess auth.Session, email string, permissions map[string]bool) (identity.User, error) {
	if !sess.IsAdmin() {
		return identity.User{}, apperr.ErrForbidden
	}
	email, err := validate.Email(email)
	if err != nil {
		return identity.User{}, err
	}
	if s.identity == nil {
		return identity.User{}, apperr.Persistence(errors.New("identity provider not configured"))
	}

	u, err := s.identity.InviteUserByEmail(ctx, email, map[string]any{
		"role":            string(auth.RoleCollaborator),
		"organization_id": sess.OrganizationID,
	})
	if err != nil {
		return identity.User{}, apperr.Persistence(fmt.Errorf("invite %s: %w", email, err))
	}

	now := s.now()
	if err := s.repo.CreateRole(ctx, UserRole{
		UserID:         u.ID,
		OrganizationID: sess.OrganizationID,
		Role:           auth.RoleCollaborator,
		Permissions:    auth.ParsePermissions(permissions),
		CreatedAt:      now,
	}); err != nil {
		return identity.User{}, apperr.Persistence(err)
	}
	if err := s.repo.CreateUser(ctx, User{ID: u.ID, Email: email, CreatedAt: now}); err != nil {
		return identity.User{}, apperr.Persistence(err)
	}

	s.log.Info("user invited", map[string]any{"user_id": u.ID, "organization_id": sess.OrganizationID})
	return u, nil
}

// Delete borra un usuario de la organización. La limpieza de filas
// dependientes es best-effort y concurrente (los fallos se loguean); el
// borrado de la identidad al final sí es fatal.
func (s *Service) Delete(ctx context.Context, sess auth.Session, userID string) error {
	if !sess.IsAdmin() {
		return apperr.ErrForbidden
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return apperr.Validation("userId required")
	}
	if userID == sess.UserID {
		return apperr.Validation("cannot delete yourself")
	}
	if err := s.sameOrganization(ctx, sess, userID); err != nil {
		return err
	}

	s.cleanup(ctx, userID)

	if err := s.deleteIdentity(ctx, userID); err != nil {
		return err
	}
	s.log.Info("user deleted", map[string]any{"user_id": userID, "by": sess.UserID})
	return nil
}

func (s *Service) cleanup(ctx context.Context, userID string) {
	steps := map[string]func(context.Context) error{
		"client_messages": func(ctx context.Context) error {
			if s.messages == nil {
				return nil
			}
			_, err := s.messages.DeleteByUser(ctx, userID)
			return err
		},
		"user_roles": func(ctx context.Context) error { return ignoreNotFound(s.repo.DeleteRole(ctx, userID)) },
		"clientes": func(ctx context.Context) error {
			if s.clients == nil {
				return nil
			}
			_, err := s.clients.DeleteByCreator(ctx, userID)
			return err
		},
		"users": func(ctx context.Context) error { return ignoreNotFound(s.repo.DeleteUser(ctx, userID)) },
	}

	// errgroup sin WithContext: un fallo no cancela el resto
	var g errgroup.Group
	for table, step := range steps {
		g.Go(func() error {
			if err := step(ctx); err != nil {
				s.log.Warn("user cleanup step failed", map[string]any{
					"user_id": userID,
					"table":   table,
					"err":     err,
				})
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) deleteIdentity(ctx context.Context, userID string) error {
	if s.identity == nil {
		return apperr.Persistence(errors.New("identity provider not configured"))
	}
	if err := s.identity.DeleteUser(ctx, userID); err != nil {
		return apperr.Persistence(fmt.Errorf("delete identity %s: %w", userID, err))
	}
	return nil
}

// sameOrganization permite borrar identidades sin fila de rol (huérfanas).
func (s *Service) sameOrganization(ctx context.Context, sess auth.Session, userID string) error {
	role, err := s.repo.GetRole(ctx, userID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return apperr.Persistence(err)
	}
	if role.OrganizationID != sess.OrganizationID {
		return apperr.ErrForbidden
	}
	return nil
}

// UpdatePermissions reemplaza los flags de un colaborador de la organización
// del admin. Los admin no tienen flags editables.
func (s *Service) UpdatePermissions(ctx context.Context, sess auth.Session, userID string, permissions map[string]bool) (UserRole, error) {
	if !sess.IsAdmin() {
		return UserRole{}, apperr.ErrForbidden
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserRole{}, apperr.Validation("userId required")
	}

	role, err := s.repo.GetRole(ctx, userID)
	if err != nil {
		return UserRole{}, apperr.Persistence(err)
	}
	if role.OrganizationID != sess.OrganizationID {
		return UserRole{}, apperr.ErrForbidden
	}
	if role.Role != auth.RoleCollaborator {
		return UserRole{}, apperr.Validation("only collaborator permissions can be edited")
	}

	perms := auth.ParsePermissions(permissions)
	if err := s.repo.UpdatePermissions(ctx, userID, perms); err != nil {
		return UserRole{}, apperr.Persistence(err)
	}
	role.Permissions = perms

	s.log.Info("permissions updated", map[string]any{"user_id": userID, "by": sess.UserID})
	return role, nil
}

// ListUsers devuelve las identidades de la organización sin los admins, con
// su rol y permisos.
func (s *Service) ListUsers(ctx context.Context, sess auth.Session) ([]Member, error) {
	if !sess.IsAdmin() {
		return nil, apperr.ErrForbidden
	}
	if s.identity == nil {
		return nil, apperr.Persistence(errors.New("identity provider not configured"))
	}

	roles, err := s.repo.ListRolesByOrganization(ctx, sess.OrganizationID)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	members := make(map[string]UserRole, len(roles))
	for _, r := range roles {
		if r.Role != auth.RoleAdmin {
			members[r.UserID] = r
		}
	}

	all, err := s.identity.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	out := make([]Member, 0, len(all))
	for _, u := range all {
		role, ok := members[u.ID]
		if !ok || u.ID == sess.UserID {
			continue
		}
		out = append(out, Member{User: u, Role: role.Role, Permissions: role.Permissions})
	}
	return out, nil
}

// DeleteByEmails borra en secuencia cada email existente. Los emails sin
// identidad se saltean; el primer borrado de identidad que falla corta.
func (s *Service) DeleteByEmails(ctx context.Context, sess auth.Session, emails []string) (int, error) {
	if !sess.IsAdmin() {
		return 0, apperr.ErrForbidden
	}
	if len(emails) == 0 {
		return 0, apperr.Validation("emails required")
	}
	if s.identity == nil {
		return 0, apperr.Persistence(errors.New("identity provider not configured"))
	}

	all, err := s.identity.ListUsers(ctx)
	if err != nil {
		return 0, apperr.Persistence(err)
	}
	byEmail := make(map[string]string, len(all))
	for _, u := range all {
		byEmail[strings.ToLower(u.Email)] = u.ID
	}

	deleted := 0
	for _, raw := range emails {
		id, ok := byEmail[strings.ToLower(strings.TrimSpace(raw))]
		if !ok || id == sess.UserID {
			continue
		}
		if err := s.sameOrganization(ctx, sess, id); err != nil {
			return deleted, err
		}
		s.cleanupSequential(ctx, id)
		if err := s.deleteIdentity(ctx, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *Service) cleanupSequential(ctx context.Context, userID string) {
	if s.messages != nil {
		if _, err := s.messages.DeleteByUser(ctx, userID); err != nil {
			s.log.Warn("user cleanup step failed", map[string]any{"user_id": userID, "table": "client_messages", "err": err})
		}
	}
	if err := ignoreNotFound(s.repo.DeleteRole(ctx, userID)); err != nil {
		s.log.Warn("user cleanup step failed", map[string]any{"user_id": userID, "table": "user_roles", "err": err})
	}
	if s.clients != nil {
		if _, err := s.clients.DeleteByCreator(ctx, userID); err != nil {
			s.log.Warn("user cleanup step failed", map[string]any{"user_id": userID, "table": "clientes", "err": err})
		}
	}
	if err := ignoreNotFound(s.repo.DeleteUser(ctx, userID)); err != nil {
		s.log.Warn("user cleanup step failed", map[string]any{"user_id": userID, "table": "users", "err": err})
	}
}

// SendCredentials manda el correo transaccional de alta.
func (s *Service) SendCredentials(ctx context.Context, sess auth.Session, email, tempPassword string, typ EmailType) error {
	if !sess.IsAdmin() {
		return apperr.ErrForbidden
	}
	email, err := validate.Email(email)
	if err != nil {
		return err
	}
	if typ != EmailNewUser {
		return apperr.Validation("unsupported email type")
	}
	if strings.TrimSpace(tempPassword) == "" {
		return apperr.Validation("tempPassword required")
	}
	if s.mail == nil {
		return apperr.Persistence(errors.New("mailer not configured"))
	}

	html, err := renderNewUserEmail(tempPassword)
	if err != nil {
		return apperr.Persistence(err)
	}
	if err := s.mail.Send(ctx, mailer.Email{To: email, Subject: newUserSubject, HTML: html}); err != nil {
		return apperr.Persistence(fmt.Errorf("send email: %w", err))
	}
	return nil
}

// SetPassword cambia la contraseña del propio usuario.
func (s *Service) SetPassword(ctx context.Context, sess auth.Session, password, confirm string) error {
	if !sess.Authenticated() {
		return apperr.ErrUnauthorized
	}
	if password != confirm {
		return apperr.Validation("passwords do not match")
	}
	if len(password) < MinPasswordLength {
		return apperr.Validation(fmt.Sprintf("password must have at least %d characters", MinPasswordLength))
	}
	if s.identity == nil {
		return apperr.Persistence(errors.New("identity provider not configured"))
	}
	if err := s.identity.UpdatePassword(ctx, sess.UserID, password); err != nil {
		return apperr.Persistence(err)
	}
	return nil
}

// EmailsByID implementa messages.AuthorDirectory.
func (s *Service) EmailsByID(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	out, err := s.repo.EmailsByID(ctx, ids)
	if err != nil {
		return nil, apperr.Persistence(err)
	}
	return out, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

