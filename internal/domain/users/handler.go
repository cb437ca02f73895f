package users

import (
	"net/http"
	"time"

	"client-docs-portal/internal/middleware"
	"client-docs-portal/internal/platform/httpx"
	"client-docs-portal/internal/ports/auth"

	"github.com/go-chi/chi/v5"
)

func RegisterRoutes(r chi.Router, svc *Service) {
	r.Post("/api/organizations", bootstrapHandler(svc))
	r.Post("/api/users", inviteUserHandler(svc))
	r.Delete("/api/users", deleteUserHandler(svc))
	r.Patch("/api/users/{userId}/permissions", updatePermissionsHandler(svc))
	r.Get("/api/admin/list-users", listUsersHandler(svc))
	r.Post("/api/admin/delete-users", deleteUsersByEmailHandler(svc))
	r.Post("/api/send", sendEmailHandler(svc))
	r.Post("/api/password", setPasswordHandler(svc))
	r.Get("/me", meHandler())
}

type inviteRequest struct {
	Email       string          `json:"email" validate:"required,email"`
	Permissions map[string]bool `json:"permissions"`
}

type organizationRequest struct {
	// Vacío = email del usuario.
	Name string `json:"name"`
}

type permissionsRequest struct {
	Permissions map[string]bool `json:"permissions" validate:"required"`
}

type deleteUserRequest struct {
	UserID string `json:"userId" validate:"required"`
}

type deleteUsersRequest struct {
	Emails []string `json:"emails" validate:"required,min=1,dive,required"`
}

type sendEmailRequest struct {
	Email        string    `json:"email" validate:"required,email"`
	TempPassword string    `json:"tempPassword" validate:"required"`
	Type         EmailType `json:"type" enums:"new_user" validate:"required,oneof=new_user"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required"`
	Confirm  string `json:"confirm" validate:"required"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type memberResponse struct {
	userResponse
	Role        auth.Role       `json:"role"`
	Permissions map[string]bool `json:"permissions"`
}

type organizationResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type roleResponse struct {
	UserID         string          `json:"user_id"`
	OrganizationID string          `json:"organization_id"`
	Role           auth.Role       `json:"role"`
	Permissions    map[string]bool `json:"permissions"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type inviteResponse struct {
	Success bool         `json:"success"`
	User    userResponse `json:"user"`
}

type listUsersResponse struct {
	Users []memberResponse `json:"users"`
}

type deleteUsersResponse struct {
	Success bool `json:"success"`
	Deleted int  `json:"deleted"`
}

type meResponse struct {
	UserID         string          `json:"user_id"`
	Email          string          `json:"email,omitempty"`
	OrganizationID string          `json:"organization_id,omitempty"`
	Role           auth.Role       `json:"role,omitempty"`
	Permissions    map[string]bool `json:"permissions"`
}

// bootstrapHandler godoc
// @Summary Crear organización
// @Description Alta del admin: crea la organización y el rol `admin` del usuario autenticado. 409 si ya tiene rol.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body organizationRequest false "Nombre (por defecto, el email)"
// @Success 201 {object} organizationResponse
// @Failure 401 {string} string "unauthorized"
// @Failure 409 {string} string "conflict"
// @Router /api/organizations [post]
func bootstrapHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireAuth(w, r)
		if !ok {
			return
		}

		var req organizationRequest
		if r.ContentLength != 0 {
			if err := httpx.DecodeJSON(w, r, &req); err != nil {
				httpx.WriteError(w, err)
				return
			}
		}

		org, err := svc.Bootstrap(r.Context(), sess, req.Name)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusCreated, organizationResponse{ID: org.ID, Name: org.Name, CreatedAt: org.CreatedAt})
	}
}

// updatePermissionsHandler godoc
// @Summary Editar permisos de un colaborador
// @Description Solo admin, misma organización. Reemplaza los tres flags; los que falten quedan en false.
// @Tags users
// @Accept json
// @Produce json
// @Param userId path string true "ID del usuario"
// @Param payload body permissionsRequest true "Flags"
// @Success 200 {object} roleResponse
// @Failure 400 {string} string "invalid input"
// @Failure 403 {string} string "forbidden"
// @Failure 404 {string} string "not found"
// @Router /api/users/{userId}/permissions [patch]
func updatePermissionsHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req permissionsRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		role, err := svc.UpdatePermissions(r.Context(), sess, chi.URLParam(r, "userId"), req.Permissions)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, roleResponse{
			UserID:         role.UserID,
			OrganizationID: role.OrganizationID,
			Role:           role.Role,
			Permissions:    permissionFlags(role.Permissions),
		})
	}
}

// inviteUserHandler godoc
// @Summary Invitar colaborador
// @Description Solo admin. Invita por email y crea el rol `colaborador` en la organización del admin con los permisos indicados.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body inviteRequest true "Email y permisos"
// @Success 200 {object} inviteResponse
// @Failure 400 {string} string "invalid input"
// @Failure 403 {string} string "forbidden"
// @Router /api/users [post]
func inviteUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req inviteRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}

		u, err := svc.Invite(r.Context(), sess, req.Email, req.Permissions)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, inviteResponse{
			Success: true,
			User:    userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt},
		})
	}
}

// deleteUserHandler godoc
// @Summary Eliminar usuario
// @Description Solo admin. Limpia mensajes, rol, clientes y fila users (best-effort) y luego borra la identidad.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body deleteUserRequest true "ID del usuario"
// @Success 200 {object} successResponse
// @Failure 403 {string} string "forbidden"
// @Router /api/users [delete]
func deleteUserHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req deleteUserRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		if err := svc.Delete(r.Context(), sess, req.UserID); err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// listUsersHandler godoc
// @Summary Listar usuarios de la organización
// @Description Solo admin. Excluye a los admin. Incluye rol y flags de permisos.
// @Tags users
// @Produce json
// @Success 200 {object} listUsersResponse
// @Router /api/admin/list-users [get]
func listUsersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		items, err := svc.ListUsers(r.Context(), sess)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		out := listUsersResponse{Users: make([]memberResponse, 0, len(items))}
		for _, m := range items {
			out.Users = append(out.Users, memberResponse{
				userResponse: userResponse{ID: m.ID, Email: m.Email, CreatedAt: m.CreatedAt},
				Role:         m.Role,
				Permissions:  permissionFlags(m.Permissions),
			})
		}
		httpx.WriteJSON(w, http.StatusOK, out)
	}
}

func deleteUsersByEmailHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req deleteUsersRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		n, err := svc.DeleteByEmails(r.Context(), sess, req.Emails)
		if err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, deleteUsersResponse{Success: true, Deleted: n})
	}
}

// sendEmailHandler godoc
// @Summary Enviar credenciales por email
// @Description Solo admin. `type` soportado: `new_user`.
// @Tags users
// @Accept json
// @Produce json
// @Param payload body sendEmailRequest true "Destinatario y contraseña temporal"
// @Success 200 {object} successResponse
// @Router /api/send [post]
func sendEmailHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireStaff(w, r)
		if !ok {
			return
		}

		var req sendEmailRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		if err := svc.SendCredentials(r.Context(), sess, req.Email, req.TempPassword, req.Type); err != nil {
			httpx.WriteError(w, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, successResponse{Success: true})
	}
}

// setPasswordHandler godoc
// @Summary Cambiar contraseña propia
// @Description 400 si no coinciden o tiene menos de 6 caracteres.
// @Tags users
// @Accept json
// @Param payload body passwordRequest true "Contraseña y confirmación"
// @Success 204
// @Router /api/password [post]
func setPasswordHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireAuth(w, r)
		if !ok {
			return
		}

		var req passwordRequest
		if err := httpx.DecodeJSON(w, r, &req); err != nil {
			httpx.WriteError(w, err)
			return
		}
		if err := svc.SetPassword(r.Context(), sess, req.Password, req.Confirm); err != nil {
			httpx.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// meHandler godoc
// @Summary Sesión actual
// @Tags users
// @Produce json
// @Success 200 {object} meResponse
// @Failure 401 {string} string "unauthorized"
// @Router /me [get]
func meHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := middleware.RequireAuth(w, r)
		if !ok {
			return
		}

		perms := make(map[string]bool, len(auth.AllPermissions))
		for _, p := range auth.AllPermissions {
			perms[string(p)] = sess.Can(p)
		}
		httpx.WriteJSON(w, http.StatusOK, meResponse{
			UserID:         sess.UserID,
			Email:          sess.Email,
			OrganizationID: sess.OrganizationID,
			Role:           sess.Role,
			Permissions:    perms,
		})
	}
}

func permissionFlags(set auth.PermissionSet) map[string]bool {
	out := make(map[string]bool, len(auth.AllPermissions))
	for _, p := range auth.AllPermissions {
		out[string(p)] = set.Has(p)
	}
	return out
}
