// Package apperr define la taxonomía de errores compartida por todos los módulos.
// Los servicios envuelven estos sentinels con %w y los handlers los traducen a
// códigos HTTP con HTTPStatus.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrExpired         = errors.New("expired")
	ErrAlreadyApproved = errors.New("already approved")
	ErrConflict        = errors.New("conflict")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrPersistence     = errors.New("persistence error")
	ErrValidation      = errors.New("validation error")
	ErrNothingToImport = errors.New("nothing to import")
)

// Validation arma un ErrValidation con detalle legible para el usuario.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Persistence envuelve un error de la capa de datos.
// ErrNotFound y errores ya clasificados pasan sin tocar.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	if Classified(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrPersistence, err)
}

// Classified indica si err ya pertenece a la taxonomía.
func Classified(err error) bool {
	for _, s := range []error{
		ErrNotFound, ErrExpired, ErrAlreadyApproved, ErrConflict,
		ErrUnauthorized, ErrForbidden, ErrPersistence, ErrValidation, ErrNothingToImport,
	} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrExpired):
		return http.StatusGone
	case errors.Is(err, ErrAlreadyApproved), errors.Is(err, ErrConflict), errors.Is(err, ErrNothingToImport):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage devuelve el texto que se expone al usuario.
// Los errores de persistencia y los no clasificados no filtran detalle interno.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrPersistence) || !Classified(err) {
		return "internal error"
	}
	return err.Error()
}
