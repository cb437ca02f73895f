// Package httpx reúne los helpers HTTP que antes estaban duplicados en cada
// handler (writeJSON). Con más de tres módulos repitiéndolos, se extrajeron aquí.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"client-docs-portal/internal/platform/apperr"
	"client-docs-portal/internal/platform/validate"
)

// MaxJSONBody limita el tamaño de cuerpos JSON (1MB).
const MaxJSONBody = 1 << 20

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError traduce un error de dominio a status + mensaje público.
func WriteError(w http.ResponseWriter, err error) {
	http.Error(w, apperr.PublicMessage(err), apperr.HTTPStatus(err))
}

// DecodeJSON decodifica el body en v y aplica sus tags `validate`.
// Body vacío, JSON inválido o un tag que no se cumple => ErrValidation.
func DecodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxJSONBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("empty body")
		}
		return apperr.Validation("invalid json")
	}
	return validate.Struct(v)
}

// Origin reconstruye scheme://host del request (para armar links públicos
// cuando no hay PUBLIC_BASE_URL configurada).
func Origin(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := strings.TrimSpace(r.Header.Get("X-Forwarded-Proto")); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}
