package documents

import (
	"fmt"
	"strings"

	"client-docs-portal/internal/platform/apperr"
)

// ErrInvalidTransition: solo se revisan adjuntos pendientes.
var ErrInvalidTransition = fmt.Errorf("%w: only pending attachments can be reviewed", apperr.ErrConflict)

// Transition aplica una decisión de revisión.
//
//	pending -> approved (terminal)
//	pending -> rejected (requiere motivo)
//
// Un adjunto rechazado no se reevalúa: el cliente sube uno nuevo.
func Transition(a Attachment, to State, reason string) (Attachment, error) {
	if a.State == StateApproved {
		return a, apperr.ErrAlreadyApproved
	}
	if a.State != StatePending {
		return a, ErrInvalidTransition
	}

	switch to {
	case StateApproved:
		a.State = StateApproved
		a.RejectionReason = ""
	case StateRejected:
		reason = strings.TrimSpace(reason)
		if reason == "" {
			return a, apperr.Validation("rejection reason required")
		}
		a.State = StateRejected
		a.RejectionReason = reason
	default:
		return a, apperr.Validation("unknown review state")
	}
	return a, nil
}

func HasApproved(d DocumentRequest) bool {
	for _, a := range d.Attachments {
		if a.State == StateApproved {
			return true
		}
	}
	return false
}

func hasRejected(d DocumentRequest) bool {
	for _, a := range d.Attachments {
		if a.State == StateRejected {
			return true
		}
	}
	return false
}

// Status agrega el estado del documento: aprobado si algún adjunto lo está,
// rechazado si alguno lo está y ninguno aprobado, pendiente en otro caso.
func Status(d DocumentRequest) State {
	switch {
	case HasApproved(d):
		return StateApproved
	case hasRejected(d):
		return StateRejected
	default:
		return StatePending
	}
}

// AllApproved: todos los documentos tienen al menos un adjunto aprobado.
// Una lista vacía no cuenta como aprobada.
func AllApproved(docs []DocumentRequest) bool {
	if len(docs) == 0 {
		return false
	}
	for _, d := range docs {
		if !HasApproved(d) {
			return false
		}
	}
	return true
}

// ApprovedOnly filtra a documentos con algún aprobado y, dentro de cada uno,
// solo los adjuntos aprobados. Es la única vista que llega a un link compartido.
func ApprovedOnly(docs []DocumentRequest) []DocumentRequest {
	out := make([]DocumentRequest, 0, len(docs))
	for _, d := range docs {
		approved := make([]Attachment, 0, len(d.Attachments))
		for _, a := range d.Attachments {
			if a.State == StateApproved {
				approved = append(approved, a)
			}
		}
		if len(approved) == 0 {
			continue
		}
		d.Attachments = approved
		out = append(out, d)
	}
	return out
}

func ComputeStats(docs []DocumentRequest) Stats {
	st := Stats{Total: len(docs)}
	for _, d := range docs {
		if len(d.Attachments) > 0 {
			st.Uploaded++
		}
		if HasApproved(d) {
			st.Approved++
		}
		if hasRejected(d) {
			st.Rejected++
		}
	}
	return st
}
