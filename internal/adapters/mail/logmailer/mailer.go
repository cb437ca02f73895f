// Package logmailer no envía nada: loguea el correo. Para dev.
package logmailer

import (
	"context"

	"client-docs-portal/internal/platform/logger"
	"client-docs-portal/internal/ports/mailer"
)

type Mailer struct {
	log logger.Logger
}

var _ mailer.Mailer = (*Mailer)(nil)

func New(log logger.Logger) *Mailer {
	if log == nil {
		log = logger.Nop()
	}
	return &Mailer{log: log.With(map[string]any{"component": "mail.log"})}
}

func (m *Mailer) Send(ctx context.Context, e mailer.Email) error {
	m.log.Info("email not sent (log mailer)", map[string]any{
		"to":      e.To,
		"subject": e.Subject,
		"bytes":   len(e.HTML),
	})
	return nil
}
