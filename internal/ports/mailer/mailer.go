package mailer

import "context"

type Email struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, e Email) error
}
