package messages

import "time"

// Message es una entrada del canal de un cliente. Es append-only.
// UserID vacío = escrito por el cliente (user_id null en la tabla).
type Message struct {
	ID        string    `json:"id"`
	ClientID  string    `json:"client_id"`
	UserID    string    `json:"user_id,omitempty"`
	IsClient  bool      `json:"is_client"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// View es un mensaje con el email de su autor (solo lectura del staff).
type View struct {
	Message
	AuthorEmail string
}
