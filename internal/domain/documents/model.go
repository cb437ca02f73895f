package documents

import "time"

type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
)

// Attachment es un archivo subido para un DocumentRequest. Se guarda inline
// (columna archivos) y su vida depende del documento.
type Attachment struct {
	URL             string    `json:"url"`
	Key             string    `json:"key"`
	OriginalName    string    `json:"nombre"`
	State           State     `json:"estado"`
	RejectionReason string    `json:"motivo_rechazo,omitempty"`
	UploadedAt      time.Time `json:"uploaded_at"`
}

// DocumentRequest es un documento que la organización espera del cliente.
type DocumentRequest struct {
	ID       string
	ClientID string
	Name     string
	Order    int

	Attachments []Attachment

	CreatedAt time.Time
	UpdatedAt time.Time
}

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// Stats resume el avance de un cliente (listado de clientes).
type Stats struct {
	Total    int `json:"total"`
	Uploaded int `json:"subidos"`
	Approved int `json:"aprobados"`
	Rejected int `json:"rechazados"`
}

// DefaultName se usa cuando se agrega un documento sin nombre.
const DefaultName = "Nuevo Documento"
