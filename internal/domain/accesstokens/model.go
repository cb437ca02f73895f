package accesstokens

import "time"

// PortalTTL es la vigencia de un token de portal.
const PortalTTL = 30 * 24 * time.Hour

// AccessType define qué permite un link compartido.
// @Enum view, download
type AccessType string

const (
	AccessView     AccessType = "view"
	AccessDownload AccessType = "download"
)

func (a AccessType) Valid() bool {
	return a == AccessView || a == AccessDownload
}

// Kind distingue las dos tablas de tokens (métricas y logs).
type Kind string

const (
	KindPortal Kind = "portal"
	KindShare  Kind = "share"
)

// PortalToken da acceso del cliente a sus documentos y mensajes.
// No es dueño del cliente: es solo una referencia token -> cliente.
type PortalToken struct {
	Token     string
	ClientID  string
	CreatedBy string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ShareToken da acceso de solo lectura a los documentos aprobados.
type ShareToken struct {
	Token      string
	ClientID   string
	CreatedBy  string
	AccessType AccessType
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Expired: vencido iff now > expiresAt (el instante exacto todavía es válido).
func Expired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}
