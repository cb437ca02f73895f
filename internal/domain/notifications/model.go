package notifications

// ClientUnread es el estado de no leídos de un cliente para un viewer.
type ClientUnread struct {
	ClientID    string `json:"client_id"`
	HasUnread   bool   `json:"has_unread"`
	UnreadCount int    `json:"unread_count"`
}

// Summary agrega todos los clientes visibles por el viewer.
type Summary struct {
	HasAny  bool           `json:"has_any"`
	Clients []ClientUnread `json:"clients"`
}

// StaffViewer y PortalViewer arman la clave del marcador "visto por última vez".
func StaffViewer(userID string) string { return "user:" + userID }

func PortalViewer(token string) string { return "portal:" + token }
