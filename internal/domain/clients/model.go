package clients

import "time"

// Client es un cliente final de una organización.
type Client struct {
	ID             string
	Name           string
	Email          string
	Phone          string
	OrganizationID string
	CreatedBy      string

	CreatedAt time.Time
	UpdatedAt time.Time
}
