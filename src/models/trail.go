package models

import (
	"qrpass/src/types"

	"github.com/google/uuid"
)

// TrailLog records who drove a state change; override entries are
// distinguishable from scan entries by Type.
type TrailLog struct {
	ID        uuid.UUID       `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`
	Type      types.TrailType `json:"type"`
	Initiator string          `json:"initiator"`
	TicketID  *uint           `json:"ticket_id,omitempty"`
	Detail    string          `json:"detail,omitempty"`

	types.Timestamps
}
