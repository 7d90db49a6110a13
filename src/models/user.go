package models

import (
	"qrpass/src/types"
)

type User struct {
	ID        uint   `gorm:"primarykey" json:"id"`
	Username  string `json:"username,omitempty"`
	Email     string `json:"email,omitempty"`
	Role      string `json:"role,omitempty"`
	TaxID     string `gorm:"index" json:"-"`
	Cellphone string `json:"-"`

	Events  []Event  `gorm:"foreignKey:created_by" json:"events,omitempty"`
	Tickets []Ticket `gorm:"foreignKey:added_by_id" json:"tickets,omitempty"`

	types.Timestamps
}

// ProfileComplete reports whether the user may open charges; the gateway
// requires a tax id and phone number on the customer record.
func (u *User) ProfileComplete() bool {
	return u.TaxID != "" && u.Cellphone != ""
}
