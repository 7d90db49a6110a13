package models

import (
	"time"

	"qrpass/src/types"

	"github.com/shopspring/decimal"
)

type Event struct {
	ID                  uint            `gorm:"primarykey" json:"id"`
	Name                string          `json:"name,omitempty"`
	Slug                string          `gorm:"uniqueIndex" json:"slug,omitempty"`
	Location            string          `json:"location,omitempty"`
	DateTime            *time.Time      `json:"date_time,omitempty"`
	TicketPrice         decimal.Decimal `gorm:"type:numeric" json:"ticket_price"`
	AllowPublicPurchase bool            `json:"allow_public_purchase"`
	ShowGuestCount      bool            `gorm:"default:true" json:"show_guest_count"`

	// ShareLinkID lands visitors on the public event page; PartyCode is the
	// short code a scanner kiosk binds with.
	ShareLinkID string `gorm:"uniqueIndex" json:"share_link_id,omitempty"`
	PartyCode   string `gorm:"uniqueIndex" json:"party_code,omitempty"`

	CreatedBy uint `json:"created_by,omitempty"`

	Creator User     `gorm:"foreignKey:created_by" json:"-"`
	Tickets []Ticket `gorm:"foreignKey:event_id" json:"tickets,omitempty"`

	types.Timestamps
}

// Priced reports whether entry to this event is gated on payment.
func (e *Event) Priced() bool {
	return e.TicketPrice.IsPositive()
}

type EventStats struct {
	TotalInvited      int64           `json:"total_invited"`
	TotalPaidTickets  int64           `json:"total_paid_tickets"`
	EnteredCount      int64           `json:"entered_count"`
	NotEnteredCount   int64           `json:"not_entered_count"`
	PercentageEntered float64         `json:"percentage_entered"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
}
