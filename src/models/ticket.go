package models

import (
	"time"

	"qrpass/src/types"

	"github.com/shopspring/decimal"
)

// Ticket is one guest's right to enter an event. QRHash is the only datum
// encoded in the physical QR code and the sole lookup key for check-in.
type Ticket struct {
	ID      uint   `gorm:"primarykey" json:"id"`
	Name    string `json:"name,omitempty"`
	QRHash  string `gorm:"uniqueIndex" json:"qr_hash,omitempty"`
	EventID uint   `json:"event_id,omitempty"`

	Entered     bool       `json:"entered"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`

	PaymentStatus types.PaymentStatus `gorm:"default:'not_applicable'" json:"payment_status,omitempty"`

	// Charge fields mirror the external gateway record. PixEMVCode and
	// PixQRBase64 are the charge presentation payload; both are cleared in
	// the same update that marks the ticket paid.
	ChargeID      *string          `gorm:"uniqueIndex" json:"charge_id,omitempty"`
	PixEMVCode    *string          `json:"pix_emv_code,omitempty"`
	PixQRBase64   *string          `json:"-"`
	PixCreatedAt  *time.Time       `json:"pix_created_at,omitempty"`
	PurchasePrice *decimal.Decimal `gorm:"type:numeric" json:"purchase_price,omitempty"`

	// PurchaseLinkID lets a named invitee reach the payment page without
	// an account.
	PurchaseLinkID *string `gorm:"uniqueIndex" json:"purchase_link_id,omitempty"`

	AddedByID     uint  `json:"added_by,omitempty"`
	PurchasedByID *uint `json:"purchased_by,omitempty"`

	Event       Event `gorm:"foreignKey:event_id" json:"event,omitempty"`
	AddedBy     User  `gorm:"foreignKey:added_by_id" json:"-"`
	PurchasedBy *User `gorm:"foreignKey:purchased_by_id" json:"-"`

	types.Timestamps
}

// HasLiveCharge reports whether an open charge is attached, in which case a
// new one must not be opened for this ticket.
func (t *Ticket) HasLiveCharge() bool {
	if t.ChargeID == nil {
		return false
	}
	return t.PaymentStatus == types.PAYMENT_PENDING || t.PaymentStatus == types.PAYMENT_PENDING_OWNER_INVITE
}
