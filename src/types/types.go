package types

import (
	"time"

	"gorm.io/gorm"
)

type Timestamps struct {
	CreatedAt time.Time      `gorm:"autoCreateTime:nano" json:"created_at,omitempty"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime:nano" json:"updated_at,omitempty"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty,omitnil"`
}

type PaymentStatus string

const (
	PAYMENT_NOT_APPLICABLE       PaymentStatus = "not_applicable"
	PAYMENT_PENDING              PaymentStatus = "pending"
	PAYMENT_PENDING_OWNER_INVITE PaymentStatus = "pending_owner_invite"
	PAYMENT_PAID                 PaymentStatus = "paid"
	PAYMENT_FAILED               PaymentStatus = "failed"
)

// PendingStatuses are the states an external charge status may still move.
var PendingStatuses = []PaymentStatus{PAYMENT_PENDING, PAYMENT_PENDING_OWNER_INVITE}

// HeldStatuses are the states in which a buyer already holds a usable ticket.
var HeldStatuses = []PaymentStatus{PAYMENT_NOT_APPLICABLE, PAYMENT_PAID}

type TrailType string

const (
	TRAIL_CHECKIN_SCAN         TrailType = "checkin.scan"
	TRAIL_CHECKIN_OVERRIDE     TrailType = "checkin.override"
	TRAIL_PAYMENT_RECONCILE    TrailType = "payment.reconcile"
	TRAIL_PAYMENT_NEEDS_REVIEW TrailType = "payment.needs_reconciliation"
)

type CreateEventRequestBody struct {
	Name                string  `json:"name" binding:"required"`
	Location            string  `json:"location,omitempty"`
	DateTime            *string `json:"date_time,omitempty"`
	TicketPrice         string  `json:"ticket_price,omitempty" binding:"omitempty,ticketprice"`
	AllowPublicPurchase bool    `json:"allow_public_purchase,omitempty"`
}

type UpdateEventRequestBody struct {
	Name                *string `json:"name,omitempty"`
	TicketPrice         *string `json:"ticket_price,omitempty" binding:"omitempty,ticketprice"`
	AllowPublicPurchase *bool   `json:"allow_public_purchase,omitempty"`
	ShowGuestCount      *bool   `json:"show_guest_count,omitempty"`
}

type AddGuestRequestBody struct {
	Name string `json:"name" binding:"required"`
}

type RegisterInviteRequestBody struct {
	GuestName string `json:"guest_name" binding:"required"`
}

type PurchaseRequestBody struct {
	GuestName string `json:"guest_name,omitempty"`
}

type ScanRequestBody struct {
	PartyCode string `json:"party_code" binding:"required"`
	QRHash    string `json:"qr_hash" binding:"required"`
}

type BindScannerRequestBody struct {
	PartyCode string `json:"party_code" binding:"required"`
}

type ToggleEntryRequestBody struct {
	Entered         bool `json:"entered"`
	OverridePayment bool `json:"override_payment,omitempty"`
}

type SimpleRequestParams struct {
	ID uint `uri:"id" binding:"required"`
}
