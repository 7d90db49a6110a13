// Package store is the durable record behind tickets and events. Every
// state transition is exposed as a conditional update so that concurrent
// callers racing on the same row are arbitrated by the store, not by
// in-process locks.
package store

import (
	"context"
	"time"

	"qrpass/src/models"
	"qrpass/src/types"

	"github.com/shopspring/decimal"
)

// Field names accepted by the *FieldTaken uniqueness probes.
const (
	FieldQRHash       = "qr_hash"
	FieldPurchaseLink = "purchase_link_id"
	FieldPartyCode    = "party_code"
	FieldShareLink    = "share_link_id"
	FieldSlug         = "slug"
)

// ChargeAttachment carries the gateway charge data persisted onto a ticket
// when a charge is opened or regenerated.
type ChargeAttachment struct {
	ChargeID  string
	EMVCode   string
	QRBase64  string
	Price     decimal.Decimal
	CreatedAt time.Time
}

// TicketStore is the single shared mutable resource of the system. The
// boolean returned by transition methods reports whether this caller won
// the conditional update; a false result with a nil error means the row was
// already past the guarded state and the caller should report the
// idempotent outcome.
type TicketStore interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	SaveEvent(ctx context.Context, event *models.Event) error
	FindEventByID(ctx context.Context, id uint) (*models.Event, error)
	FindEventByPartyCode(ctx context.Context, code string) (*models.Event, error)
	FindEventByShareLink(ctx context.Context, linkID string) (*models.Event, error)
	EventStats(ctx context.Context, eventID uint) (*models.EventStats, error)
	EventFieldTaken(ctx context.Context, field, value string) (bool, error)
	ListEventsByCreator(ctx context.Context, userID uint) ([]models.Event, error)

	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	TicketFieldTaken(ctx context.Context, field, value string) (bool, error)
	FindTicketByID(ctx context.Context, id uint) (*models.Ticket, error)
	FindTicketByQRHash(ctx context.Context, qrHash string) (*models.Ticket, error)
	FindTicketByChargeID(ctx context.Context, chargeID string) (*models.Ticket, error)
	FindTicketByPurchaseLink(ctx context.Context, linkID string) (*models.Ticket, error)
	FindBuyerTicket(ctx context.Context, eventID, buyerID uint, statuses []types.PaymentStatus) (*models.Ticket, error)
	ListEventTickets(ctx context.Context, eventID uint) ([]models.Ticket, error)
	ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Ticket, error)

	// AttachCharge binds a fresh gateway charge to a ticket that has no
	// live charge (or whose previous charge failed) and moves it to state.
	AttachCharge(ctx context.Context, ticketID uint, state types.PaymentStatus, att ChargeAttachment) (bool, error)
	// MarkPaid settles the charge and clears the presentation artifact in
	// one update; only pending states transition.
	MarkPaid(ctx context.Context, chargeID string) (bool, error)
	// MarkFailed moves a still-pending charge to failed.
	MarkFailed(ctx context.Context, chargeID string) (bool, error)
	// MarkEntered records entry at most once.
	MarkEntered(ctx context.Context, ticketID uint, at time.Time) (bool, error)
	ClearEntered(ctx context.Context, ticketID uint) (bool, error)

	DeleteTicket(ctx context.Context, ticketID uint) error
	AppendTrail(ctx context.Context, entry *models.TrailLog) error

	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	FindUserByID(ctx context.Context, id uint) (*models.User, error)
}
