package checkin

import (
	"context"
	"fmt"
	"time"

	"qrpass/src/models"
	"qrpass/src/store"
	"qrpass/src/types"
)

// Scan reasons, stable strings exposed to scanner clients.
const (
	ReasonNewEntry       = "new_entry"
	ReasonAlreadyEntered = "already_entered"
	ReasonPaymentPending = "payment_pending"
)

// Result is what the scanner screen shows after a code is presented.
type Result struct {
	Admitted    bool       `json:"admitted"`
	Reason      string     `json:"reason"`
	TicketID    uint       `json:"ticket_id"`
	GuestName   string     `json:"guest_name,omitempty"`
	CheckInTime *time.Time `json:"check_in_time,omitempty"`
}

// Gate decides admissions. Payment checks read the ticket's settled state
// only; the gate never talks to the payment provider.
type Gate struct {
	Store store.TicketStore
}

func NewGate(s store.TicketStore) *Gate {
	return &Gate{Store: s}
}

// Scan resolves a presented code against the event the scanner is bound to
// and admits at most once. Concurrent scans of the same code race on a
// conditional update; exactly one comes back as the new entry, the rest see
// the recorded entry time.
func (g *Gate) Scan(ctx context.Context, eventID uint, qrHash, operator string) (*Result, error) {
	ticket, err := g.Store.FindTicketByQRHash(ctx, qrHash)
	if err != nil {
		return nil, err
	}
	if ticket.EventID != eventID {
		// A valid code for some other event reads the same as an unknown
		// one, so a scanner leaks nothing about other events' guests.
		return nil, types.ErrNotFound
	}

	if ticket.Event.Priced() && ticket.PaymentStatus != types.PAYMENT_PAID {
		return &Result{
			Admitted:  false,
			Reason:    ReasonPaymentPending,
			TicketID:  ticket.ID,
			GuestName: ticket.Name,
		}, nil
	}

	now := time.Now()
	won, err := g.Store.MarkEntered(ctx, ticket.ID, now)
	if err != nil {
		return nil, err
	}
	if !won {
		// Lost the race or re-scanned. The guest is already inside, so the
		// scan still admits; report the original entry time.
		current, err := g.Store.FindTicketByID(ctx, ticket.ID)
		if err != nil {
			return nil, err
		}
		return &Result{
			Admitted:    true,
			Reason:      ReasonAlreadyEntered,
			TicketID:    current.ID,
			GuestName:   current.Name,
			CheckInTime: current.CheckInTime,
		}, nil
	}

	trail := &models.TrailLog{
		Type:      types.TRAIL_CHECKIN_SCAN,
		Initiator: operator,
		TicketID:  &ticket.ID,
		Detail:    fmt.Sprintf("admitted at gate for event %d", eventID),
	}
	if err := g.Store.AppendTrail(ctx, trail); err != nil {
		return nil, err
	}
	return &Result{
		Admitted:    true,
		Reason:      ReasonNewEntry,
		TicketID:    ticket.ID,
		GuestName:   ticket.Name,
		CheckInTime: &now,
	}, nil
}

// SetEntered is the staff-side manual toggle. Marking an unpaid ticket
// entered on a priced event needs the explicit override flag, and every
// override is trailed separately from regular scans.
func (g *Gate) SetEntered(ctx context.Context, ticketID uint, entered, overridePayment bool, staff string) (*models.Ticket, error) {
	ticket, err := g.Store.FindTicketByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if entered {
		unpaid := ticket.Event.Priced() && ticket.PaymentStatus != types.PAYMENT_PAID
		if unpaid && !overridePayment {
			return nil, fmt.Errorf("ticket %d is not paid: %w", ticketID, types.ErrInvalidState)
		}
		won, err := g.Store.MarkEntered(ctx, ticketID, time.Now())
		if err != nil {
			return nil, err
		}
		if won {
			trailType := types.TRAIL_CHECKIN_SCAN
			detail := "marked entered by staff"
			if unpaid {
				trailType = types.TRAIL_CHECKIN_OVERRIDE
				detail = "unpaid ticket admitted by staff override"
			}
			trail := &models.TrailLog{
				Type:      trailType,
				Initiator: staff,
				TicketID:  &ticketID,
				Detail:    detail,
			}
			if err := g.Store.AppendTrail(ctx, trail); err != nil {
				return nil, err
			}
		}
	} else {
		won, err := g.Store.ClearEntered(ctx, ticketID)
		if err != nil {
			return nil, err
		}
		if won {
			trail := &models.TrailLog{
				Type:      types.TRAIL_CHECKIN_OVERRIDE,
				Initiator: staff,
				TicketID:  &ticketID,
				Detail:    "entry cleared by staff",
			}
			if err := g.Store.AppendTrail(ctx, trail); err != nil {
				return nil, err
			}
		}
	}

	return g.Store.FindTicketByID(ctx, ticketID)
}
