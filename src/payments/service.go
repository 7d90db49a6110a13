package payments

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"qrpass/src/config"
	"qrpass/src/lib/abacate"
	"qrpass/src/models"
	"qrpass/src/store"
	"qrpass/src/types"
)

// Gateway is the slice of the charge provider the service needs. The
// concrete client lives in lib/abacate.
type Gateway interface {
	CreateCharge(ctx context.Context, req abacate.CreateChargeRequest) (*abacate.Charge, error)
	QueryStatus(ctx context.Context, chargeID string) (string, error)
}

// Outcome describes what a reported charge status did to local state.
type Outcome string

const (
	OutcomePaid        Outcome = "paid"
	OutcomeAlreadyPaid Outcome = "already_paid"
	OutcomeFailed      Outcome = "failed"
	OutcomeIgnored     Outcome = "ignored"
)

type Service struct {
	Store   store.TicketStore
	Gateway Gateway
}

func NewService(s store.TicketStore, g Gateway) *Service {
	return &Service{Store: s, Gateway: g}
}

// ApplyExternalStatus folds a gateway-reported charge status into the
// ticket. Every reporting channel converges here, so a charge reported
// twice, or by two channels at once, settles exactly once: the conditional
// update in the store arbitrates, and losers observe the already-settled
// ticket.
func (s *Service) ApplyExternalStatus(ctx context.Context, chargeID, status string) (Outcome, error) {
	switch status {
	case abacate.StatusPaid:
		won, err := s.Store.MarkPaid(ctx, chargeID)
		if err != nil {
			return OutcomeIgnored, err
		}
		if !won {
			ticket, err := s.Store.FindTicketByChargeID(ctx, chargeID)
			if err != nil {
				return OutcomeIgnored, err
			}
			if ticket.PaymentStatus == types.PAYMENT_PAID {
				return OutcomeAlreadyPaid, nil
			}
			return OutcomeIgnored, nil
		}
		ticket, err := s.Store.FindTicketByChargeID(ctx, chargeID)
		if err != nil {
			return OutcomePaid, err
		}
		trail := &models.TrailLog{
			Type:      types.TRAIL_PAYMENT_RECONCILE,
			Initiator: "gateway",
			TicketID:  &ticket.ID,
			Detail:    fmt.Sprintf("charge %s settled as paid", chargeID),
		}
		if err := s.Store.AppendTrail(ctx, trail); err != nil {
			log.Printf("[payments] trail append failed for charge %s: %v\n", chargeID, err)
		}
		return OutcomePaid, nil
	case abacate.StatusExpired:
		won, err := s.Store.MarkFailed(ctx, chargeID)
		if err != nil {
			return OutcomeIgnored, err
		}
		if !won {
			return OutcomeIgnored, nil
		}
		return OutcomeFailed, nil
	default:
		return OutcomeIgnored, nil
	}
}

// PollCharge asks the gateway for the charge's current status and applies
// it. Used by the buyer-facing status endpoint and the stale-charge sweep.
func (s *Service) PollCharge(ctx context.Context, chargeID string) (string, Outcome, error) {
	status, err := s.Gateway.QueryStatus(ctx, chargeID)
	if err != nil {
		return "", OutcomeIgnored, err
	}
	outcome, err := s.ApplyExternalStatus(ctx, chargeID, status)
	return status, outcome, err
}

// OpenCharge creates a gateway charge for the ticket and attaches it. The
// ticket must already exist; a failed attach after a successful create is
// flagged on the trail so the charge is not lost.
func (s *Service) OpenCharge(ctx context.Context, ticket *models.Ticket, event *models.Event, customer abacate.Customer, state types.PaymentStatus) (*abacate.Charge, error) {
	charge, err := s.Gateway.CreateCharge(ctx, abacate.CreateChargeRequest{
		Amount:      event.TicketPrice,
		Description: fmt.Sprintf("Ticket for %s", event.Name),
		Customer:    customer,
	})
	if err != nil {
		return nil, err
	}
	won, err := s.Store.AttachCharge(ctx, ticket.ID, state, store.ChargeAttachment{
		ChargeID:  charge.ID,
		EMVCode:   charge.BRCode,
		QRBase64:  charge.BRCodeBase64,
		Price:     event.TicketPrice,
		CreatedAt: time.Now(),
	})
	if err != nil || !won {
		if err == nil {
			err = types.ErrInvalidState
		}
		log.Printf("[payments] could not attach charge %s to ticket %d: %v\n", charge.ID, ticket.ID, err)
		trail := &models.TrailLog{
			Type:      types.TRAIL_PAYMENT_NEEDS_REVIEW,
			Initiator: "system",
			TicketID:  &ticket.ID,
			Detail:    fmt.Sprintf("charge %s created but not attached", charge.ID),
		}
		if terr := s.Store.AppendTrail(ctx, trail); terr != nil {
			log.Printf("[payments] trail append failed for charge %s: %v\n", charge.ID, terr)
		}
		return nil, err
	}
	return charge, nil
}

// RegenerateCharge opens a fresh charge for a ticket whose previous one
// expired. Tickets with a live charge keep it.
func (s *Service) RegenerateCharge(ctx context.Context, ticket *models.Ticket, event *models.Event, customer abacate.Customer) (*abacate.Charge, error) {
	if ticket.PaymentStatus == types.PAYMENT_PAID {
		return nil, fmt.Errorf("ticket %d: %w", ticket.ID, types.ErrInvalidState)
	}
	if ticket.HasLiveCharge() {
		return nil, fmt.Errorf("ticket %d has an open charge: %w", ticket.ID, types.ErrInvalidState)
	}
	// Invite tickets have no buyer account attached; they re-enter the
	// invite flavor of pending so the seller's view stays consistent.
	state := types.PAYMENT_PENDING
	if ticket.PurchasedByID == nil {
		state = types.PAYMENT_PENDING_OWNER_INVITE
	}
	return s.OpenCharge(ctx, ticket, event, customer, state)
}

// SweepStalePending polls every pending charge older than the configured
// expiry window. Wired as a recurring job so expiries land even when
// nobody is watching the payment page.
func (s *Service) SweepStalePending(ctx context.Context) error {
	cutoff := time.Now().Add(-time.Duration(config.ChargeExpirySeconds) * time.Second)
	stale, err := s.Store.ListStalePending(ctx, cutoff)
	if err != nil {
		return err
	}
	var firstErr error
	for _, ticket := range stale {
		if ticket.ChargeID == nil {
			continue
		}
		status, outcome, err := s.PollCharge(ctx, *ticket.ChargeID)
		if err != nil {
			if firstErr == nil && !errors.Is(err, types.ErrGatewayUnavailable) {
				firstErr = err
			}
			continue
		}
		if outcome != OutcomeIgnored {
			log.Printf("[payments] sweep: charge %s reported %s, outcome %s\n", *ticket.ChargeID, status, outcome)
		}
	}
	return firstErr
}
