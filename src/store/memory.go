package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qrpass/src/models"
	"qrpass/src/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MemoryStore is a mutex-guarded TicketStore used by tests. Transition
// methods hold the lock for the whole check-and-set, giving the same
// winner-takes-it semantics as the conditional UPDATEs in GormStore.
type MemoryStore struct {
	mu     sync.Mutex
	events map[uint]*models.Event
	tick   map[uint]*models.Ticket
	users  map[uint]*models.User
	trail  []models.TrailLog

	nextEventID  uint
	nextTicketID uint
	nextUserID   uint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events: map[uint]*models.Event{},
		tick:   map[uint]*models.Ticket{},
		users:  map[uint]*models.User{},
	}
}

func copyEvent(e *models.Event) *models.Event {
	cp := *e
	cp.Tickets = nil
	return &cp
}

func (s *MemoryStore) copyTicket(t *models.Ticket) *models.Ticket {
	cp := *t
	if e, ok := s.events[t.EventID]; ok {
		cp.Event = *copyEvent(e)
	}
	return &cp
}

func (s *MemoryStore) CreateEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.Slug == event.Slug || e.PartyCode == event.PartyCode || e.ShareLinkID == event.ShareLinkID {
			return types.ErrConflict
		}
	}
	s.nextEventID++
	event.ID = s.nextEventID
	event.CreatedAt = time.Now()
	s.events[event.ID] = copyEvent(event)
	return nil
}

func (s *MemoryStore) SaveEvent(ctx context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.events[event.ID]; !ok {
		return types.ErrNotFound
	}
	s.events[event.ID] = copyEvent(event)
	return nil
}

func (s *MemoryStore) FindEventByID(ctx context.Context, id uint) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return copyEvent(e), nil
}

func (s *MemoryStore) findEvent(match func(*models.Event) bool) (*models.Event, error) {
	for _, e := range s.events {
		if match(e) {
			return copyEvent(e), nil
		}
	}
	return nil, types.ErrNotFound
}

func (s *MemoryStore) FindEventByPartyCode(ctx context.Context, code string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findEvent(func(e *models.Event) bool { return e.PartyCode == code })
}

func (s *MemoryStore) FindEventByShareLink(ctx context.Context, linkID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findEvent(func(e *models.Event) bool { return e.ShareLinkID == linkID })
}

func (s *MemoryStore) EventStats(ctx context.Context, eventID uint) (*models.EventStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, types.ErrNotFound
	}
	stats := models.EventStats{TotalRevenue: decimal.Zero}
	for _, t := range s.tick {
		if t.EventID != eventID {
			continue
		}
		stats.TotalInvited++
		if t.PaymentStatus == types.PAYMENT_PAID {
			stats.TotalPaidTickets++
			if t.PurchasePrice != nil {
				stats.TotalRevenue = stats.TotalRevenue.Add(*t.PurchasePrice)
			}
		}
		if t.Entered {
			if !event.Priced() || t.PaymentStatus == types.PAYMENT_PAID {
				stats.EnteredCount++
			}
		}
	}
	base := stats.TotalInvited
	if event.Priced() {
		base = stats.TotalPaidTickets
	}
	stats.NotEnteredCount = base - stats.EnteredCount
	if base > 0 {
		stats.PercentageEntered = float64(stats.EnteredCount) / float64(base) * 100
	}
	return &stats, nil
}

func (s *MemoryStore) ListEventsByCreator(ctx context.Context, userID uint) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Event
	for _, e := range s.events {
		if e.CreatedBy == userID {
			out = append(out, *copyEvent(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ListEventTickets(ctx context.Context, eventID uint) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tick {
		if t.EventID == eventID {
			out = append(out, *s.copyTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	user.ID = s.nextUserID
	user.CreatedAt = time.Now()
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return types.ErrNotFound
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *MemoryStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) EventFieldTaken(ctx context.Context, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		var got string
		switch field {
		case FieldPartyCode:
			got = e.PartyCode
		case FieldShareLink:
			got = e.ShareLinkID
		case FieldSlug:
			got = e.Slug
		}
		if got != "" && strings.EqualFold(got, value) {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tick {
		if t.QRHash == ticket.QRHash {
			return types.ErrConflict
		}
	}
	s.nextTicketID++
	ticket.ID = s.nextTicketID
	ticket.CreatedAt = time.Now()
	if ticket.PaymentStatus == "" {
		ticket.PaymentStatus = types.PAYMENT_NOT_APPLICABLE
	}
	cp := *ticket
	cp.Event = models.Event{}
	s.tick[ticket.ID] = &cp
	return nil
}

func (s *MemoryStore) TicketFieldTaken(ctx context.Context, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tick {
		switch field {
		case FieldQRHash:
			if t.QRHash == value {
				return true, nil
			}
		case FieldPurchaseLink:
			if t.PurchaseLinkID != nil && *t.PurchaseLinkID == value {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *MemoryStore) FindTicketByID(ctx context.Context, id uint) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tick[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return s.copyTicket(t), nil
}

func (s *MemoryStore) findTicket(match func(*models.Ticket) bool) (*models.Ticket, error) {
	for _, t := range s.tick {
		if match(t) {
			return s.copyTicket(t), nil
		}
	}
	return nil, types.ErrNotFound
}

func (s *MemoryStore) FindTicketByQRHash(ctx context.Context, qrHash string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicket(func(t *models.Ticket) bool { return t.QRHash == qrHash })
}

func (s *MemoryStore) FindTicketByChargeID(ctx context.Context, chargeID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicket(func(t *models.Ticket) bool {
		return t.ChargeID != nil && *t.ChargeID == chargeID
	})
}

func (s *MemoryStore) FindTicketByPurchaseLink(ctx context.Context, linkID string) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicket(func(t *models.Ticket) bool {
		return t.PurchaseLinkID != nil && *t.PurchaseLinkID == linkID
	})
}

func (s *MemoryStore) FindBuyerTicket(ctx context.Context, eventID, buyerID uint, statuses []types.PaymentStatus) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findTicket(func(t *models.Ticket) bool {
		if t.EventID != eventID || t.PurchasedByID == nil || *t.PurchasedByID != buyerID {
			return false
		}
		for _, st := range statuses {
			if t.PaymentStatus == st {
				return true
			}
		}
		return false
	})
}

func (s *MemoryStore) ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Ticket
	for _, t := range s.tick {
		if t.ChargeID == nil || t.PixCreatedAt == nil || !t.PixCreatedAt.Before(olderThan) {
			continue
		}
		for _, st := range types.PendingStatuses {
			if t.PaymentStatus == st {
				out = append(out, *s.copyTicket(t))
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) AttachCharge(ctx context.Context, ticketID uint, state types.PaymentStatus, att ChargeAttachment) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tick[ticketID]
	if !ok {
		return false, nil
	}
	if t.ChargeID != nil && t.PaymentStatus != types.PAYMENT_FAILED {
		return false, nil
	}
	chargeID, emv, qr := att.ChargeID, att.EMVCode, att.QRBase64
	createdAt, price := att.CreatedAt, att.Price
	t.PaymentStatus = state
	t.ChargeID = &chargeID
	t.PixEMVCode = &emv
	t.PixQRBase64 = &qr
	t.PixCreatedAt = &createdAt
	t.PurchasePrice = &price
	return true, nil
}

func (s *MemoryStore) markFromPending(chargeID string, to types.PaymentStatus, clearArtifacts bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.tick {
		if t.ChargeID == nil || *t.ChargeID != chargeID {
			continue
		}
		for _, st := range types.PendingStatuses {
			if t.PaymentStatus == st {
				t.PaymentStatus = to
				if clearArtifacts {
					t.PixEMVCode = nil
					t.PixQRBase64 = nil
				}
				return true, nil
			}
		}
		return false, nil
	}
	return false, nil
}

func (s *MemoryStore) MarkPaid(ctx context.Context, chargeID string) (bool, error) {
	return s.markFromPending(chargeID, types.PAYMENT_PAID, true)
}

func (s *MemoryStore) MarkFailed(ctx context.Context, chargeID string) (bool, error) {
	return s.markFromPending(chargeID, types.PAYMENT_FAILED, false)
}

func (s *MemoryStore) MarkEntered(ctx context.Context, ticketID uint, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tick[ticketID]
	if !ok || t.Entered {
		return false, nil
	}
	t.Entered = true
	entry := at
	t.CheckInTime = &entry
	return true, nil
}

func (s *MemoryStore) ClearEntered(ctx context.Context, ticketID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tick[ticketID]
	if !ok || !t.Entered {
		return false, nil
	}
	t.Entered = false
	t.CheckInTime = nil
	return true, nil
}

func (s *MemoryStore) DeleteTicket(ctx context.Context, ticketID uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tick[ticketID]; !ok {
		return types.ErrNotFound
	}
	delete(s.tick, ticketID)
	return nil
}

func (s *MemoryStore) AppendTrail(ctx context.Context, entry *models.TrailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now()
	s.trail = append(s.trail, *entry)
	return nil
}

// TrailEntries returns a snapshot of the audit trail, oldest first.
func (s *MemoryStore) TrailEntries() []models.TrailLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.TrailLog, len(s.trail))
	copy(out, s.trail)
	return out
}
