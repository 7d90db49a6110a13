package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"qrpass/src/models"
	"qrpass/src/types"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// GormStore is the production TicketStore backed by postgres. All
// transition methods are single conditional UPDATEs; RowsAffected decides
// the winner under concurrency.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%v: %w", pgErr.ConstraintName, types.ErrConflict)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return types.ErrConflict
	}
	return err
}

func (s *GormStore) CreateEvent(ctx context.Context, event *models.Event) error {
	return translateErr(s.db.WithContext(ctx).Create(event).Error)
}

func (s *GormStore) SaveEvent(ctx context.Context, event *models.Event) error {
	return translateErr(s.db.WithContext(ctx).Save(event).Error)
}

func (s *GormStore) FindEventByID(ctx context.Context, id uint) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Where(&models.Event{ID: id}).First(&event).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &event, nil
}

func (s *GormStore) FindEventByPartyCode(ctx context.Context, code string) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Where("party_code = ?", code).First(&event).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &event, nil
}

func (s *GormStore) FindEventByShareLink(ctx context.Context, linkID string) (*models.Event, error) {
	var event models.Event
	err := s.db.WithContext(ctx).Where("share_link_id = ?", linkID).First(&event).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &event, nil
}

func (s *GormStore) EventStats(ctx context.Context, eventID uint) (*models.EventStats, error) {
	event, err := s.FindEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	db := s.db.WithContext(ctx)
	stats := models.EventStats{TotalRevenue: decimal.Zero}

	if err := db.Model(&models.Ticket{}).Where("event_id = ?", eventID).Count(&stats.TotalInvited).Error; err != nil {
		return nil, err
	}
	var revenue *decimal.Decimal
	if err := db.Model(&models.Ticket{}).
		Where("event_id = ? AND payment_status = ?", eventID, types.PAYMENT_PAID).
		Select("SUM(purchase_price)").
		Scan(&revenue).Error; err != nil {
		return nil, err
	}
	if revenue != nil {
		stats.TotalRevenue = *revenue
	}

	if event.Priced() {
		if err := db.Model(&models.Ticket{}).
			Where("event_id = ? AND payment_status = ?", eventID, types.PAYMENT_PAID).
			Count(&stats.TotalPaidTickets).Error; err != nil {
			return nil, err
		}
		if err := db.Model(&models.Ticket{}).
			Where("event_id = ? AND payment_status = ? AND entered = ?", eventID, types.PAYMENT_PAID, true).
			Count(&stats.EnteredCount).Error; err != nil {
			return nil, err
		}
		stats.NotEnteredCount = stats.TotalPaidTickets - stats.EnteredCount
		if stats.TotalPaidTickets > 0 {
			stats.PercentageEntered = float64(stats.EnteredCount) / float64(stats.TotalPaidTickets) * 100
		}
		return &stats, nil
	}

	if err := db.Model(&models.Ticket{}).
		Where("event_id = ? AND entered = ?", eventID, true).
		Count(&stats.EnteredCount).Error; err != nil {
		return nil, err
	}
	stats.NotEnteredCount = stats.TotalInvited - stats.EnteredCount
	if stats.TotalInvited > 0 {
		stats.PercentageEntered = float64(stats.EnteredCount) / float64(stats.TotalInvited) * 100
	}
	return &stats, nil
}

func (s *GormStore) ListEventsByCreator(ctx context.Context, userID uint) ([]models.Event, error) {
	var events []models.Event
	err := s.db.WithContext(ctx).
		Where("created_by = ?", userID).
		Order("created_at DESC").
		Find(&events).Error
	return events, err
}

func (s *GormStore) ListEventTickets(ctx context.Context, eventID uint) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&tickets).Error
	return tickets, err
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	return translateErr(s.db.WithContext(ctx).Create(user).Error)
}

func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	return translateErr(s.db.WithContext(ctx).Save(user).Error)
}

func (s *GormStore) FindUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where(&models.User{ID: id}).First(&user).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *GormStore) EventFieldTaken(ctx context.Context, field, value string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Event{}).Where(field+" = ?", value).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	return translateErr(s.db.WithContext(ctx).Create(ticket).Error)
}

func (s *GormStore) TicketFieldTaken(ctx context.Context, field, value string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Ticket{}).Where(field+" = ?", value).Count(&count).Error
	return count > 0, err
}

func (s *GormStore) FindTicketByID(ctx context.Context, id uint) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where(&models.Ticket{ID: id}).Preload("Event").First(&ticket).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &ticket, nil
}

func (s *GormStore) FindTicketByQRHash(ctx context.Context, qrHash string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where("qr_hash = ?", qrHash).Preload("Event").First(&ticket).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &ticket, nil
}

func (s *GormStore) FindTicketByChargeID(ctx context.Context, chargeID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where("charge_id = ?", chargeID).Preload("Event").First(&ticket).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &ticket, nil
}

func (s *GormStore) FindTicketByPurchaseLink(ctx context.Context, linkID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).Where("purchase_link_id = ?", linkID).Preload("Event").First(&ticket).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &ticket, nil
}

func (s *GormStore) FindBuyerTicket(ctx context.Context, eventID, buyerID uint, statuses []types.PaymentStatus) (*models.Ticket, error) {
	var ticket models.Ticket
	err := s.db.WithContext(ctx).
		Where("event_id = ? AND purchased_by_id = ? AND payment_status IN ?", eventID, buyerID, statuses).
		Preload("Event").
		First(&ticket).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &ticket, nil
}

func (s *GormStore) ListStalePending(ctx context.Context, olderThan time.Time) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := s.db.WithContext(ctx).
		Where("payment_status IN ? AND charge_id IS NOT NULL AND pix_created_at < ?", types.PendingStatuses, olderThan).
		Find(&tickets).Error
	return tickets, err
}

func (s *GormStore) AttachCharge(ctx context.Context, ticketID uint, state types.PaymentStatus, att ChargeAttachment) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND (charge_id IS NULL OR payment_status = ?)", ticketID, types.PAYMENT_FAILED).
		Updates(map[string]any{
			"payment_status": state,
			"charge_id":      att.ChargeID,
			"pix_emv_code":   att.EMVCode,
			"pix_qr_base64":  att.QRBase64,
			"pix_created_at": att.CreatedAt,
			"purchase_price": att.Price,
		})
	if res.Error != nil {
		return false, translateErr(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) MarkPaid(ctx context.Context, chargeID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("charge_id = ? AND payment_status IN ?", chargeID, types.PendingStatuses).
		Updates(map[string]any{
			"payment_status": types.PAYMENT_PAID,
			"pix_emv_code":   nil,
			"pix_qr_base64":  nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) MarkFailed(ctx context.Context, chargeID string) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("charge_id = ? AND payment_status IN ?", chargeID, types.PendingStatuses).
		Update("payment_status", types.PAYMENT_FAILED)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) MarkEntered(ctx context.Context, ticketID uint, at time.Time) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND entered = ?", ticketID, false).
		Updates(map[string]any{
			"entered":       true,
			"check_in_time": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) ClearEntered(ctx context.Context, ticketID uint) (bool, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Ticket{}).
		Where("id = ? AND entered = ?", ticketID, true).
		Updates(map[string]any{
			"entered":       false,
			"check_in_time": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (s *GormStore) DeleteTicket(ctx context.Context, ticketID uint) error {
	res := s.db.WithContext(ctx).Unscoped().Delete(&models.Ticket{}, ticketID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return types.ErrNotFound
	}
	return nil
}

func (s *GormStore) AppendTrail(ctx context.Context, entry *models.TrailLog) error {
	return translateErr(s.db.WithContext(ctx).Create(entry).Error)
}
