package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/models"
)

// JournalRepository stores the checkout journal: one row per checkout that
// reached the stock-writing phase.
type JournalRepository struct {
	db *gorm.DB
}

func NewJournalRepository(db *gorm.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// Begin writes a pending entry listing the stock writes about to be made.
func (r *JournalRepository) Begin(ctx context.Context, userID string, decrements []models.StockDecrement) (*models.CheckoutJournal, error) {
	raw, err := json.Marshal(decrements)
	if err != nil {
		return nil, fmt.Errorf("journal: encode decrements: %w", err)
	}

	entry := &models.CheckoutJournal{
		ID:         uuid.NewString(),
		UserID:     userID,
		Status:     models.JournalPending,
		Decrements: string(raw),
	}
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("journal: begin: %w: %w", ErrPersistence, err)
	}
	return entry, nil
}

// MarkCommitted closes the entry once the order row exists.
func (r *JournalRepository) MarkCommitted(ctx context.Context, id string, orderID uint) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":   models.JournalCommitted,
		"order_id": orderID,
	})
}

// MarkFailed closes the entry with the reason the checkout stopped.
func (r *JournalRepository) MarkFailed(ctx context.Context, id, reason string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status": models.JournalFailed,
		"reason": reason,
	})
}

// MarkAbandoned closes an entry the reconcile sweep gave up on.
func (r *JournalRepository) MarkAbandoned(ctx context.Context, id, reason string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status": models.JournalAbandoned,
		"reason": reason,
	})
}

// PendingOlderThan lists pending entries created before cutoff, oldest first.
func (r *JournalRepository) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.CheckoutJournal, error) {
	var entries []models.CheckoutJournal
	err := r.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", models.JournalPending, cutoff).
		Order("created_at asc").
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("journal: list pending: %w: %w", ErrPersistence, err)
	}
	return entries, nil
}

// Find returns a single entry.
func (r *JournalRepository) Find(ctx context.Context, id string) (*models.CheckoutJournal, error) {
	var entry models.CheckoutJournal
	if err := r.db.WithContext(ctx).First(&entry, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("journal: find %s: %w: %w", id, ErrPersistence, err)
	}
	return &entry, nil
}

// DecodeDecrements returns the stock writes recorded in entry.
func DecodeDecrements(entry models.CheckoutJournal) ([]models.StockDecrement, error) {
	var out []models.StockDecrement
	if entry.Decrements == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(entry.Decrements), &out); err != nil {
		return nil, fmt.Errorf("journal: decode decrements of %s: %w", entry.ID, err)
	}
	return out, nil
}

func (r *JournalRepository) update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.CheckoutJournal{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return fmt.Errorf("journal: update %s: %w: %w", id, ErrPersistence, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("journal: update %s: %w", id, gorm.ErrRecordNotFound)
	}
	return nil
}
