package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/pkg/event"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/metrics"
)

// TopicOrderRecorded is fired with the recorded models.Order after commit.
const TopicOrderRecorded = "order.recorded"

// ordersTopic carries []models.Order snapshots for one user.
func ordersTopic(userID string) string { return "orders:" + userID }

// OrderRepository is the append-only order history.
type OrderRepository struct {
	db  *gorm.DB
	bus *event.Bus
	mu  sync.Mutex
}

func NewOrderRepository(db *gorm.DB, bus *event.Bus) *OrderRepository {
	return &OrderRepository{db: db, bus: bus}
}

// RecordOrder inserts order and its lines in one transaction and fills in
// the generated ids. Either everything is stored or nothing is.
func (r *OrderRepository) RecordOrder(ctx context.Context, order *models.Order, lines []models.OrderLine) error {
	if len(lines) == 0 {
		return ErrEmptyOrder
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	defer metrics.ObserveDBQuery("orders.record", time.Now())

	stored := make([]models.OrderLine, len(lines))
	copy(stored, lines)

	row := *order
	row.ID = 0
	row.Lines = nil
	if row.PlacedAt.IsZero() {
		row.PlacedAt = time.Now()
	}
	row.PlacedAt = row.PlacedAt.UTC()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(&row).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		for i := range stored {
			stored[i].ID = 0
			stored[i].OrderID = row.ID
		}
		if err := tx.Create(&stored).Error; err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("orders: record: %w: %w", ErrPersistence, err)
	}

	row.Lines = stored
	*order = row

	r.bus.Fire(TopicOrderRecorded, row)
	r.publish(ctx, row.UserID)
	return nil
}

// OrdersForUser returns the user's orders, newest first, with their lines.
func (r *OrderRepository) OrdersForUser(ctx context.Context, userID string) ([]models.Order, error) {
	defer metrics.ObserveDBQuery("orders.for_user", time.Now())

	orders := []models.Order{}
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Where("user_id = ?", userID).
		Order("placed_at desc").
		Order("id desc").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("orders: list for %s: %w: %w", userID, ErrPersistence, err)
	}
	return orders, nil
}

// ObserveOrdersForUser emits the user's current orders and then a fresh
// list after each order recorded for that user, until ctx is done.
func (r *OrderRepository) ObserveOrdersForUser(ctx context.Context, userID string) (<-chan []models.Order, error) {
	r.mu.Lock()
	sub := r.bus.Subscribe(ordersTopic(userID))
	orders, err := r.OrdersForUser(ctx, userID)
	r.mu.Unlock()

	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	return event.Stream(ctx, sub, orders), nil
}

func (r *OrderRepository) publish(ctx context.Context, userID string) {
	topic := ordersTopic(userID)
	if r.bus.Subscribers(topic) == 0 {
		return
	}
	orders, err := r.OrdersForUser(context.WithoutCancel(ctx), userID)
	if err != nil {
		logger.WithCtx(ctx).Error("orders: snapshot after commit failed", "user", userID, "error", err)
		return
	}
	r.bus.Publish(topic, orders)
}
