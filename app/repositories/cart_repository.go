package repositories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/pkg/event"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/metrics"
)

// TopicCartLines carries a full []models.CartLine snapshot after every
// committed cart change.
const TopicCartLines = "cart.lines"

// CartRepository is the persistent single-user cart. Mutations are
// serialized and each one runs in its own transaction.
type CartRepository struct {
	db  *gorm.DB
	bus *event.Bus
	mu  sync.Mutex
}

func NewCartRepository(db *gorm.DB, bus *event.Bus) *CartRepository {
	return &CartRepository{db: db, bus: bus}
}

// Lines returns every cart line ordered by insertion.
func (r *CartRepository) Lines(ctx context.Context) ([]models.CartLine, error) {
	defer metrics.ObserveDBQuery("cart.lines", time.Now())

	lines := []models.CartLine{}
	if err := r.db.WithContext(ctx).Order("id asc").Find(&lines).Error; err != nil {
		return nil, fmt.Errorf("cart: list lines: %w: %w", ErrPersistence, err)
	}
	return lines, nil
}

// ObserveLines emits the current lines and then every later snapshot until
// ctx is done. A slow reader only ever sees the newest snapshot.
func (r *CartRepository) ObserveLines(ctx context.Context) (<-chan []models.CartLine, error) {
	// Subscribing and reading under the mutation lock means no commit can
	// land between the initial snapshot and the subscription.
	r.mu.Lock()
	sub := r.bus.Subscribe(TopicCartLines)
	lines, err := r.Lines(ctx)
	r.mu.Unlock()

	if err != nil {
		sub.Unsubscribe()
		return nil, err
	}
	return event.Stream(ctx, sub, lines), nil
}

// AddToCart inserts a quantity-1 line for p, or increments the existing
// line for the same product. Name, price and image are only captured on
// insert.
func (r *CartRepository) AddToCart(ctx context.Context, p models.Product) (models.CartLine, error) {
	var line models.CartLine

	err := r.mutate(ctx, "add", func(tx *gorm.DB) error {
		err := tx.Where("product_id = ?", p.ID).First(&line).Error
		switch {
		case err == nil:
			line.Quantity++
			return tx.Model(&line).UpdateColumn("quantity", gorm.Expr("quantity + ?", 1)).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = models.CartLine{
				ProductID:    p.ID,
				ProductName:  p.Name,
				Quantity:     1,
				UnitPrice:    p.Price,
				CollectionID: p.CollectionID,
				ImageRef:     p.ImageURL,
			}
			return tx.Create(&line).Error
		default:
			return err
		}
	})
	return line, err
}

// IncreaseQuantity adds one to the line's quantity.
func (r *CartRepository) IncreaseQuantity(ctx context.Context, lineID uint) error {
	return r.mutate(ctx, "increase", func(tx *gorm.DB) error {
		res := tx.Model(&models.CartLine{}).
			Where("id = ?", lineID).
			UpdateColumn("quantity", gorm.Expr("quantity + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLineNotFound
		}
		return nil
	})
}

// DecreaseQuantity subtracts one from the line's quantity and removes the
// line when it would reach zero.
func (r *CartRepository) DecreaseQuantity(ctx context.Context, lineID uint) error {
	return r.mutate(ctx, "decrease", func(tx *gorm.DB) error {
		var line models.CartLine
		if err := tx.First(&line, lineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLineNotFound
			}
			return err
		}
		if line.Quantity <= 1 {
			return tx.Delete(&line).Error
		}
		return tx.Model(&line).UpdateColumn("quantity", gorm.Expr("quantity - ?", 1)).Error
	})
}

// RemoveLine deletes the line regardless of its quantity.
func (r *CartRepository) RemoveLine(ctx context.Context, lineID uint) error {
	return r.mutate(ctx, "remove", func(tx *gorm.DB) error {
		res := tx.Delete(&models.CartLine{}, lineID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrLineNotFound
		}
		return nil
	})
}

// Clear deletes every line.
func (r *CartRepository) Clear(ctx context.Context) error {
	return r.mutate(ctx, "clear", func(tx *gorm.DB) error {
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CartLine{}).Error
	})
}

// ClearOrdered removes the quantities of an earlier Lines snapshot. Lines
// added since, and quantity added to a snapshot line since, stay in the cart.
func (r *CartRepository) ClearOrdered(ctx context.Context, ordered []models.CartLine) error {
	return r.mutate(ctx, "clear", func(tx *gorm.DB) error {
		for _, o := range ordered {
			var line models.CartLine
			err := tx.First(&line, o.ID).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			if line.Quantity <= o.Quantity {
				if err := tx.Delete(&line).Error; err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&line).UpdateColumn("quantity", gorm.Expr("quantity - ?", o.Quantity)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CartRepository) mutate(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	err := r.db.WithContext(ctx).Transaction(fn)
	metrics.ObserveDBQuery("cart."+op, start)

	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return err
		}
		return fmt.Errorf("cart: %s: %w: %w", op, ErrPersistence, err)
	}

	metrics.CartMutations.WithLabelValues(op).Inc()
	r.publish(ctx)
	return nil
}

// publish must run with r.mu held.
func (r *CartRepository) publish(ctx context.Context) {
	lines, err := r.Lines(context.WithoutCancel(ctx))
	if err != nil {
		logger.WithCtx(ctx).Error("cart: snapshot after commit failed", "error", err)
		return
	}
	r.bus.Publish(TopicCartLines, lines)
}
