package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/pkg/metrics"
)

// ProductMirrorRepository keeps the local copy of the catalogue used when
// the product service is unreachable.
type ProductMirrorRepository struct {
	db *gorm.DB
}

func NewProductMirrorRepository(db *gorm.DB) *ProductMirrorRepository {
	return &ProductMirrorRepository{db: db}
}

// Upsert inserts or refreshes the given products.
func (r *ProductMirrorRepository) Upsert(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	defer metrics.ObserveDBQuery("mirror.upsert", time.Now())

	rows := make([]models.ProductMirror, 0, len(products))
	for _, p := range products {
		rows = append(rows, models.MirrorOf(p))
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(&rows).Error
	if err != nil {
		return fmt.Errorf("mirror: upsert: %w: %w", ErrPersistence, err)
	}
	return nil
}

// Delete drops one product from the mirror. Missing rows are not an error.
func (r *ProductMirrorRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.ProductMirror{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("mirror: delete %s: %w: %w", id, ErrPersistence, err)
	}
	return nil
}

// All returns mirrored products ordered by name, optionally limited to one
// category.
func (r *ProductMirrorRepository) All(ctx context.Context, category string) ([]models.Product, error) {
	defer metrics.ObserveDBQuery("mirror.all", time.Now())

	q := r.db.WithContext(ctx).Order("name asc")
	if category != "" {
		q = q.Where("category = ?", category)
	}

	var rows []models.ProductMirror
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("mirror: list: %w: %w", ErrPersistence, err)
	}

	out := make([]models.Product, 0, len(rows))
	for _, m := range rows {
		out = append(out, m.Product())
	}
	return out, nil
}

// Count reports how many products are mirrored.
func (r *ProductMirrorRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.ProductMirror{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("mirror: count: %w: %w", ErrPersistence, err)
	}
	return n, nil
}

// Get returns one mirrored product.
func (r *ProductMirrorRepository) Get(ctx context.Context, id string) (models.Product, error) {
	var m models.ProductMirror
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Product{}, err
		}
		return models.Product{}, fmt.Errorf("mirror: get %s: %w: %w", id, ErrPersistence, err)
	}
	return m.Product(), nil
}
