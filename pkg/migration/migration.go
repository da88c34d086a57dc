// Package migration runs and tracks schema migrations.
//
// Migrations register themselves from an init() in database/migrations:
//
//	func init() {
//	    migration.Register("20260301000000_create_cart_lines_table", &CreateCartLinesTable{})
//	}
//
// and are applied from the CLI:
//
//	huerto migrate             // run all pending
//	huerto migrate:rollback    // roll back the last batch
//	huerto migrate:status      // list what ran
package migration

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/huertohogar/huerto/pkg/logger"
)

// Migration is implemented by every schema change.
type Migration interface {
	Up(db *gorm.DB) error
	Down(db *gorm.DB) error
}

// Named pairs a migration with its timestamp-prefixed name.
type Named struct {
	Name      string
	Migration Migration
}

type migrationRecord struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (migrationRecord) TableName() string { return "huerto_migrations" }

// ErrNotRegistered is returned when rolling back a migration whose code is
// no longer registered.
var ErrNotRegistered = errors.New("migration not registered")

var registry []Named

// Register adds a migration to the global registry.
func Register(name string, m Migration) {
	registry = append(registry, Named{Name: name, Migration: m})
}

// Registered returns a copy of the global registry sorted by name.
func Registered() []Named {
	out := make([]Named, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Runner applies a fixed set of migrations to one database.
type Runner struct {
	db         *gorm.DB
	out        io.Writer
	migrations []Named
}

// New creates a Runner for every registered migration. Progress lines are
// written to out.
func New(db *gorm.DB, out io.Writer) *Runner {
	return NewWith(db, out, Registered())
}

// NewWith creates a Runner for an explicit migration list.
func NewWith(db *gorm.DB, out io.Writer, migrations []Named) *Runner {
	if out == nil {
		out = io.Discard
	}
	sorted := make([]Named, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Runner{db: db, out: out, migrations: sorted}
}

// EnsureTable creates the tracking table if it does not exist.
func (r *Runner) EnsureTable() error {
	return r.db.AutoMigrate(&migrationRecord{})
}

// Pending returns the migrations that have not run yet, in name order.
func (r *Runner) Pending() ([]Named, error) {
	ran, err := r.ran()
	if err != nil {
		return nil, err
	}

	var pending []Named
	for _, m := range r.migrations {
		if _, ok := ran[m.Name]; !ok {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Run applies all pending migrations as one batch. Each migration and its
// tracking row commit together.
func (r *Runner) Run() error {
	if err := r.EnsureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	pending, err := r.Pending()
	if err != nil {
		return fmt.Errorf("migration: fetch pending: %w", err)
	}
	if len(pending) == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}

	batch := r.lastBatch() + 1
	for _, m := range pending {
		logger.Info("migration: running", "name", m.Name)
		fmt.Fprintf(r.out, "  ▶ Migrating: %s\n", m.Name)

		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Migration.Up(tx); err != nil {
				return fmt.Errorf("%s up: %w", m.Name, err)
			}
			return tx.Create(&migrationRecord{Name: m.Name, Batch: batch}).Error
		})
		if err != nil {
			return fmt.Errorf("migration: %w", err)
		}

		fmt.Fprintf(r.out, "  ✅ Migrated:  %s\n", m.Name)
	}

	logger.Info("migration: done", "ran", len(pending), "batch", batch)
	return nil
}

// Rollback reverses every migration of the most recent batch, newest first.
func (r *Runner) Rollback() error {
	if err := r.EnsureTable(); err != nil {
		return fmt.Errorf("migration: ensure table: %w", err)
	}

	batch := r.lastBatch()
	if batch == 0 {
		fmt.Fprintln(r.out, "Nothing to roll back.")
		return nil
	}

	var records []migrationRecord
	if err := r.db.Where("batch = ?", batch).Order("id desc").Find(&records).Error; err != nil {
		return fmt.Errorf("migration: load batch %d: %w", batch, err)
	}

	byName := make(map[string]Migration, len(r.migrations))
	for _, m := range r.migrations {
		byName[m.Name] = m.Migration
	}

	for _, rec := range records {
		m, ok := byName[rec.Name]
		if !ok {
			return fmt.Errorf("migration: rollback %s: %w", rec.Name, ErrNotRegistered)
		}

		logger.Info("migration: rolling back", "name", rec.Name)
		fmt.Fprintf(r.out, "  ◀ Rolling back: %s\n", rec.Name)

		rec := rec
		err := r.db.Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return fmt.Errorf("%s down: %w", rec.Name, err)
			}
			return tx.Delete(&rec).Error
		})
		if err != nil {
			return fmt.Errorf("migration: %w", err)
		}

		fmt.Fprintf(r.out, "  ✅ Rolled back: %s\n", rec.Name)
	}
	return nil
}

// Status writes one line per known migration with its batch, or Pending.
func (r *Runner) Status() error {
	if err := r.EnsureTable(); err != nil {
		return err
	}
	ran, err := r.ran()
	if err != nil {
		return err
	}

	fmt.Fprintf(r.out, "%-60s  %-8s  %s\n", "Migration", "Status", "Batch")
	fmt.Fprintln(r.out, strings.Repeat("-", 80))
	for _, m := range r.migrations {
		if rec, ok := ran[m.Name]; ok {
			fmt.Fprintf(r.out, "%-60s  %-8s  %d\n", m.Name, "Ran", rec.Batch)
		} else {
			fmt.Fprintf(r.out, "%-60s  %-8s  -\n", m.Name, "Pending")
		}
	}
	return nil
}

func (r *Runner) ran() (map[string]migrationRecord, error) {
	var records []migrationRecord
	if err := r.db.Find(&records).Error; err != nil {
		return nil, err
	}
	out := make(map[string]migrationRecord, len(records))
	for _, rec := range records {
		out[rec.Name] = rec
	}
	return out, nil
}

func (r *Runner) lastBatch() int {
	var row struct{ Max int }
	r.db.Model(&migrationRecord{}).Select("COALESCE(MAX(batch), 0) as max").Scan(&row)
	return row.Max
}
