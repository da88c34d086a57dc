package services

import (
	"context"
	"fmt"
	"time"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/pkg/logger"
	"github.com/huertohogar/huerto/pkg/metrics"
)

// StaleJournal lists and closes checkout journal entries that never
// finished.
type StaleJournal interface {
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.CheckoutJournal, error)
	MarkAbandoned(ctx context.Context, id, reason string) error
}

// ReconcileService finds checkouts interrupted between the remote stock
// writes and the local order commit.
type ReconcileService struct {
	journal StaleJournal
	now     func() time.Time
}

func NewReconcileService(journal StaleJournal) *ReconcileService {
	return &ReconcileService{journal: journal, now: time.Now}
}

// SweepResult summarises one sweep.
type SweepResult struct {
	Abandoned  int                     `json:"abandoned"`
	Decrements []models.StockDecrement `json:"decrements"`
}

// Sweep marks every pending entry older than olderThan as abandoned and
// logs the stock writes it recorded so they can be restored by hand.
func (s *ReconcileService) Sweep(ctx context.Context, olderThan time.Duration) (SweepResult, error) {
	log := logger.WithCtx(ctx)
	cutoff := s.now().Add(-olderThan)

	entries, err := s.journal.PendingOlderThan(ctx, cutoff)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, e := range entries {
		decs, err := repositories.DecodeDecrements(e)
		if err != nil {
			log.Error("reconcile: unreadable journal entry", "journal", e.ID, "error", err)
		}
		for _, d := range decs {
			log.Warn("reconcile: stock may need restoring",
				"journal", e.ID, "user", e.UserID, "product", d.ProductID,
				"name", d.ProductName, "previous", d.PreviousStock, "written", d.NewStock)
		}

		reason := fmt.Sprintf("pending since %s", e.CreatedAt.UTC().Format(time.RFC3339))
		if err := s.journal.MarkAbandoned(ctx, e.ID, reason); err != nil {
			metrics.JournalPending.Set(float64(len(entries) - res.Abandoned))
			return res, err
		}
		res.Abandoned++
		res.Decrements = append(res.Decrements, decs...)
	}

	metrics.JournalPending.Set(0)
	if res.Abandoned > 0 {
		log.Warn("reconcile: abandoned interrupted checkouts", "count", res.Abandoned)
	}
	return res, nil
}
