package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/huertohogar/huerto/app/models"
	"github.com/huertohogar/huerto/app/services"
)

func TestSweepAbandonsOnlyStalePendingEntries(t *testing.T) {
	ctx := context.Background()
	f := newCheckoutFixture(t)

	decs := []models.StockDecrement{{ProductID: "p1", ProductName: "Tomates Orgánicos", PreviousStock: 10, NewStock: 8}}
	stale, err := f.journal.Begin(ctx, "u1", decs)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(&models.CheckoutJournal{}).
		Where("id = ?", stale.ID).
		UpdateColumn("created_at", time.Now().Add(-time.Hour)).Error)

	fresh, err := f.journal.Begin(ctx, "u1", nil)
	require.NoError(t, err)

	done, err := f.journal.Begin(ctx, "u1", nil)
	require.NoError(t, err)
	require.NoError(t, f.journal.MarkCommitted(ctx, done.ID, 1))

	res, err := services.NewReconcileService(f.journal).Sweep(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Abandoned)
	assert.Equal(t, decs, res.Decrements)

	got, err := f.journal.Find(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JournalAbandoned, got.Status)
	assert.Contains(t, got.Reason, "pending since")

	got, err = f.journal.Find(ctx, fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JournalPending, got.Status)
}
