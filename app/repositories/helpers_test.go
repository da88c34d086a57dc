package repositories_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/huertohogar/huerto/database/migrations"
	"github.com/huertohogar/huerto/pkg/database"
)

func openStore(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, migrations.Apply(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// waitFor reads from ch until match accepts a value, failing after 2s.
func waitFor[T any](t *testing.T, ch <-chan T, match func(T) bool) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case v, ok := <-ch:
			require.True(t, ok, "stream closed")
			if match(v) {
				return v
			}
		case <-deadline:
			t.Fatal("expected value never observed")
		}
	}
}
