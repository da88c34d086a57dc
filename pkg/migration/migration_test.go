package migration_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/huertohogar/huerto/pkg/database"
	"github.com/huertohogar/huerto/pkg/migration"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

type createWidgets struct{}

func (createWidgets) Up(db *gorm.DB) error   { return db.AutoMigrate(&widget{}) }
func (createWidgets) Down(db *gorm.DB) error { return db.Migrator().DropTable(&widget{}) }

type broken struct{}

func (broken) Up(*gorm.DB) error   { return errors.New("boom") }
func (broken) Down(*gorm.DB) error { return nil }

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenMemory(t.Name())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestRunThenRollback(t *testing.T) {
	db := openDB(t)
	var out bytes.Buffer
	r := migration.NewWith(db, &out, []migration.Named{
		{Name: "20260101000000_create_widgets", Migration: createWidgets{}},
	})

	require.NoError(t, r.Run())
	assert.True(t, db.Migrator().HasTable(&widget{}))
	assert.Contains(t, out.String(), "Migrated:  20260101000000_create_widgets")

	pending, err := r.Pending()
	require.NoError(t, err)
	assert.Empty(t, pending)

	out.Reset()
	require.NoError(t, r.Run())
	assert.Contains(t, out.String(), "Nothing to migrate.")

	require.NoError(t, r.Rollback())
	assert.False(t, db.Migrator().HasTable(&widget{}))

	out.Reset()
	require.NoError(t, r.Rollback())
	assert.Contains(t, out.String(), "Nothing to roll back.")
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	db := openDB(t)
	r := migration.NewWith(db, nil, []migration.Named{
		{Name: "20260101000000_create_widgets", Migration: createWidgets{}},
		{Name: "20260101000001_broken", Migration: broken{}},
	})

	err := r.Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "20260101000001_broken up: boom")

	pending, err := r.Pending()
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "20260101000001_broken", pending[0].Name)
}

func TestStatus(t *testing.T) {
	db := openDB(t)
	var out bytes.Buffer
	ran := migration.NewWith(db, &out, []migration.Named{
		{Name: "20260101000000_create_widgets", Migration: createWidgets{}},
	})
	require.NoError(t, ran.Run())

	out.Reset()
	all := migration.NewWith(db, &out, []migration.Named{
		{Name: "20260101000000_create_widgets", Migration: createWidgets{}},
		{Name: "20260101000001_broken", Migration: broken{}},
	})
	require.NoError(t, all.Status())

	assert.Regexp(t, `20260101000000_create_widgets\s+Ran\s+1`, out.String())
	assert.Regexp(t, `20260101000001_broken\s+Pending\s+-`, out.String())
}
