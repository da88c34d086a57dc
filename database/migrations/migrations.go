// Package migrations holds the schema of the local store. Each file
// registers its migrations from init(); importing the package is enough to
// make them known to the runner.
package migrations

import (
	"io"

	"gorm.io/gorm"

	"github.com/huertohogar/huerto/pkg/migration"
)

// Apply runs every pending migration against db without printing progress.
func Apply(db *gorm.DB) error {
	return migration.New(db, io.Discard).Run()
}
