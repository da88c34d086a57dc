package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/huertohogar/huerto/app/repositories"
	"github.com/huertohogar/huerto/app/services"
	"github.com/huertohogar/huerto/config"
	"github.com/huertohogar/huerto/database/seeders"
	"github.com/huertohogar/huerto/pkg/database"
	"github.com/huertohogar/huerto/pkg/migration"
)

// withDB loads config, opens the database and closes it after fn.
func withDB(fn func(db *gorm.DB) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	db, err := database.Open(database.FromConfig())
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	return fn(db)
}

// huerto migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Running migrations…")
			return migration.New(db, cmd.OutOrStdout()).Run()
		})
	},
}

// huerto migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Rolling back last batch…")
			return migration.New(db, cmd.OutOrStdout()).Rollback()
		})
	},
}

// huerto migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			return migration.New(db, cmd.OutOrStdout()).Status()
		})
	},
}

// huerto seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample catalogue into the offline mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Running seeders…")
			return seeders.RunAll(cmd.Context(), db, cmd.OutOrStdout())
		})
	},
}

var reconcileAfterFlag string

// huerto checkout:reconcile
var reconcileCmd = &cobra.Command{
	Use:   "checkout:reconcile",
	Short: "Abandon interrupted checkouts and list stock writes to restore",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			olderThan := config.ReconcileAfter()
			if reconcileAfterFlag != "" {
				d, err := time.ParseDuration(reconcileAfterFlag)
				if err != nil {
					return fmt.Errorf("--older-than: %w", err)
				}
				olderThan = d
			}

			svc := services.NewReconcileService(repositories.NewJournalRepository(db))
			res, err := svc.Sweep(cmd.Context(), olderThan)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Abandoned == 0 {
				fmt.Fprintln(out, "No interrupted checkouts.")
				return nil
			}
			fmt.Fprintf(out, "Abandoned %d checkout(s). Stock written before the interruption:\n", res.Abandoned)
			for _, d := range res.Decrements {
				fmt.Fprintf(out, "  • %s (%s): %d → %d\n", d.ProductName, d.ProductID, d.PreviousStock, d.NewStock)
			}
			return nil
		})
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileAfterFlag, "older-than", "", "age of a pending entry before it is abandoned (default RECONCILE_AFTER)")
}
