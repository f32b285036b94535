package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/config"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/internal/database"
	pkgdb "github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/database"
	"github.com/KeHamTruyen/SoCo-DATN-sub001/pkg/logger"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(cmd, func(m *database.MigrationService) error {
			return m.RunMigrations(cmd.Context())
		})
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List applied migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withMigrations(cmd, func(m *database.MigrationService) error {
			applied, err := m.Applied(cmd.Context())
			if err != nil {
				return err
			}
			done := make(map[string]time.Time, len(applied))
			for _, a := range applied {
				done[a.Name] = a.AppliedAt
			}
			out := cmd.OutOrStdout()
			for _, step := range database.Steps() {
				if at, ok := done[step.Name]; ok {
					fmt.Fprintf(out, "applied  %s  %s\n", at.Format(time.RFC3339), step.Name)
				} else {
					fmt.Fprintf(out, "pending  %-25s  %s\n", "-", step.Name)
				}
			}
			return nil
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
}

// withMigrations connects without building the rest of the application.
func withMigrations(cmd *cobra.Command, fn func(*database.MigrationService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.LogLevel(cfg.LogLevel), cmd.ErrOrStderr(), cfg.IsDevelopment())

	conn, err := pkgdb.NewConnectionManager(cfg.Database, log)
	if err != nil {
		return err
	}
	defer conn.Close()

	return fn(database.NewMigrationService(conn.DB(), log))
}
