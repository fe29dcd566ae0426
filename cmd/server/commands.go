// cmd/server/commands.go
package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/javajoker/trademark-backend/internal/database"
	"github.com/javajoker/trademark-backend/internal/repository"
	"github.com/javajoker/trademark-backend/internal/services"
	"github.com/javajoker/trademark-backend/internal/utils"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}

			db, err := database.Initialize(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if status {
				return database.MigrationStatus(cmd.Context(), db)
			}
			return database.RunMigrations(cmd.Context(), db)
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "print migration status instead of migrating")
	return cmd
}

func reconcileOverdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile-overdue",
		Short: "Mark unpaid stage payments past their due date as overdue",
		Long: `Stores the overdue status on payments whose due date has passed.

Summaries derive overdue from the due date on every read; this command keeps
the stored status in step for reporting. Run it from cron.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			db, err := database.Initialize(cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			ledger := services.NewLedgerService(repository.NewPaymentRepository(db), cfg.Payment, log)
			marked, err := ledger.ReconcileOverdue(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "marked %d payment(s) overdue\n", marked)
			return nil
		},
	}
}

// tokenCmd mints a bearer token for local development.
func tokenCmd() *cobra.Command {
	var (
		userID string
		email  string
		role   string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a development bearer token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return errors.New("token issuance is disabled in production")
			}

			id, err := uuid.Parse(userID)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			utils.SetJWTSecret(cfg.JWT.SecretKey)
			utils.SetJWTIssuer(cfg.JWT.Issuer)
			token, err := utils.GenerateJWT(id, email, role, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id (uuid)")
	cmd.Flags().StringVar(&email, "email", "", "email claim")
	cmd.Flags().StringVar(&role, "role", "client", "role claim (client or admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	cmd.MarkFlagRequired("user")
	return cmd
}
