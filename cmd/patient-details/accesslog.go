package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ehr/patientdetails/internal/config"
	"github.com/ehr/patientdetails/internal/platform/accesslog"
	"github.com/ehr/patientdetails/internal/platform/db"
)

func accessLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accesslog",
		Short: "Manage the access audit trail",
	}

	purgeCmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete access entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			retention, _ := cmd.Flags().GetDuration("older-than")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.RequireDatabase(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2, ApplicationName: "patient-details-accesslog"})
			if err != nil {
				return err
			}
			defer pool.Close()

			n, err := accesslog.NewRecorder(pool).Purge(ctx, retention)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d access log entr(ies).\n", n)
			return nil
		},
	}
	purgeCmd.Flags().Duration("older-than", accesslog.DefaultRetention, "Retention period")
	cmd.AddCommand(purgeCmd)
	return cmd
}
