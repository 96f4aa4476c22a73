package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docindex/constants"
	"github.com/joseph-ayodele/docindex/internal/common"
)

var (
	promoteEmail string
	keepDays     int
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the SQL schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// newCore migrates on connect
		a, err := newCore(cmd.Context(), common.LoadConfig())
		if err != nil {
			return err
		}
		defer a.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", a.cfg.Database.Driver)
		return nil
	},
}

var promoteCmd = &cobra.Command{
	Use:   "promote-admin",
	Short: "Grant the admin role to an existing user",
	RunE: func(cmd *cobra.Command, _ []string) error {
		email := strings.TrimSpace(promoteEmail)
		if email == "" {
			return common.InvalidInputErrorf("--email is required")
		}
		ctx := cmd.Context()
		a, err := newCore(ctx, common.LoadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		u, err := a.identity.PromoteByEmail(ctx, email)
		if err != nil {
			return fmt.Errorf("promote %s: %w", email, err)
		}
		uid := u.ID.String()
		a.trail.LogEvent(ctx, &uid, constants.EventUserPromotedToAdmin, map[string]any{
			"email": u.Email,
		}, constants.SeverityWarning, constants.SourceSystem)
		fmt.Fprintf(cmd.OutOrStdout(), "%s (%s) is now an admin\n", u.Email, uid)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "audit-cleanup",
	Short: "Delete audit events older than the retention window",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := newCore(ctx, common.LoadConfig())
		if err != nil {
			return err
		}
		defer a.Close()

		days := keepDays
		if days <= 0 {
			days = a.cfg.Audit.RetentionDays
		}
		deleted, err := a.trail.Cleanup(ctx, days)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d audit events older than %d days\n", deleted, days)
		return nil
	},
}

func init() {
	promoteCmd.Flags().StringVar(&promoteEmail, "email", "", "email of the user to promote")
	cleanupCmd.Flags().IntVar(&keepDays, "days", 0, "days to keep (defaults to AUDIT_RETENTION_DAYS)")

	rootCmd.AddCommand(migrateCmd, promoteCmd, cleanupCmd)
}
