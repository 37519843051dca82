package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditLimit int

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administer the server (admin key required)",
}

var adminReloadCmd = &cobra.Command{
	Use:   "reload",
	Short: "Rebuild every session's deck from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		n, err := c.AdminReload(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to reload: %w", err)
		}
		if !quiet {
			fmt.Printf("Reloaded %d session(s)\n", n)
		}
		return nil
	},
}

var adminAuditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Show recent audit events",
	Long: `Show recent audit events, newest first: session lifecycle, deck
reloads, evictions and failed authentication.

Example:
  pawswipe admin audit --limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		events, err := c.AdminAudit(cmd.Context(), auditLimit)
		if err != nil {
			return fmt.Errorf("failed to read audit log: %w", err)
		}
		if quiet {
			return nil
		}
		if len(events) == 0 {
			fmt.Println("No audit events")
			return nil
		}
		return printer().PrintAudit(events)
	},
}

func init() {
	rootCmd.AddCommand(adminCmd)
	adminCmd.AddCommand(adminReloadCmd, adminAuditCmd)
	adminAuditCmd.Flags().IntVar(&auditLimit, "limit", 50, "Maximum number of events (1-1000)")
}
