package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	sessionFilter  filterFlags
	sessionShuffle bool
)

var sessionCmd = &cobra.Command{
	Use:     "session",
	Aliases: []string{"sessions"},
	Short:   "Manage swipe sessions",
}

var sessionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Start a session over a filtered deck",
	Long: `Start a session. The deck holds every candidate matching the filter,
optionally shuffled.

Examples:
  pawswipe session create
  pawswipe session create --attr species=cat --shuffle`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := sessionFilter.filter()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		id, _, err := c.CreateSession(ctx, f, sessionShuffle)
		if err != nil {
			return fmt.Errorf("failed to create session: %w", err)
		}
		if quiet {
			fmt.Println(id)
			return nil
		}
		info, err := c.GetSession(ctx, id)
		if err != nil {
			return err
		}
		return printer().PrintSession(info)
	},
}

var sessionGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		info, err := c.GetSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get session: %w", err)
		}
		if quiet {
			return nil
		}
		return printer().PrintSession(info)
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Close a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if err := c.DeleteSession(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		if !quiet {
			fmt.Printf("Session %s closed\n", args[0])
		}
		return nil
	},
}

var sessionReloadCmd = &cobra.Command{
	Use:   "reload <id>",
	Short: "Replace a session's deck",
	Long: `Rebuild a session's deck from the catalog with a new filter. The cursor
returns to the first card and any transition in flight is abandoned.

Example:
  pawswipe session reload <id> --tag calm`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := sessionFilter.filter()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}
		info, err := c.ReloadDeck(cmd.Context(), args[0], f, sessionShuffle)
		if err != nil {
			return fmt.Errorf("failed to reload deck: %w", err)
		}
		if quiet {
			return nil
		}
		return printer().PrintSession(info)
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List live sessions (admin)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		infos, err := c.AdminSessions(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list sessions: %w", err)
		}
		if quiet {
			return nil
		}
		if len(infos) == 0 {
			fmt.Println("No live sessions")
			return nil
		}
		return printer().PrintSessions(infos)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionCreateCmd, sessionGetCmd, sessionDeleteCmd, sessionReloadCmd, sessionListCmd)

	for _, cmd := range []*cobra.Command{sessionCreateCmd, sessionReloadCmd} {
		sessionFilter.bind(cmd)
		cmd.Flags().BoolVar(&sessionShuffle, "shuffle", false, "Shuffle the deck")
	}
}
