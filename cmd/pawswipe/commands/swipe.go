package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/pawswipe/internal/client"
	"github.com/TimurManjosov/pawswipe/internal/swipe"
)

var swipeCmd = &cobra.Command{
	Use:   "swipe <session-id> <accept|reject>",
	Short: "Swipe the active card",
	Long: `Commit the active card of a session. like and right mean accept;
pass and left mean reject. A swipe sent while the previous one is still
animating is dropped.

Examples:
  pawswipe swipe <id> like
  pawswipe swipe <id> reject`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, err := swipe.ParseOutcome(args[1])
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		_, err = c.Commit(cmd.Context(), args[0], outcome)
		if errors.Is(err, client.ErrDropped) {
			return fmt.Errorf("%w: a transition is in flight or the deck is empty", err)
		}
		if err != nil {
			return fmt.Errorf("failed to swipe: %w", err)
		}
		if !quiet {
			fmt.Printf("Swiped %s\n", outcome)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(swipeCmd)
}
