package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/pawswipe/internal/client"
)

var (
	candidatesFilter filterFlags
	candidatesSeed   string
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "List catalog candidates",
	Long: `List the candidates a deck would be built from.

Examples:
  pawswipe candidates
  pawswipe candidates --attr species=dog --tag good-with-kids
  pawswipe candidates --expr '"calm" in tags' --seed demo`,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := candidatesFilter.filter()
		if err != nil {
			return err
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		cands, err := c.ListCandidates(cmd.Context(), client.CandidateQuery{Filter: f, Seed: candidatesSeed})
		if err != nil {
			return fmt.Errorf("failed to list candidates: %w", err)
		}
		if quiet {
			return nil
		}
		if len(cands) == 0 {
			fmt.Println("No candidates found")
			return nil
		}
		return printer().PrintCandidates(cands)
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesFilter.bind(candidatesCmd)
	candidatesCmd.Flags().StringVar(&candidatesSeed, "seed", "", "Shuffle deterministically with this seed")
}
