package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/pawswipe/internal/client"
	"github.com/TimurManjosov/pawswipe/internal/store"
)

var (
	decisionsQuery  client.DecisionQuery
	exportOutput    string
	exportFormatOpt string
)

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Read recorded decisions",
}

var decisionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List decisions, newest first",
	Long: `List recorded decisions. Requires a readonly or admin key when the
server has authentication enabled.

Examples:
  pawswipe decisions list
  pawswipe decisions list --session <id> --outcome accept --limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ds, err := c.ListDecisions(cmd.Context(), decisionsQuery)
		if err != nil {
			return fmt.Errorf("failed to list decisions: %w", err)
		}
		if quiet {
			return nil
		}
		if len(ds) == 0 {
			fmt.Println("No decisions found")
			return nil
		}
		return printer().PrintDecisions(ds)
	},
}

var decisionsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Show one decision",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		d, err := c.GetDecision(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to get decision: %w", err)
		}
		if quiet {
			return nil
		}
		return printer().PrintDecisions([]store.Decision{*d})
	},
}

var decisionsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export decisions as CSV, JSON or JSON Lines",
	Long: `Export decisions to a file or stdout in the server's export formats.

Examples:
  pawswipe decisions export --as csv --output decisions.csv
  pawswipe decisions export --as jsonl --outcome accept > likes.jsonl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		switch exportFormatOpt {
		case "csv", "json", "jsonl":
		default:
			return fmt.Errorf("unsupported export format %q (csv, json, jsonl)", exportFormatOpt)
		}
		c, err := newClient()
		if err != nil {
			return err
		}

		output := os.Stdout
		if exportOutput != "" && exportOutput != "-" {
			output, err = os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer output.Close()
		}

		if err := c.ExportDecisions(cmd.Context(), decisionsQuery, exportFormatOpt, output); err != nil {
			return fmt.Errorf("failed to export decisions: %w", err)
		}
		if output != os.Stdout && !quiet {
			fmt.Fprintf(os.Stderr, "Exported decisions to %s\n", exportOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decisionsCmd)
	decisionsCmd.AddCommand(decisionsListCmd, decisionsGetCmd, decisionsExportCmd)

	for _, cmd := range []*cobra.Command{decisionsListCmd, decisionsExportCmd} {
		cmd.Flags().StringVar(&decisionsQuery.SessionID, "session", "", "Only decisions from this session")
		cmd.Flags().StringVar(&decisionsQuery.Outcome, "outcome", "", "Only accept or reject decisions")
		cmd.Flags().IntVar(&decisionsQuery.Limit, "limit", 0, "Maximum number of decisions (server default 100)")
	}
	decisionsExportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default stdout)")
	decisionsExportCmd.Flags().StringVar(&exportFormatOpt, "as", "csv", "Export format (csv, json, jsonl)")
}
