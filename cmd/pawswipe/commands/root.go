package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TimurManjosov/pawswipe/internal/catalog"
	"github.com/TimurManjosov/pawswipe/internal/cli"
	"github.com/TimurManjosov/pawswipe/internal/client"
)

var (
	// Global flags
	profile string
	baseURL string
	apiKey  string
	format  string
	quiet   bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pawswipe",
	Short: "Browse adoptable pets one card at a time",
	Long: `pawswipe talks to a pawswipe server: list candidates, run swipe
sessions, read back decisions and administer the service. The play command
opens an interactive card deck in the terminal.

Examples:
  pawswipe candidates --attr species=cat
  pawswipe session create --tag calm --shuffle
  pawswipe swipe <session-id> like
  pawswipe decisions list --outcome accept
  pawswipe play --local`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Exit codes returned by Run.
const (
	ExitOK           = 0
	ExitError        = 1
	ExitDropped      = 3
	ExitUnauthorized = 4
	ExitInterrupted  = 130
)

// Run executes the root command under ctx, reports any error on stderr and
// returns the process exit code.
func Run(ctx context.Context, stderr io.Writer) int {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}
	code := ExitCode(err)
	if code != ExitInterrupted {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return code
}

// ExitCode maps a command error onto an exit code.
func ExitCode(err error) int {
	var apiErr *client.APIError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, context.Canceled):
		return ExitInterrupted
	case errors.Is(err, client.ErrDropped):
		return ExitDropped
	case errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden):
		return ExitUnauthorized
	default:
		return ExitError
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "Config profile (defaults to default_profile)")
	rootCmd.PersistentFlags().StringVar(&baseURL, "base-url", "", "Base URL of the pawswipe API")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for decision and admin routes")
	rootCmd.PersistentFlags().StringVar(&format, "format", "table", "Output format (table, json, yaml)")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress output")
}

// newClient resolves the profile and builds an API client.
func newClient() (*client.Client, error) {
	p, _, err := cli.ResolveProfile(profile, baseURL, apiKey)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return client.NewClient(p.BaseURL, p.APIKey), nil
}

func printer() cli.Printer {
	return cli.Printer{W: os.Stdout, Format: cli.OutputFormat(format)}
}

// filterFlags are the deck filter options shared by several commands.
type filterFlags struct {
	attrs []string
	tags  []string
	expr  string
	logic string
}

func (f *filterFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.attrs, "attr", nil, "Attribute match as key=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.tags, "tag", nil, "Required tag (repeatable)")
	cmd.Flags().StringVar(&f.expr, "expr", "", `CEL expression, e.g. 'attributes.size != "large"'`)
	cmd.Flags().StringVar(&f.logic, "logic", "", "JSON Logic rule over the candidate's fields")
}

func (f *filterFlags) filter() (catalog.Filter, error) {
	out := catalog.Filter{Tags: f.tags, Expr: f.expr}
	for _, a := range f.attrs {
		k, v, ok := strings.Cut(a, "=")
		if !ok || k == "" {
			return catalog.Filter{}, fmt.Errorf("invalid --attr %q, expected key=value", a)
		}
		if out.Attributes == nil {
			out.Attributes = make(map[string]string)
		}
		out.Attributes[k] = v
	}
	if f.logic != "" {
		if !json.Valid([]byte(f.logic)) {
			return catalog.Filter{}, fmt.Errorf("--logic is not valid JSON")
		}
		out.Logic = json.RawMessage(f.logic)
	}
	if err := out.Validate(); err != nil {
		return catalog.Filter{}, err
	}
	return out, nil
}
