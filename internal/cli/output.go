package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"

	"github.com/TimurManjosov/pawswipe/internal/audit"
	"github.com/TimurManjosov/pawswipe/internal/deck"
	"github.com/TimurManjosov/pawswipe/internal/session"
	"github.com/TimurManjosov/pawswipe/internal/store"
)

// OutputFormat specifies the output format for CLI commands
type OutputFormat string

const (
	FormatTable OutputFormat = "table"
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
)

// Printer renders command results to W in Format.
type Printer struct {
	W      io.Writer
	Format OutputFormat
}

// print renders v as JSON or YAML under key, or as a table with header and
// rows.
func (p Printer) print(key string, v any, header []string, rows [][]string) error {
	switch p.Format {
	case FormatJSON:
		encoder := json.NewEncoder(p.W)
		encoder.SetIndent("", "  ")
		if key == "" {
			return encoder.Encode(v)
		}
		return encoder.Encode(map[string]any{key: v})
	case FormatYAML:
		encoder := yaml.NewEncoder(p.W)
		defer encoder.Close()
		encoder.SetIndent(2)
		return encoder.Encode(v)
	case FormatTable, "":
		table := tablewriter.NewWriter(p.W)
		table.Header(header)
		for _, row := range rows {
			if err := table.Append(row); err != nil {
				return err
			}
		}
		return table.Render()
	default:
		return fmt.Errorf("unsupported format: %s", p.Format)
	}
}

// PrintCandidates outputs catalog candidates.
func (p Printer) PrintCandidates(cands []deck.Candidate) error {
	rows := make([][]string, 0, len(cands))
	for _, c := range cands {
		rows = append(rows, []string{
			c.ID,
			c.Name,
			c.Attributes["species"],
			c.Attributes["size"],
			truncate(strings.Join(c.Tags, ", "), 40),
		})
	}
	return p.print("candidates", cands, []string{"ID", "Name", "Species", "Size", "Tags"}, rows)
}

// PrintSession outputs one session description.
func (p Printer) PrintSession(info *session.Info) error {
	return p.PrintSessions([]session.Info{*info})
}

// PrintSessions outputs session descriptions.
func (p Printer) PrintSessions(infos []session.Info) error {
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		st := info.Frame.State
		viewing := "-"
		if info.LastViewed != nil && !st.Empty() {
			viewing = info.LastViewed.Name
		}
		rows = append(rows, []string{
			info.ID,
			fmt.Sprintf("%d/%d", st.Cursor, st.DeckSize),
			viewing,
			strconv.FormatUint(st.Decisions, 10),
			info.Frame.Phase.String(),
			strconv.Itoa(info.Watchers),
			info.LastActive.Format("2006-01-02 15:04:05"),
		})
	}
	if len(infos) == 1 && p.Format != FormatTable && p.Format != "" {
		return p.print("", infos[0], nil, nil)
	}
	return p.print("sessions", infos,
		[]string{"ID", "Cursor", "Viewing", "Decisions", "Phase", "Watchers", "Last Active"}, rows)
}

// PrintDecisions outputs recorded decisions.
func (p Printer) PrintDecisions(ds []store.Decision) error {
	rows := make([][]string, 0, len(ds))
	for _, d := range ds {
		rows = append(rows, []string{d.ID, d.SessionID, d.CandidateID, d.Outcome, d.DecidedAt.Format("2006-01-02 15:04:05")})
	}
	return p.print("decisions", ds, []string{"ID", "Session", "Candidate", "Outcome", "Decided At"}, rows)
}

// PrintAudit outputs audit events.
func (p Printer) PrintAudit(events []audit.Event) error {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		rows = append(rows, []string{
			e.OccurredAt.Format("2006-01-02 15:04:05"),
			e.Action,
			e.ResourceType,
			e.ResourceID,
			e.Actor,
			e.Status,
		})
	}
	return p.print("events", events, []string{"Time", "Action", "Resource", "ID", "Actor", "Status"}, rows)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
