// Package report renders run summaries and portfolio reports for the
// terminal, and answers ad-hoc questions about the portfolio through an
// oracle.
package report

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"startupscout/internal/oracle"
	"startupscout/internal/pipeline"
	"startupscout/internal/store"
	"startupscout/internal/types"
)

// Semantic colors shared by every report.
var (
	successColor = lipgloss.Color("#8BC34A")
	warningColor = lipgloss.Color("#FFC107")
	dangerColor  = lipgloss.Color("#e53935")
	mutedColor   = lipgloss.Color("#6c7a89")

	titleStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	labelStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	addStyle    = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	skipStyle   = lipgloss.NewStyle().Foreground(warningColor)
	rejectStyle = lipgloss.NewStyle().Foreground(dangerColor)
)

func actionStyle(a types.Action) lipgloss.Style {
	switch a {
	case types.ActionAdd:
		return addStyle
	case types.ActionSkipExists:
		return skipStyle
	default:
		return rejectStyle
	}
}

// RenderSummary renders one discovery run for the terminal.
func RenderSummary(s *pipeline.Summary) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Discovery run " + s.RunID))
	sb.WriteString("\n")
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("thesis: %s", s.Thesis)))
	sb.WriteString("\n\n")

	nameWidth := len("candidate")
	for _, r := range s.Results {
		if len(r.Name) > nameWidth {
			nameWidth = len(r.Name)
		}
	}
	for _, r := range s.Results {
		sb.WriteString(fmt.Sprintf("  %-*s  ", nameWidth, r.Name))
		if r.Err != "" {
			sb.WriteString(rejectStyle.Render("FAILED"))
			sb.WriteString(mutedStyle.Render("  " + r.Err))
		} else {
			sb.WriteString(actionStyle(r.Action).Render(string(r.Action)))
			sb.WriteString(mutedStyle.Render(fmt.Sprintf("  confidence=%s issues=%d", r.Confidence, r.Issues)))
			if r.Why != "" {
				sb.WriteString(mutedStyle.Render("  " + r.Why))
			}
		}
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(labelStyle.Render(fmt.Sprintf(
		"added %d  skipped %d  rejected %d  failed %d",
		s.Added, s.Skipped, s.Rejected, s.Failed)))
	sb.WriteString(mutedStyle.Render(fmt.Sprintf("  (%d known records, %s)",
		s.Known, s.Duration.Round(10*time.Millisecond))))
	sb.WriteString("\n")
	return sb.String()
}

// RenderTotals renders the portfolio counters.
func RenderTotals(t store.Totals) string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Portfolio"))
	sb.WriteString("\n")
	rows := []struct {
		label string
		n     int
	}{
		{"startups", t.Startups},
		{"funding rounds", t.FundingRounds},
		{"leadership contacts", t.Leadership},
		{"raw payloads", t.RawPayloads},
	}
	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("  %-20s %d\n", r.label, r.n))
	}
	return sb.String()
}

const askSystem = "You are an investment analyst. Answer questions about a " +
	"startup portfolio using only the facts provided. Be concise."

// Ask answers a free-form question about the portfolio through the oracle,
// grounding it on the current snapshot and counters.
func Ask(ctx context.Context, o oracle.Oracle, q string, known []types.KnownRecord, totals store.Totals) (string, error) {
	names := make([]string, 0, len(known))
	for _, k := range known {
		if k.Website != "" {
			names = append(names, fmt.Sprintf("%s (%s)", k.Name, k.Website))
		} else {
			names = append(names, k.Name)
		}
	}
	sort.Strings(names)

	prompt := fmt.Sprintf(
		"Portfolio: %d startups, %d funding rounds, %d leadership contacts.\n"+
			"Companies:\n%s\n\nQuestion: %s",
		totals.Startups, totals.FundingRounds, totals.Leadership,
		strings.Join(names, "\n"), q)

	answer, err := o.CompleteWithSystem(ctx, askSystem, prompt)
	if err != nil {
		return "", fmt.Errorf("portfolio question failed: %w", err)
	}
	return strings.TrimSpace(answer), nil
}
