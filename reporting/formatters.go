package reporting

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-reporter/templates"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// TableReporter prints a console summary of every entry
type TableReporter struct {
	title   string
	colored bool
}

// NewTableReporter creates a table reporter; colored enables ANSI status colors
func NewTableReporter(title string, colored bool) *TableReporter {
	return &TableReporter{title: title, colored: colored}
}

// Render builds the summary table as a string
func (r *TableReporter) Render(entries []types.EntrySnapshot) string {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	if r.title != "" {
		t.SetTitle(r.title)
	}
	t.AppendHeader(table.Row{"Name", "Steps", "Pass", "Fail", "Warn", "Skip", "Duration", "Status"})

	for _, e := range entries {
		t.AppendRow(table.Row{
			e.Name,
			len(e.Messages),
			e.Count(types.SeverityPass),
			e.Count(types.SeverityFail) + e.Count(types.SeverityFatal),
			e.Count(types.SeverityWarning),
			e.Count(types.SeveritySkip),
			templates.FormatDuration(e.Duration),
			r.status(e.Status),
		})
	}

	stats := ComputeStats(entries)
	t.AppendFooter(table.Row{
		"TOTAL",
		stats.Steps,
		stats.Passed,
		stats.Failed,
		stats.Warnings,
		stats.Skipped,
		"",
		fmt.Sprintf("%.1f%%", stats.PassRate),
	})
	return t.Render()
}

// PrintTable writes the summary table to w
func (r *TableReporter) PrintTable(w io.Writer, entries []types.EntrySnapshot) error {
	out := r.Render(entries)
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := io.WriteString(w, out)
	return err
}

func (r *TableReporter) status(sev types.Severity) string {
	tag := sev.Tag()
	if !r.colored {
		return tag
	}
	return statusColors(sev).Sprint(tag)
}

func statusColors(sev types.Severity) text.Colors {
	switch sev {
	case types.SeverityPass:
		return text.Colors{text.FgGreen}
	case types.SeverityInfo:
		return text.Colors{text.FgCyan}
	case types.SeverityWarning:
		return text.Colors{text.FgYellow}
	case types.SeverityFail:
		return text.Colors{text.FgRed}
	case types.SeverityFatal:
		return text.Colors{text.FgHiRed, text.Bold}
	case types.SeveritySkip:
		return text.Colors{text.FgHiBlack}
	default:
		return text.Colors{}
	}
}
