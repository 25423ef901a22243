package reporting

import (
	"fmt"
	"html/template"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// ReportStats contains aggregated statistics for a reporting run
type ReportStats struct {
	Total    int
	Passed   int
	Failed   int // fail and fatal
	Warnings int
	Skipped  int
	Steps    int
	PassRate float64
}

// HasFailures reports whether any entry failed
func (s ReportStats) HasFailures() bool {
	return s.Failed > 0
}

// ReportMessage is a single step prepared for rendering
type ReportMessage struct {
	Seq        int
	Severity   types.Severity
	Time       time.Time
	Text       string
	Attachment string
	Markup     template.HTML
	MarkupKind types.MarkupKind
}

// ReportEntry is a single test prepared for rendering
type ReportEntry struct {
	ID       string
	Name     string
	Status   types.Severity
	Created  time.Time
	Duration time.Duration
	Messages []ReportMessage
}

// ReportData contains all the structured data needed for any report format
type ReportData struct {
	Settings  Settings
	CSS       template.CSS
	RunID     string
	Started   time.Time
	Generated time.Time
	Stats     ReportStats
	Entries   []ReportEntry
}

// ComputeStats aggregates entry statuses
func ComputeStats(entries []types.EntrySnapshot) ReportStats {
	var stats ReportStats
	for _, e := range entries {
		stats.Total++
		stats.Steps += len(e.Messages)
		switch {
		case e.Status.IsFailure():
			stats.Failed++
		case e.Status == types.SeverityWarning:
			stats.Warnings++
		case e.Status == types.SeveritySkip:
			stats.Skipped++
		default:
			stats.Passed++
		}
	}
	if stats.Total > 0 {
		stats.PassRate = float64(stats.Passed) * 100 / float64(stats.Total)
	}
	return stats
}

// BuildReportData converts entry snapshots into render-ready data
func BuildReportData(settings Settings, runID string, started, generated time.Time, entries []types.EntrySnapshot) *ReportData {
	data := &ReportData{
		Settings: settings,
		// Custom CSS comes from the operator's own settings file
		CSS:       template.CSS(settings.CSS), //nolint:gosec
		RunID:     runID,
		Started:   started,
		Generated: generated,
		Stats:     ComputeStats(entries),
		Entries:   make([]ReportEntry, 0, len(entries)),
	}

	for i, e := range entries {
		entry := ReportEntry{
			ID:       fmt.Sprintf("entry-%d", i+1),
			Name:     e.Name,
			Status:   e.Status,
			Created:  e.Created,
			Duration: e.Duration,
			Messages: make([]ReportMessage, 0, len(e.Messages)),
		}
		for _, m := range e.Messages {
			msg := ReportMessage{
				Seq:      m.Seq,
				Severity: m.Severity,
				Time:     m.Time,
				Text:     m.Text,
			}
			if m.Attachment != nil {
				msg.Attachment = m.Attachment.Path
			}
			if m.Markup != nil {
				// Markup HTML is produced by the markup package, which escapes its input
				msg.Markup = template.HTML(m.Markup.HTML) //nolint:gosec
				msg.MarkupKind = m.Markup.Kind
			}
			entry.Messages = append(entry.Messages, msg)
		}
		data.Entries = append(data.Entries, entry)
	}
	return data
}
