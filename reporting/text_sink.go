package reporting

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/ethereum-optimism/infra/op-reporter/templates"
	"github.com/ethereum-optimism/infra/op-reporter/types"
	"github.com/ethereum-optimism/infra/op-reporter/ui"
)

// TextReportFilename is the plain-text log written when HTML reporting is turned off
const TextReportFilename = "Output.txt"

const (
	defaultMaxSizeMB  = 100
	defaultMaxBackups = 3
	summaryWidth      = 60
)

// TextSinkConfig configures a TextSink
type TextSinkConfig struct {
	Dir string
	// Console receives a copy of every step line, nil disables mirroring
	Console io.Writer
	Clock   func() time.Time
	// MaxSizeMB rotates Output.txt once it grows past this size
	MaxSizeMB  int
	MaxBackups int
}

// TextSink writes every step as a tagged, timestamped line
type TextSink struct {
	file    *lumberjack.Logger
	console io.Writer
	clock   func() time.Time

	mu     sync.Mutex
	closed bool
}

var _ Sink = (*TextSink)(nil)

// NewTextSink creates a text sink writing to <dir>/Output.txt
func NewTextSink(cfg TextSinkConfig) (*TextSink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("report directory cannot be empty")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = defaultMaxSizeMB
	}
	maxBackups := cfg.MaxBackups
	if maxBackups <= 0 {
		maxBackups = defaultMaxBackups
	}

	return &TextSink{
		file: &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, TextReportFilename),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
		},
		console: cfg.Console,
		clock:   clock,
	}, nil
}

// Path returns the location of Output.txt
func (s *TextSink) Path() string {
	return s.file.Filename
}

// FormatLine renders a step as "[dd-MM-yyyy HH-mm-ss] [TAG] - text"
func FormatLine(ts time.Time, sev types.Severity, text string) string {
	return fmt.Sprintf("[%s] [%s] - %s", ts.Format(templates.TimestampLayout), sev.Tag(), text)
}

// Consume writes the step to Output.txt and the console
func (s *TextSink) Consume(entry string, msg types.Message) error {
	ts := msg.Time
	if ts.IsZero() {
		ts = s.clock()
	}
	var plain, console strings.Builder
	if m := msg.Markup; m != nil && m.Kind == types.MarkupLabel {
		// labels replace the step text
		plain.WriteString(FormatLine(ts, msg.Severity, m.Plain) + "\n")
		console.WriteString(FormatLine(ts, msg.Severity, firstNonEmpty(m.Console, m.Plain)) + "\n")
	} else {
		line := FormatLine(ts, msg.Severity, msg.Text)
		plain.WriteString(line + "\n")
		console.WriteString(line + "\n")
	}
	if msg.Markup != nil && msg.Markup.Kind != types.MarkupLabel {
		plain.WriteString(ensureNewline(msg.Markup.Plain))
		console.WriteString(ensureNewline(firstNonEmpty(msg.Markup.Console, msg.Markup.Plain)))
	}
	if msg.Attachment != nil {
		attachment := "    attachment: " + msg.Attachment.Path + "\n"
		plain.WriteString(attachment)
		console.WriteString(attachment)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("text sink is closed")
	}
	if _, err := io.WriteString(s.file, stripansi.Strip(plain.String())); err != nil {
		return fmt.Errorf("failed to write %s: %w", TextReportFilename, err)
	}
	if s.console != nil {
		if _, err := io.WriteString(s.console, console.String()); err != nil {
			return fmt.Errorf("failed to write to console: %w", err)
		}
	}
	return nil
}

// Flush is a no-op; lines are written as they are consumed
func (s *TextSink) Flush([]types.EntrySnapshot) error {
	return nil
}

// Complete appends a summary of every entry and closes the file
func (s *TextSink) Complete(entries []types.EntrySnapshot) error {
	summary := FormatSummary(entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if _, err := io.WriteString(s.file, summary); err != nil {
		s.file.Close()
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return s.file.Close()
}

// FormatSummary renders entries and their steps as a boxed tree
func FormatSummary(entries []types.EntrySnapshot) string {
	stats := ComputeStats(entries)

	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(ui.BuildBoxHeader("SUMMARY", summaryWidth))
	sb.WriteString(ui.BuildBoxLine(fmt.Sprintf("Tests: %d  Passed: %d  Failed: %d  Warnings: %d  Skipped: %d",
		stats.Total, stats.Passed, stats.Failed, stats.Warnings, stats.Skipped), summaryWidth))
	sb.WriteString(ui.BuildBoxFooter(summaryWidth))

	for i, e := range entries {
		lastEntry := i == len(entries)-1
		sb.WriteString(fmt.Sprintf("%s[%s] %s (%s)\n",
			ui.BuildTreePrefix(1, lastEntry, nil), e.Status.Tag(), e.Name, templates.FormatDuration(e.Duration)))
		for j, m := range e.Messages {
			lastMsg := j == len(e.Messages)-1
			sb.WriteString(fmt.Sprintf("%s[%s] %s\n",
				ui.BuildTreePrefix(2, lastMsg, []bool{lastEntry}), m.Severity.Tag(), firstLine(m.Text)))
		}
	}
	return sb.String()
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
