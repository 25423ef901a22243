package reporting

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/templates"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// HTMLReportFilename is the name of the rendered report inside the report directory
const HTMLReportFilename = "Report.html"

//go:embed templates/report.html.tmpl
var reportTemplate string

// HTMLSinkConfig configures an HTMLSink
type HTMLSinkConfig struct {
	Dir      string
	RunID    string
	Settings Settings
	Started  time.Time
	Clock    func() time.Time
	// Template overrides the embedded report template
	Template string
}

// HTMLSink renders every entry into a single Report.html
type HTMLSink struct {
	dir      string
	runID    string
	settings Settings
	started  time.Time
	clock    func() time.Time
	tmpl     *template.Template

	mu sync.Mutex
}

var _ Sink = (*HTMLSink)(nil)

// NewHTMLSink parses the report template and prepares the sink
func NewHTMLSink(cfg HTMLSinkConfig) (*HTMLSink, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("report directory cannot be empty")
	}
	content := cfg.Template
	if content == "" {
		content = reportTemplate
	}
	tmpl, err := template.New("report").Funcs(templates.GetTemplateFunc()).Parse(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML template: %w", err)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	started := cfg.Started
	if started.IsZero() {
		started = clock()
	}

	return &HTMLSink{
		dir:      cfg.Dir,
		runID:    cfg.RunID,
		settings: cfg.Settings,
		started:  started,
		clock:    clock,
		tmpl:     tmpl,
	}, nil
}

// Path returns the location of the rendered report
func (s *HTMLSink) Path() string {
	return filepath.Join(s.dir, HTMLReportFilename)
}

// Consume is a no-op; the report is rendered from snapshots on flush
func (s *HTMLSink) Consume(string, types.Message) error {
	return nil
}

// Flush re-renders the report with the current state of every entry
func (s *HTMLSink) Flush(entries []types.EntrySnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data := BuildReportData(s.settings, s.runID, s.started, s.clock(), entries)

	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("failed to execute HTML template: %w", err)
	}
	return writeFileAtomic(s.Path(), buf.Bytes())
}

// Complete writes the final report
func (s *HTMLSink) Complete(entries []types.EntrySnapshot) error {
	return s.Flush(entries)
}

// writeFileAtomic replaces path so readers never observe a partially written report
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return fmt.Errorf("failed to set report permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
