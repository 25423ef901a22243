package reporter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
	"github.com/google/uuid"
	"github.com/pkg/browser"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/ethereum-optimism/infra/op-reporter/markup"
	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/registry"
	"github.com/ethereum-optimism/infra/op-reporter/reporting"
	"github.com/ethereum-optimism/infra/op-reporter/resolver"
	"github.com/ethereum-optimism/infra/op-reporter/screenshot"
	"github.com/ethereum-optimism/infra/op-reporter/templates"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	// FinalMessage is appended to the session entry by FinaliseTest
	FinalMessage = "Test Complete!"

	tracerName = "op-reporter"
)

// ErrClosed is returned for steps recorded after Close
var ErrClosed = errors.New("reporter is closed")

// Option customises a Reporter
type Option func(*Reporter)

// WithScreenshotDriver sets the driver used by the *WithScreenshot steps
func WithScreenshotDriver(driver screenshot.Driver) Option {
	return func(r *Reporter) {
		r.driver = driver
	}
}

// WithReportOpener replaces the viewer used by OpenReport
func WithReportOpener(open func(path string) error) Option {
	return func(r *Reporter) {
		r.opener = open
	}
}

// WithSinks adds sinks that receive every step alongside the built-in ones
func WithSinks(sinks ...reporting.Sink) Option {
	return func(r *Reporter) {
		r.extraSinks = append(r.extraSinks, sinks...)
	}
}

// Reporter is a reporting session. It is safe for concurrent use by tests
// running in parallel.
type Reporter struct {
	cfg      *Config
	log      log.Logger
	runID    string
	dir      string
	registry *registry.Registry
	resolver *resolver.Resolver
	tracer   trace.Tracer

	driver      screenshot.Driver
	screenshots *screenshot.Store

	reportPath string
	sinks      []reporting.Sink
	extraSinks []reporting.Sink
	flusher    *reporting.Flusher

	opener func(path string) error

	// record holds the read lock so Close never snapshots mid-step
	mu        sync.RWMutex
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// New creates the report directory and the sinks for a session
func New(cfg *Config, opts ...Option) (*Reporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	started := cfg.Clock()
	dir := filepath.Join(cfg.RootDir, ReportsDirName, cfg.Name, started.Format(templates.TimestampLayout))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, NewRuntimeError(fmt.Errorf("failed to create report directory %s: %w", dir, err))
	}

	r := &Reporter{
		cfg:   cfg,
		log:   cfg.Log,
		runID: uuid.New().String(),
		dir:   dir,
		registry: registry.NewRegistry(registry.Config{
			Log:   cfg.Log,
			Clock: cfg.Clock,
		}),
		resolver: resolver.New(cfg.Mode, cfg.Name),
		tracer:   otel.Tracer(tracerName),
		opener:   browser.OpenFile,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.screenshots = screenshot.NewStore(dir, r.driver, cfg.ScreenshotTimeout)

	if cfg.ReportingOff {
		text, err := reporting.NewTextSink(reporting.TextSinkConfig{
			Dir:     dir,
			Console: cfg.Console,
			Clock:   cfg.Clock,
		})
		if err != nil {
			return nil, NewRuntimeError(fmt.Errorf("failed to create text sink: %w", err))
		}
		r.reportPath = text.Path()
		r.sinks = append(r.sinks, text)
	} else {
		html, err := reporting.NewHTMLSink(reporting.HTMLSinkConfig{
			Dir:      dir,
			RunID:    r.runID,
			Settings: cfg.Settings,
			Started:  started,
			Clock:    cfg.Clock,
		})
		if err != nil {
			return nil, NewRuntimeError(fmt.Errorf("failed to create HTML sink: %w", err))
		}
		r.reportPath = html.Path()
		r.sinks = append(r.sinks, html)
	}
	r.sinks = append(r.sinks, r.extraSinks...)
	r.flusher = reporting.NewFlusher(r.sinks, r.registry.Snapshots, cfg.AsyncFlush, cfg.Log)

	// the artifact exists from the start so an aborted run still leaves a report
	if err := r.flusher.Request(); err != nil {
		r.log.Error("Initial report flush failed", "err", err)
	}

	r.log.Info("Reporting session started",
		"name", cfg.Name,
		"run_id", r.runID,
		"mode", cfg.Mode,
		"reporting_off", cfg.ReportingOff,
		"dir", dir)
	return r, nil
}

// OpenReport prints the report path to the console and, when open is set,
// launches Report.html (or Output.txt when reporting is off) in the desktop viewer.
func (r *Reporter) OpenReport(open bool) error {
	fmt.Fprintf(r.cfg.Console, "Report Path: \n%s\n", r.reportPath)
	if !open {
		return nil
	}
	r.log.Info("Opening report", "path", r.reportPath)
	if err := r.opener(r.reportPath); err != nil {
		metrics.RecordErrorDetails("open", err)
		return fmt.Errorf("failed to open report %s: %w", r.reportPath, err)
	}
	return nil
}

// RunID returns the unique id of this session
func (r *Reporter) RunID() string {
	return r.runID
}

// Dir returns the report directory, Reports/<name>/<timestamp>/
func (r *Reporter) Dir() string {
	return r.dir
}

// ReportPath returns Report.html, or Output.txt when reporting is off
func (r *Reporter) ReportPath() string {
	return r.reportPath
}

// ReportingOff reports whether the session writes Output.txt instead of HTML
func (r *Reporter) ReportingOff() bool {
	return r.cfg.ReportingOff
}

// Name returns the session's fixed fallback name
func (r *Reporter) Name() string {
	return r.resolver.Fallback()
}

// CreateTest fetches or creates the named entry and makes it the session's
// fallback, so sequential-mode steps are recorded against it.
func (r *Reporter) CreateTest(name string) (*types.Entry, error) {
	name = types.SanitizeName(name)
	entry, err := r.fetchOrCreate(name)
	if err != nil {
		return nil, err
	}
	r.resolver.SetFallback(name)
	return entry, nil
}

// Test fetches or creates the named entry
func (r *Reporter) Test(name string) (*types.Entry, error) {
	return r.fetchOrCreate(types.SanitizeName(name))
}

// CurrentTestName returns the name of the entry a step from ctx would be recorded against
func (r *Reporter) CurrentTestName(ctx context.Context) string {
	return r.resolver.Resolve(ctx)
}

// Entries returns a snapshot of every entry in creation order
func (r *Reporter) Entries() []types.EntrySnapshot {
	return r.registry.Snapshots()
}

// Stats aggregates the status of every entry
func (r *Reporter) Stats() reporting.ReportStats {
	return reporting.ComputeStats(r.Entries())
}

// Step records a message with the given severity against the current test
func (r *Reporter) Step(ctx context.Context, sev types.Severity, msg string) error {
	return r.record(ctx, r.resolver.Resolve(ctx), types.Message{Severity: sev, Text: msg})
}

// StepFor records a message against the named entry, bypassing the resolver.
// An empty name resolves the entry from ctx like Step.
func (r *Reporter) StepFor(ctx context.Context, name string, sev types.Severity, msg string) error {
	name = types.SanitizeName(name)
	if name == "" {
		name = r.resolver.Resolve(ctx)
	}
	return r.record(ctx, name, types.Message{Severity: sev, Text: msg})
}

// StepPassed records a pass step
func (r *Reporter) StepPassed(ctx context.Context, msg string) error {
	return r.Step(ctx, types.SeverityPass, msg)
}

// StepInfo records an info step
func (r *Reporter) StepInfo(ctx context.Context, msg string) error {
	return r.Step(ctx, types.SeverityInfo, msg)
}

// StepWarning records a warning step
func (r *Reporter) StepWarning(ctx context.Context, msg string) error {
	return r.Step(ctx, types.SeverityWarning, msg)
}

// StepFailed records a fail step
func (r *Reporter) StepFailed(ctx context.Context, msg string) error {
	return r.Step(ctx, types.SeverityFail, msg)
}

// StepFatal records a fatal step
func (r *Reporter) StepFatal(ctx context.Context, msg string) error {
	return r.Step(ctx, types.SeverityFatal, msg)
}

// StepSkip records a skip step
func (r *Reporter) StepSkip(ctx context.Context, msg string) error {
	return r.Step(ctx, types.SeveritySkip, msg)
}

// StepPassedWithXML records a pass step with a pretty printed XML block
func (r *Reporter) StepPassedWithXML(ctx context.Context, msg, xml string) error {
	return r.stepWithCode(ctx, types.SeverityPass, msg, xml, markup.LanguageXML)
}

// StepFailedWithXML records a fail step with a pretty printed XML block
func (r *Reporter) StepFailedWithXML(ctx context.Context, msg, xml string) error {
	return r.stepWithCode(ctx, types.SeverityFail, msg, xml, markup.LanguageXML)
}

// StepPassedWithJSON records a pass step with a pretty printed JSON block
func (r *Reporter) StepPassedWithJSON(ctx context.Context, msg, json string) error {
	return r.stepWithCode(ctx, types.SeverityPass, msg, json, markup.LanguageJSON)
}

// StepFailedWithJSON records a fail step with a pretty printed JSON block
func (r *Reporter) StepFailedWithJSON(ctx context.Context, msg, json string) error {
	return r.stepWithCode(ctx, types.SeverityFail, msg, json, markup.LanguageJSON)
}

// StepPassedWithTable records a pass step with a table. When the table
// cannot be built a fail step is recorded and the error returned.
func (r *Reporter) StepPassedWithTable(ctx context.Context, msg string, headers []string, rows [][]string) error {
	name := r.resolver.Resolve(ctx)
	tbl, err := markup.Table(headers, rows)
	if err != nil {
		metrics.RecordErrorDetails("table", err)
		if stepErr := r.record(ctx, name, types.Message{
			Severity: types.SeverityFail,
			Text:     fmt.Sprintf("Failed to produce table in report - %v", err),
		}); stepErr != nil {
			return errors.Join(err, stepErr)
		}
		return fmt.Errorf("failed to produce table: %w", err)
	}
	return r.record(ctx, name, types.Message{Severity: types.SeverityPass, Text: msg, Markup: &tbl})
}

// StepPassedWithLabel records a pass step rendered as a colored label
func (r *Reporter) StepPassedWithLabel(ctx context.Context, label string, color markup.Color) error {
	lbl := markup.Label(label, color)
	return r.record(ctx, r.resolver.Resolve(ctx), types.Message{Severity: types.SeverityPass, Text: label, Markup: &lbl})
}

// StepPassedWithScreenshot records a pass step with an inline screenshot
func (r *Reporter) StepPassedWithScreenshot(ctx context.Context, msg string) error {
	return r.stepWithScreenshot(ctx, types.SeverityPass, msg, true)
}

// StepFailedWithScreenshot records a fail step with an inline screenshot
func (r *Reporter) StepFailedWithScreenshot(ctx context.Context, msg string) error {
	return r.stepWithScreenshot(ctx, types.SeverityFail, msg, false)
}

// StepWarningWithScreenshot records a warning step with an inline screenshot
func (r *Reporter) StepWarningWithScreenshot(ctx context.Context, msg string) error {
	return r.stepWithScreenshot(ctx, types.SeverityWarning, msg, true)
}

// StepSkipWithScreenshot records a skip step with an inline screenshot
func (r *Reporter) StepSkipWithScreenshot(ctx context.Context, msg string) error {
	return r.stepWithScreenshot(ctx, types.SeveritySkip, msg, true)
}

// FinaliseTest appends the completion message to the session entry
func (r *Reporter) FinaliseTest(ctx context.Context) error {
	return r.record(ctx, r.resolver.Fallback(), types.Message{Severity: types.SeverityPass, Text: FinalMessage})
}

// Close flushes and completes every sink. It is safe to call more than once.
func (r *Reporter) Close(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	r.closeOnce.Do(func() {
		r.mu.Lock()
		r.closed.Store(true)
		r.mu.Unlock()
		ctx, span := r.tracer.Start(ctx, "report.close")
		defer span.End()

		var errs []error
		if err := r.flusher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to drain flusher: %w", err))
		}

		entries := r.registry.Snapshots()
		if err := reporting.CompleteAll(ctx, r.sinks, entries); err != nil {
			metrics.RecordErrorDetails("complete", err)
			errs = append(errs, err)
		}
		metrics.RecordRun(r.runID, entries)

		if r.cfg.ShowTable {
			title := fmt.Sprintf("%s (%s)", r.cfg.Settings.Title, r.runID)
			if err := reporting.NewTableReporter(title, true).PrintTable(r.cfg.Console, entries); err != nil {
				r.log.Warn("Failed to print summary table", "err", err)
			}
		}

		stats := reporting.ComputeStats(entries)
		span.SetAttributes(
			attribute.String("run_id", r.runID),
			attribute.Int("entries", stats.Total),
			attribute.Int("failed", stats.Failed),
		)
		r.log.Info("Report Path", "path", r.reportPath, "entries", stats.Total, "failed", stats.Failed)
		r.closeErr = errors.Join(errs...)
	})
	return r.closeErr
}

func (r *Reporter) stepWithCode(ctx context.Context, sev types.Severity, msg, code string, lang markup.Language) error {
	pretty, err := prettyPrint(code, lang)
	if err != nil {
		r.log.Warn(fmt.Sprintf("Failed to make %s input pretty", lang), "err", err)
		metrics.RecordErrorDetails("format", err)
		pretty = code
	}
	block := markup.CodeBlock(pretty, lang)
	return r.record(ctx, r.resolver.Resolve(ctx), types.Message{Severity: sev, Text: msg, Markup: &block})
}

func prettyPrint(code string, lang markup.Language) (string, error) {
	switch lang {
	case markup.LanguageXML:
		return markup.PrettyXML(code, markup.DefaultXMLIndent)
	case markup.LanguageJSON:
		return markup.PrettyJSON(code)
	default:
		return code, nil
	}
}

// stepWithScreenshot never fails because of the capture; the step is kept without the attachment
func (r *Reporter) stepWithScreenshot(ctx context.Context, sev types.Severity, msg string, passed bool) error {
	name := r.resolver.Resolve(ctx)
	step := types.Message{Severity: sev, Text: msg}
	if !r.cfg.ReportingOff {
		path, err := r.screenshots.Capture(ctx, passed)
		metrics.RecordScreenshot(err)
		if err != nil {
			r.log.Warn("Failed capturing screenshot", "test", name, "message", msg, "err", err)
		} else {
			step.Attachment = &types.Attachment{Path: path}
		}
	}
	return r.record(ctx, name, step)
}

func (r *Reporter) fetchOrCreate(name string) (*types.Entry, error) {
	entry, created, err := r.registry.FetchOrCreate(name)
	if err != nil {
		metrics.RecordErrorDetails("entry", err)
		r.log.Error("Error while trying to create report entry", "name", name, "err", err)
		return nil, &EntryError{Name: name, Err: err}
	}
	if created {
		metrics.RecordEntryCreated()
		r.log.Debug("Created test", "name", name)
	}
	return entry, nil
}

// record appends msg to the named entry and brings the sinks up to date.
// Only entry resolution failures are returned; sink failures are logged.
func (r *Reporter) record(ctx context.Context, name string, msg types.Message) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed.Load() {
		return ErrClosed
	}
	if !msg.Severity.IsValid() {
		return fmt.Errorf("invalid severity %q", msg.Severity)
	}
	if msg.Time.IsZero() {
		msg.Time = r.cfg.Clock()
	}

	entry, err := r.fetchOrCreate(name)
	if err != nil {
		return err
	}
	msg = entry.Append(msg)
	metrics.RecordStep(msg.Severity)
	addStepEvent(ctx, entry.Name(), msg)

	for _, sink := range r.sinks {
		if err := sink.Consume(entry.Name(), msg); err != nil {
			metrics.RecordErrorDetails("consume", err)
			r.log.Error("Failed to write step", "sink", fmt.Sprintf("%T", sink), "test", entry.Name(), "err", err)
		}
	}
	if err := r.flusher.Request(); err != nil {
		r.log.Error("Failed to flush report", "test", entry.Name(), "err", err)
	}
	return nil
}

func addStepEvent(ctx context.Context, name string, msg types.Message) {
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("test", name),
		attribute.String("severity", string(msg.Severity)),
		attribute.Int("seq", msg.Seq),
		attribute.String("message", msg.Text),
	}
	if msg.Attachment != nil {
		attrs = append(attrs, attribute.String("attachment", msg.Attachment.Path))
	}
	span.AddEvent("report.step", trace.WithAttributes(attrs...), trace.WithTimestamp(msg.Time))
}
