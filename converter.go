package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-reporter/listener"
)

// StdinInput selects standard input as the event source
const StdinInput = "-"

// Converter implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &Converter{}

// Converter turns a `go test -json` stream into a report and exits
type Converter struct {
	config *Config
	input  string
	stdin  io.Reader

	session *Reporter
	summary listener.EventSummary

	running   atomic.Bool
	stopOnce  sync.Once
	stopHooks []func()

	shutdownCallback func(error) // Callback to signal application shutdown
}

// NewConverter creates a converter reading from input, "-" meaning stdin
func NewConverter(config *Config, input string, stdin io.Reader, shutdownCallback func(error)) (*Converter, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if input == "" {
		input = StdinInput
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	if shutdownCallback == nil {
		shutdownCallback = func(error) {}
	}
	return &Converter{
		config:           config,
		input:            input,
		stdin:            stdin,
		shutdownCallback: shutdownCallback,
	}, nil
}

// OnStop registers a function run once when the converter stops
func (c *Converter) OnStop(fn func()) {
	c.stopHooks = append(c.stopHooks, fn)
}

// Start converts the whole stream, then signals shutdown.
// Start implements the cliapp.Lifecycle interface.
func (c *Converter) Start(ctx context.Context) error {
	c.running.Store(true)

	if err := c.convert(ctx); err != nil {
		c.config.Log.Error("Conversion failed", "err", err)
		return err
	}

	stats := c.session.Stats()
	c.config.Log.Info("Conversion completed",
		"tests", c.summary.Total(),
		"passed", c.summary.Passed,
		"failed", c.summary.Failed,
		"skipped", c.summary.Skipped,
		"malformed_lines", c.summary.Malformed,
		"report", c.session.ReportPath())
	if err := c.session.OpenReport(c.config.OpenReport); err != nil {
		c.config.Log.Warn("Failed to open report", "err", err)
	}

	if stats.HasFailures() {
		c.config.Log.Warn("Reported run has failures, returning exit code 1")
		return NewTestFailureError(fmt.Sprintf("%d of %d tests failed", stats.Failed, stats.Total))
	}

	go func() {
		c.shutdownCallback(nil)
	}()
	return nil
}

func (c *Converter) convert(ctx context.Context) error {
	r, closeInput, err := c.openInput()
	if err != nil {
		return NewRuntimeError(err)
	}
	defer closeInput()

	session, err := New(c.config)
	if err != nil {
		return NewRuntimeError(fmt.Errorf("failed to create reporting session: %w", err))
	}
	c.session = session

	l := listener.New(session, c.config.Log)
	summary, consumeErr := l.ConsumeEvents(ctx, r)
	c.summary = summary

	closeErr := session.Close(ctx)
	if consumeErr != nil {
		return NewRuntimeError(consumeErr)
	}
	if closeErr != nil {
		return NewRuntimeError(fmt.Errorf("failed to write report: %w", closeErr))
	}
	return nil
}

func (c *Converter) openInput() (io.Reader, func(), error) {
	if c.input == StdinInput {
		return c.stdin, func() {}, nil
	}
	f, err := os.Open(c.input)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input %s: %w", c.input, err)
	}
	return f, func() { _ = f.Close() }, nil
}

// Session returns the reporting session once Start has created it
func (c *Converter) Session() *Reporter {
	return c.session
}

// Summary returns the terminal events seen in the stream
func (c *Converter) Summary() listener.EventSummary {
	return c.summary
}

// Stop runs the stop hooks.
// Stop implements the cliapp.Lifecycle interface.
func (c *Converter) Stop(ctx context.Context) error {
	c.stopOnce.Do(func() {
		c.config.Log.Info("Stopping op-reporter")
		for _, fn := range c.stopHooks {
			fn()
		}
		c.running.Store(false)
	})
	return nil
}

// Stopped returns true if the converter is stopped.
// Stopped implements the cliapp.Lifecycle interface.
func (c *Converter) Stopped() bool {
	return !c.running.Load()
}
