// Package listener turns test lifecycle events into report steps.
package listener

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/resolver"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

const (
	// SuccessMessage is recorded when a test completes successfully
	SuccessMessage = "Test Complete"
	// FailureNameFormat names the failing test
	FailureNameFormat = "Test Fail [Name] - %s"
	// FailureCauseFormat describes why the test failed
	FailureCauseFormat = "Test Fail [Cause] - %s"
	// SkipFormat is recorded for skipped tests
	SkipFormat = "Test Skipped - %s"
)

// Recorder is the part of a reporting session the listener writes to.
// Steps are recorded against the named entry whatever the session's
// resolver mode is.
type Recorder interface {
	StepFor(ctx context.Context, name string, sev types.Severity, msg string) error
}

// Listener records the terminal event of every test exactly once
type Listener struct {
	recorder Recorder
	log      log.Logger

	mu     sync.Mutex
	done   map[string]struct{}
	causes map[string]error
}

// New creates a listener writing to recorder
func New(recorder Recorder, logger log.Logger) *Listener {
	if logger == nil {
		logger = log.Root()
	}
	return &Listener{
		recorder: recorder,
		log:      logger,
		done:     make(map[string]struct{}),
		causes:   make(map[string]error),
	}
}

// OnSuccess records a passed test. It reports false if the test already had
// its terminal event.
func (l *Listener) OnSuccess(ctx context.Context, ec types.ExecutionContext) bool {
	if !l.claim(ec) {
		return false
	}
	ctx = l.testContext(ctx, ec)
	l.record(ctx, ec, types.SeverityPass, SuccessMessage)
	return true
}

// OnFailure records a failed test with its identifier and cause
func (l *Listener) OnFailure(ctx context.Context, ec types.ExecutionContext, cause error) bool {
	if !l.claim(ec) {
		return false
	}
	ctx = l.testContext(ctx, ec)
	l.record(ctx, ec, types.SeverityFail, fmt.Sprintf(FailureNameFormat, ec.Identifier()))
	l.record(ctx, ec, types.SeverityFail, fmt.Sprintf(FailureCauseFormat, describeCause(cause)))
	return true
}

// OnSkip records a skipped test
func (l *Listener) OnSkip(ctx context.Context, ec types.ExecutionContext, reason string) bool {
	if !l.claim(ec) {
		return false
	}
	if reason == "" {
		reason = ec.Identifier()
	}
	ctx = l.testContext(ctx, ec)
	l.record(ctx, ec, types.SeveritySkip, fmt.Sprintf(SkipFormat, reason))
	return true
}

// Completed returns how many tests have had their terminal event recorded
func (l *Listener) Completed() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.done)
}

func (l *Listener) claim(ec types.ExecutionContext) bool {
	id := ec.Identifier()
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.done[id]; ok {
		l.log.Debug("Ignoring repeated terminal event", "test", id)
		return false
	}
	l.done[id] = struct{}{}
	return true
}

func (l *Listener) testContext(ctx context.Context, ec types.ExecutionContext) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if name := ec.EntryName(); name != "" {
		ctx = resolver.WithTest(ctx, name)
	}
	return ctx
}

// record never fails the caller; reporting problems must not affect the test outcome
func (l *Listener) record(ctx context.Context, ec types.ExecutionContext, sev types.Severity, msg string) {
	if err := l.recorder.StepFor(ctx, ec.EntryName(), sev, msg); err != nil {
		l.log.Error("Failed to record lifecycle step", "test", ec.Identifier(), "severity", sev, "err", err)
	}
}

func describeCause(cause error) string {
	if cause == nil {
		return "unknown failure"
	}
	return cause.Error()
}
