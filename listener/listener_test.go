package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/resolver"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

type recordedStep struct {
	Test     string
	Severity types.Severity
	Text     string
}

type fakeRecorder struct {
	mu    sync.Mutex
	steps []recordedStep
	err   error
}

func (r *fakeRecorder) StepFor(ctx context.Context, name string, sev types.Severity, msg string) error {
	if ctxName, ok := resolver.TestFromContext(ctx); ok && ctxName != name {
		return fmt.Errorf("context names %q, step names %q", ctxName, name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.steps = append(r.steps, recordedStep{Test: name, Severity: sev, Text: msg})
	return r.err
}

func (r *fakeRecorder) recorded() []recordedStep {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]recordedStep, len(r.steps))
	copy(out, r.steps)
	return out
}

func newTestListener() (*Listener, *fakeRecorder) {
	rec := &fakeRecorder{}
	return New(rec, log.NewLogger(log.DiscardHandler())), rec
}

func TestOnSuccess(t *testing.T) {
	l, rec := newTestListener()
	ec := types.ExecutionContext{TestName: "TestLogin", UniqueID: "pkg/TestLogin"}

	assert.True(t, l.OnSuccess(context.Background(), ec))
	assert.Equal(t, []recordedStep{
		{Test: "TestLogin", Severity: types.SeverityPass, Text: "Test Complete"},
	}, rec.recorded())
}

func TestOnFailure(t *testing.T) {
	l, rec := newTestListener()
	ec := types.ExecutionContext{TestName: "TestLogin", UniqueID: "pkg/TestLogin"}

	assert.True(t, l.OnFailure(context.Background(), ec, errors.New("NullPointerException: foo")))

	steps := rec.recorded()
	require.Len(t, steps, 2)
	assert.Equal(t, recordedStep{Test: "TestLogin", Severity: types.SeverityFail, Text: "Test Fail [Name] - pkg/TestLogin"}, steps[0])
	assert.Equal(t, types.SeverityFail, steps[1].Severity)
	assert.Contains(t, steps[1].Text, "NullPointerException: foo")
	assert.Equal(t, "Test Fail [Cause] - NullPointerException: foo", steps[1].Text)
}

func TestOnFailureNilCause(t *testing.T) {
	l, rec := newTestListener()
	l.OnFailure(context.Background(), types.ExecutionContext{TestName: "TestX"}, nil)

	steps := rec.recorded()
	require.Len(t, steps, 2)
	assert.Equal(t, "Test Fail [Cause] - unknown failure", steps[1].Text)
}

func TestOnSkip(t *testing.T) {
	l, rec := newTestListener()
	l.OnSkip(context.Background(), types.ExecutionContext{TestName: "TestA"}, "needs network")
	l.OnSkip(context.Background(), types.ExecutionContext{TestName: "TestB"}, "")

	assert.Equal(t, []recordedStep{
		{Test: "TestA", Severity: types.SeveritySkip, Text: "Test Skipped - needs network"},
		{Test: "TestB", Severity: types.SeveritySkip, Text: "Test Skipped - TestB"},
	}, rec.recorded())
}

func TestTerminalEventConsumedOnce(t *testing.T) {
	l, rec := newTestListener()
	ec := types.ExecutionContext{TestName: "TestOnce", UniqueID: "pkg/TestOnce"}

	assert.True(t, l.OnSuccess(context.Background(), ec))
	assert.False(t, l.OnSuccess(context.Background(), ec))
	assert.False(t, l.OnFailure(context.Background(), ec, errors.New("late")))
	assert.False(t, l.OnSkip(context.Background(), ec, ""))

	assert.Len(t, rec.recorded(), 1)
	assert.Equal(t, 1, l.Completed())
}

func TestConcurrentTerminalEvents(t *testing.T) {
	l, rec := newTestListener()
	ec := types.ExecutionContext{TestName: "TestRace"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				l.OnSuccess(context.Background(), ec)
			} else {
				l.OnFailure(context.Background(), ec, errors.New("boom"))
			}
		}(i)
	}
	wg.Wait()

	steps := rec.recorded()
	// either one pass step or the two failure steps
	assert.True(t, len(steps) == 1 || len(steps) == 2, "got %d steps", len(steps))
	assert.Equal(t, 1, l.Completed())
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	rec := &fakeRecorder{err: errors.New("disk full")}
	l := New(rec, log.NewLogger(log.DiscardHandler()))

	assert.NotPanics(t, func() {
		assert.True(t, l.OnFailure(context.Background(), types.ExecutionContext{TestName: "TestDisk"}, errors.New("x")))
	})
	assert.Len(t, rec.recorded(), 2, "the second step is still attempted")
}

func TestDisplayNameIsSanitized(t *testing.T) {
	l, rec := newTestListener()
	l.OnSuccess(context.Background(), types.ExecutionContext{DisplayName: "login(user)"})

	steps := rec.recorded()
	require.Len(t, steps, 1)
	assert.Equal(t, "loginuser", steps[0].Test)
}

func TestWatch(t *testing.T) {
	l, rec := newTestListener()

	t.Run("Passing", func(t *testing.T) {
		ctx := l.Watch(t)
		name, ok := resolver.TestFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, t.Name(), name)
	})
	t.Run("Skipped", func(t *testing.T) {
		l.Watch(t)
		t.Skip("not today")
	})

	assert.Equal(t, []recordedStep{
		{Test: "TestWatch/Passing", Severity: types.SeverityPass, Text: SuccessMessage},
		{Test: "TestWatch/Skipped", Severity: types.SeveritySkip, Text: "Test Skipped - TestWatch/Skipped"},
	}, rec.recorded())
}

// scriptedTB reports a fixed outcome and runs cleanups on demand
type scriptedTB struct {
	testing.TB
	name     string
	failed   bool
	cleanups []func()
}

func (s *scriptedTB) Name() string      { return s.name }
func (s *scriptedTB) Helper()           {}
func (s *scriptedTB) Failed() bool      { return s.failed }
func (s *scriptedTB) Skipped() bool     { return false }
func (s *scriptedTB) Cleanup(fn func()) { s.cleanups = append(s.cleanups, fn) }

func (s *scriptedTB) finish() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
}

func TestWatchFailureCause(t *testing.T) {
	tests := []struct {
		name  string
		cause error
		want  string
	}{
		{name: "with cause", cause: errors.New("card declined"), want: "Test Fail [Cause] - card declined"},
		{name: "without cause", want: "Test Fail [Cause] - TestPay reported failure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, rec := newTestListener()
			tb := &scriptedTB{TB: t, name: "TestPay", failed: true}

			l.Watch(tb)
			if tt.cause != nil {
				l.SetCause(tb, tt.cause)
			}
			tb.finish()

			steps := rec.recorded()
			require.Len(t, steps, 2)
			assert.Equal(t, "Test Fail [Name] - TestPay", steps[0].Text)
			assert.Equal(t, tt.want, steps[1].Text)
		})
	}
}
