package listener

import (
	"context"
	"fmt"
	"testing"

	"github.com/ethereum-optimism/infra/op-reporter/resolver"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Watch records t's terminal event when it finishes and returns a context
// that routes reporting calls from the test body to t's entry.
// testing.TB does not expose failure messages, so a failed test is reported
// with the cause passed to SetCause, or a generic one naming the test.
func (l *Listener) Watch(t testing.TB) context.Context {
	t.Helper()
	ec := types.ExecutionContext{
		TestName:    t.Name(),
		UniqueID:    t.Name(),
		DisplayName: t.Name(),
	}

	base := context.Background()
	if tc, ok := t.(interface{ Context() context.Context }); ok {
		base = tc.Context()
	}

	t.Cleanup(func() {
		// the test context is already cancelled when cleanups run
		ctx := context.WithoutCancel(base)
		switch {
		case t.Skipped():
			l.OnSkip(ctx, ec, "")
		case t.Failed():
			l.OnFailure(ctx, ec, l.takeCause(t.Name()))
		default:
			l.OnSuccess(ctx, ec)
		}
	})
	return resolver.WithTest(base, ec.EntryName())
}

// SetCause records why a watched test failed. The last cause set before the
// test finishes is used.
func (l *Listener) SetCause(t testing.TB, cause error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.causes[t.Name()] = cause
}

func (l *Listener) takeCause(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cause, ok := l.causes[name]
	delete(l.causes, name)
	if !ok || cause == nil {
		return fmt.Errorf("%s reported failure", name)
	}
	return cause
}
