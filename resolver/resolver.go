// Package resolver decides which report entry a reporting call belongs to.
//
// Callers should carry the test name explicitly with WithTest. When no name
// is carried, concurrent mode inspects the calling goroutine's frames for a
// test entry point before falling back to the fixed session name.
package resolver

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
)

// DefaultFallback is used when a resolver is built without a session name
const DefaultFallback = "UnnamedTest"

// testRunnerFunc is the frame that invokes every top-level test and subtest
const testRunnerFunc = "testing.tRunner"

const maxFrames = 4096

// Mode selects how the current test is determined
type Mode int

const (
	// Sequential always resolves to the fixed session name
	Sequential Mode = iota
	// Concurrent resolves per call from the context or the goroutine's frames
	Concurrent
)

func (m Mode) String() string {
	switch m {
	case Sequential:
		return "sequential"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode parses "sequential" or "concurrent"
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sequential":
		return Sequential, nil
	case "concurrent":
		return Concurrent, nil
	default:
		return Sequential, fmt.Errorf("invalid resolver mode %q, must be one of: sequential, concurrent", value)
	}
}

type testKey struct{}

// WithTest returns a context carrying the name of the test it belongs to
func WithTest(ctx context.Context, name string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, testKey{}, name)
}

// TestFromContext returns the test name carried by ctx, if any
func TestFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	name, ok := ctx.Value(testKey{}).(string)
	return name, ok && name != ""
}

// Resolver maps an ambiguous call site to an entry name
type Resolver struct {
	mode     Mode
	fallback atomic.Pointer[string]
	frames   func() []runtime.Frame
}

// New creates a resolver. The fallback name is what sequential mode always
// returns and what concurrent mode returns when nothing better is found.
func New(mode Mode, fallback string) *Resolver {
	r := &Resolver{
		mode:   mode,
		frames: callerFrames,
	}
	r.SetFallback(fallback)
	return r
}

// Mode returns the resolution mode
func (r *Resolver) Mode() Mode {
	return r.mode
}

// SetFallback replaces the fixed session name. Empty names are ignored.
func (r *Resolver) SetFallback(name string) {
	if name == "" {
		if r.fallback.Load() != nil {
			return
		}
		name = DefaultFallback
	}
	r.fallback.Store(&name)
}

// Fallback returns the fixed session name
func (r *Resolver) Fallback() string {
	if p := r.fallback.Load(); p != nil {
		return *p
	}
	return DefaultFallback
}

// Resolve returns the name of the entry the caller is reporting against.
// It never returns an empty string.
func (r *Resolver) Resolve(ctx context.Context) string {
	if r.mode == Sequential {
		return r.Fallback()
	}
	if name, ok := TestFromContext(ctx); ok {
		return name
	}
	if name, ok := testEntryPoint(r.frames()); ok {
		return name
	}
	return r.Fallback()
}

// callerFrames returns the calling goroutine's frames, innermost first
func callerFrames() []runtime.Frame {
	pcs := make([]uintptr, 64)
	for {
		n := runtime.Callers(2, pcs)
		if n < len(pcs) || len(pcs) >= maxFrames {
			pcs = pcs[:n]
			break
		}
		pcs = make([]uintptr, len(pcs)*2)
	}

	frames := runtime.CallersFrames(pcs)
	out := make([]runtime.Frame, 0, len(pcs))
	for {
		frame, more := frames.Next()
		out = append(out, frame)
		if !more {
			break
		}
	}
	return out
}

// testEntryPoint walks the frames from the outermost inward and returns the
// first function invoked directly by the test runner. Frames that cannot be
// interpreted are skipped.
func testEntryPoint(frames []runtime.Frame) (string, bool) {
	for i := len(frames) - 1; i > 0; i-- {
		if frames[i].Function != testRunnerFunc {
			continue
		}
		if name, ok := testFuncName(frames[i-1].Function); ok {
			return name, true
		}
	}
	return "", false
}

// testFuncName extracts the test function from a fully qualified symbol, e.g.
// "github.com/acme/shop_test.TestLogin.func1" -> "TestLogin" and
// "github.com/acme/shop.(*LoginSuite).TestLogin" -> "TestLogin".
// The last import path element may itself contain dots ("acme/shop.v2"),
// so every dot after it is tried as the package separator.
func testFuncName(symbol string) (string, bool) {
	if idx := strings.LastIndex(symbol, "/"); idx >= 0 {
		symbol = symbol[idx+1:]
	}
	for {
		dot := strings.Index(symbol, ".")
		if dot < 0 || dot == len(symbol)-1 {
			return "", false
		}
		symbol = symbol[dot+1:]
		if name, ok := memberName(symbol); ok {
			return name, true
		}
	}
}

// memberName parses "TestLogin.func1" or "(*LoginSuite).TestLogin"
func memberName(rest string) (string, bool) {
	if strings.HasPrefix(rest, "(") {
		end := strings.Index(rest, ").")
		if end < 0 {
			return "", false
		}
		rest = rest[end+2:]
	}
	if idx := strings.IndexAny(rest, ".["); idx >= 0 {
		rest = rest[:idx]
	}
	if rest == "" || !isExported(rest) {
		return "", false
	}
	return rest, true
}

func isExported(name string) bool {
	c := name[0]
	return c >= 'A' && c <= 'Z'
}
