package listener

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Actions emitted by test2json.
// See https://cs.opensource.google/go/go/+/master:src/cmd/test2json/main.go;l=34-60
const (
	ActionStart  = "start"
	ActionRun    = "run"
	ActionPass   = "pass"
	ActionFail   = "fail"
	ActionSkip   = "skip"
	ActionOutput = "output"
)

const maxEventLineSize = 16 * 1024 * 1024

// TestEvent is a single line of `go test -json` output
type TestEvent struct {
	Time    time.Time // Time the event occurred
	Action  string    // The action taken (run, pause, cont, pass, fail, skip, output)
	Package string    // The package being tested
	Test    string    // The test function name (may be empty for package events)
	Output  string    // Output text (may be empty)
	Elapsed float64   // Elapsed time in seconds for the specific action
}

// EventSummary counts the terminal events seen in a stream
type EventSummary struct {
	Passed  int
	Failed  int
	Skipped int
	// Malformed counts lines that were not test2json events
	Malformed int
}

// Total returns the number of tests with a terminal event
func (s EventSummary) Total() int {
	return s.Passed + s.Failed + s.Skipped
}

type testKey struct {
	pkg  string
	test string
}

// ConsumeEvents reads a test2json stream and records the terminal event of
// every test. Failure causes are taken from the test's own output.
func (l *Listener) ConsumeEvents(ctx context.Context, r io.Reader) (EventSummary, error) {
	var summary EventSummary
	outputs := make(map[testKey]*strings.Builder)
	pkgHasTests := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		event, err := parseTestEvent(line)
		if err != nil {
			summary.Malformed++
			continue
		}

		key := testKey{pkg: event.Package, test: event.Test}
		if event.Test != "" {
			pkgHasTests[event.Package] = true
		}

		switch event.Action {
		case ActionOutput:
			if isFrameworkOutput(event.Output) {
				continue
			}
			b, ok := outputs[key]
			if !ok {
				b = &strings.Builder{}
				outputs[key] = b
			}
			b.WriteString(event.Output)
		case ActionPass, ActionFail, ActionSkip:
			if event.Test == "" && (event.Action != ActionFail || pkgHasTests[event.Package]) {
				// package results only matter when no test could run, e.g. a build failure
				continue
			}
			l.terminal(ctx, event, outputs[key], &summary)
			delete(outputs, key)
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("failed to read test events: %w", err)
	}
	return summary, nil
}

func (l *Listener) terminal(ctx context.Context, event TestEvent, output *strings.Builder, summary *EventSummary) {
	ec := eventContext(event)
	var text string
	if output != nil {
		text = strings.TrimSpace(output.String())
	}

	switch event.Action {
	case ActionPass:
		if l.OnSuccess(ctx, ec) {
			summary.Passed++
		}
	case ActionFail:
		cause := errors.New("test failed")
		if text != "" {
			cause = errors.New(text)
		}
		if l.OnFailure(ctx, ec, cause) {
			summary.Failed++
		}
	case ActionSkip:
		if l.OnSkip(ctx, ec, text) {
			summary.Skipped++
		}
	}
}

func eventContext(event TestEvent) types.ExecutionContext {
	// same-named tests in different packages are different entries
	name := event.Test
	if name == "" {
		name = event.Package
	} else if event.Package != "" {
		name = event.Package + "/" + event.Test
	}
	return types.ExecutionContext{
		TestName:    name,
		UniqueID:    name,
		DisplayName: name,
	}
}

func parseTestEvent(line []byte) (TestEvent, error) {
	var event TestEvent
	if err := json.Unmarshal(line, &event); err != nil {
		return event, err
	}
	if event.Action == "" {
		return event, fmt.Errorf("missing action")
	}
	return event, nil
}

// isFrameworkOutput reports lines emitted by the testing package itself
func isFrameworkOutput(output string) bool {
	trimmed := strings.TrimSpace(output)
	for _, prefix := range []string{"=== RUN", "=== PAUSE", "=== CONT", "=== NAME", "--- PASS", "--- FAIL", "--- SKIP"} {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	switch trimmed {
	case "PASS", "FAIL":
		return true
	}
	return strings.HasPrefix(trimmed, "ok ") || strings.HasPrefix(trimmed, "ok\t") || strings.HasPrefix(trimmed, "FAIL\t")
}
