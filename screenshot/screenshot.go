package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync/atomic"
	"time"
)

const (
	// DirName is the report subdirectory holding captured images
	DirName = "Screenshots"

	DefaultTimeout = 30 * time.Second
)

// ErrNoDriver is returned when a capture is requested without a driver
var ErrNoDriver = errors.New("no screenshot driver configured")

// Driver captures the current browser viewport as PNG bytes
type Driver interface {
	CaptureScreenshot(ctx context.Context) ([]byte, error)
}

// DriverFunc adapts a function to the Driver interface
type DriverFunc func(ctx context.Context) ([]byte, error)

func (f DriverFunc) CaptureScreenshot(ctx context.Context) ([]byte, error) {
	return f(ctx)
}

// Store writes numbered screenshots into a report directory
type Store struct {
	reportDir string
	driver    Driver
	timeout   time.Duration
	counter   atomic.Int64
}

// NewStore creates a store for the given report directory
func NewStore(reportDir string, driver Driver, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{
		reportDir: reportDir,
		driver:    driver,
		timeout:   timeout,
	}
}

// Count returns how many captures have been attempted
func (s *Store) Count() int64 {
	return s.counter.Load()
}

// FileName returns the image name for a capture number, e.g. "3_FAILED.png"
func FileName(n int64, passed bool) string {
	state := "FAILED"
	if passed {
		state = "PASSED"
	}
	return fmt.Sprintf("%d_%s.png", n, state)
}

// Capture grabs a screenshot and returns its path relative to the report
// directory. The counter advances even when the capture fails so numbering
// follows step order.
func (s *Store) Capture(ctx context.Context, passed bool) (string, error) {
	n := s.counter.Add(1)
	if s.driver == nil {
		return "", ErrNoDriver
	}

	dir := filepath.Join(s.reportDir, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot directory %s: %w", dir, err)
	}

	data, err := s.capture(ctx)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("driver returned an empty screenshot")
	}

	name := FileName(n, passed)
	if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
		return "", fmt.Errorf("failed to write screenshot %s: %w", name, err)
	}
	return "./" + path.Join(DirName, name), nil
}

// capture runs the driver with a deadline. Drivers that ignore the context
// are abandoned once the deadline passes.
func (s *Store) capture(ctx context.Context) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := s.driver.CaptureScreenshot(ctx)
		done <- result{data: data, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("failed to capture screenshot: %w", r.err)
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("screenshot capture timed out: %w", ctx.Err())
	}
}
