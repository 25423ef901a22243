package reporting

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-reporter/metrics"
	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// SnapshotFunc returns the current state of every entry in creation order
type SnapshotFunc func() []types.EntrySnapshot

// Flusher keeps sinks up to date with the registry.
// In synchronous mode every Request flushes before returning so a crash never
// loses recorded steps. In async mode requests are coalesced on a background
// goroutine and drained on Close.
type Flusher struct {
	sinks     []Sink
	snapshots SnapshotFunc
	log       log.Logger
	async     bool

	mu      sync.Mutex // serialises flushes
	pending chan struct{}
	wg      sync.WaitGroup

	stateMu sync.Mutex
	stopped bool
	lastErr error
}

// NewFlusher creates a flusher; async starts the background goroutine
func NewFlusher(sinks []Sink, snapshots SnapshotFunc, async bool, logger log.Logger) *Flusher {
	if logger == nil {
		logger = log.Root()
	}
	f := &Flusher{
		sinks:     sinks,
		snapshots: snapshots,
		log:       logger,
		async:     async,
	}
	if async {
		f.pending = make(chan struct{}, 1)
		f.wg.Add(1)
		go f.processQueue()
	}
	return f
}

// Async reports whether flushes happen on the background goroutine
func (f *Flusher) Async() bool {
	return f.async
}

// Request asks for the sinks to be brought up to date
func (f *Flusher) Request() error {
	if !f.async {
		return f.flush()
	}

	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	if f.stopped {
		return fmt.Errorf("flusher is closed")
	}
	select {
	case f.pending <- struct{}{}:
	default:
		// a flush is already queued and will observe this state
	}
	return nil
}

// Err returns the most recent background flush error
func (f *Flusher) Err() error {
	f.stateMu.Lock()
	defer f.stateMu.Unlock()
	return f.lastErr
}

// Close stops the background goroutine after draining queued flushes
func (f *Flusher) Close() error {
	if !f.async {
		return nil
	}
	f.stateMu.Lock()
	if !f.stopped {
		f.stopped = true
		close(f.pending)
	}
	f.stateMu.Unlock()

	f.wg.Wait()
	return f.Err()
}

func (f *Flusher) processQueue() {
	defer f.wg.Done()

	for range f.pending {
		if err := f.flush(); err != nil {
			f.log.Error("Background flush failed", "err", err)
			f.stateMu.Lock()
			f.lastErr = err
			f.stateMu.Unlock()
		}
	}
}

func (f *Flusher) flush() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	entries := f.snapshots()
	var errs []error
	for _, sink := range f.sinks {
		if err := sink.Flush(entries); err != nil {
			metrics.RecordErrorDetails("flush", err)
			errs = append(errs, fmt.Errorf("error flushing sink %T: %w", sink, err))
		}
	}
	metrics.RecordFlush(time.Since(start))

	return errors.Join(errs...)
}
