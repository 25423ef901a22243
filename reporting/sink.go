package reporting

import (
	"context"
	"fmt"

	"github.com/sourcegraph/conc/pool"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Sink is an interface for the different report artifacts
type Sink interface {
	// Consume processes a single step as soon as it is recorded
	Consume(entry string, msg types.Message) error
	// Flush brings the artifact up to date with the given entries
	Flush(entries []types.EntrySnapshot) error
	// Complete is called once when the run is closed
	Complete(entries []types.EntrySnapshot) error
}

// CompleteAll completes every sink concurrently and returns the joined errors
func CompleteAll(ctx context.Context, sinks []Sink, entries []types.EntrySnapshot) error {
	p := pool.New().WithErrors().WithContext(ctx)
	for _, sink := range sinks {
		sink := sink
		p.Go(func(ctx context.Context) error {
			if err := sink.Complete(entries); err != nil {
				return fmt.Errorf("error completing sink %T: %w", sink, err)
			}
			return nil
		})
	}
	return p.Wait()
}
