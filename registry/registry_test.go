package registry

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return NewRegistry(Config{Log: log.NewLogger(log.DiscardHandler())})
}

func TestFetchOrCreate_SameInstance(t *testing.T) {
	reg := newTestRegistry()

	first, created, err := reg.FetchOrCreate("X")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := reg.FetchOrCreate("X")
	require.NoError(t, err)
	assert.False(t, created)

	assert.Same(t, first, second)
	assert.Equal(t, 1, reg.Len())
}

func TestFetchOrCreate_EmptyName(t *testing.T) {
	reg := newTestRegistry()
	_, _, err := reg.FetchOrCreate("")
	assert.ErrorIs(t, err, ErrEmptyName)
	assert.Equal(t, 0, reg.Len())
}

func TestFetchOrCreate_DistinctNamesInOrder(t *testing.T) {
	reg := newTestRegistry()

	calls := []string{"b", "a", "b", "c", "a", "a", "d"}
	for _, name := range calls {
		_, _, err := reg.FetchOrCreate(name)
		require.NoError(t, err)
	}

	var names []string
	for _, e := range reg.Entries() {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, names)
}

func TestFetchOrCreate_RandomSequencesAreUnique(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 20; round++ {
		reg := newTestRegistry()
		distinct := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			name := fmt.Sprintf("test-%d", rng.Intn(15))
			distinct[name] = struct{}{}
			_, _, err := reg.FetchOrCreate(name)
			require.NoError(t, err)
		}

		seen := make(map[string]int)
		for _, e := range reg.Entries() {
			seen[e.Name()]++
		}
		assert.Len(t, seen, len(distinct))
		for name, count := range seen {
			assert.Equal(t, 1, count, "entry %s created more than once", name)
		}
	}
}

func TestFetchOrCreate_ConcurrentRace(t *testing.T) {
	reg := newTestRegistry()

	const goroutines = 32
	results := make([]*types.Entry, goroutines)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			entry, _, err := reg.FetchOrCreate("shared")
			assert.NoError(t, err)
			results[i] = entry
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, reg.Len())
	for _, e := range results {
		assert.Same(t, results[0], e)
	}
}

func TestSinglePassMessage(t *testing.T) {
	reg := newTestRegistry()

	entry, _, err := reg.FetchOrCreate("LoginTest")
	require.NoError(t, err)
	entry.Append(types.Message{Severity: types.SeverityPass, Text: "Step 1 complete"})

	snaps := reg.Snapshots()
	require.Len(t, snaps, 1)
	assert.Equal(t, "LoginTest", snaps[0].Name)
	require.Len(t, snaps[0].Messages, 1)
	assert.Equal(t, types.SeverityPass, snaps[0].Messages[0].Severity)
	assert.Equal(t, "Step 1 complete", snaps[0].Messages[0].Text)
}

func TestGetAndClock(t *testing.T) {
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := NewRegistry(Config{
		Log:   log.NewLogger(log.DiscardHandler()),
		Clock: func() time.Time { return fixed },
	})

	_, ok := reg.Get("missing")
	assert.False(t, ok)

	_, _, err := reg.FetchOrCreate("present")
	require.NoError(t, err)

	entry, ok := reg.Get("present")
	require.True(t, ok)
	assert.Equal(t, fixed, entry.Created())
}
