package reporter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/registry"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name        string
		err         error
		entry       bool
		runtime     bool
		testFailure bool
	}{
		{name: "nil", err: nil},
		{name: "plain", err: cause},
		{name: "entry", err: &EntryError{Name: "loginTest", Err: registry.ErrEmptyName}, entry: true},
		{name: "runtime", err: NewRuntimeError(cause), runtime: true},
		{name: "wrapped runtime", err: fmt.Errorf("start: %w", NewRuntimeError(cause)), runtime: true},
		{name: "test failure", err: NewTestFailureError("1 of 2 tests failed"), testFailure: true},
		{name: "wrapped test failure", err: fmt.Errorf("run: %w", NewTestFailureError("x")), testFailure: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.entry, IsEntryError(tt.err))
			assert.Equal(t, tt.runtime, IsRuntimeError(tt.err))
			assert.Equal(t, tt.testFailure, IsTestFailureError(tt.err))
		})
	}
}

func TestErrorUnwrap(t *testing.T) {
	entryErr := &EntryError{Name: "loginTest", Err: registry.ErrEmptyName}
	require.ErrorIs(t, entryErr, registry.ErrEmptyName)
	assert.Contains(t, entryErr.Error(), `"loginTest"`)

	cause := errors.New("boom")
	runtimeErr := NewRuntimeError(cause)
	require.ErrorIs(t, runtimeErr, cause)
	assert.Equal(t, "runtime error: boom", runtimeErr.Error())

	assert.Equal(t, "test failure: 2 failed", NewTestFailureError("2 failed").Error())
}
