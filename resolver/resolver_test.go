package resolver

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialAlwaysReturnsFallback(t *testing.T) {
	r := New(Sequential, "LoginSuite")

	assert.Equal(t, "LoginSuite", r.Resolve(context.Background()))
	assert.Equal(t, "LoginSuite", r.Resolve(WithTest(context.Background(), "Other")))
	assert.Equal(t, Sequential, r.Mode())
}

func TestConcurrentPrefersContextToken(t *testing.T) {
	r := New(Concurrent, "Suite")
	ctx := WithTest(context.Background(), "TestCheckout")
	assert.Equal(t, "TestCheckout", r.Resolve(ctx))
}

func TestConcurrentResolvesFromStack(t *testing.T) {
	r := New(Concurrent, "Suite")
	assert.Equal(t, "TestConcurrentResolvesFromStack", r.Resolve(context.Background()))
}

func TestConcurrentResolvesFromSubtestClosure(t *testing.T) {
	r := New(Concurrent, "Suite")
	t.Run("nested", func(t *testing.T) {
		assert.Equal(t, "TestConcurrentResolvesFromSubtestClosure", r.Resolve(context.Background()))
	})
}

func TestConcurrentFallbackOutsideTestFrames(t *testing.T) {
	r := New(Concurrent, "Suite")

	done := make(chan string)
	go func() {
		done <- r.Resolve(context.Background())
	}()
	assert.Equal(t, "Suite", <-done)
}

func TestConcurrentFallbackWhenFramesUnusable(t *testing.T) {
	r := New(Concurrent, "Suite")
	r.frames = func() []runtime.Frame {
		return []runtime.Frame{
			{Function: ""},
			{Function: "main.helper"},
			{Function: testRunnerFunc},
		}
	}
	assert.Equal(t, "Suite", r.Resolve(context.Background()))
}

func TestNeverEmpty(t *testing.T) {
	r := New(Concurrent, "")
	assert.Equal(t, DefaultFallback, r.Fallback())

	r.frames = func() []runtime.Frame { return nil }
	assert.NotEmpty(t, r.Resolve(context.Background()))

	r.SetFallback("Named")
	r.SetFallback("")
	assert.Equal(t, "Named", r.Fallback())
}

func TestTestEntryPointOutermostFirst(t *testing.T) {
	frames := []runtime.Frame{
		{Function: "github.com/acme/shop.helper"},
		{Function: "github.com/acme/shop_test.TestInner"},
		{Function: testRunnerFunc},
		{Function: "github.com/acme/shop_test.TestOuter"},
		{Function: testRunnerFunc},
		{Function: "runtime.goexit"},
	}
	name, ok := testEntryPoint(frames)
	require.True(t, ok)
	assert.Equal(t, "TestOuter", name)
}

func TestTestFuncName(t *testing.T) {
	tests := []struct {
		symbol string
		want   string
		ok     bool
	}{
		{symbol: "github.com/acme/shop_test.TestLogin", want: "TestLogin", ok: true},
		{symbol: "github.com/acme/shop_test.TestLogin.func1", want: "TestLogin", ok: true},
		{symbol: "github.com/acme/shop.(*LoginSuite).TestSubmit", want: "TestSubmit", ok: true},
		{symbol: "shop.TestGeneric[...]", want: "TestGeneric", ok: true},
		{symbol: "example.com/foo.v2.TestX", want: "TestX", ok: true},
		{symbol: "example.com/foo.v2.TestX.func2", want: "TestX", ok: true},
		{symbol: "example.com/foo.v2.(*Suite).TestY", want: "TestY", ok: true},
		{symbol: "example.com/foo%2ev2.TestX", want: "TestX", ok: true},
		{symbol: "github.com/acme/shop.helper", ok: false},
		{symbol: "github.com/acme/shop.helper.func1", ok: false},
		{symbol: "nodot", ok: false},
		{symbol: "", ok: false},
		{symbol: "pkg.(*broken", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.symbol, func(t *testing.T) {
			got, ok := testFuncName(tt.symbol)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "sequential", Sequential.String())
	assert.Equal(t, "concurrent", Concurrent.String())
	assert.Equal(t, "mode(7)", Mode(7).String())
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected Mode
		wantErr  bool
	}{
		{"sequential", Sequential, false},
		{"Concurrent", Concurrent, false},
		{" concurrent ", Concurrent, false},
		{"parallel", Sequential, true},
		{"", Sequential, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			mode, err := ParseMode(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, mode)
		})
	}
}
