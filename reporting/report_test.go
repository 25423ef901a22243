package reporting

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

func TestComputeStats(t *testing.T) {
	entries := []types.EntrySnapshot{
		newSnapshot("TestPass", types.SeverityPass, types.SeverityInfo),
		newSnapshot("TestFail", types.SeverityPass, types.SeverityFail),
		newSnapshot("TestFatal", types.SeverityFatal),
		newSnapshot("TestWarn", types.SeverityWarning),
		newSnapshot("TestSkip", types.SeveritySkip),
		newSnapshot("TestEmpty"),
	}

	stats := ComputeStats(entries)
	assert.Equal(t, 6, stats.Total)
	assert.Equal(t, 2, stats.Passed)
	assert.Equal(t, 2, stats.Failed)
	assert.Equal(t, 1, stats.Warnings)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 7, stats.Steps)
	assert.InDelta(t, 33.33, stats.PassRate, 0.01)
	assert.True(t, stats.HasFailures())

	empty := ComputeStats(nil)
	assert.Zero(t, empty.Total)
	assert.Zero(t, empty.PassRate)
	assert.False(t, empty.HasFailures())
}

func TestBuildReportData(t *testing.T) {
	e := types.NewEntry("TestMarkup", testStart)
	e.Append(types.Message{Severity: types.SeverityPass, Text: "shot", Attachment: &types.Attachment{Path: "./Screenshots/1_PASSED.png"}})
	e.Append(types.Message{Severity: types.SeverityInfo, Markup: &types.Markup{Kind: types.MarkupCode, HTML: "<pre>x</pre>"}})

	data := BuildReportData(DefaultSettings(), "run-1", testStart, fixedClock(), []types.EntrySnapshot{e.Snapshot()})
	require.Len(t, data.Entries, 1)
	entry := data.Entries[0]
	assert.Equal(t, "entry-1", entry.ID)
	require.Len(t, entry.Messages, 2)
	assert.Equal(t, "./Screenshots/1_PASSED.png", entry.Messages[0].Attachment)
	assert.Empty(t, string(entry.Messages[0].Markup))
	assert.Equal(t, "<pre>x</pre>", string(entry.Messages[1].Markup))
	assert.Equal(t, types.MarkupCode, entry.Messages[1].MarkupKind)
	assert.Equal(t, DefaultCSS, string(data.CSS))
}

func TestLoadSettings(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		settings, err := LoadSettings("")
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), settings)
	})

	t.Run("partial file keeps defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.yaml")
		require.NoError(t, os.WriteFile(path, []byte("title: Checkout Suite\n"), 0644))

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, "Checkout Suite", settings.Title)
		assert.Equal(t, DefaultSettings().DocumentTitle, settings.DocumentTitle)
		assert.Equal(t, DefaultCSS, settings.CSS)
	})

	t.Run("full file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.yaml")
		content := "title: A\ndocument_title: B\ncss: \".x {color: red;}\"\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, Settings{Title: "A", DocumentTitle: "B", CSS: ".x {color: red;}"}, settings)
	})

	t.Run("empty file uses defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.yaml")
		require.NoError(t, os.WriteFile(path, nil, 0644))

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, DefaultSettings(), settings)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
		require.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "report.yaml")
		require.NoError(t, os.WriteFile(path, []byte("title: [unterminated\n"), 0644))
		_, err := LoadSettings(path)
		require.Error(t, err)
	})
}
