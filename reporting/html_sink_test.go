package reporting

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

func newTestHTMLSink(t *testing.T, dir string) *HTMLSink {
	t.Helper()
	sink, err := NewHTMLSink(HTMLSinkConfig{
		Dir:      dir,
		RunID:    "run-123",
		Settings: DefaultSettings(),
		Started:  testStart,
		Clock:    fixedClock,
	})
	require.NoError(t, err)
	return sink
}

func TestHTMLSink(t *testing.T) {
	dir := t.TempDir()
	sink := newTestHTMLSink(t, dir)

	e := types.NewEntry("TestLogin", testStart)
	e.Append(types.Message{Severity: types.SeverityPass, Text: "opened <login> page", Time: testStart.Add(time.Second)})
	e.Append(types.Message{Severity: types.SeverityFail, Text: "bad password", Time: testStart.Add(2 * time.Second),
		Attachment: &types.Attachment{Path: "./Screenshots/1_FAILED.png"}})
	e.Append(types.Message{Severity: types.SeverityInfo, Time: testStart.Add(3 * time.Second),
		Markup: &types.Markup{Kind: types.MarkupLabel, HTML: `<span class="label label-red">LBL</span>`}})

	require.NoError(t, sink.Consume("TestLogin", types.Message{}))
	require.NoError(t, sink.Complete([]types.EntrySnapshot{e.Snapshot()}))

	assert.Equal(t, filepath.Join(dir, HTMLReportFilename), sink.Path())
	content, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	html := string(content)

	assert.Contains(t, html, "<title>Test Report</title>")
	assert.Contains(t, html, "run-123")
	assert.Contains(t, html, "05-07-2024 14-03-09")
	assert.Contains(t, html, "TestLogin")
	assert.Contains(t, html, "opened &lt;login&gt; page", "step text must be escaped")
	assert.Contains(t, html, `<span class="label label-red">LBL</span>`, "markup must not be escaped")
	assert.Contains(t, html, `src="./Screenshots/1_FAILED.png"`)
	assert.Contains(t, html, DefaultCSS)
	assert.Contains(t, html, `class="status fail">FAIL`)
	assert.Contains(t, html, `class="status info">INFO`)
	assert.Contains(t, html, "3s")

	// no temp files left behind
	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, HTMLReportFilename, files[0].Name())
}

func TestHTMLSinkFlushRewritesReport(t *testing.T) {
	dir := t.TempDir()
	sink := newTestHTMLSink(t, dir)

	first := newSnapshot("TestFirst", types.SeverityPass)
	require.NoError(t, sink.Flush([]types.EntrySnapshot{first}))

	content, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	assert.Contains(t, string(content), "TestFirst")
	assert.NotContains(t, string(content), "TestSecond")

	second := newSnapshot("TestSecond", types.SeverityWarning)
	require.NoError(t, sink.Flush([]types.EntrySnapshot{first, second}))

	content, err = os.ReadFile(sink.Path())
	require.NoError(t, err)
	html := string(content)
	assert.Less(t, strings.Index(html, "TestFirst"), strings.Index(html, "TestSecond"))
}

func TestHTMLSinkCustomSettings(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewHTMLSink(HTMLSinkConfig{
		Dir:      dir,
		Settings: Settings{Title: "Checkout", DocumentTitle: "Checkout Run", CSS: ".custom {color: red;}"},
	})
	require.NoError(t, err)
	require.NoError(t, sink.Complete(nil))

	content, err := os.ReadFile(sink.Path())
	require.NoError(t, err)
	html := string(content)
	assert.Contains(t, html, "<title>Checkout Run</title>")
	assert.Contains(t, html, "<h1>Checkout</h1>")
	assert.Contains(t, html, ".custom {color: red;}")
}

func TestNewHTMLSinkErrors(t *testing.T) {
	_, err := NewHTMLSink(HTMLSinkConfig{})
	require.Error(t, err)

	_, err = NewHTMLSink(HTMLSinkConfig{Dir: t.TempDir(), Template: "{{.Broken"})
	require.Error(t, err)
}
