// Package markup builds the rich blocks (code, tables, labels) that can be
// attached to report messages.
package markup

import (
	"errors"
	"fmt"
	"html"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// Language of a code block
type Language string

const (
	LanguageXML  Language = "xml"
	LanguageJSON Language = "json"
)

// Color of a label
type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Blue   Color = "blue"
	Yellow Color = "yellow"
	Orange Color = "orange"
	Grey   Color = "grey"
	Purple Color = "purple"
	Teal   Color = "teal"
	Black  Color = "black"
	White  Color = "white"
)

// ErrEmptyTable is returned when a table has neither headers nor rows
var ErrEmptyTable = errors.New("table has no headers and no rows")

// TableCSSClass is the class of every table rendered into the report
const TableCSSClass = "markup-table"

var consoleColors = map[Color]text.Colors{
	Red:    {text.FgRed},
	Green:  {text.FgGreen},
	Blue:   {text.FgBlue},
	Yellow: {text.FgYellow},
	Orange: {text.FgHiYellow},
	Grey:   {text.FgHiBlack},
	Purple: {text.FgMagenta},
	Teal:   {text.FgCyan},
	Black:  {text.FgBlack, text.BgWhite},
	White:  {text.FgWhite},
}

// CodeBlock wraps code in an escaped <pre> block
func CodeBlock(code string, lang Language) types.Markup {
	return types.Markup{
		Kind:     types.MarkupCode,
		Language: string(lang),
		HTML: fmt.Sprintf(`<pre class="code-block" data-lang="%s"><code>%s</code></pre>`,
			html.EscapeString(string(lang)), html.EscapeString(code)),
		Plain: code,
	}
}

// Table renders headers and rows as an HTML table for the report and an
// ASCII table for text output. Rows may have different lengths.
func Table(headers []string, rows [][]string) (types.Markup, error) {
	if len(headers) == 0 && len(rows) == 0 {
		return types.Markup{}, ErrEmptyTable
	}

	t := table.NewWriter()
	if len(headers) > 0 {
		t.AppendHeader(toRow(headers))
	}
	for _, r := range rows {
		t.AppendRow(toRow(r))
	}

	t.Style().HTML.CSSClass = TableCSSClass
	t.Style().HTML.EscapeText = true
	htmlOut := t.RenderHTML()

	t.SetStyle(table.StyleLight)
	plain := t.Render()

	return types.Markup{
		Kind:  types.MarkupTable,
		HTML:  htmlOut,
		Plain: plain,
	}, nil
}

// Label renders a colored badge
func Label(label string, color Color) types.Markup {
	if _, ok := consoleColors[color]; !ok {
		color = Grey
	}
	class := "label label-" + string(color)
	return types.Markup{
		Kind:    types.MarkupLabel,
		Class:   class,
		HTML:    fmt.Sprintf(`<span class="%s">%s</span>`, class, html.EscapeString(label)),
		Plain:   label,
		Console: consoleColors[color].Sprint(label),
	}
}

func toRow(cells []string) table.Row {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}
