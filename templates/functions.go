package templates

import (
	"fmt"
	"html/template"
	"time"

	"github.com/ethereum-optimism/infra/op-reporter/types"
)

// TimestampLayout is the layout used for report directories and step lines (dd-MM-yyyy HH-mm-ss)
const TimestampLayout = "02-01-2006 15-04-05"

// GetTemplateFunc returns the centralized template functions used across the application
func GetTemplateFunc() template.FuncMap {
	return template.FuncMap{
		"formatDuration": FormatDuration,
		"formatTime": func(t time.Time) string {
			return t.Format(TimestampLayout)
		},
		"formatClock": func(t time.Time) string {
			return t.Format("15:04:05.000")
		},
		"getStatusClass": func(sev types.Severity) string {
			return getStatusString(sev)
		},
		"getStatusText": func(sev types.Severity) string {
			return sev.Tag()
		},
		"percent": func(part, total int) string {
			if total == 0 {
				return "0.0%"
			}
			return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
		},
	}
}

// FormatDuration formats a duration for display
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return d.Truncate(time.Millisecond).String()
}

// getStatusString returns a consistent lowercase status string used as a CSS class
func getStatusString(sev types.Severity) string {
	switch sev {
	case types.SeverityPass:
		return "pass"
	case types.SeverityInfo:
		return "info"
	case types.SeverityWarning:
		return "warning"
	case types.SeverityFail:
		return "fail"
	case types.SeverityFatal:
		return "fatal"
	case types.SeveritySkip:
		return "skip"
	default:
		return "unknown"
	}
}
