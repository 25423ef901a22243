package types

import (
	"fmt"
	"strings"
)

// Severity classifies a single report message
type Severity string

const (
	SeverityPass    Severity = "pass"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityFail    Severity = "fail"
	SeverityFatal   Severity = "fatal"
	SeveritySkip    Severity = "skip"
)

// AllSeverities lists every severity in ascending rank order
var AllSeverities = []Severity{
	SeverityInfo,
	SeverityPass,
	SeveritySkip,
	SeverityWarning,
	SeverityFail,
	SeverityFatal,
}

// Tag returns the console tag printed in front of a step message
func (s Severity) Tag() string {
	switch s {
	case SeverityPass:
		return "SUCCESS"
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARN"
	case SeverityFail:
		return "FAIL"
	case SeverityFatal:
		return "FATAL"
	case SeveritySkip:
		return "SKIP"
	default:
		return "UNKNOWN"
	}
}

// Rank orders severities so that an entry's status is the highest rank seen.
// fatal > fail > warning > skip > pass > info
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityPass:
		return 1
	case SeveritySkip:
		return 2
	case SeverityWarning:
		return 3
	case SeverityFail:
		return 4
	case SeverityFatal:
		return 5
	default:
		return -1
	}
}

// IsValid reports whether s is one of the known severities
func (s Severity) IsValid() bool {
	return s.Rank() >= 0
}

// IsFailure reports whether the severity marks the entry as failed
func (s Severity) IsFailure() bool {
	return s == SeverityFail || s == SeverityFatal
}

// ParseSeverity parses a severity name, case-insensitively
func ParseSeverity(value string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(value)))
	if !s.IsValid() {
		return "", fmt.Errorf("unknown severity %q", value)
	}
	return s, nil
}
