package types

// ExecutionContext describes the test a lifecycle event belongs to.
// It is read-only for the reporter.
type ExecutionContext struct {
	TestName    string // Name used to resolve the report entry
	UniqueID    string // Framework-unique identifier, e.g. "pkg/TestLogin"
	DisplayName string // Human readable name, may contain parentheses
}

// Identifier returns the most specific identifier available for the test
func (ec ExecutionContext) Identifier() string {
	if ec.UniqueID != "" {
		return ec.UniqueID
	}
	if ec.TestName != "" {
		return ec.TestName
	}
	return SanitizeName(ec.DisplayName)
}

// EntryName returns the entry name the event should be recorded against
func (ec ExecutionContext) EntryName() string {
	if ec.TestName != "" {
		return ec.TestName
	}
	return SanitizeName(ec.DisplayName)
}
