// Package exitcodes defines the standard exit codes used by op-reporter.
package exitcodes

// Exit code constants used by op-reporter
// These constants define the exit codes that the application uses to indicate
// various states when it exits:
//
// * Success (0): Used when every reported test passed
// * TestFailure (1): Used when one or more reported tests failed
// * RuntimeErr (2): Used for runtime errors such as unreadable input or an unwritable report directory
const (
	Success     = 0 // All tests pass
	TestFailure = 1 // Test failures
	RuntimeErr  = 2 // Runtime errors
)
