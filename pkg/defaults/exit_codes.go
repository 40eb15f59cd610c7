package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0 // Clean run, nothing at or above the fail threshold
	ExitFindingsFound = 1 // Findings at or above the fail threshold
	ExitUserError     = 2 // Invalid arguments or configuration
	ExitTargetError   = 3 // Target unreachable or scan could not start
	ExitInternalError = 4 // Unexpected internal error
)
