// Package exitcode provides standardized exit codes for guardian
package exitcode

// Exit codes for the guardian CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	DetectionError  = 3
	FileSystemError = 4
	SinkError       = 5
	TimeoutError    = 7
	ToolNotFound    = 9
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case DetectionError:
		return "Repository detection error"
	case FileSystemError:
		return "File system error"
	case SinkError:
		return "Result sink error"
	case TimeoutError:
		return "Timeout error"
	case ToolNotFound:
		return "Tool not found"
	default:
		return "Unknown error"
	}
}
