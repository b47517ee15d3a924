package claude

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout is returned when the CLI does not finish within the configured bound
	ErrTimeout = errors.New("claude CLI timed out")

	// ErrEmptyOutput is returned when the CLI exits without writing anything
	ErrEmptyOutput = errors.New("claude CLI returned no output")

	// ErrCLINotFound is returned when the Claude CLI binary cannot be found
	ErrCLINotFound = errors.New("claude CLI not found")
)

// ToolError carries whatever the CLI wrote to stderr when it produced no reply.
type ToolError struct {
	Stderr string
	Cause  error
}

func (e *ToolError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("claude CLI error: %s", e.Stderr)
	}
	if e.Cause != nil {
		return fmt.Sprintf("claude CLI error: %v", e.Cause)
	}
	return "claude CLI error"
}

func (e *ToolError) Unwrap() error {
	return e.Cause
}
