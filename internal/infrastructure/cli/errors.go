package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/kanbanize/internal/application"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known application errors into CLIErrors with
// actionable hints. Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, application.ErrNotAllowed):
		return NewCLIError("not allowed for your role", "Ask a Project Manager to make this change", err)
	case errors.Is(err, application.ErrCardNotFound):
		return NewCLIError("card not found", "Run 'kanbanize board' to see the current tasks", err)
	case errors.Is(err, application.ErrTeamNotFound):
		return NewCLIError("team not found", "Run 'kanbanize teams list' to see your teams", err)
	case errors.Is(err, application.ErrWorkdayClosed):
		return NewCLIError("no open workday", "Run 'kanbanize workday start' first", err)
	case errors.Is(err, application.ErrCooldown):
		return NewCLIError("workday cool-down active", "Wait until the cool-down expires before starting again", err)
	case errors.Is(err, application.ErrNoActiveWorkday):
		return NewCLIError("no active workday to end", "Run 'kanbanize workday start' first", err)
	case errors.Is(err, application.ErrTitleRequired):
		return NewCLIError("title is required", "Pass a non-empty title", err)
	}
	return err
}
