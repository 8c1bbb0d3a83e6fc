package parser

import (
	"fmt"

	"github.com/kolkov/used/internal/token"
)

// ParseError is a syntax error in a script.
type ParseError struct {
	Pos     token.Position // Position where the error occurred
	Message string         // Human-readable error message
	// Incomplete is set when the script ended in the middle of a command,
	// so appending more script text could make it valid.
	Incomplete bool
	// Err is the underlying pattern error, if any.
	Err error
}

// Error returns a formatted error message with position information.
func (e *ParseError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

// Unwrap returns the pattern error behind e, if any.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// errorf creates a ParseError at the given position with formatted message.
func errorf(pos token.Position, format string, args ...any) *ParseError {
	return &ParseError{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	}
}
