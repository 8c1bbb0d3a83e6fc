// Package semantic is the second pass of script compilation.
//
// The parser leaves blocks and branches unresolved. Resolve:
//   - pairs every { with its } and records the index of the }
//   - builds the label table, rejecting duplicate labels
//   - resolves each b, t and T to the index it jumps to
//
// Branches without a label jump to the end of the script.
package semantic

import (
	"fmt"
	"strings"

	"github.com/kolkov/used/internal/token"
)

// Error represents a semantic analysis error with source location.
type Error struct {
	Pos     token.Position
	Message string
	// Label is the unresolved label name for label errors.
	Label string
	// Incomplete is set when a later script fragment could fix the error:
	// a block still open or a label not yet defined.
	Incomplete bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s: %s", e.Pos, e.Message)
	}
	return e.Message
}

// ErrorList is a collection of semantic errors.
type ErrorList []*Error

// Add appends an error to the list.
func (el *ErrorList) Add(pos token.Position, format string, args ...any) *Error {
	e := &Error{
		Pos:     pos,
		Message: fmt.Sprintf(format, args...),
	}
	*el = append(*el, e)
	return e
}

// Err returns an error if the list is non-empty, nil otherwise.
func (el ErrorList) Err() error {
	if len(el) == 0 {
		return nil
	}
	return el
}

// Incomplete reports whether every error could be fixed by more script.
func (el ErrorList) Incomplete() bool {
	for _, e := range el {
		if !e.Incomplete {
			return false
		}
	}
	return len(el) > 0
}

// Error implements the error interface for ErrorList.
func (el ErrorList) Error() string {
	switch len(el) {
	case 0:
		return "no errors"
	case 1:
		return el[0].Error()
	default:
		var sb strings.Builder
		sb.WriteString(el[0].Error())
		for _, e := range el[1:] {
			sb.WriteByte('\n')
			sb.WriteString(e.Error())
		}
		return sb.String()
	}
}
