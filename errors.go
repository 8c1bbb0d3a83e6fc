package used

import (
	"errors"
	"fmt"

	"github.com/kolkov/used/internal/parser"
	"github.com/kolkov/used/internal/runtime"
	"github.com/kolkov/used/internal/semantic"
	"github.com/kolkov/used/internal/vm"
)

// Phase is the stage a failure originated in.
type Phase int

const (
	// PhaseCompile covers script parsing, pattern translation and label
	// resolution. No input has been read when it fails.
	PhaseCompile Phase = iota
	// PhaseRun covers execution.
	PhaseRun
)

func (p Phase) String() string {
	if p == PhaseRun {
		return "run"
	}
	return "compile"
}

// CompileError represents a malformed script: a bad address, an unknown
// command, an unterminated delimiter or a y command with strings of
// different lengths.
type CompileError struct {
	Line    int    // 1-based line number in the joined script
	Column  int    // 1-based column number
	Message string // Error description
}

func (e *CompileError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Column, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

// Phase returns PhaseCompile.
func (e *CompileError) Phase() Phase { return PhaseCompile }

// PatternError represents a regex or replacement that cannot be translated.
type PatternError struct {
	Pattern string // Offending pattern, if known
	Message string // Error description
	Line    int
	Column  int
}

func (e *PatternError) Error() string {
	msg := e.Message
	if e.Pattern != "" {
		msg = fmt.Sprintf("%s in %q", e.Message, e.Pattern)
	}
	if e.Line > 0 {
		return fmt.Sprintf("pattern error at %d:%d: %s", e.Line, e.Column, msg)
	}
	return "pattern error: " + msg
}

// Phase returns PhaseCompile.
func (e *PatternError) Phase() Phase { return PhaseCompile }

// LabelError represents a branch to a label the script never defines.
type LabelError struct {
	Label  string
	Line   int
	Column int
}

func (e *LabelError) Error() string {
	return fmt.Sprintf("compile error at %d:%d: can't find label for jump to `%s'", e.Line, e.Column, e.Label)
}

// Phase returns PhaseCompile.
func (e *LabelError) Phase() Phase { return PhaseCompile }

// RuntimeError represents a failure during execution, usually I/O.
type RuntimeError struct {
	Message string // Error description
	Code    int    // Exit status: 1 for script errors, 2 for I/O errors
	Err     error  // Underlying cause, if any
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("runtime error: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("runtime error: %s", e.Message)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error { return e.Err }

// Phase returns PhaseRun.
func (e *RuntimeError) Phase() Phase { return PhaseRun }

// ExitError represents a q or Q with a non-zero exit code.
// This is not an error condition; the script asked for the status.
type ExitError struct {
	Code int // Exit status code
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// Phase returns PhaseRun.
func (e *ExitError) Phase() Phase { return PhaseRun }

// IsExitError reports whether err is an ExitError and returns the exit code.
// Returns (code, true) if err is an ExitError, or (0, false) otherwise.
func IsExitError(err error) (int, bool) {
	var e *ExitError
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// ExitCode maps err to a process exit status: 0 for nil, the q/Q code for
// ExitError, 2 for I/O errors and 1 for everything else.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var (
		exit *ExitError
		rt   *RuntimeError
	)
	switch {
	case errors.As(err, &exit):
		return exit.Code
	case errors.As(err, &rt):
		if rt.Code != 0 {
			return rt.Code
		}
	}
	return 1
}

// compileError converts an error from the parser or the resolver.
func compileError(err error) error {
	var (
		pe *parser.ParseError
		el semantic.ErrorList
	)
	switch {
	case errors.As(err, &pe):
		var pat *runtime.PatternError
		if errors.As(pe.Err, &pat) {
			return &PatternError{
				Pattern: pat.Pattern,
				Message: pat.Message,
				Line:    pe.Pos.Line,
				Column:  pe.Pos.Column,
			}
		}
		return &CompileError{Line: pe.Pos.Line, Column: pe.Pos.Column, Message: pe.Message}
	case errors.As(err, &el) && len(el) > 0:
		e := el[0]
		if e.Label != "" {
			return &LabelError{Label: e.Label, Line: e.Pos.Line, Column: e.Pos.Column}
		}
		return &CompileError{Line: e.Pos.Line, Column: e.Pos.Column, Message: e.Message}
	}
	return &CompileError{Message: err.Error()}
}

// incomplete reports whether a compile error could be fixed by appending
// more script text.
func incomplete(err error) bool {
	var (
		pe *parser.ParseError
		el semantic.ErrorList
	)
	switch {
	case errors.As(err, &pe):
		return pe.Incomplete
	case errors.As(err, &el):
		return el.Incomplete()
	}
	return false
}

// runError converts an error from the engine.
func runError(err error) error {
	var (
		exit *vm.ExitError
		rt   *vm.RuntimeError
	)
	switch {
	case errors.As(err, &exit):
		return &ExitError{Code: exit.Code}
	case errors.As(err, &rt):
		return &RuntimeError{Message: rt.Message, Code: rt.Code, Err: rt.Err}
	}
	return &RuntimeError{Message: err.Error(), Code: 1, Err: err}
}
