package vm

import "fmt"

// ExitError represents a q or Q with a non-zero status code.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit %d", e.Code)
}

// RuntimeError is a failure while executing a script, such as an input
// file that cannot be opened. Code is the process exit status it maps to.
type RuntimeError struct {
	Message string
	Code    int
	Err     error
}

func (e *RuntimeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying I/O error, if any.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func ioError(err error) *RuntimeError {
	return &RuntimeError{Message: "couldn't write", Code: 2, Err: err}
}
