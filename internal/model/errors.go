package model

import "fmt"

// ErrorKind classifies capture setup failures.
type ErrorKind string

// Setup failure kinds.
const (
	// ErrorBadInput: the capture device could not be attached as an input.
	ErrorBadInput ErrorKind = "bad_input"
	// ErrorBadOutput: the frame output could not be attached to the session.
	ErrorBadOutput ErrorKind = "bad_output"
	// ErrorInit: constructing the device input failed with a platform error.
	ErrorInit ErrorKind = "init_error"
)

// ScanError is a capture setup failure delivered to the caller.
type ScanError struct {
	Kind  ErrorKind
	Cause error
}

// ErrBadInput returns a BadInput failure.
func ErrBadInput() *ScanError { return &ScanError{Kind: ErrorBadInput} }

// ErrBadOutput returns a BadOutput failure.
func ErrBadOutput() *ScanError { return &ScanError{Kind: ErrorBadOutput} }

// InitError wraps a platform error raised while building the device input.
func InitError(cause error) *ScanError { return &ScanError{Kind: ErrorInit, Cause: cause} }

func (e *ScanError) Error() string {
	switch e.Kind {
	case ErrorBadInput:
		return "camera could not be attached as capture input"
	case ErrorBadOutput:
		return "camera cannot deliver frames for the requested codes"
	case ErrorInit:
		if e.Cause != nil {
			return fmt.Sprintf("capture initialization failed: %v", e.Cause)
		}
		return "capture initialization failed"
	}
	return string(e.Kind)
}

func (e *ScanError) Unwrap() error {
	return e.Cause
}
