// Package errors provides structured error types for requant operations.
package errors

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrorKind represents the category of an error.
type ErrorKind int

const (
	// KindIO represents I/O errors.
	KindIO ErrorKind = iota
	// KindPath represents path-related errors.
	KindPath
	// KindCommand represents external command execution errors.
	KindCommand
	// KindProbe represents media probing failures (unreadable input, no video stream).
	KindProbe
	// KindPass represents a failed encoder pass.
	KindPass
	// KindClassification represents content classification failures.
	KindClassification
	// KindCropDetection represents crop detection failures.
	KindCropDetection
	// KindConfig represents configuration validation errors.
	KindConfig
	// KindNoFilesFound represents no suitable video files found.
	KindNoFilesFound
	// KindAnalysis represents complexity analysis errors.
	KindAnalysis
	// KindCancelled represents user-cancelled operations.
	KindCancelled
)

// String returns a string representation of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case KindIO:
		return "I/O error"
	case KindPath:
		return "Path error"
	case KindCommand:
		return "Command error"
	case KindProbe:
		return "Probe error"
	case KindPass:
		return "Pass error"
	case KindClassification:
		return "Classification error"
	case KindCropDetection:
		return "Crop detection error"
	case KindConfig:
		return "Configuration error"
	case KindNoFilesFound:
		return "No files found"
	case KindAnalysis:
		return "Analysis error"
	case KindCancelled:
		return "Operation cancelled"
	default:
		return "Unknown error"
	}
}

// CoreError is the main error type for requant operations.
type CoreError struct {
	Kind       ErrorKind
	Message    string
	Underlying error
}

func (e *CoreError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *CoreError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target matches this error's kind.
func (e *CoreError) Is(target error) bool {
	t, ok := target.(*CoreError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// PassError describes a failed encoder pass. It carries the pass index,
// the subprocess exit code, and the tail of the captured diagnostic output.
type PassError struct {
	PassIndex  int
	ExitCode   int
	StderrTail string
	Underlying error
}

func (e *PassError) Error() string {
	if e.StderrTail != "" {
		return fmt.Sprintf("pass %d failed with exit code %d: %s", e.PassIndex, e.ExitCode, e.StderrTail)
	}
	return fmt.Sprintf("pass %d failed with exit code %d", e.PassIndex, e.ExitCode)
}

func (e *PassError) Unwrap() error {
	return e.Underlying
}

// NewIOError creates a new I/O error.
func NewIOError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindIO, Message: message, Underlying: underlying}
}

// NewPathError creates a new path-related error.
func NewPathError(message string) *CoreError {
	return &CoreError{Kind: KindPath, Message: message}
}

// NewCommandError creates a new command execution error.
func NewCommandError(cmd string, underlying error) *CoreError {
	return &CoreError{Kind: KindCommand, Message: fmt.Sprintf("failed to execute %s", cmd), Underlying: underlying}
}

// NewProbeError creates a new probe failure error.
func NewProbeError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindProbe, Message: message, Underlying: underlying}
}

// NewPassError creates an error for a failed encoder pass.
func NewPassError(passIndex, exitCode int, stderrTail string, underlying error) *CoreError {
	passErr := &PassError{
		PassIndex:  passIndex,
		ExitCode:   exitCode,
		StderrTail: stderrTail,
		Underlying: underlying,
	}
	return &CoreError{Kind: KindPass, Message: passErr.Error(), Underlying: passErr}
}

// NewClassificationError creates a new classification error.
func NewClassificationError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindClassification, Message: message, Underlying: underlying}
}

// NewCropDetectionError creates a new crop detection error.
func NewCropDetectionError(message string) *CoreError {
	return &CoreError{Kind: KindCropDetection, Message: message}
}

// NewConfigError creates a new configuration error.
func NewConfigError(message string) *CoreError {
	return &CoreError{Kind: KindConfig, Message: message}
}

// NewNoFilesFoundError creates an error for when no video files are found.
func NewNoFilesFoundError(dir string) *CoreError {
	return &CoreError{Kind: KindNoFilesFound, Message: fmt.Sprintf("no suitable video files found in %s", dir)}
}

// NewAnalysisError creates a new analysis error.
func NewAnalysisError(message string, underlying error) *CoreError {
	return &CoreError{Kind: KindAnalysis, Message: message, Underlying: underlying}
}

// NewCancelledError creates an error for user-cancelled operations.
func NewCancelledError() *CoreError {
	return &CoreError{Kind: KindCancelled, Message: "operation was cancelled by the user"}
}

// IsKind checks if the error has the specified kind.
func IsKind(err error, kind ErrorKind) bool {
	var coreErr *CoreError
	if errors.As(err, &coreErr) {
		return coreErr.Kind == kind
	}
	return false
}

// IsCancelled checks if the error is a cancellation error.
func IsCancelled(err error) bool {
	return IsKind(err, KindCancelled)
}

// IsProbeFailure checks if the error is a probe failure.
func IsProbeFailure(err error) bool {
	return IsKind(err, KindProbe)
}

// IsPassFailure checks if the error is a pass failure.
func IsPassFailure(err error) bool {
	return IsKind(err, KindPass)
}

// AsPassError extracts a PassError if present.
func AsPassError(err error) (*PassError, bool) {
	var passErr *PassError
	if errors.As(err, &passErr) {
		return passErr, true
	}
	return nil, false
}

// WrapExecError wraps an exec.ExitError from an encoder pass into a CoreError.
func WrapExecError(passIndex int, err error, stderrTail string) *CoreError {
	if exitErr, ok := err.(*exec.ExitError); ok {
		return NewPassError(passIndex, exitErr.ExitCode(), stderrTail, err)
	}
	return NewCommandError("ffmpeg", err)
}
