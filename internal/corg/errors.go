package corg

import (
	"errors"
	"fmt"

	"github.com/gubarz/corg/internal/checksum"
	"github.com/gubarz/corg/internal/executor"
)

// Process exit codes.
const (
	ExitOK               = 0
	ExitIO               = 1
	ExitUsage            = 2
	ExitBlockExecution   = 3
	ExitCheckFailed      = 5
	ExitChecksumMismatch = 7
)

// ErrNoBlocksDetected is returned when no block was found and the caller
// asked to be warned about it.
var ErrNoBlocksDetected = errors.New("no code blocks detected")

// IOError wraps a failure at the operating system boundary: reading or
// writing the document, or starting a command.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// CheckFailedError is returned in check-only mode when processing would
// change the document.
type CheckFailedError struct {
	Original string
	Produced string
}

func (e *CheckFailedError) Error() string {
	return "generated output did not match the existing content"
}

// UsageError reports invalid configuration or arguments.
type UsageError struct {
	Err error
}

func (e *UsageError) Error() string {
	return e.Err.Error()
}

func (e *UsageError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by the processor or runner onto the
// process exit status.
func ExitCode(err error) int {
	var (
		usageErr    *UsageError
		blockErr    *executor.BlockExecutionError
		checkErr    *CheckFailedError
		mismatchErr *checksum.MismatchError
	)

	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrNoBlocksDetected):
		return ExitOK
	case errors.As(err, &usageErr):
		return ExitUsage
	case errors.As(err, &blockErr):
		return ExitBlockExecution
	case errors.As(err, &checkErr):
		return ExitCheckFailed
	case errors.As(err, &mismatchErr):
		return ExitChecksumMismatch
	default:
		return ExitIO
	}
}
