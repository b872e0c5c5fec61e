package framegrab

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Each step of a capture wraps its failure in exactly one of these.
var (
	ErrConfig     = errors.New("config error")
	ErrLaunch     = errors.New("launch error")
	ErrSession    = errors.New("session error")
	ErrNavigation = errors.New("navigation error")
	ErrTimeout    = errors.New("timeout error")
	ErrCapture    = errors.New("capture error")
	ErrIO         = errors.New("io error")
)

// StepError records which step of a capture failed. It matches its Kind with errors.Is
// and unwraps to the underlying cause.
type StepError struct {
	Kind error
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

func (e *StepError) Is(target error) bool { return target == e.Kind }

func stepError(kind error, step string, err error) error {
	return &StepError{Kind: kind, Step: step, Err: err}
}

var exitCodes = []struct {
	kind error
	code int
}{
	{ErrConfig, 2},
	{ErrLaunch, 3},
	{ErrSession, 4},
	{ErrNavigation, 5},
	{ErrTimeout, 6},
	{ErrCapture, 7},
	{ErrIO, 8},
}

// ExitCode returns the process exit status for err: 0 for nil, 1 for errors outside the taxonomy.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	for _, e := range exitCodes {
		if errors.Is(err, e.kind) {
			return e.code
		}
	}
	return 1
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	return strings.Contains(err.Error(), "context deadline exceeded")
}

// RootCause returns the innermost error of a wrap chain.
func RootCause(err error) error {
	for err != nil {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
	return nil
}
