package supervisor

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrStart means the QEMU process could not be launched.
	ErrStart = errors.New("failed to start virtual machine")

	// ErrPromptTimeout means the console prompt did not appear in time.
	ErrPromptTimeout = errors.New("console prompt not seen before deadline")

	// ErrConsoleClosed means the console reached EOF before the prompt,
	// usually because the virtual machine exited or crashed.
	ErrConsoleClosed = errors.New("console closed before prompt")

	// ErrShutdownTimeout means the process did not exit after the quit
	// directive within the shutdown timeout.
	ErrShutdownTimeout = errors.New("virtual machine did not exit after quit")

	// ErrVersion means the QEMU binary is older than the configured minimum
	// or its version could not be determined.
	ErrVersion = errors.New("unsupported qemu version")
)

// Phase names a step of the supervised run.
type Phase string

const (
	PhasePreflight Phase = "preflight"
	PhaseStart     Phase = "start"
	PhaseBoot      Phase = "boot"
	PhaseCommand   Phase = "command"
	PhaseShutdown  Phase = "shutdown"
)

// PhaseError is an infrastructure failure in a specific phase.
type PhaseError struct {
	Phase   Phase
	Timeout time.Duration // zero when the phase is not time-bounded
	Err     error
}

func (e *PhaseError) Error() string {
	if e.Timeout > 0 {
		return fmt.Sprintf("%s (timeout %s): %v", e.Phase, e.Timeout, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}
