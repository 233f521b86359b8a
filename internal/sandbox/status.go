package sandbox

import (
	"fmt"
	"os"
	"syscall"
)

// How a child terminated.
type ExitStatus struct {
	Code   int            // Exit code, or -1 when the child was killed by a signal.
	Signal syscall.Signal // Terminating signal, or 0 when the child exited.
}

// Reports whether the child exited with code 0.
func (s ExitStatus) Success() bool {
	return s.Code == 0 && s.Signal == 0
}

// Reports whether the child was terminated by a signal.
func (s ExitStatus) Signaled() bool {
	return s.Signal != 0
}

// Returns the code the launcher exits with: the child's own code, or 1 when
// the child has none because a signal terminated it.
func (s ExitStatus) ExitCode() int {
	if s.Signaled() {
		return 1
	}
	return s.Code
}

func (s ExitStatus) String() string {
	if s.Signaled() {
		return "signal: " + s.Signal.String()
	}
	return fmt.Sprintf("exit status %d", s.Code)
}

// Extracts the exit status from a finished process.
func statusOf(state *os.ProcessState) ExitStatus {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return ExitStatus{Code: -1, Signal: ws.Signal()}
	}
	return ExitStatus{Code: state.ExitCode()}
}
