package harness

import (
	"errors"
	"strings"
	"time"

	"github.com/roach88/kerntest/internal/report"
	"github.com/roach88/kerntest/internal/supervisor"
)

// Status classifies a finished run.
type Status int

const (
	StatusSuccess Status = iota
	StatusTestsFailed
	StatusRunFailed
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTestsFailed:
		return "tests_failed"
	case StatusRunFailed:
		return "run_failed"
	default:
		return "unknown"
	}
}

// ExitCode maps the status to the process exit code.
func (s Status) ExitCode() int {
	switch s {
	case StatusSuccess:
		return 0
	case StatusTestsFailed:
		return 1
	default:
		return 2
	}
}

// Outcome is everything known about a finished run.
type Outcome struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	// Suite is the parsed report. Never nil.
	Suite *report.TestSuite `json:"-"`

	// VM is the supervisor's view of the run. Nil only when the supervisor
	// returned nothing at all.
	VM *supervisor.Result `json:"vm,omitempty"`

	// InfraErr is the supervisor failure, if any.
	InfraErr error `json:"-"`

	// ParseErr is set when the log could not be read or was rejected by the
	// strict policy.
	ParseErr error `json:"-"`

	// ReportPath is the XML destination, empty when a summary was printed.
	ReportPath string `json:"report_path,omitempty"`
}

// InfrastructureOK reports whether boot, command and shutdown all succeeded.
func (o *Outcome) InfrastructureOK() bool {
	return o.InfraErr == nil
}

// Status derives the run classification.
func (o *Outcome) Status() Status {
	switch {
	case o.InfraErr != nil, o.ParseErr != nil:
		return StatusRunFailed
	case o.Suite.HasProblems():
		return StatusTestsFailed
	default:
		return StatusSuccess
	}
}

// ExitCode is Status().ExitCode().
func (o *Outcome) ExitCode() int {
	return o.Status().ExitCode()
}

// FailureReason describes why the run failed, or "" when it did not.
func (o *Outcome) FailureReason() string {
	err := errors.Join(o.InfraErr, o.ParseErr)
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}
