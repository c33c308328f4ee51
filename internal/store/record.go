package store

import (
	"time"

	"github.com/roach88/kerntest/internal/harness"
	"github.com/roach88/kerntest/internal/report"
)

// Run is one stored harness run.
type Run struct {
	ID            string        `json:"id"`
	Suite         string        `json:"suite"`
	Image         string        `json:"image,omitempty"`
	StartedAt     time.Time     `json:"started_at"`
	Duration      time.Duration `json:"duration"`
	Status        string        `json:"status"`
	ExitCode      int           `json:"exit_code"`
	Tests         int           `json:"tests"`
	Failures      int           `json:"failures"`
	Errors        int           `json:"errors"`
	Skips         int           `json:"skips"`
	FailureReason string        `json:"failure_reason,omitempty"`
	VM            VMSummary     `json:"vm"`
	Cases         []Case        `json:"cases,omitempty"`
}

// VMSummary is the stored subset of supervisor.Result.
type VMSummary struct {
	Booted       bool   `json:"booted"`
	CommandRan   bool   `json:"command_ran"`
	ExitedOnQuit bool   `json:"exited_on_quit"`
	Killed       bool   `json:"killed"`
	ExitCode     int    `json:"exit_code"`
	QEMUVersion  string `json:"qemu_version,omitempty"`
}

// Case is one stored test case.
type Case struct {
	ClassName string `json:"class_name"`
	Name      string `json:"name"`
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	File      string `json:"file,omitempty"`
	Line      int    `json:"line,omitempty"`
}

// FromOutcome flattens a harness outcome into a Run. image is recorded for
// reference only.
func FromOutcome(out *harness.Outcome, image string) Run {
	c := out.Suite.Counts()
	r := Run{
		ID:            out.RunID,
		Suite:         out.Suite.Name,
		Image:         image,
		StartedAt:     out.Started,
		Duration:      out.Duration,
		Status:        out.Status().String(),
		ExitCode:      out.ExitCode(),
		Tests:         c.Total,
		Failures:      c.Failures,
		Errors:        c.Errors,
		Skips:         c.Skips,
		FailureReason: out.FailureReason(),
		VM:            VMSummary{ExitCode: -1},
	}
	if vm := out.VM; vm != nil {
		r.VM = VMSummary{
			Booted:       vm.Booted,
			CommandRan:   vm.CommandRan,
			ExitedOnQuit: vm.ExitedOnQuit,
			Killed:       vm.Killed,
			ExitCode:     vm.ExitCode,
			QEMUVersion:  vm.QEMUVersion,
		}
	}
	for _, tc := range out.Suite.Cases {
		r.Cases = append(r.Cases, caseFrom(tc))
	}
	return r
}

// caseFrom stores the failure when a case has both a failure and an error;
// the error message is kept only when there is no failure.
func caseFrom(tc *report.TestCase) Case {
	c := Case{ClassName: tc.ClassName, Name: tc.Name, Status: "passed"}
	switch {
	case tc.Failed():
		c.Status = "failed"
		c.Message = tc.Failure.Message
		if loc := tc.Failure.Location; loc != nil {
			c.File = loc.File
			c.Line = loc.Line
		}
	case tc.Errored():
		c.Status = "error"
		c.Message = tc.Error.Message
	}
	return c
}
