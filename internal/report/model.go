package report

import "fmt"

// DefaultSuiteName is the suite name used when none is configured.
const DefaultSuiteName = "KernelTests"

// Status is the outcome of a single test case.
type Status int

const (
	// StatusPassed is the implicit status of a newly started case.
	StatusPassed Status = iota
	// StatusFailed means an assertion failure marker was attributed to the case.
	StatusFailed
	// StatusError means a generic error marker was attributed to the case.
	StatusError
)

// String returns the lower-case status name used in summaries and storage.
func (s Status) String() string {
	switch s {
	case StatusPassed:
		return "passed"
	case StatusFailed:
		return "failed"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Location is the source position carried by a failure marker.
type Location struct {
	File string `json:"file"`
	Line int    `json:"line"`
}

// String formats the location as file:line.
func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// Failure is the payload of an assertion failure.
type Failure struct {
	Location *Location `json:"location,omitempty"`
	Message  string    `json:"message"`
}

// Error is the payload of a generic error attributed to a case.
type Error struct {
	Message string `json:"message"`
}

// TestCase is one executed unit of the target's test framework.
//
// Failure and Error are independent: a case may carry both. Status records
// the most recent transition.
type TestCase struct {
	ClassName string   `json:"classname"`
	Name      string   `json:"name"`
	Status    Status   `json:"status"`
	Failure   *Failure `json:"failure,omitempty"`
	Error     *Error   `json:"error,omitempty"`
}

// Failed reports whether a failure payload is attached.
func (c *TestCase) Failed() bool { return c.Failure != nil }

// Errored reports whether an error payload is attached.
func (c *TestCase) Errored() bool { return c.Error != nil }

// Passed reports whether the case has neither a failure nor an error.
func (c *TestCase) Passed() bool { return c.Failure == nil && c.Error == nil }

// QualifiedName returns "Class.name", or just the name when no class was set.
func (c *TestCase) QualifiedName() string {
	if c.ClassName == "" {
		return c.Name
	}
	return c.ClassName + "." + c.Name
}

// Fail marks the case failed and replaces any previous failure payload.
func (c *TestCase) Fail(loc *Location, message string) {
	c.Status = StatusFailed
	c.Failure = &Failure{Location: loc, Message: message}
}

// SetError marks the case errored. A later error overwrites an earlier one.
func (c *TestCase) SetError(message string) {
	c.Status = StatusError
	c.Error = &Error{Message: message}
}

// TestSuite is the aggregate result of one harness run.
type TestSuite struct {
	Name  string      `json:"name"`
	Cases []*TestCase `json:"cases"`
}

// NewTestSuite creates an empty suite. An empty name falls back to
// DefaultSuiteName.
func NewTestSuite(name string) *TestSuite {
	if name == "" {
		name = DefaultSuiteName
	}
	return &TestSuite{Name: name, Cases: []*TestCase{}}
}

// StartCase appends a new passing case and returns it.
func (s *TestSuite) StartCase(className, name string) *TestCase {
	tc := &TestCase{ClassName: className, Name: name, Status: StatusPassed}
	s.Cases = append(s.Cases, tc)
	return tc
}

// Counts is the derived tally of a suite.
type Counts struct {
	Total    int `json:"tests"`
	Failures int `json:"failures"`
	Errors   int `json:"errors"`
	// Skips is always zero; the target framework cannot skip tests.
	Skips int `json:"skips"`
}

// Counts derives the tally from the cases. A case carrying both a failure and
// an error is counted in both categories.
func (s *TestSuite) Counts() Counts {
	c := Counts{Total: len(s.Cases)}
	for _, tc := range s.Cases {
		if tc.Failed() {
			c.Failures++
		}
		if tc.Errored() {
			c.Errors++
		}
	}
	return c
}

// HasProblems reports whether any case failed or errored.
func (s *TestSuite) HasProblems() bool {
	c := s.Counts()
	return c.Failures > 0 || c.Errors > 0
}

// NonPassing returns the failed or errored cases in run order.
func (s *TestSuite) NonPassing() []*TestCase {
	var out []*TestCase
	for _, tc := range s.Cases {
		if !tc.Passed() {
			out = append(out, tc)
		}
	}
	return out
}
