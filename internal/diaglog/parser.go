package diaglog

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/roach88/kerntest/internal/report"
)

// Policy decides what happens to a marker that needs an active test case
// when none exists.
type Policy int

const (
	// PolicyLenient drops the marker and keeps parsing.
	PolicyLenient Policy = iota
	// PolicyStrict reports the first orphan marker as a *ParseError. The
	// scan still runs to the end so later cases are kept.
	PolicyStrict
)

// ParsePolicy converts "lenient" or "strict" to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(s) {
	case "", "lenient":
		return PolicyLenient, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return PolicyLenient, fmt.Errorf("unknown parse policy %q: must be lenient or strict", s)
	}
}

// ParseError reports a marker that arrived with no active test case.
type ParseError struct {
	LineNo int // 1-based
	Marker MarkerKind
	Text   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s marker with no active test: %q", e.LineNo, e.Marker, e.Text)
}

// ErrNoActiveCase is matched by every *ParseError via errors.Is.
var ErrNoActiveCase = errors.New("marker with no active test case")

// Is lets errors.Is(err, ErrNoActiveCase) match.
func (e *ParseError) Is(target error) bool {
	return target == ErrNoActiveCase
}

// cursor is the parser's context between lines.
//
// caseIndex is -1 while no test is active: before the first test start and
// after every class start, so markers emitted between a class start and its
// first test are never attributed to the previous class's last test.
type cursor struct {
	className string
	caseIndex int
}

// Parser consumes log lines and builds a suite.
type Parser struct {
	policy  Policy
	logger  *slog.Logger
	suite   *report.TestSuite
	cur     cursor
	lineNo  int
	dropped int
	err     error
}

// Option configures a Parser.
type Option func(*Parser)

// WithPolicy sets the malformed-marker policy. The default is PolicyLenient.
func WithPolicy(p Policy) Option {
	return func(ps *Parser) { ps.policy = p }
}

// WithLogger sets the logger used to report dropped markers.
func WithLogger(l *slog.Logger) Option {
	return func(ps *Parser) { ps.logger = l }
}

// NewParser creates a parser that fills a new suite with the given name.
func NewParser(suiteName string, opts ...Option) *Parser {
	p := &Parser{
		policy: PolicyLenient,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		suite:  report.NewTestSuite(suiteName),
		cur:    cursor{caseIndex: -1},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Dropped returns how many markers were discarded under PolicyLenient.
func (p *Parser) Dropped() int {
	return p.dropped
}

// Suite returns the suite built so far.
func (p *Parser) Suite() *report.TestSuite {
	return p.suite
}

// Err returns the first *ParseError seen under PolicyStrict, or nil.
func (p *Parser) Err() error {
	return p.err
}

// Feed processes one line. A trailing carriage return is ignored.
// It only returns an error under PolicyStrict; the parser stays usable and
// the first such error is kept for Err.
func (p *Parser) Feed(line string) error {
	p.lineNo++
	line = strings.TrimSuffix(line, "\r")

	m := Classify(line)
	switch m.Kind {
	case MarkerClassStart:
		p.cur = cursor{className: m.Name, caseIndex: -1}

	case MarkerTestStart:
		p.suite.StartCase(p.cur.className, m.Name)
		p.cur.caseIndex = len(p.suite.Cases) - 1

	case MarkerTestFail:
		tc, err := p.current(m, line)
		if tc == nil {
			return err
		}
		tc.Fail(&report.Location{File: m.File, Line: m.Line}, m.Message)

	case MarkerGenericError:
		tc, err := p.current(m, line)
		if tc == nil {
			return err
		}
		tc.SetError(m.Message)
	}
	return nil
}

// current returns the active case, or applies the policy when there is none.
// A nil case with a nil error means the marker was dropped.
func (p *Parser) current(m Marker, line string) (*report.TestCase, error) {
	if p.cur.caseIndex >= 0 {
		return p.suite.Cases[p.cur.caseIndex], nil
	}
	if p.policy == PolicyStrict {
		err := &ParseError{LineNo: p.lineNo, Marker: m.Kind, Text: line}
		if p.err == nil {
			p.err = err
		}
		return nil, err
	}
	p.dropped++
	p.logger.Warn("dropping marker with no active test", "line", p.lineNo, "marker", m.Kind.String())
	return nil, nil
}

// ParseLines parses an in-memory slice of lines. Under PolicyStrict the
// returned error is the first *ParseError; every line is still parsed.
func ParseLines(suiteName string, lines []string, opts ...Option) (*report.TestSuite, error) {
	p := NewParser(suiteName, opts...)
	for _, line := range lines {
		_ = p.Feed(line)
	}
	return p.Suite(), p.Err()
}

// Parse reads r to the end and parses every line. Lines may be arbitrarily
// long; a final line without a newline is still parsed.
func Parse(r io.Reader, suiteName string, opts ...Option) (*report.TestSuite, error) {
	p := NewParser(suiteName, opts...)
	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return p.Suite(), fmt.Errorf("read diagnostic log: %w", readErr)
		}
		if line != "" || readErr == nil {
			_ = p.Feed(strings.TrimSuffix(line, "\n"))
		}
		if readErr == io.EOF {
			return p.Suite(), p.Err()
		}
	}
}
