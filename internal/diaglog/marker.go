package diaglog

import (
	"regexp"
	"strconv"
	"strings"
)

// MarkerKind identifies a recognised log line.
type MarkerKind int

const (
	// MarkerNone is any line that is not a marker.
	MarkerNone MarkerKind = iota
	MarkerClassStart
	MarkerTestStart
	MarkerTestFail
	MarkerGenericError
)

// String returns a short marker name for logs and errors.
func (k MarkerKind) String() string {
	switch k {
	case MarkerClassStart:
		return "TestClassStart"
	case MarkerTestStart:
		return "TestStart"
	case MarkerTestFail:
		return "TestFail"
	case MarkerGenericError:
		return "GenericError"
	default:
		return "None"
	}
}

// Line prefixes emitted by the kernel logger.
const (
	prefixClass = "INFO: Tests: TestClass: "
	prefixSuite = "INFO: Tests: TestSuite: "
	prefixTest  = "INFO: Tests: Test: "
	prefixFail  = "ERROR: Tests: Fail: "
	prefixError = "ERROR: "
)

// failSuffixRe splits "<file>, line <n>: <message>". The file part is matched
// lazily so a message containing ", line 3: " stays in the message.
var failSuffixRe = regexp.MustCompile(`^(.*?), line (\d+): (.*)$`)

// Marker is one classified log line.
type Marker struct {
	Kind    MarkerKind
	Name    string // class or test name
	File    string // TestFail only
	Line    int    // TestFail only
	Message string // TestFail and GenericError
}

// Classify matches a single line (without its line terminator) against the
// marker grammar. Unrecognised lines return a Marker with Kind MarkerNone.
//
// A "Fail:" line whose suffix does not carry a file and line number is
// classified as a generic error, keeping the whole text after "ERROR: ".
func Classify(line string) Marker {
	switch {
	case strings.HasPrefix(line, prefixClass):
		return Marker{Kind: MarkerClassStart, Name: line[len(prefixClass):]}
	case strings.HasPrefix(line, prefixSuite):
		return Marker{Kind: MarkerClassStart, Name: line[len(prefixSuite):]}
	case strings.HasPrefix(line, prefixTest):
		return Marker{Kind: MarkerTestStart, Name: line[len(prefixTest):]}
	case strings.HasPrefix(line, prefixFail):
		if m := failSuffixRe.FindStringSubmatch(line[len(prefixFail):]); m != nil {
			if n, err := strconv.Atoi(m[2]); err == nil {
				return Marker{Kind: MarkerTestFail, File: m[1], Line: n, Message: m[3]}
			}
		}
		return Marker{Kind: MarkerGenericError, Message: line[len(prefixError):]}
	case strings.HasPrefix(line, prefixError):
		return Marker{Kind: MarkerGenericError, Message: line[len(prefixError):]}
	}
	return Marker{Kind: MarkerNone}
}
