// Package diaglog turns the target's diagnostic log into a report.TestSuite.
//
// The log is line oriented. These markers are recognised, everything else is
// ignored:
//
//	INFO: Tests: TestClass: <name>                  class start
//	INFO: Tests: TestSuite: <name>                  class start (suite-style emitters)
//	INFO: Tests: Test: <name>                       test start
//	ERROR: Tests: Fail: <file>, line <n>: <message> assertion failure
//	ERROR: <message>                                generic error
//
// Parsing is a single left-to-right scan over an explicit cursor; the same
// lines always produce the same suite.
//
// A failure or error marker that arrives before any test has started has no
// case to attach to. Under PolicyLenient the marker is dropped; under
// PolicyStrict the first such marker is returned as a *ParseError alongside
// the complete suite; parsing continues past it.
package diaglog
