// Package report holds the result model for one harness run and renders it.
//
// A TestSuite is an ordered list of TestCase values in the order the target
// executed them. Cases are appended by the diagnostic log parser and mutated
// only through the current-case hooks (Fail, SetError) until the next case starts.
//
// Two read-only projections are provided:
//
//   - WriteXML renders the JUnit-style report consumed by CI systems.
//   - WriteSummary renders a short human summary listing only non-passing
//     cases, followed by a tally line.
//
// # Escaping
//
// Free text lands in two different XML contexts and each has its own
// escaper. EscapeAttr is for attribute values (`&`, `"` and `<`), EscapeText is
// for element bodies (`&`, `<`, `>`). They are never combined.
package report
