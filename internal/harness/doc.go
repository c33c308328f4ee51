// Package harness runs one kernel test session end to end.
//
// Run drives a Supervisor through boot, the optional console command and
// shutdown, then parses the diagnostic log into a report.TestSuite and emits
// the report. The log is parsed and the report written on every path, so a
// run that times out still reports the tests that ran before it stalled.
//
// # Outcome
//
// Each run yields an Outcome whose Status is one of:
//
//   - StatusSuccess: infrastructure OK and every case passed (exit 0)
//   - StatusTestsFailed: infrastructure OK, at least one case failed or
//     errored (exit 1)
//   - StatusRunFailed: the VM could not be launched, did not become ready,
//     did not shut down, or the log was rejected under the strict policy
//     (exit 2)
//
// # Deterministic Testing
//
// Options.IDs and Options.Now can be replaced with testutil.FixedRunIDGenerator
// and testutil.StepClock so outcomes are reproducible.
package harness
