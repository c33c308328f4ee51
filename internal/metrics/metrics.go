// Package metrics exports the result of a harness run as a Prometheus
// textfile, for node_exporter's textfile collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/kerntest/internal/harness"
)

// Registry holds the per-run gauges. Each run gets its own registry so a
// textfile only ever describes one run.
type Registry struct {
	reg *prometheus.Registry

	Tests     *prometheus.GaugeVec
	Failures  *prometheus.GaugeVec
	Errors    *prometheus.GaugeVec
	Skips     *prometheus.GaugeVec
	RunOK     *prometheus.GaugeVec
	ExitCode  *prometheus.GaugeVec
	Duration  *prometheus.GaugeVec
	Timestamp *prometheus.GaugeVec
}

// New creates an empty registry.
func New() *Registry {
	r := &Registry{reg: prometheus.NewRegistry()}
	f := promauto.With(r.reg)
	labels := []string{"suite"}

	r.Tests = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_tests",
		Help: "Number of test cases in the last run",
	}, labels)
	r.Failures = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_failures",
		Help: "Number of failed test cases in the last run",
	}, labels)
	r.Errors = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_errors",
		Help: "Number of errored test cases in the last run",
	}, labels)
	r.Skips = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_skips",
		Help: "Number of skipped test cases in the last run",
	}, labels)
	r.RunOK = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_run_ok",
		Help: "1 if the virtual machine booted and shut down cleanly",
	}, labels)
	r.ExitCode = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_exit_code",
		Help: "Harness exit code (0 success, 1 tests failed, 2 run failed)",
	}, labels)
	r.Duration = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_duration_seconds",
		Help: "Wall time of the last run",
	}, labels)
	r.Timestamp = f.NewGaugeVec(prometheus.GaugeOpts{
		Name: "kerntest_last_run_timestamp_seconds",
		Help: "Unix time the last run started",
	}, labels)

	return r
}

// Observe records out.
func (r *Registry) Observe(out *harness.Outcome) {
	suite := out.Suite.Name
	c := out.Suite.Counts()

	r.Tests.WithLabelValues(suite).Set(float64(c.Total))
	r.Failures.WithLabelValues(suite).Set(float64(c.Failures))
	r.Errors.WithLabelValues(suite).Set(float64(c.Errors))
	r.Skips.WithLabelValues(suite).Set(float64(c.Skips))
	r.ExitCode.WithLabelValues(suite).Set(float64(out.ExitCode()))
	r.Duration.WithLabelValues(suite).Set(out.Duration.Seconds())
	r.Timestamp.WithLabelValues(suite).Set(float64(out.Started.Unix()))

	ok := 0.0
	if out.InfrastructureOK() {
		ok = 1
	}
	r.RunOK.WithLabelValues(suite).Set(ok)
}

// WriteTextfile writes the registry to path in the text exposition format.
// The file is replaced atomically.
func (r *Registry) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}

// Export is New, Observe and WriteTextfile in one call.
func Export(path string, out *harness.Outcome) error {
	r := New()
	r.Observe(out)
	return r.WriteTextfile(path)
}
