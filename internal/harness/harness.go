package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/kerntest/internal/diaglog"
	"github.com/roach88/kerntest/internal/report"
	"github.com/roach88/kerntest/internal/supervisor"
)

// Supervisor runs the virtual machine. *supervisor.Supervisor implements it.
type Supervisor interface {
	Run(ctx context.Context) (*supervisor.Result, error)
}

// Options configures Run.
type Options struct {
	// SuiteName names the report; empty means report.DefaultSuiteName.
	SuiteName string

	// LogPath is the diagnostic log the supervisor's VM writes to.
	LogPath string

	// Encoding of the diagnostic log, see diaglog.Encodings.
	Encoding string

	Policy diaglog.Policy

	// Output is the XML report path. Empty prints a summary to Stdout.
	Output string
	Stdout io.Writer

	IDs    RunIDGenerator
	Now    func() time.Time
	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.SuiteName == "" {
		o.SuiteName = report.DefaultSuiteName
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.IDs == nil {
		o.IDs = UUIDv7Generator{}
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Run executes one harness session.
//
// The returned Outcome is always non-nil. The error is reserved for failures
// to emit the report; infrastructure and parse failures are recorded on the
// Outcome instead.
func Run(ctx context.Context, sup Supervisor, opts Options) (*Outcome, error) {
	opts.setDefaults()

	out := &Outcome{
		RunID:   opts.IDs.Generate(),
		Started: opts.Now(),
	}
	log := opts.Logger.With("run_id", out.RunID)
	log.Info("starting test run", "suite", opts.SuiteName, "log", opts.LogPath)

	out.VM, out.InfraErr = sup.Run(ctx)
	if out.InfraErr != nil {
		log.Error("virtual machine run failed", "error", out.InfraErr)
	}

	out.Suite, out.ParseErr = parseLog(opts, log)
	if out.ParseErr != nil {
		log.Error("diagnostic log rejected", "error", out.ParseErr)
	}
	out.Duration = opts.Now().Sub(out.Started)

	if err := emit(out, opts); err != nil {
		return out, err
	}

	c := out.Suite.Counts()
	log.Info("test run finished",
		"status", out.Status(),
		"tests", c.Total,
		"failures", c.Failures,
		"errors", c.Errors,
		"duration", out.Duration)
	return out, nil
}

// parseLog parses whatever the VM left in the log. A missing log is an empty
// suite: the VM may have died before opening its serial port.
func parseLog(opts Options, log *slog.Logger) (*report.TestSuite, error) {
	f, err := os.Open(opts.LogPath)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn("diagnostic log not found, reporting empty suite", "path", opts.LogPath)
		return report.NewTestSuite(opts.SuiteName), nil
	}
	if err != nil {
		return report.NewTestSuite(opts.SuiteName), fmt.Errorf("open diagnostic log: %w", err)
	}
	defer f.Close()

	r, err := diaglog.NewDecodingReader(f, opts.Encoding)
	if err != nil {
		return report.NewTestSuite(opts.SuiteName), err
	}
	return diaglog.Parse(r, opts.SuiteName,
		diaglog.WithPolicy(opts.Policy),
		diaglog.WithLogger(log))
}

// emit writes the XML report or the text summary.
func emit(out *Outcome, opts Options) error {
	if opts.Output == "" {
		if err := report.WriteSummary(opts.Stdout, out.Suite); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		if reason := out.FailureReason(); reason != "" {
			if _, err := fmt.Fprintf(opts.Stdout, "Run failed: %s\n", reason); err != nil {
				return fmt.Errorf("write summary: %w", err)
			}
		}
		return nil
	}

	if err := writeFileAtomic(opts.Output, func(w io.Writer) error {
		return report.WriteXML(w, out.Suite)
	}); err != nil {
		return fmt.Errorf("write report %s: %w", opts.Output, err)
	}
	out.ReportPath = opts.Output
	opts.Logger.Info("report written", "path", opts.Output)
	return nil
}

// writeFileAtomic writes through a temp file in the destination directory
// and renames it into place, so readers never see a partial report.
func writeFileAtomic(path string, write func(io.Writer) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Chmod(0644); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
