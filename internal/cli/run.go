package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/kerntest/internal/config"
	"github.com/roach88/kerntest/internal/harness"
	"github.com/roach88/kerntest/internal/metrics"
	"github.com/roach88/kerntest/internal/store"
	"github.com/roach88/kerntest/internal/supervisor"
)

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func runHarness(opts *RootOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := resolveConfig(opts, cmd)
	if err != nil {
		return WrapExitError(ExitRunFailed, "configuration error", err)
	}

	supOpts, err := supervisorOptions(cfg, logger)
	if err != nil {
		return WrapExitError(ExitRunFailed, "configuration error", err)
	}
	if opts.Verbose {
		supOpts.ConsoleEcho = cmd.ErrOrStderr()
	}
	sup, err := supervisor.New(supOpts)
	if err != nil {
		return WrapExitError(ExitRunFailed, "configuration error", err)
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping virtual machine", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	out, err := harness.Run(ctx, sup, harness.Options{
		SuiteName: cfg.Suite,
		LogPath:   cfg.Log,
		Encoding:  cfg.Encoding,
		Policy:    cfg.ParserPolicy(),
		Output:    cfg.Output,
		Stdout:    cmd.OutOrStdout(),
		Logger:    logger,
	})
	if err != nil {
		return WrapExitError(ExitRunFailed, "failed to emit report", err)
	}

	if cfg.Record != "" {
		if err := recordRun(ctx, cfg, out, logger); err != nil {
			return WrapExitError(ExitRunFailed, "failed to record run", err)
		}
	}
	if cfg.MetricsFile != "" {
		if err := metrics.Export(cfg.MetricsFile, out); err != nil {
			return WrapExitError(ExitRunFailed, "failed to write metrics", err)
		}
		logger.Debug("metrics written", "path", cfg.MetricsFile)
	}

	switch code := out.ExitCode(); code {
	case ExitSuccess:
		return nil
	case ExitTestsFailed:
		c := out.Suite.Counts()
		return NewExitError(code, fmt.Sprintf("%d of %d tests did not pass", c.Failures+c.Errors, c.Total))
	default:
		return NewExitError(code, "run failed: "+out.FailureReason())
	}
}

// supervisorOptions maps the resolved configuration onto the supervisor.
func supervisorOptions(cfg config.Config, logger *slog.Logger) (supervisor.Options, error) {
	bin, leading, err := cfg.Launcher()
	if err != nil {
		return supervisor.Options{}, err
	}
	extra, err := cfg.ExtraArgs()
	if err != nil {
		return supervisor.Options{}, err
	}
	return supervisor.Options{
		Binary:          bin,
		LeadingArgs:     leading,
		ImagePath:       cfg.Image,
		ImageFlag:       cfg.ImageFlag,
		LogPath:         cfg.Log,
		ExtraArgs:       extra,
		BootTimeout:     cfg.BootTimeout,
		CommandTimeout:  cfg.EffectiveCommandTimeout(),
		ShutdownTimeout: cfg.ShutdownTimeout,
		Command:         cfg.Command,
		Prompt:          cfg.Prompt,
		QuitDirective:   cfg.Quit,
		MinVersion:      cfg.MinVersion,
		Logger:          logger,
	}, nil
}

func recordRun(ctx context.Context, cfg config.Config, out *harness.Outcome, logger *slog.Logger) error {
	st, err := store.Open(cfg.Record)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// Record even when the run was interrupted.
	if err := st.WriteRun(context.WithoutCancel(ctx), store.FromOutcome(out, cfg.Image)); err != nil {
		return err
	}
	logger.Info("run recorded", "db", cfg.Record, "run_id", out.RunID)
	return nil
}
