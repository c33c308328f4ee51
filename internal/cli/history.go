package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kerntest/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	Format   string
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs",
		Long: `List runs recorded with --record, newest first.

With a run id, show that run and every test case it reported.

Examples:
  kerntest history --db history.db
  kerntest history --db history.db --limit 5 --format json
  kerntest history --db history.db 0190a3c4-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitRunFailed, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite history database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list (0 for all)")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, args []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if opts.Limit < 0 {
		return historyError(formatter, ErrCodeGeneric, "invalid limit", fmt.Errorf("%d is negative", opts.Limit))
	}

	// Opening creates the file; a typo in --db must not leave an empty
	// database behind.
	if _, err := os.Stat(opts.Database); err != nil {
		return historyError(formatter, ErrCodeNotFound, "database not found", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return historyError(formatter, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	if len(args) == 1 {
		run, err := st.ReadRun(ctx, args[0])
		if errors.Is(err, store.ErrRunNotFound) {
			return historyError(formatter, ErrCodeNotFound, "run not found", err)
		}
		if err != nil {
			return historyError(formatter, ErrCodeDatabase, "failed to read run", err)
		}
		if opts.Format == "json" {
			return formatter.Success(run)
		}
		return formatter.Success(formatRun(run))
	}

	runs, err := st.ListRuns(ctx, opts.Limit)
	if err != nil {
		return historyError(formatter, ErrCodeDatabase, "failed to list runs", err)
	}
	if opts.Format == "json" {
		return formatter.Success(runs)
	}
	return formatter.Success(formatRuns(runs))
}

// historyError reports err as a JSON envelope in json mode; in text mode the
// returned error is printed by main.
func historyError(f *OutputFormatter, code, message string, err error) error {
	if f.Format == "json" {
		_ = f.Error(code, fmt.Sprintf("%s: %v", message, err), nil)
	}
	return WrapExitError(ExitRunFailed, message, err)
}

func formatRuns(runs []store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded.\n"
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSUITE\tSTATUS\tTESTS\tFAIL\tERR\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.Suite,
			r.Status,
			r.Tests,
			r.Failures,
			r.Errors,
			r.Duration.Round(time.Millisecond))
	}
	_ = w.Flush()
	return b.String()
}

func formatRun(r store.Run) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Run:      %s\n", r.ID)
	fmt.Fprintf(&b, "Suite:    %s\n", r.Suite)
	if r.Image != "" {
		fmt.Fprintf(&b, "Image:    %s\n", r.Image)
	}
	fmt.Fprintf(&b, "Started:  %s\n", r.StartedAt.Local().Format(time.DateTime))
	fmt.Fprintf(&b, "Duration: %s\n", r.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Status:   %s (exit %d)\n", r.Status, r.ExitCode)
	if r.FailureReason != "" {
		fmt.Fprintf(&b, "Reason:   %s\n", r.FailureReason)
	}
	fmt.Fprintf(&b, "Tests: %d, Failures: %d, Errors: %d\n", r.Tests, r.Failures, r.Errors)

	for _, c := range r.Cases {
		line := fmt.Sprintf("  %-7s %s.%s", strings.ToUpper(c.Status), c.ClassName, c.Name)
		if c.File != "" {
			line += fmt.Sprintf(" (%s:%d)", c.File, c.Line)
		}
		if c.Message != "" {
			line += ": " + c.Message
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
