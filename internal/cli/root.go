package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/kerntest/internal/config"
)

// RootOptions holds the flags of the root (harness) command. Verbose is
// persistent and shared with subcommands.
type RootOptions struct {
	Verbose    bool
	ConfigPath string
	DotenvPath string

	Output          string
	Suite           string
	Image           string
	Log             string
	QEMU            string
	QEMUArgs        string
	MinVersion      string
	Command         string
	BootTimeout     time.Duration
	CommandTimeout  time.Duration
	ShutdownTimeout time.Duration
	Strict          bool
	Encoding        string
	Record          string
	MetricsFile     string
}

// ValidFormats defines the allowed output formats for history.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the kerntest command. Invoked without a subcommand
// it boots the kernel image and reports the in-kernel tests.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{DotenvPath: ".env"})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	def := config.Default()

	cmd := &cobra.Command{
		Use:   "kerntest",
		Short: "Run in-kernel tests under QEMU",
		Long: `Boot a kernel image under QEMU, wait for the console prompt, shut the
virtual machine down, and turn the diagnostic serial log into a test report.

With --output the report is JUnit-style XML; without it a summary of the
failing tests is printed.

Exit codes:
  0 - virtual machine ran cleanly and every test passed
  1 - virtual machine ran cleanly and at least one test failed
  2 - the run itself failed (launch, boot, command or shutdown timeout,
      bad configuration, or the report could not be written)

Examples:
  kerntest
  kerntest -o build/kernel-tests.xml
  kerntest --image out/OS-x86.iso --boot-timeout 30s --strict
  kerntest --command run-kernel-tests --record history.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(opts, cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output (debug logs and console echo)")

	f := cmd.Flags()
	f.StringVarP(&opts.Output, "output", "o", "", "write a JUnit-style XML report to this path instead of printing a summary")
	f.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML or CUE config file")
	f.StringVar(&opts.Suite, "suite", def.Suite, "test suite name")
	f.StringVar(&opts.Image, "image", def.Image, "bootable kernel image")
	f.StringVar(&opts.Log, "log", def.Log, "diagnostic serial log path")
	f.StringVar(&opts.QEMU, "qemu", def.QEMU, "qemu command (may include a launcher)")
	f.StringVar(&opts.QEMUArgs, "qemu-args", "", "extra qemu arguments, shell-quoted")
	f.StringVar(&opts.MinVersion, "min-version", "", "minimum qemu version")
	f.StringVar(&opts.Command, "command", "", "console command to run after boot")
	f.DurationVar(&opts.BootTimeout, "boot-timeout", def.BootTimeout, "time allowed for the console prompt after launch")
	f.DurationVar(&opts.CommandTimeout, "command-timeout", 0, "time allowed for the prompt after --command (default: boot timeout)")
	f.DurationVar(&opts.ShutdownTimeout, "shutdown-timeout", def.ShutdownTimeout, "time allowed for qemu to exit after quit")
	f.BoolVar(&opts.Strict, "strict", false, "fail the run on a failure or error marker with no active test")
	f.StringVar(&opts.Encoding, "encoding", def.Encoding, "diagnostic log encoding (utf-8|cp437|latin1)")
	f.StringVar(&opts.Record, "record", "", "append the run to this SQLite history database")
	f.StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus textfile metrics to this path")

	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// resolveConfig layers explicitly set flags over config.Load.
func resolveConfig(opts *RootOptions, cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath, opts.DotenvPath)
	if err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("output", func() { cfg.Output = opts.Output })
	set("suite", func() { cfg.Suite = opts.Suite })
	set("image", func() { cfg.Image = opts.Image })
	set("log", func() { cfg.Log = opts.Log })
	set("qemu", func() { cfg.QEMU = opts.QEMU })
	set("qemu-args", func() { cfg.QEMUArgs = opts.QEMUArgs })
	set("min-version", func() { cfg.MinVersion = opts.MinVersion })
	set("command", func() { cfg.Command = opts.Command })
	set("boot-timeout", func() { cfg.BootTimeout = opts.BootTimeout })
	set("command-timeout", func() { cfg.CommandTimeout = opts.CommandTimeout })
	set("shutdown-timeout", func() { cfg.ShutdownTimeout = opts.ShutdownTimeout })
	set("strict", func() {
		if opts.Strict {
			cfg.Policy = "strict"
		} else {
			cfg.Policy = "lenient"
		}
	})
	set("encoding", func() { cfg.Encoding = opts.Encoding })
	set("record", func() { cfg.Record = opts.Record })
	set("metrics-file", func() { cfg.MetricsFile = opts.MetricsFile })

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
