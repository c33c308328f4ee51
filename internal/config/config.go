package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	version "github.com/hashicorp/go-version"
	"github.com/kballard/go-shellquote"
	"gopkg.in/yaml.v3"

	"github.com/roach88/kerntest/internal/diaglog"
	"github.com/roach88/kerntest/internal/report"
)

// Config is the fully resolved harness configuration.
type Config struct {
	// Suite names the emitted test suite.
	Suite string `yaml:"suite"`

	// Image is the bootable kernel image, attached with ImageFlag.
	Image     string `yaml:"image"`
	ImageFlag string `yaml:"image_flag"`

	// Log is where QEMU writes the diagnostic serial port.
	Log string `yaml:"log"`

	// QEMU is the emulator command. It is shell-split, so a launcher such as
	// "taskset -c 0 qemu-system-i386" is allowed.
	QEMU string `yaml:"qemu"`

	// QEMUArgs are extra emulator arguments as one shell-quoted string.
	QEMUArgs string `yaml:"qemu_args"`

	MinVersion string `yaml:"min_version"`

	Prompt  string `yaml:"prompt"`
	Quit    string `yaml:"quit"`
	Command string `yaml:"command"`

	BootTimeout     time.Duration `yaml:"boot_timeout"`
	CommandTimeout  time.Duration `yaml:"command_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Policy is "lenient" or "strict", see diaglog.Policy.
	Policy   string `yaml:"policy"`
	Encoding string `yaml:"encoding"`

	// Output is the XML report path; empty prints a summary to stdout.
	Output      string `yaml:"output"`
	Record      string `yaml:"record"`
	MetricsFile string `yaml:"metrics_file"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Suite:           report.DefaultSuiteName,
		Image:           "bin/OS-x86.iso",
		ImageFlag:       "-cdrom",
		Log:             "kernel-x86.log",
		QEMU:            "qemu-system-i386",
		Prompt:          "> ",
		Quit:            "\x01cquit\n",
		BootTimeout:     10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
		Policy:          "lenient",
		Encoding:        "utf-8",
	}
}

// LoadFile overlays the settings in path onto c. Files ending in .cue are
// validated against the embedded schema; anything else is read as YAML.
// Unknown keys are rejected in both formats.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".cue") {
		data, err = cueToJSON(path, data)
		if err != nil {
			return err
		}
	}

	if err := c.decodeYAML(data); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) decodeYAML(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(c)
}

// Validate checks the resolved configuration.
func (c *Config) Validate() error {
	var errs []error
	if c.Image == "" {
		errs = append(errs, errors.New("image path is required"))
	}
	if c.Log == "" {
		errs = append(errs, errors.New("log path is required"))
	}
	if c.Prompt == "" {
		errs = append(errs, errors.New("prompt must not be empty"))
	}
	if c.Quit == "" {
		errs = append(errs, errors.New("quit directive must not be empty"))
	}
	if c.BootTimeout <= 0 {
		errs = append(errs, fmt.Errorf("boot timeout must be positive, got %s", c.BootTimeout))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown timeout must be positive, got %s", c.ShutdownTimeout))
	}
	if c.CommandTimeout < 0 {
		errs = append(errs, fmt.Errorf("command timeout must not be negative, got %s", c.CommandTimeout))
	}
	if _, err := diaglog.ParsePolicy(c.Policy); err != nil {
		errs = append(errs, err)
	}
	if !diaglog.ValidEncoding(c.Encoding) {
		errs = append(errs, fmt.Errorf("unsupported log encoding %q: must be one of %v", c.Encoding, diaglog.Encodings))
	}
	if c.MinVersion != "" {
		if _, err := version.NewVersion(c.MinVersion); err != nil {
			errs = append(errs, fmt.Errorf("invalid min_version %q: %w", c.MinVersion, err))
		}
	}
	if _, _, err := c.Launcher(); err != nil {
		errs = append(errs, err)
	}
	if _, err := c.ExtraArgs(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Launcher splits QEMU into the executable and any words that precede the
// generated emulator arguments.
func (c *Config) Launcher() (string, []string, error) {
	words, err := shellquote.Split(c.QEMU)
	if err != nil {
		return "", nil, fmt.Errorf("invalid qemu command %q: %w", c.QEMU, err)
	}
	if len(words) == 0 {
		return "", nil, errors.New("qemu command must not be empty")
	}
	return words[0], words[1:], nil
}

// ExtraArgs splits QEMUArgs.
func (c *Config) ExtraArgs() ([]string, error) {
	args, err := shellquote.Split(c.QEMUArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid qemu args %q: %w", c.QEMUArgs, err)
	}
	return args, nil
}

// ParserPolicy returns the parsed Policy. Unknown values, which Validate
// rejects, fall back to lenient.
func (c *Config) ParserPolicy() diaglog.Policy {
	p, _ := diaglog.ParsePolicy(c.Policy)
	return p
}

// EffectiveCommandTimeout is CommandTimeout, or BootTimeout when unset.
func (c *Config) EffectiveCommandTimeout() time.Duration {
	if c.CommandTimeout > 0 {
		return c.CommandTimeout
	}
	return c.BootTimeout
}
