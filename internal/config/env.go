package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "KERNTEST_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Environ returns a lookup over the process environment layered on top of
// the dotenv file at path. Variables already set in the process win. A
// missing file is not an error.
func Environ(path string) (LookupFunc, error) {
	dotenv := map[string]string{}
	if path != "" {
		m, err := godotenv.Read(path)
		switch {
		case err == nil:
			dotenv = m
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}, nil
}

// ApplyEnv overlays KERNTEST_* variables onto c. KERNTEST_STRICT is a
// boolean shorthand for KERNTEST_POLICY and wins over it.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"SUITE":        &c.Suite,
		"IMAGE":        &c.Image,
		"IMAGE_FLAG":   &c.ImageFlag,
		"LOG":          &c.Log,
		"QEMU":         &c.QEMU,
		"QEMU_ARGS":    &c.QEMUArgs,
		"MIN_VERSION":  &c.MinVersion,
		"PROMPT":       &c.Prompt,
		"COMMAND":      &c.Command,
		"ENCODING":     &c.Encoding,
		"POLICY":       &c.Policy,
		"OUTPUT":       &c.Output,
		"RECORD":       &c.Record,
		"METRICS_FILE": &c.MetricsFile,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}

	durations := map[string]*time.Duration{
		"BOOT_TIMEOUT":     &c.BootTimeout,
		"COMMAND_TIMEOUT":  &c.CommandTimeout,
		"SHUTDOWN_TIMEOUT": &c.ShutdownTimeout,
	}
	for name, dst := range durations {
		v, ok := lookup(EnvPrefix + name)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		*dst = d
	}

	if v, ok := lookup(EnvPrefix + "STRICT"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSTRICT: %w", EnvPrefix, err)
		}
		if b {
			c.Policy = "strict"
		} else {
			c.Policy = "lenient"
		}
	}
	return nil
}

// Load resolves defaults, the optional config file, dotenvPath and the
// process environment, in that order. Flags are left to the caller.
func Load(configPath, dotenvPath string) (Config, error) {
	cfg := Default()
	if configPath != "" {
		if err := cfg.LoadFile(configPath); err != nil {
			return cfg, err
		}
	}
	lookup, err := Environ(dotenvPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}
	return cfg, nil
}
