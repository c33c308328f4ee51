package supervisor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"time"

	version "github.com/hashicorp/go-version"
)

const probeTimeout = 10 * time.Second

var qemuVersionRe = regexp.MustCompile(`version (\d+(?:\.\d+)+)`)

// ParseQEMUVersion extracts the version from `qemu-system-* --version` output,
// e.g. "QEMU emulator version 8.2.2 (Debian 1:8.2.2+ds-0ubuntu1)".
func ParseQEMUVersion(output string) (*version.Version, error) {
	m := qemuVersionRe.FindStringSubmatch(output)
	if m == nil {
		return nil, fmt.Errorf("%w: no version in %q", ErrVersion, output)
	}
	v, err := version.NewVersion(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVersion, err)
	}
	return v, nil
}

// ProbeVersion runs the configured binary with --version.
func ProbeVersion(ctx context.Context, o Options) (*version.Version, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	args := append(append([]string{}, o.LeadingArgs...), "--version")
	cmd := exec.CommandContext(ctx, o.Binary, args...)
	cmd.Env = append(os.Environ(), o.Env...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%w: %s --version: %v", ErrVersion, o.Binary, err)
	}
	return ParseQEMUVersion(string(out))
}

// CheckVersion fails when the binary is older than minimum. An empty minimum
// skips the probe entirely.
func CheckVersion(ctx context.Context, o Options, minimum string) (*version.Version, error) {
	if minimum == "" {
		return nil, nil
	}
	want, err := version.NewVersion(minimum)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum qemu version %q: %w", minimum, err)
	}
	got, err := ProbeVersion(ctx, o)
	if err != nil {
		return nil, err
	}
	if got.LessThan(want) {
		return got, fmt.Errorf("%w: have %s, need >= %s", ErrVersion, got, want)
	}
	return got, nil
}
