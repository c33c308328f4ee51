package supervisor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// waitDelay bounds how long Wait lingers on I/O after the process is gone.
const waitDelay = time.Second

// Options configures a supervised run.
type Options struct {
	// Binary is the executable to launch, normally qemu-system-i386.
	Binary string

	// LeadingArgs are inserted between Binary and the generated QEMU
	// arguments. They let Binary be a launcher, for example
	// `taskset -c 0 qemu-system-i386`.
	LeadingArgs []string

	// ImagePath is the bootable image and ImageFlag the QEMU option used to
	// attach it (default -cdrom).
	ImagePath string
	ImageFlag string

	// LogPath receives the diagnostic serial port. It is truncated before
	// launch.
	LogPath string

	// ExtraArgs are appended to the generated QEMU arguments.
	ExtraArgs []string

	// Env is appended to the inherited environment.
	Env []string

	BootTimeout     time.Duration
	CommandTimeout  time.Duration // defaults to BootTimeout
	ShutdownTimeout time.Duration

	// Command, when set, is typed on the console after boot; the
	// supervisor then waits for the prompt again.
	Command string

	Prompt        string // default "> "
	QuitDirective string // default Ctrl-A c quit

	// MinVersion, when set, makes Run probe the binary first.
	MinVersion string

	// ConsoleEcho receives a copy of every console byte read.
	ConsoleEcho io.Writer

	Logger *slog.Logger
}

func (o *Options) setDefaults() {
	if o.Binary == "" {
		o.Binary = DefaultBinary
	}
	if o.Prompt == "" {
		o.Prompt = DefaultPrompt
	}
	if o.QuitDirective == "" {
		o.QuitDirective = DefaultQuitDirective
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = o.BootTimeout
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
}

// Result describes how far a run got. It is returned even when Run fails.
type Result struct {
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	Booted       bool   `json:"booted"`
	CommandRan   bool   `json:"command_ran"`
	ExitedOnQuit bool   `json:"exited_on_quit"`
	Killed       bool   `json:"killed"`
	ExitCode     int    `json:"exit_code"` // -1 when the process never exited on its own
	QEMUVersion  string `json:"qemu_version,omitempty"`
	Stderr       string `json:"stderr,omitempty"`
}

// OK reports whether boot, the optional command and shutdown all completed
// within their deadlines.
func (r *Result) OK() bool {
	return r.Booted && r.ExitedOnQuit && !r.Killed
}

// Supervisor owns one QEMU process for the duration of Run.
type Supervisor struct {
	opts Options
}

// New validates opts and returns a Supervisor.
func New(opts Options) (*Supervisor, error) {
	opts.setDefaults()
	if opts.ImagePath == "" {
		return nil, errors.New("image path is required")
	}
	if opts.LogPath == "" {
		return nil, errors.New("log path is required")
	}
	if opts.BootTimeout <= 0 || opts.ShutdownTimeout <= 0 {
		return nil, errors.New("boot and shutdown timeouts must be positive")
	}
	return &Supervisor{opts: opts}, nil
}

// Options returns the effective options after defaults.
func (s *Supervisor) Options() Options {
	return s.opts
}

// Run boots the image, optionally runs the command, and shuts QEMU down.
//
// A non-nil error is always a *PhaseError and means the run cannot be
// trusted. The diagnostic log may still hold partial output.
func (s *Supervisor) Run(ctx context.Context) (res *Result, err error) {
	res = &Result{Started: time.Now(), ExitCode: -1}
	defer func() { res.Duration = time.Since(res.Started) }()

	log := s.opts.Logger

	// Truncate first: a run that stops in preflight must not leave the
	// previous run's markers to be reported as its own.
	if err := resetLog(s.opts.LogPath); err != nil {
		return res, &PhaseError{Phase: PhaseStart, Err: err}
	}

	if s.opts.MinVersion != "" {
		v, verr := CheckVersion(ctx, s.opts, s.opts.MinVersion)
		if v != nil {
			res.QEMUVersion = v.String()
		}
		if verr != nil {
			return res, &PhaseError{Phase: PhasePreflight, Err: verr}
		}
		log.Debug("qemu version ok", "version", res.QEMUVersion, "minimum", s.opts.MinVersion)
	}

	p, err := s.start()
	if err != nil {
		return res, &PhaseError{Phase: PhaseStart, Err: fmt.Errorf("%w: %v", ErrStart, err)}
	}
	defer func() {
		p.terminate()
		res.Killed = p.killed
		res.Stderr = p.stderr.String()
		if p.cmd.ProcessState != nil {
			res.ExitCode = p.cmd.ProcessState.ExitCode()
		}
	}()

	if err := s.awaitPrompt(ctx, p, PhaseBoot, s.opts.BootTimeout); err != nil {
		return res, err
	}
	res.Booted = true
	log.Info("virtual machine ready")

	if s.opts.Command != "" {
		log.Info("running console command", "command", s.opts.Command)
		if _, err := io.WriteString(p.stdin, s.opts.Command+"\n"); err != nil {
			p.kill()
			return res, &PhaseError{Phase: PhaseCommand, Err: fmt.Errorf("write command: %w", err)}
		}
		if err := s.awaitPrompt(ctx, p, PhaseCommand, s.opts.CommandTimeout); err != nil {
			return res, err
		}
		res.CommandRan = true
	}

	if err := s.shutdown(ctx, p); err != nil {
		return res, err
	}
	res.ExitedOnQuit = true
	return res, nil
}

// awaitPrompt runs one bounded prompt wait and kills the process on failure.
func (s *Supervisor) awaitPrompt(ctx context.Context, p *process, phase Phase, timeout time.Duration) error {
	s.opts.Logger.Debug("waiting for prompt", "phase", phase, "timeout", timeout)
	err := WaitForSentinel(ctx, p.console, []byte(s.opts.Prompt), timeout, s.opts.ConsoleEcho)
	if err == nil {
		return nil
	}
	p.kill()
	s.opts.Logger.Error("virtual machine not ready, killed", "phase", phase, "error", err)
	return &PhaseError{Phase: phase, Timeout: timeout, Err: err}
}

// shutdown sends the quit directive and waits for the process to exit.
func (s *Supervisor) shutdown(ctx context.Context, p *process) error {
	log := s.opts.Logger

	// Nobody reads the console from here on; keep QEMU from blocking on a
	// full pipe while it shuts down.
	p.drained = make(chan struct{})
	go func() {
		defer close(p.drained)
		w := s.opts.ConsoleEcho
		if w == nil {
			w = io.Discard
		}
		_, _ = io.Copy(w, p.console)
	}()

	if _, err := io.WriteString(p.stdin, s.opts.QuitDirective); err != nil {
		log.Warn("failed to send quit directive", "error", err)
	}
	_ = p.stdin.Close()

	timer := time.NewTimer(s.opts.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-p.exited:
		if code := p.cmd.ProcessState.ExitCode(); code != 0 {
			log.Warn("virtual machine exited with non-zero status", "code", code)
		}
		log.Info("virtual machine exited")
		return nil
	case <-timer.C:
		p.kill()
		log.Error("virtual machine ignored quit, killed", "timeout", s.opts.ShutdownTimeout)
		return &PhaseError{Phase: PhaseShutdown, Timeout: s.opts.ShutdownTimeout, Err: ErrShutdownTimeout}
	case <-ctx.Done():
		p.kill()
		return &PhaseError{Phase: PhaseShutdown, Err: ctx.Err()}
	}
}

// process is the running child and the parent's ends of its pipes.
type process struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	console *os.File
	stderr  bytes.Buffer
	exited  chan struct{}
	drained chan struct{} // nil until shutdown starts draining the console
	killed  bool
}

func (s *Supervisor) start() (*process, error) {
	bin, args := s.opts.commandLine()
	s.opts.Logger.Info("starting virtual machine", "cmd", bin+" "+strings.Join(args, " "))

	p := &process{exited: make(chan struct{})}
	p.cmd = exec.Command(bin, args...)
	p.cmd.Env = append(os.Environ(), s.opts.Env...)
	p.cmd.Stderr = &p.stderr
	p.cmd.WaitDelay = waitDelay

	stdin, err := p.cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	p.stdin = stdin

	// A plain pipe instead of StdoutPipe: Wait must not close the read end
	// under an abandoned prompt reader.
	r, w, err := os.Pipe()
	if err != nil {
		_ = stdin.Close()
		return nil, err
	}
	p.cmd.Stdout = w

	if err := p.cmd.Start(); err != nil {
		_ = r.Close()
		_ = w.Close()
		_ = stdin.Close()
		return nil, err
	}
	_ = w.Close()
	p.console = r

	go func() {
		_ = p.cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}

// kill force-terminates the process if it is still running.
func (p *process) kill() {
	select {
	case <-p.exited:
		return
	default:
	}
	p.killed = true
	_ = p.cmd.Process.Kill()
}

// terminate guarantees the process is reaped, the console is closed and
// nothing writes to ConsoleEcho after Run returns.
func (p *process) terminate() {
	p.kill()
	<-p.exited
	_ = p.console.Close()
	if p.drained != nil {
		<-p.drained
	}
}

// resetLog truncates or creates the diagnostic log so stale output from an
// earlier run is never parsed.
func resetLog(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create diagnostic log: %w", err)
	}
	return f.Close()
}
