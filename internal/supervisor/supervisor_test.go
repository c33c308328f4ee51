package supervisor

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/kerntest/internal/testutil"
)

func readLog(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Options{LogPath: "k.log", BootTimeout: time.Second, ShutdownTimeout: time.Second})
	assert.Error(t, err, "missing image")

	_, err = New(Options{ImagePath: "os.iso", BootTimeout: time.Second, ShutdownTimeout: time.Second})
	assert.Error(t, err, "missing log")

	_, err = New(Options{ImagePath: "os.iso", LogPath: "k.log", ShutdownTimeout: time.Second})
	assert.Error(t, err, "missing boot timeout")
}

func TestNew_Defaults(t *testing.T) {
	s, err := New(Options{ImagePath: "os.iso", LogPath: "k.log", BootTimeout: 3 * time.Second, ShutdownTimeout: time.Second})
	require.NoError(t, err)

	o := s.Options()
	assert.Equal(t, DefaultBinary, o.Binary)
	assert.Equal(t, DefaultPrompt, o.Prompt)
	assert.Equal(t, DefaultQuitDirective, o.QuitDirective)
	assert.Equal(t, 3*time.Second, o.CommandTimeout)
	assert.NotNil(t, o.Logger)
}

func TestRun_Clean(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioReady)
	require.NoError(t, os.WriteFile(opts.LogPath, []byte("stale output\n"), 0644))

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.True(t, res.Booted)
	assert.True(t, res.ExitedOnQuit)
	assert.False(t, res.Killed)
	assert.False(t, res.CommandRan)
	assert.Equal(t, 0, res.ExitCode)

	log := readLog(t, opts.LogPath)
	assert.NotContains(t, log, "stale output")
	assert.Contains(t, log, "INFO: Tests: Test: alloc_oom")
}

func TestRun_WithCommand(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioReady)
	opts.Command = testutil.FakeCommand

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.CommandRan)
	assert.Contains(t, readLog(t, opts.LogPath), "INFO: Tests: Test: map_kernel")
}

func TestRun_WithMinVersion(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioReady)
	opts.MinVersion = "7.0"

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8.2.2", res.QEMUVersion)
}

func TestRun_VersionTooOld(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioReady)
	opts.MinVersion = "10.0"
	require.NoError(t, os.WriteFile(opts.LogPath, []byte("INFO: Tests: Test: old_case\n"), 0644))

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	var pe *PhaseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhasePreflight, pe.Phase)
	assert.ErrorIs(t, err, ErrVersion)
	assert.False(t, res.Booted)
	assert.Empty(t, readLog(t, opts.LogPath), "stale log from an earlier run is truncated")
}

func TestRun_BootTimeout(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioNoPrompt)
	opts.BootTimeout = 2 * time.Second

	s, err := New(opts)
	require.NoError(t, err)

	start := time.Now()
	res, err := s.Run(context.Background())
	assert.Less(t, time.Since(start), 20*time.Second)

	var pe *PhaseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseBoot, pe.Phase)
	assert.Equal(t, 2*time.Second, pe.Timeout)
	assert.ErrorIs(t, err, ErrPromptTimeout)

	assert.False(t, res.OK())
	assert.False(t, res.Booted)
	assert.True(t, res.Killed)
	assert.Contains(t, readLog(t, opts.LogPath), "expected non-null", "partial log is kept")
}

func TestRun_Cancelled(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioNoPrompt)
	opts.BootTimeout = time.Minute

	s, err := New(opts)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	res, err := s.Run(ctx)
	assert.Less(t, time.Since(start), 20*time.Second)

	var pe *PhaseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseBoot, pe.Phase)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, res.Killed)
}

func TestRun_Crash(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioCrash)

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrConsoleClosed)
	assert.False(t, res.Booted)
	assert.Equal(t, 3, res.ExitCode)
	assert.Contains(t, res.Stderr, "triple fault")
}

func TestRun_CommandTimeout(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioHangCommand)
	opts.Command = testutil.FakeCommand
	opts.CommandTimeout = time.Second

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	var pe *PhaseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseCommand, pe.Phase)
	assert.ErrorIs(t, err, ErrPromptTimeout)
	assert.True(t, res.Booted)
	assert.False(t, res.CommandRan)
	assert.True(t, res.Killed)
}

func TestRun_ShutdownTimeout(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioIgnoreQuit)
	opts.ShutdownTimeout = time.Second

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	var pe *PhaseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, PhaseShutdown, pe.Phase)
	assert.ErrorIs(t, err, ErrShutdownTimeout)
	assert.True(t, res.Booted)
	assert.False(t, res.ExitedOnQuit)
	assert.True(t, res.Killed)
}

func TestRun_StartFailure(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioReady)
	opts.Binary = "/nonexistent/qemu-system-i386"
	opts.LeadingArgs = nil

	s, err := New(opts)
	require.NoError(t, err)

	res, err := s.Run(context.Background())
	assert.ErrorIs(t, err, ErrStart)
	assert.False(t, res.Booted)
	assert.Equal(t, -1, res.ExitCode)
}

func TestRun_ConsoleEcho(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioReady)
	var echo strings.Builder
	opts.ConsoleEcho = &lockedWriter{w: &echo}

	s, err := New(opts)
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	require.NoError(t, err)
	assert.Contains(t, opts.ConsoleEcho.(*lockedWriter).String(), "kernel> ")
}

// lateWriter records whether anything was written after sealed is set.
type lateWriter struct {
	buf    strings.Builder
	sealed atomic.Bool
	late   atomic.Int32
}

func (w *lateWriter) Write(p []byte) (int, error) {
	if w.sealed.Load() {
		w.late.Add(1)
	}
	return w.buf.Write(p)
}

func TestRun_ConsoleEchoQuietAfterReturn(t *testing.T) {
	opts := fakeOptions(t, testutil.ScenarioReady)
	echo := &lateWriter{}
	opts.ConsoleEcho = echo

	s, err := New(opts)
	require.NoError(t, err)

	_, err = s.Run(context.Background())
	echo.sealed.Store(true)
	require.NoError(t, err)

	// Unsynchronized read: the race detector flags any writer still running.
	assert.Contains(t, echo.buf.String(), "kernel> ")
	time.Sleep(100 * time.Millisecond)
	assert.Zero(t, echo.late.Load())
}

func TestPhaseError_Message(t *testing.T) {
	err := &PhaseError{Phase: PhaseBoot, Timeout: 10 * time.Second, Err: ErrPromptTimeout}
	assert.Equal(t, "boot (timeout 10s): console prompt not seen before deadline", err.Error())

	err = &PhaseError{Phase: PhaseStart, Err: ErrStart}
	assert.Equal(t, "start: failed to start virtual machine", err.Error())
}
