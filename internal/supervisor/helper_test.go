package supervisor

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/roach88/kerntest/internal/testutil"
)

// TestHelperProcess is not a real test. It turns the test binary into a fake
// QEMU when re-executed by fakeOptions.
func TestHelperProcess(t *testing.T) {
	if os.Getenv(testutil.FakeVMEnv) == "" {
		return
	}
	os.Exit(testutil.RunFakeVM(testutil.HelperArgs(os.Args)))
}

func fakeOptions(t *testing.T, scenario string) Options {
	t.Helper()
	bin, leading, env := testutil.HelperCommand(scenario)
	dir := t.TempDir()
	return Options{
		Binary:          bin,
		LeadingArgs:     leading,
		Env:             env,
		ImagePath:       filepath.Join(dir, "OS-x86.iso"),
		LogPath:         filepath.Join(dir, "kernel-x86.log"),
		BootTimeout:     10 * time.Second,
		ShutdownTimeout: 5 * time.Second,
	}
}

// lockedWriter serializes writes from the prompt reader and the shutdown
// drain goroutine.
type lockedWriter struct {
	mu sync.Mutex
	w  *strings.Builder
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func (l *lockedWriter) String() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.String()
}
