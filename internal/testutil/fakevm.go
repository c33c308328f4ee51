package testutil

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// FakeVMEnv selects the fake VM scenario. Test binaries re-executed with this
// variable set act as a QEMU stand-in instead of running tests.
const FakeVMEnv = "KERNTEST_FAKE_VM"

// FakeVM scenarios.
const (
	// ScenarioReady boots, writes BootLog, serves FakeCommand and quits on
	// the monitor quit directive.
	ScenarioReady = "ready"
	// ScenarioPassing is ScenarioReady with a log that has no failures.
	ScenarioPassing = "passing"
	// ScenarioNoPrompt writes part of the log and never shows the prompt.
	ScenarioNoPrompt = "no-prompt"
	// ScenarioCrash exits with status 3 before the prompt.
	ScenarioCrash = "crash"
	// ScenarioIgnoreQuit shows the prompt and never exits on its own.
	ScenarioIgnoreQuit = "ignore-quit"
	// ScenarioHangCommand never returns to the prompt after a command.
	ScenarioHangCommand = "hang-command"
)

// FakeCommand is the console command understood by the fake VM.
const FakeCommand = "run-kernel-tests"

// FakeQEMUVersion is printed for --version.
const FakeQEMUVersion = "QEMU emulator version 8.2.2 (fake)\nCopyright (c) 2003-2023 Fabrice Bellard and the QEMU Project developers\n"

// BootLog is written to the diagnostic port during boot by ScenarioReady.
var BootLog = []string{
	"INFO: Kernel: booting",
	"INFO: Tests: TestClass: Alloc",
	"INFO: Tests: Test: alloc_basic",
	"INFO: Tests: TestClass: Alloc",
	"INFO: Tests: Test: alloc_oom",
	"ERROR: Tests: Fail: alloc.c, line 42: expected non-null",
}

// CommandLog is appended when FakeCommand is received.
var CommandLog = []string{
	"INFO: Tests: TestClass: Paging",
	"INFO: Tests: Test: map_kernel",
	"ERROR: page fault at 0x1000",
}

// PassingLog is written during boot by ScenarioPassing.
var PassingLog = []string{
	"INFO: Tests: TestClass: Alloc",
	"INFO: Tests: Test: alloc_basic",
	"INFO: Tests: Test: alloc_free",
}

// NoPromptLog is written by ScenarioNoPrompt before it stalls.
var NoPromptLog = []string{
	"INFO: Tests: TestClass: Alloc",
	"INFO: Tests: Test: alloc_oom",
	"ERROR: Tests: Fail: alloc.c, line 42: expected non-null",
}

// HelperCommand returns the binary, leading arguments and environment that
// re-execute the running test binary as a fake VM. The test binary must
// define:
//
//	func TestHelperProcess(t *testing.T) {
//		if os.Getenv(testutil.FakeVMEnv) == "" {
//			return
//		}
//		os.Exit(testutil.RunFakeVM(testutil.HelperArgs(os.Args)))
//	}
func HelperCommand(scenario string) (binary string, leading []string, env []string) {
	return os.Args[0], []string{"-test.run=^TestHelperProcess$", "--"}, []string{FakeVMEnv + "=" + scenario}
}

// HelperArgs returns the arguments after the "--" separator.
func HelperArgs(args []string) []string {
	for i, a := range args {
		if a == "--" {
			return args[i+1:]
		}
	}
	return nil
}

// RunFakeVM emulates the parts of QEMU the supervisor relies on and returns
// the process exit status. The scenario is read from FakeVMEnv.
func RunFakeVM(args []string) int {
	for _, a := range args {
		if a == "--version" {
			fmt.Print(FakeQEMUVersion)
			return 0
		}
	}

	logPath := serialLogPath(args)
	if logPath == "" {
		fmt.Fprintln(os.Stderr, "fake vm: no -serial file: argument")
		return 2
	}

	scenario := os.Getenv(FakeVMEnv)
	switch scenario {
	case ScenarioReady, ScenarioIgnoreQuit, ScenarioHangCommand:
		appendLog(logPath, BootLog)
	case ScenarioPassing:
		appendLog(logPath, PassingLog)
	case ScenarioNoPrompt:
		appendLog(logPath, NoPromptLog)
		fmt.Print("Booting from ROM...\n")
		time.Sleep(time.Minute)
		return 0
	case ScenarioCrash:
		fmt.Print("Booting from ROM...\n")
		fmt.Fprintln(os.Stderr, "fake vm: triple fault")
		return 3
	default:
		fmt.Fprintf(os.Stderr, "fake vm: unknown scenario %q\n", scenario)
		return 2
	}

	fmt.Print("SeaBIOS (fake)\nBooting from DVD/CD...\nkernel> ")
	return serveConsole(os.Stdin, logPath, scenario)
}

func serveConsole(in io.Reader, logPath, scenario string) int {
	r := bufio.NewReader(in)
	for {
		line, err := r.ReadString('\n')
		line = strings.TrimSpace(line)

		switch {
		case strings.HasSuffix(line, "quit"):
			if scenario == ScenarioIgnoreQuit {
				time.Sleep(time.Minute)
			}
			return 0
		case line == FakeCommand:
			appendLog(logPath, CommandLog)
			if scenario == ScenarioHangCommand {
				time.Sleep(time.Minute)
				return 0
			}
			fmt.Printf("%s\nkernel> ", FakeCommand)
		}

		if err != nil {
			if scenario == ScenarioIgnoreQuit {
				time.Sleep(time.Minute)
			}
			return 0
		}
	}
}

func serialLogPath(args []string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "-serial" && strings.HasPrefix(args[i+1], "file:") {
			return strings.TrimPrefix(args[i+1], "file:")
		}
	}
	return ""
}

func appendLog(path string, lines []string) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fake vm: %v\n", err)
		return
	}
	defer f.Close()
	for _, l := range lines {
		fmt.Fprintf(f, "%s\r\n", l)
	}
}
