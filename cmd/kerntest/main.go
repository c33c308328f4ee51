// Command kerntest boots a kernel image under QEMU and reports its in-kernel
// tests.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/kerntest/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	code := cli.GetExitCode(err)

	// A failing test run has already been reported; only print what the
	// summary or report does not show.
	var exitErr *cli.ExitError
	if err != nil && (!errors.As(err, &exitErr) || code != cli.ExitTestsFailed) {
		fmt.Fprintln(os.Stderr, "kerntest:", err)
	}
	os.Exit(code)
}
