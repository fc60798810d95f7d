// Command gridval validates power-grid input datasets and batch update
// scenarios against a component catalog.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/gridval/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands print their own errors. Anything else is a usage error from
	// cobra: bad flags or arguments.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(cli.GetExitCode(err))
}
