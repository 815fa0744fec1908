// Command tally tracks time against subjects grouped into types.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/roach88/tally/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		return
	}

	// Commands that return an ExitError have already reported it
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
