package main

import (
	"os"

	"github.com/axiomson/axiomson/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		// Cobra already printed usage errors; our commands silence
		// theirs and report through the error value.
		cmd.PrintErrln("Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
