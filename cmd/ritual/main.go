// Command ritual schedules daily event reminders and tracks the ritual streak.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ritual/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
