// Command deadline waits until a wall-clock deadline and then runs a command.
// The wait survives system suspend, SIGSTOP/SIGCONT and clock steps: it ends
// as soon as the deadline is noticed to have passed, not when a sleeping
// monotonic timer finally expires.
//
// Usage:
//
//	deadline [--at TIME | --after DURATION] [options] [-- command [args...]]
//	deadline status [--addr URL] [--health]
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"
)

var version = "dev"

const description = `Waits until the given wall-clock time has passed and then
runs the command, if any. Exits 130 when interrupted.

Example:
        deadline --at 2026-10-17T09:00:00+02:00 -- ./backup.sh
        deadline --after 90m --max-interval 1m --progress

`

func main() {
	app := &cli.App{
		Name:        "deadline",
		HelpName:    "deadline",
		Usage:       "run a command once a wall-clock deadline has passed",
		UsageText:   "deadline [--at TIME | --after DURATION] [options] [-- command [args...]]",
		Description: description,
		Version:     version,
		Flags:       flags,
		Commands:    []cli.Command{statusCmd},
		Action:      run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "deadline: %v\n", err)
		os.Exit(1)
	}
}
