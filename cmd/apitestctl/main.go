// Command apitestctl is the CLI front end for the suite execution
// engine: it loads suite/environment/schedule fixtures from YAML,
// drives one-off runs (interactively or non-interactively), and hosts
// the cron scheduler for the lifetime of the process.
package main

import (
	"fmt"
	"os"
)

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
