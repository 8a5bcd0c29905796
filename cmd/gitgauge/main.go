// Command gitgauge is the GitHub analysis client CLI.
package main

import (
	"os"

	"gitgauge/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
