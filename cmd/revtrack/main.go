// Command revtrack is the revision tracking CLI.
package main

import (
	"os"

	"github.com/mkalnins/revtrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
