// Command xmatch builds and queries the Gaia DR3 / SAO cross-match database.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/xmatch/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
