// Command cajactl is the operator CLI: schema migration, demo data, reports
// and development tokens.
package main

import (
	"os"

	"cajaflow/cmd/cajactl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
