// Entrypoint for the Cobra CLI; all flag handling lives in cmd/root.go.

package main

import (
	"os"

	"github.com/ran-sim/ran-sim/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
