// Package main is the entry point of the ekpi energy KPI backend.
package main

import (
	"fmt"
	"os"

	"github.com/j-veylop/energy-kpi/internal/cli"
	"github.com/j-veylop/energy-kpi/internal/version"
)

func main() {
	if err := cli.NewRootCmd(version.GetVersion()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
