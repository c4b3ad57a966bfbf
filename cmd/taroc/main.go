// Package main implements the taro compiler driver (taroc).
// It provides commands for analyzing program descriptions, optimizing
// instruction listings, and inspecting the call graph.
package main

import (
	"fmt"
	"os"

	"github.com/taro-lang/taro/cmd/taroc/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Version = versionString()
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func versionString() string {
	if buildTime == "" {
		return version
	}
	return fmt.Sprintf("%s (built %s)", version, buildTime)
}
