// Package main is the entry point for the monday-import CLI application.
package main

import (
	"os"

	"github.com/danielolaszy/monday-import/cmd"
	"github.com/danielolaszy/monday-import/internal/logging"
)

// main executes the root command and exits non-zero when it fails.
func main() {
	if err := cmd.Execute(); err != nil {
		logging.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}
