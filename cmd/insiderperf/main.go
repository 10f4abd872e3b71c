package main

import (
	"os"

	"github.com/wonny/insiderperf/cmd/insiderperf/commands"
)

// main is the entry point for the insiderperf CLI
// ⭐ single CLI entry point: go run ./cmd/insiderperf [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
