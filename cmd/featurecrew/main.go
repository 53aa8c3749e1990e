// ABOUTME: CLI entrypoint for featurecrew: serves the crew runner, runs one crew locally or watches a server.
// ABOUTME: Exits 1 when a command fails, including a crew run that did not succeed.
package main

import (
	"fmt"
	"os"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
