// Package main provides the entry point for the guardian CLI.
package main

import (
	"fmt"
	"os"

	"github.com/guardian-coach/guardian/cmd/guardian/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
