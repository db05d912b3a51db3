// Package main provides the entry point for the askdocs CLI.
package main

import (
	"os"

	"github.com/askdocs/askdocs/cmd/askdocs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
