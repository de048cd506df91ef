// Package main provides the entry point for the locate CLI.
package main

import (
	"os"

	"github.com/dshills/locate/cmd/locate/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
