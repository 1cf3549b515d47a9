// Package main is the entry point for the ceovirtual CLI.
package main

import (
	"os"

	"github.com/ceovirtual/ceovirtual/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
