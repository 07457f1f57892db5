// Package main is the entry point for genctl, the terminal client for the
// mediajobs API.
package main

import (
	"os"

	"github.com/cuongbtq/mediajobs/cmd/genctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
