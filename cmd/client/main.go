// Package main is the NoteKeeper command line client.
package main

import (
	"fmt"
	"os"
)

var (
	version   string
	buildDate string
)

func main() {
	if err := newRootCommand(defaultOptions()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
