// Package main implements taskctl, a command line client that works on the
// task database directly through the same service the API server uses.
package main

import (
	"os"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		os.Exit(1)
	}
}
