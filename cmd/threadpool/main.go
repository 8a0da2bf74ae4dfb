// Command threadpool drives a fixed-size worker pool from the command line.
package main

import (
	"os"
)

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
