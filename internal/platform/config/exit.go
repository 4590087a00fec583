package config

import (
	"fmt"
	"os"
)

// Exitf prints a formatted message to stderr and exits the process with
// status 1. Meant for unrecoverable startup failures in main packages.
func Exitf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
