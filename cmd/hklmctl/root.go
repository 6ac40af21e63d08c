// Command hklmctl is a thin, out-of-process administrative surface over
// the overlay store: it never runs inside a target process and never
// touches the live registry, only the store file named by --db.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:     "hklmctl",
	Short:   "Inspect and modify an HKLM overlay store offline",
	Version: "0.1.0",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "HKLM.sqlite", "Path to the overlay store file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a command failure to the CLI's exit-code contract: 0 on
// success, 1 on store/I/O failure, 2 on usage error. RunE bodies that
// reject their own arguments return a *usageError explicitly; cobra's own
// flag-parsing and Args-validator failures never reach RunE; their
// messages are distinctive enough ("arg(s)", "unknown flag", "unknown
// command") to classify the same way without cobra's cooperation.
func exitCodeFor(err error) int {
	if _, ok := err.(*usageError); ok {
		return 2
	}
	msg := err.Error()
	for _, marker := range []string{"arg(s)", "unknown flag", "unknown shorthand flag", "unknown command"} {
		if strings.Contains(msg, marker) {
			return 2
		}
	}
	return 1
}

type usageError struct{ err error }

func (u *usageError) Error() string { return u.err.Error() }
func (u *usageError) Unwrap() error { return u.err }

func usageErrf(format string, args ...interface{}) error {
	return &usageError{err: fmt.Errorf(format, args...)}
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
