//go:build !windows

package cliout

import "os"

func isConsole(f *os.File) bool { return false }

func writeConsole(f *os.File, text string) error {
	return writeConsoleFallback(f, text)
}
