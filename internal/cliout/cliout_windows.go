//go:build windows

package cliout

import (
	"os"
	"unicode/utf16"

	"golang.org/x/sys/windows"
)

func isConsole(f *os.File) bool {
	var mode uint32
	return windows.GetConsoleMode(windows.Handle(f.Fd()), &mode) == nil
}

func writeConsole(f *os.File, text string) error {
	h := windows.Handle(f.Fd())
	units := utf16.Encode([]rune(text))
	var written uint32
	for len(units) > 0 {
		n := uint32(len(units))
		if n > 4096 {
			n = 4096
		}
		if err := windows.WriteConsole(h, &units[0], n, &written, nil); err != nil {
			return writeConsoleFallback(f, text)
		}
		units = units[n:]
	}
	return nil
}
