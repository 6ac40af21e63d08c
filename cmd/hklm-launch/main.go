// Command hklm-launch spawns a target executable with the registry shim
// injected, so the target sees the overlay store instead of (or in
// addition to) the real HKLM hive. It never touches the registry
// itself; all of that lives in the injected DLL.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joshuapare/hklmshim/internal/launcher"
	"github.com/joshuapare/hklmshim/internal/obslog"
)

func main() {
	obslog.Init(obslog.Options{Writer: os.Stderr, Level: slog.LevelInfo})

	opts, err := launcher.ParseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		fmt.Fprintln(os.Stderr, launcher.Usage())
		os.Exit(launcher.ExitUsage)
	}

	result := launcher.Run(opts)
	os.Exit(result.ExitCode)
}
