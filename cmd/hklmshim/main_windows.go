//go:build windows

package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joshuapare/hklmshim/internal/config"
	"github.com/joshuapare/hklmshim/internal/interceptors"
	"github.com/joshuapare/hklmshim/internal/obslog"
	"github.com/joshuapare/hklmshim/internal/shimcore"
)

// init runs under the loader lock, before any exported symbol is
// callable and before the host process observes this module as loaded.
// Per the "on load" sequencing, it must not itself touch the registry or
// do anything that could re-enter the loader: it only reads environment
// variables, opens the overlay store, and hands off to a background
// goroutine for the actual hook installation.
func init() {
	cfg := config.FromEnvironment()

	if path := os.Getenv("HKLMSHIM_LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600); err == nil {
			obslog.Init(obslog.Options{Writer: f, JSON: true, Level: slog.LevelInfo})
		}
	}

	state, err := shimcore.Bootstrap(cfg)
	if err != nil {
		obslog.Error("shim bootstrap failed", "err", err)
		return
	}
	globalState = state

	eng, ok := state.HookEngine().(*interceptors.Engine)
	if !ok {
		obslog.Error("shim bootstrap produced no hook engine")
		return
	}
	handlers := interceptors.NewHandlers(state.Dispatcher, eng)
	state.InstallAsync(handlers.HandlerFor)
}

// DllProcessDetach mirrors the "on unload" half of the sequencing:
// uninstall hooks, close the store, release the hook-engine reference.
// Nothing calls this export automatically: the Launcher injects no
// shutdown stub, and Go DLLs built with -buildmode=c-shared do not get a
// DLL_PROCESS_DETACH callback of their own. It runs only when a host
// calls it explicitly.
//
//export DllProcessDetach
func DllProcessDetach() {
	if globalState == nil {
		return
	}
	if err := globalState.Shutdown(context.Background()); err != nil {
		obslog.Error("shim shutdown failed", "err", err)
	}
}
