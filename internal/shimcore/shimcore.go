// Package shimcore wires together the overlay store, handle table, merge
// engine and dispatcher into the long-lived state one injected process
// keeps for as long as it runs, and sequences that state's installation
// and teardown. The platform-specific half (actually patching entry
// points, signaling a named rendezvous object) lives in
// shimcore_windows.go; this file holds everything that can be exercised
// on any platform.
package shimcore

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/joshuapare/hklmshim/internal/config"
	"github.com/joshuapare/hklmshim/internal/debugtrace"
	"github.com/joshuapare/hklmshim/internal/handletable"
	"github.com/joshuapare/hklmshim/internal/interceptors"
	"github.com/joshuapare/hklmshim/internal/merge"
	"github.com/joshuapare/hklmshim/internal/obslog"
	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/winreg"
)

// HookInstaller is the platform-specific half of hook management. On
// Windows it is *interceptors.Engine; elsewhere a no-op stub satisfies it
// so the rest of this package stays testable off-Windows.
type HookInstaller interface {
	Install(scope config.HookScope, handlerFor func(exportName string) uintptr) error
	Uninstall() error
}

// State is everything one injected process keeps alive between load and
// unload.
type State struct {
	Config     config.Shim
	Store      *overlay.Store
	Handles    *handletable.Table
	Engine     *merge.Engine
	Dispatcher *interceptors.Dispatcher
	Trace      *debugtrace.Writer
	hooks      HookInstaller

	ready   atomic.Bool // set once hook installation has completed, success or not
	healthy atomic.Bool // set only on successful install; read by callers deciding whether to wait further
}

// newHookInstaller is overridden on Windows to return a real
// *interceptors.Engine; the platform-agnostic default never installs
// anything, matching ScopeOff behavior everywhere hooking is impossible.
var newHookInstaller = func() HookInstaller { return noopHooks{} }

type noopHooks struct{}

func (noopHooks) Install(config.HookScope, func(string) uintptr) error { return nil }
func (noopHooks) Uninstall() error                                     { return nil }

// Bootstrap opens the overlay store and assembles the in-process
// dispatch stack described by cfg, but does not install any hooks —
// that is InstallAsync's job, run on a background thread per the
// "spawn a background thread to install interceptors" sequencing so
// process-attach itself never blocks on it.
func Bootstrap(cfg config.Shim) (*State, error) {
	store, err := overlay.Open(cfg.OverlayPath)
	if err != nil {
		return nil, fmt.Errorf("shimcore: open overlay %q: %w", cfg.OverlayPath, err)
	}

	handles := handletable.New()
	eng := merge.New(store, winreg.NewOpener())
	disp := interceptors.New(handles, store, eng)

	var trace *debugtrace.Writer
	if cfg.TracingEnabled() {
		trace, err = dialTrace(cfg.DebugPipePath)
		if err != nil {
			obslog.Warn("debug trace pipe unavailable, continuing without it", "path", cfg.DebugPipePath, "err", err)
			trace = debugtrace.New(nil)
		}
	} else {
		trace = debugtrace.New(nil)
	}

	return &State{
		Config:     cfg,
		Store:      store,
		Handles:    handles,
		Engine:     eng,
		Dispatcher: disp,
		Trace:      trace,
		hooks:      newHookInstaller(),
	}, nil
}

// InstallAsync runs hook installation on its own goroutine, recording the
// outcome in s's atomics and signaling any named rendezvous object on
// success. handlerFor resolves an exported API name to the address the
// hook engine should jump to; on non-Windows platforms it is never
// called, since HookScope is meaningless there.
//
// Callers do not block on this call; they observe s.Ready()/s.Healthy()
// once it returns, or wait on the rendezvous object from another process
// entirely (the Launcher).
func (s *State) InstallAsync(handlerFor func(exportName string) uintptr) {
	go func() {
		defer s.ready.Store(true)

		if s.Config.HookScope == config.ScopeOff {
			obslog.Info("hook installation skipped", "scope", s.Config.HookScope)
			s.healthy.Store(true)
			signalRendezvous(s.Config.Rendezvous)
			return
		}

		if err := s.hooks.Install(s.Config.HookScope, handlerFor); err != nil {
			obslog.Error("hook installation failed", "scope", s.Config.HookScope, "err", err)
			return
		}

		obslog.Info("hooks installed", "scope", s.Config.HookScope)
		s.healthy.Store(true)
		signalRendezvous(s.Config.Rendezvous)
	}()
}

// HookEngine returns the platform-specific hook installer backing s, so a
// caller on Windows can recover the concrete *interceptors.Engine it needs
// to build the Handlers that InstallAsync's handlerFor argument comes
// from. Off-Windows it is the noop stub and of no use to anyone.
func (s *State) HookEngine() HookInstaller { return s.hooks }

// Ready reports whether hook installation has finished, successfully or
// not.
func (s *State) Ready() bool { return s.ready.Load() }

// Healthy reports whether hook installation finished successfully. It is
// only meaningful once Ready returns true.
func (s *State) Healthy() bool { return s.healthy.Load() }

// Shutdown reverses Bootstrap/InstallAsync: it removes any installed
// hooks, releases the hook-engine reference, and closes the store. It is
// safe to call even when installation never completed or failed.
func (s *State) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := s.hooks.Uninstall(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shimcore: uninstall hooks: %w", err)
	}
	s.hooks = noopHooks{}

	s.Handles.Reset()

	if err := s.Store.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("shimcore: close store: %w", err)
	}
	return firstErr
}
