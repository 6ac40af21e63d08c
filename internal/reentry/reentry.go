//go:build windows

// Package reentry holds the thread-local re-entry guard shared by the API
// interceptors and the real-registry reader. Both patch or call through
// the same exported registry functions; anything that must invoke the
// real OS implementation does so under Guard.Enter/Leave so the patched
// entry point recognizes its own nested call and lets it fall straight
// through instead of recursing back into the dispatcher.
package reentry

import (
	"sync"

	"golang.org/x/sys/windows"
)

// Guard is a thread-local bypass flag. The zero value is ready to use.
type Guard struct {
	mu     sync.Mutex
	active map[uint32]bool
}

// Global is the one Guard shared by every hook and every real-registry
// call in the process.
var Global = &Guard{active: make(map[uint32]bool)}

// Enter marks the calling thread as inside a bypass region. Leave,
// deferred immediately after, is guaranteed to run on every return path.
func (g *Guard) Enter() {
	tid := windows.GetCurrentThreadId()
	g.mu.Lock()
	if g.active == nil {
		g.active = make(map[uint32]bool)
	}
	g.active[tid] = true
	g.mu.Unlock()
}

func (g *Guard) Leave() {
	tid := windows.GetCurrentThreadId()
	g.mu.Lock()
	delete(g.active, tid)
	g.mu.Unlock()
}

// Active reports whether the calling thread is currently inside a bypass
// region.
func (g *Guard) Active() bool {
	tid := windows.GetCurrentThreadId()
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active[tid]
}
