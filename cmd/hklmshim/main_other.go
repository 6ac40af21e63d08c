//go:build !windows

package main

// This DLL only does anything useful on Windows, where the Launcher can
// actually inject it into a target process and the hook engine has real
// exports to patch. On every other platform globalState simply stays
// nil, so it links and behaves inertly instead of failing to build at
// all — useful for running the rest of the module's tests in CI.
