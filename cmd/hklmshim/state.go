package main

import "github.com/joshuapare/hklmshim/internal/shimcore"

// globalState is the one long-lived shim state this process keeps, set
// up by the platform-specific init() in main_windows.go. It stays nil on
// platforms this DLL cannot actually run on; HklmShimPing just reports
// unhealthy rather than panicking.
var globalState *shimcore.State
