// Command hklmshim is the injected DLL half of the registry shim: a
// -buildmode=c-shared library the Launcher loads into a suspended target
// process. Everything it does happens in init()/DllMain-equivalent code,
// since nothing outside the process ever calls into it directly — the
// exported functions below exist only so the resulting DLL has at least
// one symbol and a name Windows' loader is willing to keep resident.
package main

import "C"

func main() {}

//export HklmShimPing
func HklmShimPing() C.int {
	if globalState != nil && globalState.Healthy() {
		return 1
	}
	return 0
}
