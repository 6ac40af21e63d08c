package regfile

import "github.com/joshuapare/hklmshim/internal/regtypes"

// Op is one parsed .reg directive, ready to apply to the overlay store.
type Op interface{ isOp() }

// OpCreateKey un-tombstones (creating if absent) the key at Path.
type OpCreateKey struct{ Path string }

// OpDeleteKeyTree tombstones Path and everything under it (a leading "-"
// on a key header).
type OpDeleteKeyTree struct{ Path string }

// OpSetValue sets a named (or, if Name == "", default) value under Path.
type OpSetValue struct {
	Path string
	Name string
	Type regtypes.Type
	Data []byte
}

// OpDeleteValue deletes a single named value under Path ("name"=- form).
type OpDeleteValue struct {
	Path string
	Name string
}

func (OpCreateKey) isOp()     {}
func (OpDeleteKeyTree) isOp() {}
func (OpSetValue) isOp()      {}
func (OpDeleteValue) isOp()   {}
