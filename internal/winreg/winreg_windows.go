//go:build windows

package winreg

import (
	"golang.org/x/sys/windows/registry"

	"github.com/joshuapare/hklmshim/internal/reentry"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

// osKey adapts golang.org/x/sys/windows/registry.Key to RealKey.
type osKey struct {
	k registry.Key
}

func (o osKey) Close() error {
	reentry.Global.Enter()
	defer reentry.Global.Leave()
	return o.k.Close()
}

func (o osKey) ListSubkeys() ([]string, error) {
	reentry.Global.Enter()
	defer reentry.Global.Leave()
	return o.k.ReadSubKeyNames(-1)
}

func (o osKey) ListValues() ([]regtypes.Value, error) {
	reentry.Global.Enter()
	names, err := o.k.ReadValueNames(-1)
	reentry.Global.Leave()
	if err != nil {
		return nil, err
	}
	out := make([]regtypes.Value, 0, len(names))
	for _, name := range names {
		typ, data, ok, err := o.GetValue(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, regtypes.Value{Name: name, Type: typ, Data: data})
	}
	return out, nil
}

// GetValue pulls the raw bytes for name regardless of declared type, since
// this shim passes values through untouched and must not reinterpret
// caller-chosen type/data pairings.
func (o osKey) GetValue(name string) (regtypes.Type, []byte, bool, error) {
	reentry.Global.Enter()
	n, valtype, err := o.k.GetValue(name, nil)
	reentry.Global.Leave()
	if err == registry.ErrNotExist {
		return 0, nil, false, nil
	}
	if err != nil && err != registry.ErrShortBuffer {
		return 0, nil, false, err
	}
	buf := make([]byte, n)
	if n > 0 {
		reentry.Global.Enter()
		_, _, err := o.k.GetValue(name, buf)
		reentry.Global.Leave()
		if err != nil {
			return 0, nil, false, err
		}
	}
	return regtypes.Type(valtype), buf, true, nil
}

type opener struct {
	root registry.Key
}

// NewOpener constructs an Opener rooted at HKEY_LOCAL_MACHINE, the only
// hive this shim virtualizes.
func NewOpener() Opener {
	return opener{root: registry.LOCAL_MACHINE}
}

func (o opener) OpenReal(path string) (RealKey, bool, error) {
	rel, err := relativePath(path)
	if err != nil {
		return nil, false, err
	}
	if rel == "" {
		return osKey{o.root}, true, nil
	}
	reentry.Global.Enter()
	k, err := registry.OpenKey(o.root, rel, registry.READ)
	reentry.Global.Leave()
	if err == registry.ErrNotExist {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return osKey{k}, true, nil
}

