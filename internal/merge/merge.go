// Package merge computes the effective (merged) view of a key by combining
// the overlay store's rows with whatever the real registry reports,
// applying tombstone precedence.
//
// The rule in one line: an overlay tombstone always wins; otherwise the
// overlay's live row wins over the real row of the same name; anything
// left over from the real side passes through untouched.
package merge

import (
	"context"
	"sort"

	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regtypes"
	"github.com/joshuapare/hklmshim/internal/winreg"
)

// MaxOrdinal bounds Nth-index enumeration (RegEnumValue/RegEnumKey-style
// dwIndex walks). No registry key under any real-world HKLM subtree comes
// close to this many direct children; it exists purely so a caller driving
// dwIndex off a corrupt or adversarial value cannot spin the merge engine
// forever.
const MaxOrdinal = 100000

// Engine computes merged views for one overlay store, optionally
// consulting a real-registry Opener. A nil Opener behaves like the
// overlay alone ever existed, which is the correct degrade-to-overlay
// behavior for hosts/paths the real registry offers nothing for.
type Engine struct {
	Store  *overlay.Store
	Reader winreg.Opener
}

// New constructs an Engine. reader may be nil.
func New(store *overlay.Store, reader winreg.Opener) *Engine {
	return &Engine{Store: store, Reader: reader}
}

// Exists reports whether path is visible in the merged view: not
// tombstoned, and either present in the overlay or present in the real
// registry.
func (e *Engine) Exists(ctx context.Context, path string) (bool, error) {
	deleted, err := e.Store.IsKeyDeleted(ctx, path)
	if err != nil {
		return false, err
	}
	if deleted {
		return false, nil
	}
	local, err := e.Store.KeyExistsLocally(ctx, path)
	if err != nil {
		return false, err
	}
	if local {
		return true, nil
	}
	if e.Reader == nil {
		return false, nil
	}
	rk, existed, err := e.Reader.OpenReal(path)
	if err != nil {
		return false, err
	}
	if rk != nil {
		defer rk.Close()
	}
	return existed, nil
}

// Value resolves the effective value of (path, name): an overlay
// tombstone hides a same-named real value; an overlay live row shadows the
// real row outright; absence of both overlay evidence and a real value
// returns a nil *Value and a nil error.
func (e *Engine) Value(ctx context.Context, path, name string) (*regtypes.Value, error) {
	if deleted, err := e.Store.IsKeyDeleted(ctx, path); err != nil {
		return nil, err
	} else if deleted {
		return nil, nil
	}

	ov, err := e.Store.GetValue(ctx, path, name)
	if err != nil {
		return nil, err
	}
	if ov != nil {
		if ov.IsDeleted {
			return nil, nil
		}
		return ov, nil
	}

	if e.Reader == nil {
		return nil, nil
	}
	rk, existed, err := e.Reader.OpenReal(path)
	if err != nil {
		return nil, err
	}
	if !existed {
		return nil, nil
	}
	defer rk.Close()
	typ, data, ok, err := rk.GetValue(name)
	if err != nil || !ok {
		return nil, err
	}
	return &regtypes.Value{Name: name, Type: typ, Data: data}, nil
}

// Values returns the effective value set for path: every live overlay
// value, plus every real value whose name the overlay has neither
// shadowed nor tombstoned, sorted case-insensitively by name for stable
// ordinal enumeration.
func (e *Engine) Values(ctx context.Context, path string) ([]regtypes.Value, error) {
	if deleted, err := e.Store.IsKeyDeleted(ctx, path); err != nil {
		return nil, err
	} else if deleted {
		return nil, nil
	}

	overlayRows, err := e.Store.ListValues(ctx, path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(overlayRows))
	out := make([]regtypes.Value, 0, len(overlayRows))
	for _, v := range overlayRows {
		seen[keypath.Fold(v.Name)] = true
		if !v.IsDeleted {
			out = append(out, v)
		}
	}

	if e.Reader != nil {
		rk, existed, err := e.Reader.OpenReal(path)
		if err != nil {
			return nil, err
		}
		if existed {
			defer rk.Close()
			real, err := rk.ListValues()
			if err != nil {
				return nil, err
			}
			for _, v := range real {
				if seen[keypath.Fold(v.Name)] {
					continue
				}
				out = append(out, v)
			}
		}
	}

	sortValuesByName(out)
	return out, nil
}

// Subkeys returns the effective immediate-subkey set for path: every
// non-tombstoned overlay child, plus every real child the overlay has not
// tombstoned, sorted case-insensitively.
func (e *Engine) Subkeys(ctx context.Context, path string) ([]string, error) {
	if deleted, err := e.Store.IsKeyDeleted(ctx, path); err != nil {
		return nil, err
	} else if deleted {
		return nil, nil
	}

	rows, err := e.Store.ListImmediateSubkeys(ctx, path)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(rows))
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		seen[keypath.Fold(r.Name)] = true
		if !r.IsDeleted {
			out = append(out, r.Name)
		}
	}

	if e.Reader != nil {
		rk, existed, err := e.Reader.OpenReal(path)
		if err != nil {
			return nil, err
		}
		if existed {
			defer rk.Close()
			real, err := rk.ListSubkeys()
			if err != nil {
				return nil, err
			}
			for _, name := range real {
				if seen[keypath.Fold(name)] {
					continue
				}
				out = append(out, name)
			}
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return keypath.Fold(out[i]) < keypath.Fold(out[j]) })
	return out, nil
}

// Info summarizes a key for query-info-style calls: subkey/value counts
// and the longest name/data lengths among the merged sets, which callers
// that pre-size enumeration buffers depend on.
type Info struct {
	SubkeyCount       int
	ValueCount        int
	MaxSubkeyNameLen  int
	MaxValueNameLen   int
	MaxValueDataLen   int
}

// QueryInfo computes Info for the merged view of path.
func (e *Engine) QueryInfo(ctx context.Context, path string) (Info, error) {
	var info Info
	subkeys, err := e.Subkeys(ctx, path)
	if err != nil {
		return info, err
	}
	info.SubkeyCount = len(subkeys)
	for _, s := range subkeys {
		if n := len(s); n > info.MaxSubkeyNameLen {
			info.MaxSubkeyNameLen = n
		}
	}

	values, err := e.Values(ctx, path)
	if err != nil {
		return info, err
	}
	info.ValueCount = len(values)
	for _, v := range values {
		if n := len(v.Name); n > info.MaxValueNameLen {
			info.MaxValueNameLen = n
		}
		if n := len(v.Data); n > info.MaxValueDataLen {
			info.MaxValueDataLen = n
		}
	}
	return info, nil
}

// ValueAtOrdinal resolves the idx'th entry (0-based) of the merged,
// sorted value set for path, for RegEnumValue-style iteration. ok is false
// once idx runs past the end.
func (e *Engine) ValueAtOrdinal(ctx context.Context, path string, idx int) (v regtypes.Value, ok bool, err error) {
	if idx < 0 || idx >= MaxOrdinal {
		return regtypes.Value{}, false, nil
	}
	values, err := e.Values(ctx, path)
	if err != nil || idx >= len(values) {
		return regtypes.Value{}, false, err
	}
	return values[idx], true, nil
}

// SubkeyAtOrdinal resolves the idx'th entry (0-based) of the merged,
// sorted subkey set for path, for RegEnumKey-style iteration.
func (e *Engine) SubkeyAtOrdinal(ctx context.Context, path string, idx int) (name string, ok bool, err error) {
	if idx < 0 || idx >= MaxOrdinal {
		return "", false, nil
	}
	subkeys, err := e.Subkeys(ctx, path)
	if err != nil || idx >= len(subkeys) {
		return "", false, err
	}
	return subkeys[idx], true, nil
}

func sortValuesByName(vs []regtypes.Value) {
	sort.SliceStable(vs, func(i, j int) bool { return keypath.Fold(vs[i].Name) < keypath.Fold(vs[j].Name) })
}
