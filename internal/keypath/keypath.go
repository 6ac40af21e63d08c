// Package keypath canonicalizes registry key paths. A canonical path is a
// nonempty sequence of segments separated by a single backslash, rooted at
// the literal HKLM, with comparisons folded to lowercase but original case
// preserved in storage.
package keypath

import "strings"

// Root is the literal canonical root segment.
const Root = "HKLM"

var rootAliases = []string{
	"HKEY_LOCAL_MACHINE", "HKLM",
}

// Canonicalize normalizes an arbitrary caller-supplied path (alternate
// root spellings, forward slashes, leading/trailing separators) into the
// canonical form rooted at Root. An empty or root-only input canonicalizes
// to Root itself.
func Canonicalize(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "/", `\`)
	s = strings.Trim(s, `\`)
	if s == "" {
		return Root
	}

	segs := splitNonEmpty(s)
	if len(segs) == 0 {
		return Root
	}
	if isRootAlias(segs[0]) {
		segs = segs[1:]
	}
	if len(segs) == 0 {
		return Root
	}
	return Root + `\` + strings.Join(segs, `\`)
}

// Join appends a (possibly multi-segment, possibly alternately-rooted)
// subkey string to an already-canonical parent path. An empty subkey
// returns the parent unchanged.
func Join(parent, subkey string) string {
	sub := strings.TrimSpace(subkey)
	sub = strings.ReplaceAll(sub, "/", `\`)
	sub = strings.Trim(sub, `\`)
	if sub == "" {
		return parent
	}
	if isRootAlias(sub) {
		return Canonicalize(sub)
	}
	segs := splitNonEmpty(sub)
	if len(segs) == 0 {
		return parent
	}
	if isRootAlias(segs[0]) {
		return Canonicalize(sub)
	}
	return parent + `\` + strings.Join(segs, `\`)
}

// Parent returns the canonical parent of path, or "" if path is Root.
func Parent(path string) string {
	if EqualFold(path, Root) {
		return ""
	}
	idx := strings.LastIndex(path, `\`)
	if idx < 0 {
		return ""
	}
	return path[:idx]
}

// Ancestors returns path and every ancestor of path up to and including
// Root, nearest-first.
func Ancestors(path string) []string {
	out := make([]string, 0, strings.Count(path, `\`)+1)
	for p := path; p != ""; p = Parent(p) {
		out = append(out, p)
		if EqualFold(p, Root) {
			break
		}
	}
	return out
}

// IsUnder reports whether child is path-equal-to or nested under parent,
// using case-insensitive segment comparison.
func IsUnder(child, parent string) bool {
	if EqualFold(child, parent) {
		return true
	}
	return len(child) > len(parent) &&
		strings.EqualFold(child[:len(parent)], parent) &&
		child[len(parent)] == '\\'
}

// ImmediateChild reports whether child is a direct subkey of parent and,
// if so, returns its last segment.
func ImmediateChild(child, parent string) (name string, ok bool) {
	if !IsUnder(child, parent) || EqualFold(child, parent) {
		return "", false
	}
	rest := child[len(parent)+1:]
	if strings.Contains(rest, `\`) {
		return "", false
	}
	return rest, true
}

// EqualFold compares two paths (or segment names) case-insensitively.
func EqualFold(a, b string) bool { return strings.EqualFold(a, b) }

// Fold lowercases a name/path for use as a map key or SQL comparison
// operand.
func Fold(s string) string { return strings.ToLower(s) }

func isRootAlias(seg string) bool {
	for _, alias := range rootAliases {
		if strings.EqualFold(seg, alias) {
			return true
		}
	}
	return false
}

func splitNonEmpty(s string) []string {
	parts := strings.Split(s, `\`)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
