package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/hklmshim/internal/overlay"
	"github.com/joshuapare/hklmshim/internal/regtypes"
	"github.com/joshuapare/hklmshim/internal/strenc"
)

func openStore() (*overlay.Store, error) {
	printVerbose("opening overlay store: %s\n", dbPath)
	st, err := overlay.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store %q: %w", dbPath, err)
	}
	return st, nil
}

// parseValueString turns a CLI type name and string representation into
// the raw bytes the overlay stores, mirroring the wire encodings
// internal/regfile already round-trips through .reg text.
func parseValueString(typeName, value string) (regtypes.Type, []byte, error) {
	switch strings.ToLower(typeName) {
	case "sz", "":
		return regtypes.SZ, strenc.NarrowToUTF16LENulTerminated(value), nil
	case "expand_sz":
		return regtypes.EXPAND_SZ, strenc.NarrowToUTF16LENulTerminated(value), nil
	case "multi_sz":
		parts := strings.Split(value, ",")
		return regtypes.MULTI_SZ, strenc.NarrowMultiToUTF16LEDoubleNulTerminated(parts), nil
	case "dword":
		n, err := parseUint(value, 32)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid dword %q: %w", value, err)
		}
		return regtypes.DWORD, le32(uint32(n)), nil
	case "qword":
		n, err := parseUint(value, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid qword %q: %w", value, err)
		}
		return regtypes.QWORD, le64(n), nil
	case "binary":
		data, err := parseHex(value)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid hex binary %q: %w", value, err)
		}
		return regtypes.BINARY, data, nil
	default:
		return 0, nil, fmt.Errorf("unsupported --type %q (want sz, expand_sz, multi_sz, dword, qword, binary)", typeName)
	}
}

// parseUint accepts decimal by default and hex under a 0x/0X prefix,
// matching how dword/qword literals appear in .reg text and on the
// command line alike.
func parseUint(s string, bits int) (uint64, error) {
	if rest, ok := strings.CutPrefix(s, "0x"); ok {
		return strconv.ParseUint(rest, 16, bits)
	}
	if rest, ok := strings.CutPrefix(s, "0X"); ok {
		return strconv.ParseUint(rest, 16, bits)
	}
	return strconv.ParseUint(s, 10, bits)
}

func parseHex(s string) ([]byte, error) {
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, ",", "")
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd number of hex digits")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		b, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return nil, err
		}
		out[i] = byte(b)
	}
	return out, nil
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	for i := range b {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
