// Package regfile implements the Windows text-registry (.reg) codec:
// parsing UTF-16LE or UTF-8 input into edit operations, and emitting
// CRLF text from the overlay store's export stream (UTF-8 by default,
// UTF-16LE with BOM when ExportOptions.UTF16 is set).
// The parser is deliberately permissive: malformed lines are silently
// skipped rather than rejected, matching observed third-party .reg
// exports.
package regfile

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/joshuapare/hklmshim/internal/keypath"
	"github.com/joshuapare/hklmshim/internal/regtypes"
)

// Parse converts .reg text into an ordered list of Ops. Comments and blank
// lines are ignored; any other malformed line is silently skipped rather
// than rejected.
func Parse(data []byte) ([]Op, error) {
	text := decodeInputToBytes(data)

	scanner := bufio.NewScanner(bytes.NewReader(text))
	scanner.Buffer(make([]byte, 0, scannerInitialBufferSize), scannerMaxLineSize)

	var ops []Op
	seenHeader := false
	var current string
	haveCurrent := false

	for scanner.Scan() {
		line := bytes.TrimRight(scanner.Bytes(), "\r")
		trim := bytes.TrimSpace(line)
		if len(trim) == 0 || bytes.HasPrefix(trim, []byte(commentPrefix)) {
			continue
		}
		if !seenHeader {
			seenHeader = true
			if string(trim) == RegFileHeader {
				continue
			}
			// No header present: treat this line as the first content
			// line rather than failing (permissive by design).
		}

		if bytes.HasPrefix(trim, []byte(keyOpenBracket)) {
			if !bytes.HasSuffix(trim, []byte(keyCloseBracket)) {
				continue // malformed section header, skip
			}
			section := string(trim[1 : len(trim)-1])
			if strings.HasPrefix(section, deleteKeyPrefix) {
				path := keypath.Canonicalize(strings.TrimSpace(section[1:]))
				ops = append(ops, OpDeleteKeyTree{Path: path})
				haveCurrent = false
				continue
			}
			current = keypath.Canonicalize(section)
			haveCurrent = true
			ops = append(ops, OpCreateKey{Path: current})
			continue
		}

		if !haveCurrent {
			continue // value line with no open section: skip
		}
		op, ok := parseValueLine(current, string(trim))
		if ok {
			ops = append(ops, op)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("regfile: scan: %w", err)
	}
	return ops, nil
}

// parseValueLine parses one "name"=... or @=... line, trying each value
// form in turn. ok is false for a line that does not match any
// recognized value form (silently skipped by the caller).
func parseValueLine(path, line string) (Op, bool) {
	if strings.HasPrefix(line, defaultValuePrefix) {
		return parseAssignedValue(path, "", line[len(defaultValuePrefix):])
	}
	if !strings.HasPrefix(line, quote) {
		return nil, false
	}
	name, rest, ok := readQuotedString(line)
	if !ok || !strings.HasPrefix(rest, "=") {
		return nil, false
	}
	return parseAssignedValue(path, name, rest[1:])
}

// readQuotedString reads a double-quoted, backslash-escaped string
// starting at the beginning of line (which must start with a quote) and
// returns the unescaped name plus whatever follows the closing quote.
func readQuotedString(line string) (name, rest string, ok bool) {
	if len(line) == 0 || line[0] != '"' {
		return "", "", false
	}
	var b strings.Builder
	i := 1
	for i < len(line) {
		c := line[i]
		if c == '\\' && i+1 < len(line) {
			switch line[i+1] {
			case '"':
				b.WriteByte('"')
				i += 2
				continue
			case '\\':
				b.WriteByte('\\')
				i += 2
				continue
			}
		}
		if c == '"' {
			return b.String(), line[i+1:], true
		}
		b.WriteByte(c)
		i++
	}
	return "", "", false // unterminated
}

func parseAssignedValue(path, name, value string) (Op, bool) {
	switch {
	case value == deleteValueToken:
		return OpDeleteValue{Path: path, Name: name}, true

	case strings.HasPrefix(value, quote) && strings.HasSuffix(value, quote) && len(value) >= 2:
		text, _, ok := readQuotedString(value)
		if !ok {
			return nil, false
		}
		return OpSetValue{
			Path: path, Name: name, Type: regtypes.SZ,
			Data: narrowToUTF16LENulTerminated(text),
		}, true

	case strings.HasPrefix(value, dwordPrefix):
		hexStr := strings.TrimSpace(value[len(dwordPrefix):])
		n, err := strconv.ParseUint(hexStr, 16, 32)
		if err != nil {
			return nil, false
		}
		data := make([]byte, 4)
		binary.LittleEndian.PutUint32(data, uint32(n))
		return OpSetValue{Path: path, Name: name, Type: regtypes.DWORD, Data: data}, true

	case strings.HasPrefix(value, hexTypedOpen):
		closeParen := strings.IndexByte(value, ')')
		if closeParen < 0 || !strings.HasPrefix(value[closeParen+1:], ":") {
			return nil, false
		}
		typeStr := value[len(hexTypedOpen):closeParen]
		typeID, err := strconv.ParseUint(typeStr, 16, 32)
		if err != nil {
			return nil, false
		}
		data, ok := parseHexBytes(value[closeParen+2:])
		if !ok {
			return nil, false
		}
		return OpSetValue{Path: path, Name: name, Type: regtypes.Type(typeID), Data: data}, true

	case strings.HasPrefix(value, hexPrefix):
		data, ok := parseHexBytes(value[len(hexPrefix):])
		if !ok {
			return nil, false
		}
		return OpSetValue{Path: path, Name: name, Type: regtypes.BINARY, Data: data}, true

	default:
		return nil, false
	}
}

// parseHexBytes parses a comma-separated (and possibly line-continued
// with trailing "\") list of hex byte pairs.
func parseHexBytes(s string) ([]byte, bool) {
	s = strings.ReplaceAll(s, "\\", "")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ",")
	if s == "" {
		return nil, true
	}
	parts := strings.Split(s, ",")
	out := make([]byte, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return nil, false
		}
		out = append(out, byte(b))
	}
	return out, true
}
