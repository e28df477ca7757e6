// Package scan reads JSON string values out of an in-memory window of
// film-list text without a generic JSON decoder.
//
// All functions take the buffer and a cursor and return the new cursor.
// A value that runs past the end of the buffer yields ErrIncomplete so the
// caller can refill its window and retry from the same cursor.
package scan

import (
	"errors"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

var (
	// ErrIncomplete means the value continues beyond the buffered text.
	ErrIncomplete = errors.New("scan: incomplete value")
	// ErrMalformed means the text at the cursor is not the expected value.
	ErrMalformed = errors.New("scan: malformed value")
)

// IsSpace reports whether c is JSON insignificant whitespace.
func IsSpace(c byte) bool {
	return c == ' ' || c == '\n' || c == '\r' || c == '\t'
}

// SkipSpace returns the first position at or after pos that is not whitespace.
func SkipSpace(b []byte, pos int) int {
	for pos < len(b) && IsSpace(b[pos]) {
		pos++
	}
	return pos
}

// ReadString decodes the JSON string starting at b[pos], which must be a
// double quote. It returns the decoded value and the position just after
// the closing quote. Unknown escapes decode to the escaped byte itself.
func ReadString(b []byte, pos int) (string, int, error) {
	if pos >= len(b) {
		return "", pos, ErrIncomplete
	}
	if b[pos] != '"' {
		return "", pos, ErrMalformed
	}

	// Fast path: no escapes.
	i := pos + 1
	for i < len(b) && b[i] != '"' && b[i] != '\\' {
		i++
	}
	if i >= len(b) {
		return "", pos, ErrIncomplete
	}
	if b[i] == '"' {
		return string(b[pos+1 : i]), i + 1, nil
	}

	var sb strings.Builder
	sb.Grow(i - pos + 16)
	sb.Write(b[pos+1 : i])

	for i < len(b) {
		c := b[i]
		switch {
		case c == '"':
			return sb.String(), i + 1, nil
		case c != '\\':
			sb.WriteByte(c)
			i++
			continue
		}

		if i+1 >= len(b) {
			return "", pos, ErrIncomplete
		}
		esc := b[i+1]
		i += 2
		switch esc {
		case '"', '\\', '/':
			sb.WriteByte(esc)
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'u':
			r, next, err := readUnicode(b, i)
			if errors.Is(err, ErrIncomplete) {
				return "", pos, err
			}
			if err != nil {
				sb.WriteByte('u')
				continue
			}
			sb.WriteRune(r)
			i = next
		default:
			sb.WriteByte(esc)
		}
	}
	return "", pos, ErrIncomplete
}

// readUnicode decodes the four hex digits at b[pos:] and, for a high
// surrogate, an immediately following \uXXXX low surrogate.
func readUnicode(b []byte, pos int) (rune, int, error) {
	r, ok, err := hex4(b, pos)
	if err != nil {
		return 0, pos, err
	}
	if !ok {
		return 0, pos, ErrMalformed
	}
	next := pos + 4
	if !utf16.IsSurrogate(r) {
		return r, next, nil
	}

	if next+1 >= len(b) {
		return 0, pos, ErrIncomplete
	}
	if b[next] != '\\' || b[next+1] != 'u' {
		return utf8.RuneError, next, nil
	}
	lo, ok, err := hex4(b, next+2)
	if err != nil {
		return 0, pos, err
	}
	if !ok {
		return utf8.RuneError, next, nil
	}
	if dec := utf16.DecodeRune(r, lo); dec != utf8.RuneError {
		return dec, next + 6, nil
	}
	return utf8.RuneError, next, nil
}

// hex4 reads four hex digits. A non-hex byte among the available ones
// makes the escape malformed even when fewer than four bytes are buffered;
// only a run of valid digits cut off by the buffer end is incomplete.
func hex4(b []byte, pos int) (rune, bool, error) {
	var r rune
	for k := 0; k < 4; k++ {
		if pos+k >= len(b) {
			return 0, false, ErrIncomplete
		}
		c := b[pos+k]
		switch {
		case c >= '0' && c <= '9':
			r = r<<4 | rune(c-'0')
		case c >= 'a' && c <= 'f':
			r = r<<4 | rune(c-'a'+10)
		case c >= 'A' && c <= 'F':
			r = r<<4 | rune(c-'A'+10)
		default:
			return 0, false, nil
		}
	}
	return r, true, nil
}

// ReadNull consumes the literal null at b[pos].
func ReadNull(b []byte, pos int) (int, error) {
	const lit = "null"
	for k := 0; k < len(lit); k++ {
		if pos+k >= len(b) {
			return pos, ErrIncomplete
		}
		if b[pos+k] != lit[k] {
			return pos, ErrMalformed
		}
	}
	return pos + len(lit), nil
}

// SkipValue skips one JSON value of any kind starting at b[pos] and returns
// the position after it. Objects and arrays are balanced, and brackets
// inside strings are ignored.
func SkipValue(b []byte, pos int) (int, error) {
	if pos >= len(b) {
		return pos, ErrIncomplete
	}
	switch b[pos] {
	case '"':
		return skipString(b, pos)
	case '{', '[':
		return skipComposite(b, pos)
	case '}', ']', ',', ':':
		return pos, ErrMalformed
	}

	// number, true, false, null
	i := pos
	for i < len(b) {
		c := b[i]
		if c == ',' || c == '}' || c == ']' || IsSpace(c) {
			return i, nil
		}
		if c == '"' || c == '{' || c == '[' {
			return pos, ErrMalformed
		}
		i++
	}
	return pos, ErrIncomplete
}

// ArrayEnd returns the position just after the array that opens at b[pos].
func ArrayEnd(b []byte, pos int) (int, error) {
	if pos >= len(b) {
		return pos, ErrIncomplete
	}
	if b[pos] != '[' {
		return pos, ErrMalformed
	}
	return skipComposite(b, pos)
}

func skipString(b []byte, pos int) (int, error) {
	for i := pos + 1; i < len(b); i++ {
		switch b[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return pos, ErrIncomplete
}

// skipComposite balances brackets with a stack of expected closers, so a
// '}' closing an open '[' is malformed rather than a match.
func skipComposite(b []byte, pos int) (int, error) {
	var buf [16]byte
	closers := buf[:0]
	inString := false
	for i := pos; i < len(b); i++ {
		c := b[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			closers = append(closers, '}')
		case '[':
			closers = append(closers, ']')
		case '}', ']':
			if closers[len(closers)-1] != c {
				return pos, ErrMalformed
			}
			closers = closers[:len(closers)-1]
			if len(closers) == 0 {
				return i + 1, nil
			}
		}
	}
	return pos, ErrIncomplete
}

// DecodeStringArray decodes a complete array of strings and nulls. A null
// element decodes to the empty string. Any other element kind is malformed.
func DecodeStringArray(b []byte) ([]string, error) {
	pos := SkipSpace(b, 0)
	if pos >= len(b) || b[pos] != '[' {
		return nil, ErrMalformed
	}
	pos = SkipSpace(b, pos+1)
	if pos < len(b) && b[pos] == ']' {
		return []string{}, nil
	}

	fields := make([]string, 0, 20)
	for {
		if pos >= len(b) {
			return nil, ErrMalformed
		}
		switch b[pos] {
		case '"':
			s, next, err := ReadString(b, pos)
			if err != nil {
				return nil, ErrMalformed
			}
			fields = append(fields, s)
			pos = next
		case 'n':
			next, err := ReadNull(b, pos)
			if err != nil {
				return nil, ErrMalformed
			}
			fields = append(fields, "")
			pos = next
		default:
			return nil, ErrMalformed
		}

		pos = SkipSpace(b, pos)
		if pos >= len(b) {
			return nil, ErrMalformed
		}
		switch b[pos] {
		case ',':
			pos = SkipSpace(b, pos+1)
		case ']':
			return fields, nil
		default:
			return nil, ErrMalformed
		}
	}
}
