package json

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const hex = "0123456789abcdef"

// Reencode parses data as a single JSON value and writes it back out in the
// layout used for objects in the raw zone: ", " between elements, ": " after
// object keys, and everything outside printable ASCII escaped as \uXXXX. So
// {"a":1} becomes {"a": 1}. Object keys keep the order they first appeared
// in; a repeated key keeps that position and takes its last value. Integers
// are written as they appeared (but -0 is 0) and other numbers in their
// shortest round-trip form with at least one decimal place, so 2.50 becomes
// 2.5 and 1E5 becomes 100000.0. Numbers too large for a float64 are written
// as Infinity.
//
// Anything other than whitespace after the value is an error.
func Reencode(data []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	buf := &bytes.Buffer{}
	if err := encodeValue(dec, buf); err != nil {
		return nil, err
	}
	if tok, err := dec.Token(); err == nil {
		return nil, errors.Errorf("extra data after JSON value: %v", tok)
	} else if err != io.EOF {
		return nil, errors.Wrap(err, "reading past JSON value")
	}
	return buf.Bytes(), nil
}

func encodeValue(dec *json.Decoder, buf *bytes.Buffer) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	} else if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var keys []string
			vals := make(map[string][]byte)
			for dec.More() {
				ktok, err := dec.Token()
				if err != nil {
					return err
				}
				key, ok := ktok.(string)
				if !ok {
					return errors.Errorf("unexpected object key %v", ktok)
				}
				vbuf := &bytes.Buffer{}
				if err := encodeValue(dec, vbuf); err != nil {
					return err
				}
				if _, dup := vals[key]; !dup {
					keys = append(keys, key)
				}
				vals[key] = vbuf.Bytes()
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			buf.WriteByte('{')
			for i, key := range keys {
				if i > 0 {
					buf.WriteString(", ")
				}
				writeString(buf, key)
				buf.WriteString(": ")
				buf.Write(vals[key])
			}
			buf.WriteByte('}')
		case '[':
			buf.WriteByte('[')
			for i := 0; dec.More(); i++ {
				if i > 0 {
					buf.WriteString(", ")
				}
				if err := encodeValue(dec, buf); err != nil {
					return err
				}
			}
			if _, err := dec.Token(); err != nil {
				return err
			}
			buf.WriteByte(']')
		default:
			return errors.Errorf("unexpected delimiter %v", t)
		}
	case string:
		writeString(buf, t)
	case json.Number:
		n, err := formatNumber(t)
		if err != nil {
			return err
		}
		buf.WriteString(n)
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case nil:
		buf.WriteString("null")
	default:
		return errors.Errorf("unexpected token %T", tok)
	}
	return nil
}

// formatNumber writes integers unchanged and floats as their shortest
// representation, switching to exponent form outside [1e-4, 1e16).
func formatNumber(n json.Number) (string, error) {
	text := n.String()
	if !strings.ContainsAny(text, ".eE") {
		if text == "-0" {
			return "0", nil
		}
		return text, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil && !math.IsInf(f, 0) {
		return "", errors.Wrapf(err, "parsing number %s", text)
	}
	switch {
	case math.IsInf(f, 1):
		return "Infinity", nil
	case math.IsInf(f, -1):
		return "-Infinity", nil
	}
	e := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(e[strings.IndexByte(e, 'e')+1:])
	if err != nil {
		return "", errors.Wrapf(err, "formatting number %s", text)
	}
	if exp < -4 || exp >= 16 {
		return e, nil
	}
	out := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out, nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch {
		case r == '"':
			buf.WriteString(`\"`)
		case r == '\\':
			buf.WriteString(`\\`)
		case r == '\n':
			buf.WriteString(`\n`)
		case r == '\r':
			buf.WriteString(`\r`)
		case r == '\t':
			buf.WriteString(`\t`)
		case r == '\b':
			buf.WriteString(`\b`)
		case r == '\f':
			buf.WriteString(`\f`)
		case r >= ' ' && r <= '~':
			buf.WriteRune(r)
		case r > 0xFFFF:
			r -= 0x10000
			writeUnicodeEscape(buf, 0xD800+(r>>10)&0x3FF)
			writeUnicodeEscape(buf, 0xDC00+r&0x3FF)
		default:
			writeUnicodeEscape(buf, r)
		}
	}
	buf.WriteByte('"')
}

func writeUnicodeEscape(buf *bytes.Buffer, r rune) {
	buf.WriteString(`\u`)
	buf.WriteByte(hex[(r>>12)&0xF])
	buf.WriteByte(hex[(r>>8)&0xF])
	buf.WriteByte(hex[(r>>4)&0xF])
	buf.WriteByte(hex[r&0xF])
}
