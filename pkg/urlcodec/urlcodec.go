// Package urlcodec holds the small encoding helpers used by action handlers:
// query and form parameter decoding, URL encoding and minimal HTML escaping.
//
// Every decoder here is lenient. Malformed percent escapes decode to zero
// nibbles instead of failing, so clients that send sloppy URLs still get
// served.
package urlcodec

import "strings"

const hexDigits = "0123456789abcdef"

// HTMLEncode escapes '<', '>' and '&'. Quotes are left untouched.
func HTMLEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '<':
			b.WriteString("&lt;")
		case '>':
			b.WriteString("&gt;")
		case '&':
			b.WriteString("&amp;")
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// URLEncode leaves ASCII letters, digits and "-_.~" unchanged, turns space
// into '+' and writes every other byte as %xx in lowercase hex.
func URLEncode(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isUnreserved(c):
			b.WriteByte(c)
		case c == ' ':
			b.WriteByte('+')
		default:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		}
	}
	return b.String()
}

// URLDecode reverses URLEncode: '+' becomes space and %XX becomes the byte
// with that value. An invalid hex digit counts as 0; an escape cut short by
// the end of the input is dropped.
func URLDecode(s string) string {
	const (
		regular = iota
		percent1
		percent2
	)

	var b strings.Builder
	b.Grow(len(s))

	state := regular
	var hi byte
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch state {
		case regular:
			switch c {
			case '%':
				state = percent1
			case '+':
				b.WriteByte(' ')
			default:
				b.WriteByte(c)
			}
		case percent1:
			hi = hexValue(c)
			state = percent2
		case percent2:
			b.WriteByte(hi<<4 | hexValue(c))
			state = regular
		}
	}
	return b.String()
}

// DecodeParams splits "key=value&key=value..." into a map. The last pair is
// kept even without a trailing '&'. A key with no '=' is discarded. When
// decode is true, keys and values pass through URLDecode. Repeated keys keep
// the last value.
func DecodeParams(params string, decode bool) map[string]string {
	const (
		inKey = iota
		inValue
	)

	result := make(map[string]string)
	state := inKey
	var key, value strings.Builder

	store := func() {
		k, v := key.String(), value.String()
		if decode {
			k, v = URLDecode(k), URLDecode(v)
		}
		result[k] = v
		key.Reset()
		value.Reset()
	}

	for i := 0; i < len(params); i++ {
		c := params[i]
		switch state {
		case inKey:
			switch c {
			case '=':
				state = inValue
			case '&':
				key.Reset()
			default:
				key.WriteByte(c)
			}
		case inValue:
			if c == '&' {
				store()
				state = inKey
			} else {
				value.WriteByte(c)
			}
		}
	}

	if state == inValue {
		store()
	}
	return result
}

// DecodeParamsBytes is DecodeParams for a request body read into memory.
func DecodeParamsBytes(params []byte, decode bool) map[string]string {
	return DecodeParams(string(params), decode)
}

func isUnreserved(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') ||
		c == '-' || c == '_' || c == '.' || c == '~'
}

func hexValue(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}
