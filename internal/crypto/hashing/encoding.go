package hashing

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ErrUnknownEncoding is returned for encoding names outside the supported set.
var ErrUnknownEncoding = errors.New("unknown encoding")

// Encoding names a byte <-> string conversion.
type Encoding string

const (
	UTF8      Encoding = "utf8"
	Hex       Encoding = "hex"
	Base64    Encoding = "base64"
	Base64URL Encoding = "base64url"
	Latin1    Encoding = "latin1"
	ASCII     Encoding = "ascii"
	UTF16LE   Encoding = "utf16le"

	// Binary decodes input text like Latin1. As a digest encoding it selects
	// the raw bytes instead of a string.
	Binary Encoding = "binary"
)

// ParseEncoding canonicalizes an encoding name, accepting the usual aliases
// ("utf-8", "ucs2", "UTF16LE", ...).
func ParseEncoding(name string) (Encoding, error) {
	switch strings.ToLower(name) {
	case "utf8", "utf-8":
		return UTF8, nil
	case "hex":
		return Hex, nil
	case "base64":
		return Base64, nil
	case "base64url":
		return Base64URL, nil
	case "latin1":
		return Latin1, nil
	case "binary":
		return Binary, nil
	case "ascii":
		return ASCII, nil
	case "utf16le", "utf-16le", "ucs2", "ucs-2":
		return UTF16LE, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
}

// DecodeString converts s to bytes using enc. Decoding is lenient the way
// JavaScript runtimes are: hex stops at the first malformed pair, base64
// accepts both alphabets with or without padding.
func DecodeString(s string, enc Encoding) ([]byte, error) {
	enc, err := ParseEncoding(string(enc))
	if err != nil {
		return nil, err
	}
	switch enc {
	case UTF8:
		return []byte(s), nil
	case Hex:
		return decodeHex(s), nil
	case Base64, Base64URL:
		return decodeBase64(s), nil
	case Latin1, Binary, ASCII:
		units := utf16.Encode([]rune(s))
		out := make([]byte, len(units))
		for i, u := range units {
			out[i] = byte(u)
		}
		return out, nil
	case UTF16LE:
		units := utf16.Encode([]rune(s))
		out := make([]byte, 2*len(units))
		for i, u := range units {
			out[2*i] = byte(u)
			out[2*i+1] = byte(u >> 8)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
}

// EncodeToString renders b as a string in enc. Binary is rendered like
// Latin1.
func EncodeToString(b []byte, enc Encoding) (string, error) {
	enc, err := ParseEncoding(string(enc))
	if err != nil {
		return "", err
	}
	switch enc {
	case Hex:
		return hex.EncodeToString(b), nil
	case Base64:
		return base64.StdEncoding.EncodeToString(b), nil
	case Base64URL:
		return base64.RawURLEncoding.EncodeToString(b), nil
	case UTF8:
		return strings.ToValidUTF8(string(b), string(utf8.RuneError)), nil
	case Latin1, Binary:
		var sb strings.Builder
		sb.Grow(len(b))
		for _, c := range b {
			sb.WriteRune(rune(c))
		}
		return sb.String(), nil
	case ASCII:
		var sb strings.Builder
		sb.Grow(len(b))
		for _, c := range b {
			sb.WriteByte(c & 0x7f)
		}
		return sb.String(), nil
	case UTF16LE:
		units := make([]uint16, len(b)/2)
		for i := range units {
			units[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
		}
		return string(utf16.Decode(units)), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEncoding, enc)
}

func decodeHex(s string) []byte {
	out := make([]byte, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		hi, ok1 := fromHexChar(s[i])
		lo, ok2 := fromHexChar(s[i+1])
		if !ok1 || !ok2 {
			break
		}
		out = append(out, hi<<4|lo)
	}
	return out
}

func fromHexChar(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func decodeBase64(s string) []byte {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '-':
			sb.WriteByte('+')
		case c == '_':
			sb.WriteByte('/')
		case c == '=':
			// Padding ends the payload.
			i = len(s)
		case 'A' <= c && c <= 'Z', 'a' <= c && c <= 'z', '0' <= c && c <= '9', c == '+', c == '/':
			sb.WriteByte(c)
		}
	}
	clean := sb.String()
	if len(clean)%4 == 1 {
		clean = clean[:len(clean)-1]
	}
	out, err := base64.RawStdEncoding.DecodeString(clean)
	if err != nil {
		return nil
	}
	return out
}
