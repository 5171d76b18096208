package domain

import (
	"strings"
	"unicode"
)

// MaxKeyLength is the maximum key length in bytes.
const MaxKeyLength = 255

// Key identifies a stored entry.
//
// A Key obtained from ParseKey is non-empty, at most MaxKeyLength bytes and
// made only of ASCII letters, digits, '-' and '_'. Storage backends assume
// keys they receive are well-formed.
type Key string

// String returns the key as a plain string.
func (k Key) String() string {
	return string(k)
}

// ParseKey validates s and returns it as a Key.
func ParseKey(s string) (Key, error) {
	if s == "" {
		return "", ErrInvalidKey.WithDetails("key cannot be empty")
	}
	if len(s) > MaxKeyLength {
		return "", ErrInvalidKey.WithDetails("key exceeds maximum length of 255 characters")
	}
	if strings.TrimFunc(s, unicode.IsSpace) != s {
		return "", ErrInvalidKey.WithDetails("key cannot have leading or trailing whitespace")
	}
	for i := 0; i < len(s); i++ {
		if !isKeyByte(s[i]) {
			return "", ErrInvalidKey.WithDetails("key contains invalid characters (only a-z, A-Z, 0-9, _, - allowed)")
		}
	}
	return Key(s), nil
}

// MustParseKey is like ParseKey but panics on invalid input.
// Intended for tests and constants.
func MustParseKey(s string) Key {
	k, err := ParseKey(s)
	if err != nil {
		panic(err)
	}
	return k
}

func isKeyByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '-' || c == '_':
		return true
	}
	return false
}
