package cgikit

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// lossyString converts b to a string, replacing invalid UTF-8 sequences
// with U+FFFD.
func lossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	// The decoder keeps transform state, so it is not shared.
	d, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(d)
}

// lossyEnvString is lossyString for values that are already strings,
// such as environment entries.
func lossyEnvString(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return lossyString(s2b(s))
}
