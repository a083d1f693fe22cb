package cgikit

import (
	"bytes"
	"errors"
	"fmt"
	"math/bits"
	"unsafe"
)

// maxIntChars is the number of decimal digits guaranteed to fit into an int.
const maxIntChars = 9 + 9*(bits.UintSize/64)

// AppendUint appends n to dst and returns dst (which may be newly allocated).
func AppendUint(dst []byte, n int) []byte {
	if n < 0 {
		panic("BUG: int must be positive")
	}

	var b [20]byte
	buf := b[:]
	i := len(buf)
	var q int
	for n >= 10 {
		i--
		q = n / 10
		buf[i] = '0' + byte(n-q*10)
		n = q
	}
	i--
	buf[i] = '0' + byte(n)

	dst = append(dst, buf[i:]...)
	return dst
}

// ParseUint parses a non-negative decimal integer from buf.
//
// Signs, whitespace and trailing garbage are rejected.
func ParseUint(buf []byte) (int, error) {
	v, n, err := parseUintBuf(buf)
	if err != nil {
		return -1, err
	}
	if n != len(buf) {
		return -1, fmt.Errorf("only %d bytes out of %d bytes exhausted when parsing int %q", n, len(buf), buf)
	}
	return v, nil
}

var errEmptyInt = errors.New("empty integer")

func parseUintBuf(b []byte) (int, int, error) {
	n := len(b)
	if n == 0 {
		return -1, 0, errEmptyInt
	}
	v := 0
	for i := 0; i < n; i++ {
		c := b[i]
		k := c - '0'
		if k > 9 {
			if i == 0 {
				return -1, i, fmt.Errorf("unexpected first char %q. Expected 0-9", c)
			}
			return v, i, nil
		}
		if i >= maxIntChars {
			return -1, i, fmt.Errorf("too long int %q", b[:i+1])
		}
		v = 10*v + int(k)
	}
	return v, n, nil
}

var hex2intTable = func() []byte {
	b := make([]byte, 256)
	for i := 0; i < 256; i++ {
		c := byte(0)
		if i >= '0' && i <= '9' {
			c = 1 + byte(i) - '0'
		} else if i >= 'a' && i <= 'f' {
			c = 1 + byte(i) - 'a' + 10
		} else if i >= 'A' && i <= 'F' {
			c = 1 + byte(i) - 'A' + 10
		}
		b[i] = c
	}
	return b
}()

// hexbyte2int returns the value of the hex digit c or -1.
func hexbyte2int(c byte) int {
	return int(hex2intTable[c]) - 1
}

// indexBytes returns the offset of the first occurrence of needle
// in haystack or -1.
//
// An empty needle is never found.
func indexBytes(haystack, needle []byte) int {
	if len(needle) == 0 {
		return -1
	}
	return bytes.Index(haystack, needle)
}

// hasPrefixAt reports whether b[pos:] starts with prefix.
// Out of range positions report false.
func hasPrefixAt(b []byte, pos int, prefix []byte) bool {
	if pos < 0 || pos > len(b) || len(b)-pos < len(prefix) {
		return false
	}
	return bytes.Equal(b[pos:pos+len(prefix)], prefix)
}

// b2s converts byte slice to a string without memory allocation.
// See https://groups.google.com/forum/#!msg/Golang-Nuts/ENgbUzYvCuU/90yGx7GUAgAJ .
func b2s(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	return unsafe.String(&b[0], len(b))
}

// s2b converts string to a byte slice without memory allocation.
//
// The returned slice must not be modified.
func s2b(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
