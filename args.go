package cgikit

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// Query is the result of parsing the QUERY_STRING variable.
//
// It is one of QueryNone, QueryArgs or QueryErr:
//
//	switch q := req.Query().(type) {
//	case cgikit.QueryNone:
//	case cgikit.QueryArgs:
//	case cgikit.QueryErr:
//	}
type Query interface {
	isQuery()
}

// QueryNone means QUERY_STRING is not set.
type QueryNone struct{}

// QueryArgs holds percent-decoded name=value pairs from the query string.
//
// When a name occurs more than once the last value wins.
type QueryArgs map[string]string

// QueryErr means QUERY_STRING is set but is not a valid sequence
// of &-separated, percent-encoded name=value pairs.
//
// The raw value is still available via Request.Var("QUERY_STRING").
type QueryErr struct {
	*Error
}

func (QueryNone) isQuery() {}
func (QueryArgs) isQuery() {}
func (QueryErr) isQuery()  {}

// Get returns the value for the given name.
func (a QueryArgs) Get(name string) (string, bool) {
	v, ok := a[name]
	return v, ok
}

// Has returns true if the given name is present.
func (a QueryArgs) Has(name string) bool {
	_, ok := a[name]
	return ok
}

const queryErrorMessage = "Invalid query string."

// ParseQuery parses a raw query string.
//
// present must be false when the query string variable is absent,
// in which case QueryNone is returned. A single malformed chunk turns
// the whole result into QueryErr.
func ParseQuery(qs string, present bool) Query {
	if !present {
		return QueryNone{}
	}

	args := make(QueryArgs)
	var kv argsKV
	s := argsScanner{b: s2b(qs)}
	for s.next(&kv) {
		if !kv.hasEq {
			return QueryErr{newInputError(400, queryErrorMessage,
				fmt.Sprintf("Chunk %q not a name=value pair.", kv.chunk))}
		}
		name, err := decodePercent(kv.key)
		if err != nil {
			return QueryErr{newInputError(400, queryErrorMessage,
				fmt.Sprintf("Error decoding name in chunk %q: %s", kv.chunk, err))}
		}
		value, err := decodePercent(kv.value)
		if err != nil {
			return QueryErr{newInputError(400, queryErrorMessage,
				fmt.Sprintf("Error decoding value in chunk %q: %s", kv.chunk, err))}
		}
		args[name] = value
	}
	return args
}

type argsKV struct {
	chunk []byte
	key   []byte
	value []byte
	hasEq bool
}

// argsScanner walks &-separated chunks, splitting each on its first '='.
// Every '&' yields a chunk, so "a=1&" produces a trailing empty chunk.
type argsScanner struct {
	b    []byte
	done bool
}

func (s *argsScanner) next(kv *argsKV) bool {
	if s.done {
		return false
	}

	chunk := s.b
	if i := bytes.IndexByte(s.b, '&'); i >= 0 {
		chunk = s.b[:i]
		s.b = s.b[i+1:]
	} else {
		s.b = nil
		s.done = true
	}

	kv.chunk = chunk
	if i := bytes.IndexByte(chunk, '='); i >= 0 {
		kv.key = chunk[:i]
		kv.value = chunk[i+1:]
		kv.hasEq = true
	} else {
		kv.key = chunk
		kv.value = nil
		kv.hasEq = false
	}
	return true
}

// DecodePercent decodes a '+' and %XX encoded string.
//
// '+' becomes a space and %XX becomes the byte 0xXX. The result must be
// valid UTF-8. Returned errors are *Error values of kind InputError.
func DecodePercent(s string) (string, error) {
	v, err := decodePercent(s2b(s))
	if err != nil {
		return "", newInputError(400, "Invalid percent-encoding.", err.Error())
	}
	return v, nil
}

func decodePercent(src []byte) (string, error) {
	dst, err := decodePercentAppend(make([]byte, 0, len(src)), src)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(dst) {
		return "", fmt.Errorf("%%-decoded string %q is not UTF-8", dst)
	}
	return b2s(dst), nil
}

// decodePercentAppend appends the decoded src to dst.
//
// Unlike lenient URL decoders it rejects truncated and non-hex escapes.
func decodePercentAppend(dst, src []byte) ([]byte, error) {
	for i, n := 0, len(src); i < n; i++ {
		c := src[i]
		switch c {
		case '+':
			dst = append(dst, ' ')
		case '%':
			if i+2 >= n {
				return dst, fmt.Errorf("string ended during escape sequence at index %d", i)
			}
			x1 := hexbyte2int(src[i+1])
			x2 := hexbyte2int(src[i+2])
			if x1 < 0 || x2 < 0 {
				return dst, fmt.Errorf("invalid escape sequence %q at index %d", src[i:i+3], i)
			}
			dst = append(dst, byte(x1<<4|x2))
			i += 2
		default:
			dst = append(dst, c)
		}
	}
	return dst, nil
}
