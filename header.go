package cgikit

import (
	"bytes"
	"strings"
	"unicode"
)

// ParseHeaderLine splits a single "Name: value" line without its
// terminating CRLF.
//
// Both halves are converted to UTF-8 lossily. The name is trimmed and
// lower-cased; the value only loses its leading whitespace. ok is false
// if the line has no colon.
func ParseHeaderLine(line []byte) (name, value string, ok bool) {
	n := bytes.IndexByte(line, ':')
	if n < 0 {
		return "", "", false
	}
	name = strings.ToLower(strings.TrimSpace(lossyString(line[:n])))
	value = strings.TrimLeftFunc(lossyString(line[n+1:]), unicode.IsSpace)
	return name, value, true
}

// HeaderKey returns the key a header is stored under: underscores become
// hyphens and everything is lower-cased, so "CONTENT_TYPE",
// "Content-Type" and "content_type" are the same header.
func HeaderKey(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}

// VarKey returns the key an environment variable is stored under.
func VarKey(name string) string {
	return strings.ToUpper(name)
}

// headerNameFromEnv returns the header name carried by an environment key
// such as HTTP_X_FORWARDED_FOR, or false if the key is a plain variable.
func headerNameFromEnv(key, prefix string) (string, bool) {
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) {
		return "", false
	}
	return HeaderKey(key[len(prefix):]), true
}

// multipartBoundary looks for a multipart/form-data media type in
// contentType and returns its boundary parameter.
//
// isMultipart is false when contentType does not mention multipart form
// data at all. An empty boundary with isMultipart set means the boundary
// parameter is missing or empty.
func multipartBoundary(contentType string) (boundary string, isMultipart bool) {
	n := strings.Index(contentType, strMultipartFormData)
	if n < 0 {
		return "", false
	}
	b := contentType[n+len(strMultipartFormData):]
	n = strings.Index(b, strBoundary)
	if n < 0 {
		return "", true
	}
	b = b[n+len(strBoundary):]
	if n = strings.IndexByte(b, ';'); n >= 0 {
		b = b[:n]
	}
	b = strings.TrimSpace(b)
	if len(b) > 1 && b[0] == '"' && b[len(b)-1] == '"' {
		b = b[1 : len(b)-1]
	}
	return b, true
}
