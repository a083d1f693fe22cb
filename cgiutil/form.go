package cgiutil

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/valyala/bytebufferpool"
)

// FormBuilder builds a multipart/form-data body.
//
// Fields and files are written in the order they are added. Call Close
// before Bytes to write the closing delimiter.
type FormBuilder struct {
	boundary string
	buf      bytebufferpool.ByteBuffer
	closed   bool
}

// NewFormBuilder returns a FormBuilder using a random boundary.
func NewFormBuilder() *FormBuilder {
	return NewFormBuilderBoundary(randomBoundary())
}

// NewFormBuilderBoundary returns a FormBuilder using the given boundary.
func NewFormBuilderBoundary(boundary string) *FormBuilder {
	return &FormBuilder{boundary: boundary}
}

// Boundary returns the boundary without the leading "--".
func (f *FormBuilder) Boundary() string {
	return f.boundary
}

// ContentType returns the Content-Type value announcing the body.
func (f *FormBuilder) ContentType() string {
	return "multipart/form-data; boundary=" + f.boundary
}

// AddField adds a text field.
func (f *FormBuilder) AddField(name, value string) {
	f.startPart()
	fmt.Fprintf(&f.buf, "Content-Disposition: form-data; name=\"%s\"\r\n\r\n", escapeQuotes(name))
	f.buf.WriteString(value)
}

// AddFile adds a file field. An empty contentType defaults to
// application/octet-stream.
func (f *FormBuilder) AddFile(name, fileName, contentType string, data []byte) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	f.startPart()
	fmt.Fprintf(&f.buf, "Content-Disposition: form-data; name=\"%s\"; filename=\"%s\"\r\n",
		escapeQuotes(name), escapeQuotes(fileName))
	fmt.Fprintf(&f.buf, "Content-Type: %s\r\n\r\n", contentType)
	f.buf.Write(data) //nolint:errcheck
}

// Close writes the closing delimiter. Adding a part after Close starts
// a new body.
func (f *FormBuilder) Close() {
	if f.closed {
		return
	}
	if f.buf.Len() > 0 {
		f.buf.WriteString("\r\n")
	}
	f.buf.WriteString("--")
	f.buf.WriteString(f.boundary)
	f.buf.WriteString("--\r\n")
	f.closed = true
}

// Bytes returns the body built so far.
//
// The returned slice is valid until the next FormBuilder call.
func (f *FormBuilder) Bytes() []byte {
	return f.buf.B
}

func (f *FormBuilder) startPart() {
	if f.closed {
		f.buf.Reset()
		f.closed = false
	}
	if f.buf.Len() > 0 {
		f.buf.WriteString("\r\n")
	}
	f.buf.WriteString("--")
	f.buf.WriteString(f.boundary)
	f.buf.WriteString("\r\n")
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

func randomBoundary() string {
	var buf [30]byte
	_, err := io.ReadFull(rand.Reader, buf[:])
	if err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", buf[:])
}
