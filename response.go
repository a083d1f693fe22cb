package cgikit

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// responseHeader is a single response header.
//
// key is the lower-cased name used for lookups; name keeps the spelling
// of the first AddHeader call.
type responseHeader struct {
	key   string
	name  string
	value string
}

// responseHeaders keeps headers in insertion order.
//
// err remembers the first invalid header so builder chains need not
// check errors on every call.
type responseHeaders struct {
	h   []responseHeader
	err error
}

func (hs *responseHeaders) index(key string) int {
	for i := range hs.h {
		if hs.h[i].key == key {
			return i
		}
	}
	return -1
}

func (hs *responseHeaders) validate(name, value string) bool {
	if !httpguts.ValidHeaderFieldName(name) {
		if hs.err == nil {
			hs.err = fmt.Errorf("invalid response header name %q", name)
		}
		return false
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		if hs.err == nil {
			hs.err = fmt.Errorf("invalid value %q for response header %q", value, name)
		}
		return false
	}
	return true
}

// add appends the header or, if a header with the same name exists,
// appends ", value" to it.
func (hs *responseHeaders) add(name, value string) {
	if !hs.validate(name, value) {
		return
	}
	key := strings.ToLower(name)
	if i := hs.index(key); i >= 0 {
		hs.h[i].value += ", " + value
		return
	}
	hs.h = append(hs.h, responseHeader{key: key, name: name, value: value})
}

// set replaces any existing value of the header.
func (hs *responseHeaders) set(name, value string) {
	if !hs.validate(name, value) {
		return
	}
	key := strings.ToLower(name)
	if i := hs.index(key); i >= 0 {
		hs.h[i].value = value
		return
	}
	hs.h = append(hs.h, responseHeader{key: key, name: name, value: value})
}

func (hs *responseHeaders) peek(name string) (string, bool) {
	if i := hs.index(strings.ToLower(name)); i >= 0 {
		return hs.h[i].value, true
	}
	return "", false
}

func (hs *responseHeaders) clone() responseHeaders {
	return responseHeaders{
		h:   append([]responseHeader(nil), hs.h...),
		err: hs.err,
	}
}

// writeTo serializes the status line, the headers and body to w.
func (hs *responseHeaders) writeTo(w io.Writer, status int, body []byte) (int64, error) {
	if hs.err != nil {
		return 0, hs.err
	}

	bb := AcquireByteBuffer()
	defer ReleaseByteBuffer(bb)

	bb.B = append(bb.B, strStatus...)
	bb.B = append(bb.B, strColonSpace...)
	bb.B = strconv.AppendInt(bb.B, int64(status), 10)
	bb.B = append(bb.B, ' ')
	bb.B = append(bb.B, StatusMessage(status)...)
	bb.B = append(bb.B, strCRLF...)
	for i := range hs.h {
		h := &hs.h[i]
		if h.key == "status" {
			continue
		}
		bb.B = append(bb.B, h.name...)
		bb.B = append(bb.B, strColonSpace...)
		bb.B = append(bb.B, h.value...)
		bb.B = append(bb.B, strCRLF...)
	}
	bb.B = append(bb.B, strCRLF...)
	bb.B = append(bb.B, body...)

	n, err := w.Write(bb.B)
	return int64(n), err
}

// EmptyResponse is a CGI response without a body.
//
// Headers may be added with the builder methods. WithContentType turns it
// into a FullResponse, which is the only kind of response that may carry
// a body:
//
//	cgikit.NewEmptyResponse(204).
//		WithHeader("Access-Control-Allow-Methods", "GET, POST").
//		WithHeader("Access-Control-Allow-Origin", "https://this-origin.net").
//		Respond()
type EmptyResponse struct {
	status  int
	headers responseHeaders
}

// NewEmptyResponse returns a headerless response with the given status code.
func NewEmptyResponse(status int) *EmptyResponse {
	return &EmptyResponse{status: status}
}

// AddHeader adds a response header.
//
// Adding a header with the same name (compared case-insensitively) again
// appends the value to a comma-separated list, in the order added.
// Invalid names or values are reported by WriteTo and Respond.
func (r *EmptyResponse) AddHeader(name, value string) {
	r.headers.add(name, value)
}

// WithHeader is AddHeader for builder chains.
func (r *EmptyResponse) WithHeader(name, value string) *EmptyResponse {
	r.AddHeader(name, value)
	return r
}

// Header returns the value of the response header name.
func (r *EmptyResponse) Header(name string) (string, bool) {
	return r.headers.peek(name)
}

// Status returns the response status code.
func (r *EmptyResponse) Status() int {
	return r.status
}

// SetStatus sets the response status code.
func (r *EmptyResponse) SetStatus(status int) {
	r.status = status
}

// WithContentType returns a FullResponse with the status and headers of r
// and the given content type.
//
// The content type replaces any Content-Type header set via AddHeader
// once the response is written. r must not be used afterwards.
func (r *EmptyResponse) WithContentType(contentType string) *FullResponse {
	return &FullResponse{
		status:      r.status,
		headers:     r.headers,
		contentType: contentType,
	}
}

// WriteTo writes the response to w.
func (r *EmptyResponse) WriteTo(w io.Writer) (int64, error) {
	return r.headers.writeTo(w, r.status, nil)
}

// Respond writes the response to stdout.
func (r *EmptyResponse) Respond() error {
	_, err := r.WriteTo(os.Stdout)
	return err
}

// FullResponse is a CGI response that may carry a body.
//
// It is created by EmptyResponse.WithContentType. FullResponse implements
// io.Writer by appending to the body.
type FullResponse struct {
	status      int
	headers     responseHeaders
	contentType string
	body        []byte

	acceptEncoding string
}

// AddHeader adds a response header. See EmptyResponse.AddHeader.
func (r *FullResponse) AddHeader(name, value string) {
	r.headers.add(name, value)
}

// WithHeader is AddHeader for builder chains.
func (r *FullResponse) WithHeader(name, value string) *FullResponse {
	r.AddHeader(name, value)
	return r
}

// Header returns the value of the response header name.
func (r *FullResponse) Header(name string) (string, bool) {
	return r.headers.peek(name)
}

// Status returns the response status code.
func (r *FullResponse) Status() int {
	return r.status
}

// SetStatus sets the response status code.
func (r *FullResponse) SetStatus(status int) {
	r.status = status
}

// ContentType returns the response content type.
func (r *FullResponse) ContentType() string {
	return r.contentType
}

// WithBody replaces the response body with body.
func (r *FullResponse) WithBody(body []byte) *FullResponse {
	r.body = append(r.body[:0], body...)
	return r
}

// WithBodyString replaces the response body with body.
func (r *FullResponse) WithBodyString(body string) *FullResponse {
	r.body = append(r.body[:0], body...)
	return r
}

// Body returns the current response body.
//
// The returned slice is valid until the next body modification.
func (r *FullResponse) Body() []byte {
	return r.body
}

// Write appends p to the response body.
func (r *FullResponse) Write(p []byte) (int, error) {
	r.body = append(r.body, p...)
	return len(p), nil
}

// WithCompression enables body compression for a client sending the given
// Accept-Encoding header value, which is usually
// req.Header("Accept-Encoding").
//
// The body is compressed only if the client accepts one of br, zstd,
// gzip or deflate, the body is large enough to benefit, and no
// Content-Encoding header has been set.
func (r *FullResponse) WithCompression(acceptEncoding string) *FullResponse {
	r.acceptEncoding = acceptEncoding
	return r
}

// WriteTo writes the response to w.
//
// A non-empty body gets Content-Type and Content-Length headers,
// replacing any set by hand. An empty content type is sent as
// "text/plain; charset=utf-8".
func (r *FullResponse) WriteTo(w io.Writer) (int64, error) {
	if len(r.body) == 0 {
		return r.headers.writeTo(w, r.status, nil)
	}

	hs := r.headers.clone()
	body := r.body
	if encoding := r.compressionEncoding(); encoding != "" {
		body = appendEncodedBytes(nil, body, encoding)
		hs.set(strContentEncoding, encoding)
		hs.add(strVary, strAcceptEncoding)
	}
	contentType := r.contentType
	if contentType == "" {
		contentType = defaultContentType
	}
	hs.set(strContentType, contentType)
	hs.set(strContentLength, string(AppendUint(nil, len(body))))
	return hs.writeTo(w, r.status, body)
}

func (r *FullResponse) compressionEncoding() string {
	if r.acceptEncoding == "" || len(r.body) < minCompressBodySize {
		return ""
	}
	if _, ok := r.headers.peek(strContentEncoding); ok {
		return ""
	}
	return negotiateEncoding(r.acceptEncoding)
}

// Respond writes the response to stdout.
func (r *FullResponse) Respond() error {
	_, err := r.WriteTo(os.Stdout)
	return err
}
