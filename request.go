package cgikit

import (
	"fmt"
	"io"
	"os"
	"sort"
)

// Logger is used for logging parser internals.
type Logger interface {
	// Printf must have the same semantics as log.Printf.
	Printf(format string, args ...interface{})
}

// Body is the request body as found on stdin.
//
// The kind of body is not derived from the request method but from the
// presence and values of the content-length and content-type headers.
// It is one of BodyNone, BodyRaw, BodyMultipart or BodyErr.
type Body interface {
	isBody()
}

// BodyNone means the request has no content length.
type BodyNone struct{}

// BodyRaw is a body whose content type is not multipart/form-data.
type BodyRaw []byte

// BodyMultipart holds the successfully parsed parts of a
// multipart/form-data body in body order.
type BodyMultipart []*MultipartPart

// BodyErr means the body could not be read or parsed.
type BodyErr struct {
	*Error
}

func (BodyNone) isBody()      {}
func (BodyRaw) isBody()       {}
func (BodyMultipart) isBody() {}
func (BodyErr) isBody()       {}

// Parser builds Requests from a CGI environment and a body stream.
//
// The zero value is ready to use. It is safe to call Parse concurrently
// as long as the Parser fields are not modified.
type Parser struct {
	// HeaderPrefix marks environment variables that carry request headers.
	// The web server turns a "X-Custom-Header" header into the
	// HTTP_X_CUSTOM_HEADER variable.
	//
	// "HTTP_" is used by default.
	HeaderPrefix string

	// MaxBodySize limits the content length the parser is willing to read.
	// Larger bodies are not read and yield BodyErr with code 413.
	//
	// The body size is unlimited by default.
	MaxBodySize int

	// MaxParts limits the number of multipart parts kept in BodyMultipart.
	// Parts above the limit are dropped and reported via OnDroppedPart
	// and Request.DroppedParts.
	//
	// The number of parts is unlimited by default.
	MaxParts int

	// OnDroppedPart is called for every multipart chunk that does not
	// make it into BodyMultipart. index is the position of the chunk
	// in the body and chunk must not be retained.
	OnDroppedPart func(index int, chunk []byte, reason string)

	// Logger receives debug messages about the parse.
	//
	// Nothing is logged by default.
	Logger Logger
}

// Request holds the CGI environment and the request made to the program.
//
// Request is built once by Parser.Parse and is not modified afterwards.
type Request struct {
	vars    map[string]string
	headers map[string]string
	query   Query
	body    Body

	droppedParts int
}

// NewRequest parses the request of the current CGI process: the process
// environment and the body on stdin. It uses a zero Parser.
func NewRequest() *Request {
	var p Parser
	return p.Parse(OSEnv{}, os.Stdin)
}

// Parse classifies env into variables and headers, decodes the query
// string and reads the body from r.
//
// Failures are reported inside the Query and Body of the returned
// Request, so Parse always returns a usable value.
func (p *Parser) Parse(env EnvSource, r io.Reader) *Request {
	p.logf("Parser.Parse() called")

	req := &Request{
		vars:    make(map[string]string),
		headers: make(map[string]string),
	}

	prefix := p.HeaderPrefix
	if prefix == "" {
		prefix = defaultHeaderPrefix
	}
	env.VisitAll(func(key, value string) {
		key = lossyEnvString(key)
		value = lossyEnvString(value)
		if name, ok := headerNameFromEnv(key, prefix); ok {
			p.logf("  %q -> %q, value: %q", key, name, value)
			req.headers[name] = value
			return
		}
		name := VarKey(key)
		p.logf("  %q -> %q, value: %q", key, name, value)
		req.vars[name] = value
	})

	qs, ok := req.vars[varQueryString]
	req.query = ParseQuery(qs, ok)
	req.body = p.parseBody(req, r)
	return req
}

func (p *Parser) parseBody(req *Request, r io.Reader) Body {
	lenStr, ok := req.lookup(hdrContentLength, varContentLength)
	if !ok {
		return BodyNone{}
	}
	n, err := ParseUint(s2b(lenStr))
	if err != nil {
		return BodyErr{newEnvError(400, "Invalid Content-length header value.",
			fmt.Sprintf("Error parsing Content-length header value %q: %s", lenStr, err))}
	}
	if p.MaxBodySize > 0 && n > p.MaxBodySize {
		return BodyErr{newInputError(413, "Request body too large.",
			fmt.Sprintf("Content-length %d exceeds the limit of %d bytes", n, p.MaxBodySize))}
	}

	body, err := readBody(r, n)
	if err != nil {
		return BodyErr{newInputError(500, "Unable to read request body.",
			fmt.Sprintf("Error reading request body: %s", err))}
	}
	p.logf("  read %d body bytes", len(body))

	contentType, _ := req.lookup(hdrContentType, varContentType)
	boundary, isMultipart := multipartBoundary(contentType)
	if !isMultipart {
		return BodyRaw(body)
	}
	if boundary == "" {
		return BodyErr{newEnvError(400, "Content-type: multipart/form-data lacks valid boundary specification.",
			fmt.Sprintf("Can't find boundary in Content-type header: %s", contentType))}
	}
	return p.parseMultipart(req, body, boundary)
}

func (p *Parser) parseMultipart(req *Request, body []byte, boundary string) Body {
	p.logf("  multipart boundary: %q", boundary)

	chunks, err := splitMultipart(body, s2b(boundary))
	if err != nil {
		return BodyErr{err}
	}
	p.logf("  read %d multipart chunks", len(chunks))

	parts := make(BodyMultipart, 0, len(chunks))
	for i, chunk := range chunks {
		if p.MaxParts > 0 && len(parts) >= p.MaxParts {
			req.droppedParts++
			reason := fmt.Sprintf("more than %d parts", p.MaxParts)
			p.logf("  dropping multipart chunk %d: %s", i, reason)
			if p.OnDroppedPart != nil {
				p.OnDroppedPart(i, chunk, reason)
			}
			continue
		}
		parts = append(parts, ParseMultipartPart(chunk))
	}
	return parts
}

// readBody reads exactly n bytes from r.
//
// The buffer grows with the data actually received, so a bogus content
// length does not allocate up front.
func readBody(r io.Reader, n int) ([]byte, error) {
	bb := AcquireByteBuffer()
	defer ReleaseByteBuffer(bb)

	m, err := io.CopyN(bb, r, int64(n))
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read %d bytes out of %d: %w", m, n, err)
	}
	body := make([]byte, len(bb.B))
	copy(body, bb.B)
	return body, nil
}

func (p *Parser) logf(format string, args ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

// lookup returns the header named header or, failing that, the variable
// named v. Web servers following RFC 3875 pass CONTENT_LENGTH and
// CONTENT_TYPE without the header prefix.
func (req *Request) lookup(header, v string) (string, bool) {
	if s, ok := req.headers[header]; ok {
		return s, true
	}
	s, ok := req.vars[v]
	return s, ok
}

// Var returns the value of the environment variable k.
//
// k is upper-cased before the lookup.
func (req *Request) Var(k string) (string, bool) {
	v, ok := req.vars[VarKey(k)]
	return v, ok
}

// Header returns the value of the request header k.
//
// k is converted with HeaderKey before the lookup, so "Content-Type",
// "content_type" and "CONTENT-TYPE" all find the same header.
func (req *Request) Header(k string) (string, bool) {
	v, ok := req.headers[HeaderKey(k)]
	return v, ok
}

// VisitAllVars calls f for each environment variable in name order.
func (req *Request) VisitAllVars(f func(name, value string)) {
	visitSorted(req.vars, f)
}

// VisitAllHeaders calls f for each request header in name order.
func (req *Request) VisitAllHeaders(f func(name, value string)) {
	visitSorted(req.headers, f)
}

// VarsLen returns the number of environment variables.
func (req *Request) VarsLen() int {
	return len(req.vars)
}

// HeadersLen returns the number of request headers.
func (req *Request) HeadersLen() int {
	return len(req.headers)
}

// Query returns the parsed query string.
func (req *Request) Query() Query {
	return req.query
}

// Body returns the request body.
func (req *Request) Body() Body {
	return req.body
}

// DroppedParts returns the number of multipart chunks left out of
// BodyMultipart. See Parser.MaxParts.
func (req *Request) DroppedParts() int {
	return req.droppedParts
}

func visitSorted(m map[string]string, f func(k, v string)) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		f(k, m[k])
	}
}
