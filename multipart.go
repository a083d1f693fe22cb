package cgikit

import (
	"strings"
)

// MultipartPart is a single part of a multipart/form-data body.
//
// Header names have been lower-cased and stripped of surrounding
// whitespace. Values have had their leading whitespace stripped; trailing
// whitespace is left intact. Body is the raw payload and is not UTF-8
// validated.
type MultipartPart struct {
	Headers map[string]string
	Body    []byte
}

// Header returns the value of the part header with the given name.
func (p *MultipartPart) Header(name string) (string, bool) {
	v, ok := p.Headers[strings.ToLower(name)]
	return v, ok
}

// FormName returns the name parameter of the part's
// Content-Disposition header.
func (p *MultipartPart) FormName() string {
	return p.dispositionParam("name")
}

// FileName returns the filename parameter of the part's
// Content-Disposition header.
func (p *MultipartPart) FileName() string {
	return p.dispositionParam("filename")
}

func (p *MultipartPart) dispositionParam(key string) string {
	cd, ok := p.Headers[strContentDisposition]
	if !ok {
		return ""
	}
	for _, param := range strings.Split(cd, ";") {
		k, v, ok := strings.Cut(param, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), key) {
			continue
		}
		v = strings.TrimSpace(v)
		if len(v) > 1 && v[0] == '"' && v[len(v)-1] == '"' {
			v = v[1 : len(v)-1]
		}
		return v
	}
	return ""
}

const (
	multipartErrorMessage  = "Not a valid multipart/form-data body."
	missingBoundaryDetails = "multipart body missing boundary string"
)

// ParseMultipartBody splits a multipart/form-data body on the given
// boundary (as found in the Content-Type header, without the leading
// "--") and parses every part.
//
// A body that never mentions the boundary yields BodyErr. A body whose
// first boundary is not followed by CRLF yields an empty BodyMultipart.
func ParseMultipartBody(body []byte, boundary string) Body {
	chunks, err := splitMultipart(body, s2b(boundary))
	if err != nil {
		return BodyErr{err}
	}
	parts := make(BodyMultipart, 0, len(chunks))
	for _, chunk := range chunks {
		parts = append(parts, ParseMultipartPart(chunk))
	}
	return parts
}

// splitMultipart returns the raw chunks between boundary delimiters.
//
// The chunks are subslices of body. The only failure is a body without
// any delimiter; everything else ends the scan quietly.
func splitMultipart(body, boundary []byte) ([][]byte, *Error) {
	delim := make([]byte, 0, len(strCRLF)+len(strDashDash)+len(boundary))
	delim = append(delim, strCRLF...)
	delim = append(delim, strDashDash...)
	delim = append(delim, boundary...)
	// dashBoundary is "--boundary"; delim is the same preceded by CRLF.
	dashBoundary := delim[len(strCRLF):]

	n := indexBytes(body, dashBoundary)
	if n < 0 {
		return nil, newInputError(400, multipartErrorMessage, missingBoundaryDetails)
	}
	pos := n + len(dashBoundary)
	if !hasPrefixAt(body, pos, strCRLF) {
		return nil, nil
	}
	pos += len(strCRLF)

	var chunks [][]byte
	for {
		n = indexBytes(body[pos:], delim)
		if n < 0 {
			break
		}
		chunks = append(chunks, body[pos:pos+n])

		pos += n + len(delim)
		if !hasPrefixAt(body, pos, strCRLF) {
			// The closing delimiter is followed by "--".
			break
		}
		pos += len(strCRLF)
	}
	return chunks, nil
}

// ParseMultipartPart parses the header block at the start of chunk and
// returns the part. The header block ends at the first line that is not
// a header, usually the empty line; the body starts right after it.
func ParseMultipartPart(chunk []byte) *MultipartPart {
	p := &MultipartPart{
		Headers: make(map[string]string),
	}
	pos := 0
	for {
		n := indexBytes(chunk[pos:], strCRLF)
		if n < 0 {
			break
		}
		name, value, ok := ParseHeaderLine(chunk[pos : pos+n])
		pos += n + len(strCRLF)
		if !ok {
			break
		}
		p.Headers[name] = value
	}
	p.Body = append([]byte(nil), chunk[pos:]...)
	return p
}
