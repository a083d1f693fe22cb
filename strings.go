package cgikit

var (
	defaultHeaderPrefix = "HTTP_"
	defaultContentType  = "text/plain; charset=utf-8"
)

var (
	strCRLF       = []byte("\r\n")
	strDashDash   = []byte("--")
	strColonSpace = []byte(": ")

	strMultipartFormData = "multipart/form-data"
	strBoundary          = "boundary="

	strStatus          = "Status"
	strContentLength   = "Content-Length"
	strContentType     = "Content-Type"
	strContentEncoding = "Content-Encoding"
	strVary            = "Vary"
	strAcceptEncoding  = "Accept-Encoding"

	strContentDisposition = "content-disposition"

	strGzip    = "gzip"
	strDeflate = "deflate"
	strBr      = "br"
	strZstd    = "zstd"
)

const (
	hdrContentLength = "content-length"
	hdrContentType   = "content-type"

	varContentLength = "CONTENT_LENGTH"
	varContentType   = "CONTENT_TYPE"
	varQueryString   = "QUERY_STRING"
)
