/*
Package cgikit parses CGI requests and writes CGI responses.

A CGI program gets request metadata in environment variables and the
request body on stdin. NewRequest collects both into a Request:

  - Environment variables whose name starts with HTTP_ are request
    headers. Their names are stored with the prefix stripped, underscores
    turned into hyphens and lower-cased, so HTTP_X_CUSTOM_HEADER becomes
    x-custom-header. Everything else is a variable stored upper-cased.
  - QUERY_STRING is decoded into name=value pairs, see Query.
  - When a content length is present, exactly that many bytes are read
    from stdin. multipart/form-data bodies are split into parts,
    other bodies are kept as is, see Body.

Failures are values, not panics: a malformed query string or body is
reported inside Query or Body and leaves the rest of the Request intact.
Every Error carries a suggested HTTP status code, so it can be turned
into an error response directly:

	req := cgikit.NewRequest()
	if b, ok := req.Body().(cgikit.BodyErr); ok {
		cgikit.NewEmptyResponse(b.Code).
			WithContentType("text/plain").
			WithBodyString(b.Message).
			Respond()
		return
	}

Use Parser for a custom header prefix, body and part limits or debug
logging, and to parse synthetic environments in tests.
*/
package cgikit
