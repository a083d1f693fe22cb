package cgiutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/valyala/bytebufferpool"
	"github.com/valyala/cgikit"
)

// RunScript runs the CGI program at path with the given environment and
// stdin, and returns what the program wrote to stdout.
//
// The program is killed when ctx is done. Its stderr is included in the
// returned error if it fails.
func RunScript(ctx context.Context, path string, env []string, stdin []byte) ([]byte, error) {
	var stdout, stderr bytebufferpool.ByteBuffer

	cmd := exec.CommandContext(ctx, path)
	cmd.Env = env
	cmd.Stdin = bytes.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return stdout.B, fmt.Errorf("cannot run %q: %w. stderr: %q", path, err, stderr.B)
	}
	return stdout.B, nil
}

// ScriptOutput is a parsed CGI response.
type ScriptOutput struct {
	// Status is taken from the Status header. It defaults to 302 when
	// only a Location header is present and to 200 otherwise.
	Status int

	// Headers maps lower-cased header names to values.
	Headers map[string]string

	// Body holds the bytes after the header block as sent.
	Body []byte
}

// Header returns the value of the response header name.
func (o *ScriptOutput) Header(name string) (string, bool) {
	v, ok := o.Headers[strings.ToLower(name)]
	return v, ok
}

// DecodedBody returns the body with its Content-Encoding removed.
func (o *ScriptOutput) DecodedBody() ([]byte, error) {
	ce, _ := o.Header("Content-Encoding")
	return cgikit.AppendDecodedBytes(nil, o.Body, ce)
}

var errNoHeaderEnd = errors.New("CGI response has no blank line after its headers")

// ParseScriptOutput parses the output of a CGI program.
//
// Header lines may end with CRLF or a bare LF.
func ParseScriptOutput(out []byte) (*ScriptOutput, error) {
	o := &ScriptOutput{
		Headers: make(map[string]string),
	}
	b := out
	for {
		n := bytes.IndexByte(b, '\n')
		if n < 0 {
			return nil, errNoHeaderEnd
		}
		line := bytes.TrimSuffix(b[:n], []byte("\r"))
		b = b[n+1:]
		if len(line) == 0 {
			break
		}
		name, value, ok := cgikit.ParseHeaderLine(line)
		if !ok {
			return nil, fmt.Errorf("malformed CGI response header line %q", line)
		}
		o.Headers[name] = value
	}
	o.Body = b

	status, ok := o.Headers["status"]
	switch {
	case ok:
		code, _, _ := strings.Cut(strings.TrimSpace(status), " ")
		n, err := strconv.Atoi(code)
		if err != nil {
			return nil, fmt.Errorf("malformed Status header %q: %w", status, err)
		}
		o.Status = n
	case o.Headers["location"] != "":
		o.Status = 302
	default:
		o.Status = 200
	}
	return o, nil
}
