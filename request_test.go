package cgikit

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
)

type testLogger struct {
	lock sync.Mutex
	out  string
}

func (cl *testLogger) Printf(format string, args ...interface{}) {
	cl.lock.Lock()
	cl.out += fmt.Sprintf(format, args...) + "\n"
	cl.lock.Unlock()
}

func testParse(t *testing.T, p *Parser, env EnvMap, body string) *Request {
	t.Helper()
	return p.Parse(env, strings.NewReader(body))
}

func TestRequestClassifyEnv(t *testing.T) {
	t.Parallel()

	var p Parser
	req := testParse(t, &p, EnvMap{
		"HTTP_X_CUSTOM_HEADER": "foo",
		"HTTP_ACCEPT":          "*/*",
		"HTTP_":                "bare prefix",
		"REQUEST_METHOD":       "GET",
		"server_name":          "example.com",
	}, "")

	if req.HeadersLen() != 2 {
		t.Fatalf("unexpected number of headers %d. Expecting 2", req.HeadersLen())
	}
	if req.VarsLen() != 3 {
		t.Fatalf("unexpected number of vars %d. Expecting 3", req.VarsLen())
	}

	for _, name := range []string{"x-custom-header", "X-Custom-Header", "X_CUSTOM_HEADER", "x_custom-header"} {
		if v, ok := req.Header(name); !ok || v != "foo" {
			t.Fatalf("unexpected header %q value %q. Expecting %q", name, v, "foo")
		}
	}
	if _, ok := req.Header("request-method"); ok {
		t.Fatalf("REQUEST_METHOD must not be a header")
	}
	if _, ok := req.Var("HTTP_ACCEPT"); ok {
		t.Fatalf("HTTP_ACCEPT must not be a var")
	}
	if v, ok := req.Var("request_method"); !ok || v != "GET" {
		t.Fatalf("unexpected REQUEST_METHOD %q", v)
	}
	if v, ok := req.Var("SERVER_NAME"); !ok || v != "example.com" {
		t.Fatalf("unexpected SERVER_NAME %q", v)
	}
	if v, ok := req.Var("HTTP_"); !ok || v != "bare prefix" {
		t.Fatalf("unexpected HTTP_ var %q", v)
	}
	if _, ok := req.Query().(QueryNone); !ok {
		t.Fatalf("unexpected query %#v. Expecting QueryNone", req.Query())
	}
	if _, ok := req.Body().(BodyNone); !ok {
		t.Fatalf("unexpected body %#v. Expecting BodyNone", req.Body())
	}
}

func TestRequestVisitSorted(t *testing.T) {
	t.Parallel()

	var p Parser
	req := testParse(t, &p, EnvMap{
		"HTTP_B": "2",
		"HTTP_A": "1",
		"ZED":    "z",
		"ALPHA":  "a",
	}, "")

	var names []string
	req.VisitAllHeaders(func(name, value string) {
		names = append(names, name+"="+value)
	})
	if !reflect.DeepEqual(names, []string{"a=1", "b=2"}) {
		t.Fatalf("unexpected headers %q", names)
	}

	names = names[:0]
	req.VisitAllVars(func(name, value string) {
		names = append(names, name+"="+value)
	})
	if !reflect.DeepEqual(names, []string{"ALPHA=a", "ZED=z"}) {
		t.Fatalf("unexpected vars %q", names)
	}
}

func TestRequestHeaderPrefix(t *testing.T) {
	t.Parallel()

	p := Parser{HeaderPrefix: "H_"}
	req := testParse(t, &p, EnvMap{
		"H_X_FOO":          "foo",
		"HTTP_X_BAR":       "bar",
		"H_CONTENT_LENGTH": "3",
	}, "abc")

	if v, ok := req.Header("x-foo"); !ok || v != "foo" {
		t.Fatalf("unexpected header value %q", v)
	}
	if v, ok := req.Var("HTTP_X_BAR"); !ok || v != "bar" {
		t.Fatalf("unexpected var value %q", v)
	}
	if b, ok := req.Body().(BodyRaw); !ok || string(b) != "abc" {
		t.Fatalf("unexpected body %#v", req.Body())
	}
}

func TestRequestQuery(t *testing.T) {
	t.Parallel()

	var p Parser
	req := testParse(t, &p, EnvMap{
		"QUERY_STRING":        "a=1&b=x%20y",
		"HTTP_CONTENT_LENGTH": "zzz",
	}, "")

	args, ok := req.Query().(QueryArgs)
	if !ok {
		t.Fatalf("unexpected query %#v. Expecting QueryArgs", req.Query())
	}
	if !reflect.DeepEqual(args, QueryArgs{"a": "1", "b": "x y"}) {
		t.Fatalf("unexpected query args %q", args)
	}
	// the body failure does not affect the query
	if _, ok := req.Body().(BodyErr); !ok {
		t.Fatalf("unexpected body %#v. Expecting BodyErr", req.Body())
	}

	req = testParse(t, &p, EnvMap{"QUERY_STRING": "a=%zz"}, "")
	qe, ok := req.Query().(QueryErr)
	if !ok {
		t.Fatalf("unexpected query %#v. Expecting QueryErr", req.Query())
	}
	if qe.Code != 400 || qe.Kind != InputError {
		t.Fatalf("unexpected query error %#v", qe.Error)
	}
}

func TestRequestBodyRaw(t *testing.T) {
	t.Parallel()

	var p Parser
	testRequestBodyRaw(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": "5"}, "hello world", "hello")
	testRequestBodyRaw(t, &p, EnvMap{"CONTENT_LENGTH": "5", "CONTENT_TYPE": "text/plain"}, "hello", "hello")
	testRequestBodyRaw(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": "0"}, "", "")
	testRequestBodyRaw(t, &p, EnvMap{
		"HTTP_CONTENT_LENGTH": "3",
		"HTTP_CONTENT_TYPE":   "application/json",
	}, "{}\n", "{}\n")

	// the prefixed header wins over the plain variable
	testRequestBodyRaw(t, &p, EnvMap{
		"HTTP_CONTENT_LENGTH": "2",
		"CONTENT_LENGTH":      "4",
	}, "abcd", "ab")
}

func testRequestBodyRaw(t *testing.T, p *Parser, env EnvMap, body, expected string) {
	t.Helper()

	req := testParse(t, p, env, body)
	b, ok := req.Body().(BodyRaw)
	if !ok {
		t.Fatalf("unexpected body %#v. Expecting BodyRaw", req.Body())
	}
	if string(b) != expected {
		t.Fatalf("unexpected body %q. Expecting %q", b, expected)
	}
}

func TestRequestBodyError(t *testing.T) {
	t.Parallel()

	var p Parser
	testRequestBodyError(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": "abc"}, "", EnvironmentError, 400)
	testRequestBodyError(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": "-1"}, "", EnvironmentError, 400)
	testRequestBodyError(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": ""}, "", EnvironmentError, 400)
	testRequestBodyError(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": "10"}, "short", InputError, 500)
	testRequestBodyError(t, &p, EnvMap{
		"HTTP_CONTENT_LENGTH": "5",
		"HTTP_CONTENT_TYPE":   "multipart/form-data",
	}, "hello", EnvironmentError, 400)
	testRequestBodyError(t, &p, EnvMap{
		"HTTP_CONTENT_LENGTH": "5",
		"HTTP_CONTENT_TYPE":   "multipart/form-data; boundary=",
	}, "hello", EnvironmentError, 400)
	testRequestBodyError(t, &p, EnvMap{
		"HTTP_CONTENT_LENGTH": "5",
		"HTTP_CONTENT_TYPE":   "multipart/form-data; boundary=XYZ",
	}, "hello", InputError, 400)

	p.MaxBodySize = 4
	testRequestBodyError(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": "5"}, "hello", InputError, 413)
}

func testRequestBodyError(t *testing.T, p *Parser, env EnvMap, body string, kind ErrorKind, code int) {
	t.Helper()

	req := testParse(t, p, env, body)
	be, ok := req.Body().(BodyErr)
	if !ok {
		t.Fatalf("unexpected body %#v. Expecting BodyErr", req.Body())
	}
	if be.Kind != kind {
		t.Fatalf("unexpected error kind %s. Expecting %s", be.Kind, kind)
	}
	if be.Code != code {
		t.Fatalf("unexpected error code %d. Expecting %d", be.Code, code)
	}
	if be.Message == "" || be.Details == "" {
		t.Fatalf("missing error message or details: %#v", be.Error)
	}
}

func TestRequestBodyReadError(t *testing.T) {
	t.Parallel()

	var p Parser
	req := p.Parse(EnvMap{"HTTP_CONTENT_LENGTH": "10"}, iotest.ErrReader(errors.New("broken pipe")))
	be, ok := req.Body().(BodyErr)
	if !ok {
		t.Fatalf("unexpected body %#v. Expecting BodyErr", req.Body())
	}
	if be.Code != 500 || !strings.Contains(be.Details, "broken pipe") {
		t.Fatalf("unexpected error %#v", be.Error)
	}
}

func TestRequestBodyMultipart(t *testing.T) {
	t.Parallel()

	var p Parser
	body := testMultipartBody
	for _, env := range []EnvMap{
		{
			"HTTP_CONTENT_LENGTH": fmt.Sprintf("%d", len(body)),
			"HTTP_CONTENT_TYPE":   "multipart/form-data; boundary=XYZ",
		},
		{
			"CONTENT_LENGTH": fmt.Sprintf("%d", len(body)),
			"CONTENT_TYPE":   `multipart/form-data; boundary="XYZ"; charset=utf-8`,
		},
	} {
		req := testParse(t, &p, env, body)
		parts, ok := req.Body().(BodyMultipart)
		if !ok {
			t.Fatalf("unexpected body %#v. Expecting BodyMultipart", req.Body())
		}
		if len(parts) != 2 {
			t.Fatalf("unexpected number of parts %d. Expecting 2", len(parts))
		}
		if req.DroppedParts() != 0 {
			t.Fatalf("unexpected number of dropped parts %d", req.DroppedParts())
		}
	}
}

func TestRequestMaxParts(t *testing.T) {
	t.Parallel()

	var dropped []int
	p := Parser{
		MaxParts: 1,
		OnDroppedPart: func(index int, chunk []byte, reason string) {
			if len(chunk) == 0 || reason == "" {
				t.Errorf("unexpected dropped chunk %q with reason %q", chunk, reason)
			}
			dropped = append(dropped, index)
		},
	}
	req := testParse(t, &p, EnvMap{
		"HTTP_CONTENT_LENGTH": fmt.Sprintf("%d", len(testMultipartBody)),
		"HTTP_CONTENT_TYPE":   "multipart/form-data; boundary=XYZ",
	}, testMultipartBody)

	parts, ok := req.Body().(BodyMultipart)
	if !ok {
		t.Fatalf("unexpected body %#v. Expecting BodyMultipart", req.Body())
	}
	if len(parts) != 1 {
		t.Fatalf("unexpected number of parts %d. Expecting 1", len(parts))
	}
	if req.DroppedParts() != 1 {
		t.Fatalf("unexpected number of dropped parts %d. Expecting 1", req.DroppedParts())
	}
	if !reflect.DeepEqual(dropped, []int{1}) {
		t.Fatalf("unexpected dropped indexes %v. Expecting [1]", dropped)
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var l testLogger
	p := Parser{Logger: &l}
	testParse(t, &p, EnvMap{"HTTP_CONTENT_LENGTH": "2"}, "ok")

	for _, s := range []string{`"HTTP_CONTENT_LENGTH" -> "content-length"`, "read 2 body bytes"} {
		if !strings.Contains(l.out, s) {
			t.Fatalf("log output %q does not contain %q", l.out, s)
		}
	}
}

func TestRequestInvalidUTF8Env(t *testing.T) {
	t.Parallel()

	var p Parser
	req := p.Parse(EnvList{"HTTP_X_BIN=a\xffb"}, bytes.NewReader(nil))
	if v, _ := req.Header("x-bin"); v != "a\uFFFDb" {
		t.Fatalf("unexpected header value %q. Expecting %q", v, "a\uFFFDb")
	}
}
