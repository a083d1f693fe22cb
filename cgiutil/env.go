package cgiutil

import (
	"strconv"
	"strings"
)

// Env is an ordered set of CGI environment variables.
//
// Env implements the VisitAll method expected by cgikit.EnvSource, and
// List returns the entries in the form used by exec.Cmd.Env.
type Env struct {
	keys   []string
	values map[string]string
}

// NewEnv returns an environment with the variables every CGI/1.1
// request carries.
func NewEnv(method string) *Env {
	var e Env
	e.Set("GATEWAY_INTERFACE", "CGI/1.1")
	e.Set("SERVER_PROTOCOL", "HTTP/1.1")
	e.Set("SERVER_SOFTWARE", "cgiutil")
	e.Set("REQUEST_METHOD", method)
	return &e
}

// Set sets the variable key to value, replacing any previous value.
func (e *Env) Set(key, value string) {
	if e.values == nil {
		e.values = make(map[string]string)
	}
	if _, ok := e.values[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.values[key] = value
}

// Get returns the value of the variable key.
func (e *Env) Get(key string) (string, bool) {
	v, ok := e.values[key]
	return v, ok
}

// SetHeader sets the variable a web server would use to pass the
// request header name, e.g. HTTP_X_CUSTOM_HEADER for X-Custom-Header.
func (e *Env) SetHeader(name, value string) {
	e.Set(HeaderVar(name), value)
}

// SetBody sets CONTENT_TYPE and CONTENT_LENGTH for a body of size n.
func (e *Env) SetBody(contentType string, n int) {
	if contentType != "" {
		e.Set("CONTENT_TYPE", contentType)
	}
	e.Set("CONTENT_LENGTH", strconv.Itoa(n))
}

// List returns the variables as KEY=VALUE entries in the order
// they were first set.
func (e *Env) List() []string {
	l := make([]string, 0, len(e.keys))
	for _, k := range e.keys {
		l = append(l, k+"="+e.values[k])
	}
	return l
}

// VisitAll calls f for each variable in the order it was first set.
func (e *Env) VisitAll(f func(key, value string)) {
	for _, k := range e.keys {
		f(k, e.values[k])
	}
}

// HeaderVar returns the environment variable name carrying the request
// header name.
func HeaderVar(name string) string {
	return "HTTP_" + strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}
