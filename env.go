package cgikit

import (
	"os"
	"strings"
)

// EnvSource supplies the CGI environment to Parser.
//
// Passing the environment explicitly lets requests be parsed from
// synthetic environments, e.g. in tests.
type EnvSource interface {
	// VisitAll calls f for each environment entry.
	VisitAll(f func(key, value string))
}

// OSEnv is the environment of the current process.
type OSEnv struct{}

// VisitAll implements EnvSource.
func (OSEnv) VisitAll(f func(key, value string)) {
	EnvList(os.Environ()).VisitAll(f)
}

// EnvMap is an environment held in a map.
type EnvMap map[string]string

// VisitAll implements EnvSource.
func (m EnvMap) VisitAll(f func(key, value string)) {
	for k, v := range m {
		f(k, v)
	}
}

// EnvList is an environment in the KEY=VALUE form used by os.Environ
// and exec.Cmd.Env. Entries without '=' are skipped.
type EnvList []string

// VisitAll implements EnvSource.
func (l EnvList) VisitAll(f func(key, value string)) {
	for _, kv := range l {
		// Windows keeps per-drive entries such as "=C:=C:\dir".
		n := strings.IndexByte(kv, '=')
		if n == 0 {
			n = strings.IndexByte(kv[1:], '=')
			if n >= 0 {
				n++
			}
		}
		if n <= 0 {
			continue
		}
		f(kv[:n], kv[n+1:])
	}
}
