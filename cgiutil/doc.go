// Package cgiutil provides utility functions for driving and testing
// CGI programs: fake environments, multipart/form-data bodies and
// a runner for CGI executables.
package cgiutil
