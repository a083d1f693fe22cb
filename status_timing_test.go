package cgikit

import (
	"bytes"
	"testing"
)

func BenchmarkStatusLine99(b *testing.B) {
	benchmarkStatusLine(b, 99, []byte("Status: 99 Unknown Status Code\r\n\r\n"))
}

func BenchmarkStatusLine200(b *testing.B) {
	benchmarkStatusLine(b, 200, []byte("Status: 200 OK\r\n\r\n"))
}

func BenchmarkStatusLine512(b *testing.B) {
	benchmarkStatusLine(b, 512, []byte("Status: 512 Unknown Status Code\r\n\r\n"))
}

func benchmarkStatusLine(b *testing.B, statusCode int, expected []byte) {
	b.RunParallel(func(pb *testing.PB) {
		var w bytes.Buffer
		r := NewEmptyResponse(statusCode)
		for pb.Next() {
			w.Reset()
			r.WriteTo(&w) //nolint:errcheck
			if !bytes.Equal(expected, w.Bytes()) {
				b.Fatalf("unexpected status line %q. Expecting %q", w.Bytes(), expected)
			}
		}
	})
}
