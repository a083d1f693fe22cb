package cgikit

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Supported compression levels for gzip and deflate.
const (
	CompressNoCompression      = flate.NoCompression
	CompressBestSpeed          = flate.BestSpeed
	CompressBestCompression    = flate.BestCompression
	CompressDefaultCompression = 6  // flate.DefaultCompression
	CompressHuffmanOnly        = -2 // flate.HuffmanOnly
)

// Supported compression levels for brotli.
const (
	CompressBrotliBestSpeed          = brotli.BestSpeed
	CompressBrotliBestCompression    = brotli.BestCompression
	CompressBrotliDefaultCompression = 4
)

// Supported compression levels for zstd.
const (
	CompressZstdBestSpeed = int(zstd.SpeedFastest)
	CompressZstdDefault   = int(zstd.SpeedDefault)
)

// minCompressBodySize is the smallest body worth compressing.
const minCompressBodySize = 200

var (
	gzipWriterPoolMap    = newCompressWriterPoolMap(12)
	deflateWriterPoolMap = newCompressWriterPoolMap(12)
	brotliWriterPoolMap  = newCompressWriterPoolMap(12)
	zstdEncoderPoolMap   = newCompressWriterPoolMap(int(zstd.SpeedDefault) + 1)
)

func newCompressWriterPoolMap(n int) []*sync.Pool {
	m := make([]*sync.Pool, 0, n)
	for i := 0; i < n; i++ {
		m = append(m, &sync.Pool{})
	}
	return m
}

// normalizeCompressLevel maps gzip and deflate levels into [0..11],
// so they can be used as an index in *PoolMap.
func normalizeCompressLevel(level int) int {
	// -2 is the lowest compression level - CompressHuffmanOnly
	// 9 is the highest compression level - CompressBestCompression
	if level < -2 || level > 9 {
		level = CompressDefaultCompression
	}
	return level + 2
}

func normalizeBrotliCompressLevel(level int) int {
	if level < CompressBrotliBestSpeed || level > CompressBrotliBestCompression {
		level = CompressBrotliDefaultCompression
	}
	return level
}

func normalizeZstdCompressLevel(level int) int {
	if level < CompressZstdBestSpeed || level > CompressZstdDefault {
		level = CompressZstdDefault
	}
	return level
}

type byteSliceWriter struct {
	b []byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	w.b = append(w.b, p...)
	return len(p), nil
}

// AppendGzipBytesLevel appends gzipped src to dst using the given
// compression level and returns the resulting dst.
func AppendGzipBytesLevel(dst, src []byte, level int) []byte {
	w := &byteSliceWriter{b: dst}
	nLevel := normalizeCompressLevel(level)
	p := gzipWriterPoolMap[nLevel]
	zw, _ := p.Get().(*gzip.Writer)
	if zw == nil {
		var err error
		if zw, err = gzip.NewWriterLevel(w, nLevel-2); err != nil {
			panic(fmt.Sprintf("BUG: unexpected error from gzip.NewWriterLevel(%d): %s", level, err))
		}
	} else {
		zw.Reset(w)
	}
	zw.Write(src) //nolint:errcheck
	zw.Close()
	p.Put(zw)
	return w.b
}

// AppendDeflateBytesLevel appends deflated src to dst using the given
// compression level and returns the resulting dst.
func AppendDeflateBytesLevel(dst, src []byte, level int) []byte {
	w := &byteSliceWriter{b: dst}
	nLevel := normalizeCompressLevel(level)
	p := deflateWriterPoolMap[nLevel]
	zw, _ := p.Get().(*flate.Writer)
	if zw == nil {
		var err error
		if zw, err = flate.NewWriter(w, nLevel-2); err != nil {
			panic(fmt.Sprintf("BUG: unexpected error from flate.NewWriter(%d): %s", level, err))
		}
	} else {
		zw.Reset(w)
	}
	zw.Write(src) //nolint:errcheck
	zw.Close()
	p.Put(zw)
	return w.b
}

// AppendBrotliBytesLevel appends brotlied src to dst using the given
// compression level and returns the resulting dst.
func AppendBrotliBytesLevel(dst, src []byte, level int) []byte {
	w := &byteSliceWriter{b: dst}
	nLevel := normalizeBrotliCompressLevel(level)
	p := brotliWriterPoolMap[nLevel]
	zw, _ := p.Get().(*brotli.Writer)
	if zw == nil {
		zw = brotli.NewWriterLevel(w, nLevel)
	} else {
		zw.Reset(w)
	}
	zw.Write(src) //nolint:errcheck
	zw.Close()
	p.Put(zw)
	return w.b
}

// AppendZstdBytesLevel appends zstd-compressed src to dst using the given
// compression level and returns the resulting dst.
func AppendZstdBytesLevel(dst, src []byte, level int) []byte {
	nLevel := normalizeZstdCompressLevel(level)
	p := zstdEncoderPoolMap[nLevel]
	zw, _ := p.Get().(*zstd.Encoder)
	if zw == nil {
		var err error
		zw, err = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.EncoderLevel(nLevel)),
			zstd.WithZeroFrames(true))
		if err != nil {
			panic(fmt.Sprintf("BUG: unexpected error from zstd.NewWriter(%d): %s", level, err))
		}
	}
	dst = zw.EncodeAll(src, dst)
	p.Put(zw)
	return dst
}

// AppendGunzipBytes appends gunzipped src to dst and returns the resulting dst.
func AppendGunzipBytes(dst, src []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(src))
	if err != nil {
		return dst, err
	}
	w := &byteSliceWriter{b: dst}
	_, err = io.Copy(w, zr)
	return w.b, err
}

// AppendInflateBytes appends inflated src to dst and returns the resulting dst.
func AppendInflateBytes(dst, src []byte) ([]byte, error) {
	zr := flate.NewReader(bytes.NewReader(src))
	defer zr.Close()
	w := &byteSliceWriter{b: dst}
	_, err := io.Copy(w, zr)
	return w.b, err
}

// AppendUnbrotliBytes appends unbrotlied src to dst and returns the resulting dst.
func AppendUnbrotliBytes(dst, src []byte) ([]byte, error) {
	zr := brotli.NewReader(bytes.NewReader(src))
	w := &byteSliceWriter{b: dst}
	_, err := io.Copy(w, zr)
	return w.b, err
}

// AppendUnzstdBytes appends unzstd src to dst and returns the resulting dst.
func AppendUnzstdBytes(dst, src []byte) ([]byte, error) {
	zr, err := zstd.NewReader(nil)
	if err != nil {
		return dst, err
	}
	defer zr.Close()
	return zr.DecodeAll(src, dst)
}

// AppendDecodedBytes appends src decoded according to the given
// Content-Encoding to dst. Unknown encodings are an error;
// an empty encoding copies src as is.
func AppendDecodedBytes(dst, src []byte, contentEncoding string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return append(dst, src...), nil
	case strGzip:
		return AppendGunzipBytes(dst, src)
	case strDeflate:
		return AppendInflateBytes(dst, src)
	case strBr:
		return AppendUnbrotliBytes(dst, src)
	case strZstd:
		return AppendUnzstdBytes(dst, src)
	default:
		return dst, fmt.Errorf("unsupported Content-Encoding %q", contentEncoding)
	}
}

// appendEncodedBytes appends src compressed with encoding to dst.
func appendEncodedBytes(dst, src []byte, encoding string) []byte {
	switch encoding {
	case strBr:
		return AppendBrotliBytesLevel(dst, src, CompressBrotliDefaultCompression)
	case strZstd:
		return AppendZstdBytesLevel(dst, src, CompressZstdDefault)
	case strGzip:
		return AppendGzipBytesLevel(dst, src, CompressDefaultCompression)
	case strDeflate:
		return AppendDeflateBytesLevel(dst, src, CompressDefaultCompression)
	default:
		return append(dst, src...)
	}
}

// encodingPreference lists supported content codings, best first.
var encodingPreference = []string{strBr, strZstd, strGzip, strDeflate}

// negotiateEncoding picks the preferred content coding the client accepts
// according to its Accept-Encoding header value. It returns an empty
// string if none is acceptable.
func negotiateEncoding(acceptEncoding string) string {
	accepted := make(map[string]bool)
	wildcard := false
	for _, item := range strings.Split(acceptEncoding, ",") {
		coding, params, _ := strings.Cut(item, ";")
		coding = strings.ToLower(strings.TrimSpace(coding))
		if coding == "" {
			continue
		}
		ok := qualityNonZero(params)
		if coding == "*" {
			wildcard = ok
			continue
		}
		accepted[coding] = ok
	}
	for _, coding := range encodingPreference {
		ok, listed := accepted[coding]
		if ok || (!listed && wildcard) {
			return coding
		}
	}
	return ""
}

// qualityNonZero reports whether the q parameter in params is missing or
// greater than zero.
func qualityNonZero(params string) bool {
	for _, param := range strings.Split(params, ";") {
		k, v, ok := strings.Cut(param, "=")
		if !ok || !strings.EqualFold(strings.TrimSpace(k), "q") {
			continue
		}
		q, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return false
		}
		return q > 0
	}
	return true
}
