// Package gzippedhttp carries the gzip plumbing of the HTTP layer: a
// middleware pair that unpacks compressed request bodies and compresses
// response bodies when the client advertises gzip support.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var writerPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type unpackingReader struct {
	body io.ReadCloser
	zr   *gzip.Reader
}

func newUnpackingReader(body io.ReadCloser) (*unpackingReader, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &unpackingReader{body: body, zr: zr}, nil
}

func (u *unpackingReader) Read(p []byte) (int, error) {
	return u.zr.Read(p)
}

func (u *unpackingReader) Close() error {
	if err := u.body.Close(); err != nil {
		return err
	}

	return u.zr.Close()
}

type packingWriter struct {
	http.ResponseWriter
	zw *gzip.Writer
}

func newPackingWriter(response http.ResponseWriter) *packingWriter {
	zw := writerPool.Get().(*gzip.Writer)
	zw.Reset(response)

	return &packingWriter{ResponseWriter: response, zw: zw}
}

func (p *packingWriter) Write(data []byte) (int, error) {
	return p.zw.Write(data)
}

func (p *packingWriter) Close() error {
	if err := p.zw.Close(); err != nil {
		return err
	}
	writerPool.Put(p.zw)

	return nil
}

// GzipResponse compresses the response body when the request's
// Accept-Encoding includes gzip. Every status goes through the same
// writer, so the Content-Encoding header is set unconditionally.
func GzipResponse(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		response.Header().Set("Content-Encoding", "gzip")
		packed := newPackingWriter(response)
		defer packed.Close()

		h.ServeHTTP(packed, request)
	})
}

// UngzipJSONAndTextHTMLRequest replaces a gzip-encoded request body with a
// decompressing reader before the handlers see it.
func UngzipJSONAndTextHTMLRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			unpacked, err := newUnpackingReader(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			request.Body = unpacked
			defer unpacked.Close()
		}

		h.ServeHTTP(response, request)
	})
}
