package middleware

import (
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
)

// Compress gzips responses for clients that accept it. Requests whose path
// starts with one of the skipped prefixes pass through untouched.
func Compress(level int, skip ...string) gin.HandlerFunc {
	writers := sync.Pool{
		New: func() any {
			gz, err := gzip.NewWriterLevel(io.Discard, level)
			if err != nil {
				gz, _ = gzip.NewWriterLevel(io.Discard, gzip.DefaultCompression)
			}
			return gz
		},
	}

	return func(c *gin.Context) {
		if !acceptsGzip(c.Request) || skipCompression(c.Request.URL.Path, skip) {
			c.Next()
			return
		}

		gz := writers.Get().(*gzip.Writer)
		gz.Reset(c.Writer)

		c.Header("Content-Encoding", "gzip")
		c.Writer.Header().Add("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: c.Writer, gz: gz}

		defer func() {
			if c.Writer.Size() < 0 {
				// nothing was written; do not emit an empty gzip stream
				gz.Reset(io.Discard)
			}
			_ = gz.Close()
			writers.Put(gz)
		}()

		c.Next()
	}
}

func acceptsGzip(r *http.Request) bool {
	if r.Method == http.MethodHead || r.Method == http.MethodOptions {
		return false
	}
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.SplitN(part, ";", 2)[0]) == "gzip" {
			return true
		}
	}
	return false
}

func skipCompression(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if prefix != "" && strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

type gzipWriter struct {
	gin.ResponseWriter
	gz *gzip.Writer
}

func (w *gzipWriter) WriteHeader(code int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

func (w *gzipWriter) Write(data []byte) (int, error) {
	w.Header().Del("Content-Length")
	return w.gz.Write(data)
}

func (w *gzipWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

func (w *gzipWriter) Flush() {
	_ = w.gz.Flush()
	w.ResponseWriter.Flush()
}
