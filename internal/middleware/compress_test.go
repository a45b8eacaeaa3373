package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func newCompressRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Compress(gzip.BestSpeed, "/raw"))
	payload := strings.Repeat("web3drender ", 200)
	r.GET("/text", func(c *gin.Context) {
		c.String(http.StatusOK, payload)
	})
	r.GET("/raw/text", func(c *gin.Context) {
		c.String(http.StatusOK, payload)
	})
	r.GET("/empty", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestCompressGzipsWhenAccepted(t *testing.T) {
	r := newCompressRouter()

	req := httptest.NewRequest(http.MethodGet, "/text", nil)
	req.Header.Set("Accept-Encoding", "br;q=1.0, gzip;q=0.8")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "gzip", w.Header().Get("Content-Encoding"))
	require.Contains(t, w.Header().Values("Vary"), "Accept-Encoding")
	require.Empty(t, w.Header().Get("Content-Length"))

	zr, err := gzip.NewReader(w.Body)
	require.NoError(t, err)
	body, err := io.ReadAll(zr)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("web3drender ", 200), string(body))
}

func TestCompressPassesThrough(t *testing.T) {
	r := newCompressRouter()

	cases := []struct {
		name     string
		path     string
		encoding string
	}{
		{"no accept header", "/text", ""},
		{"identity only", "/text", "identity"},
		{"skipped prefix", "/raw/text", "gzip"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)
			if tc.encoding != "" {
				req.Header.Set("Accept-Encoding", tc.encoding)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			require.Equal(t, http.StatusOK, w.Code)
			require.Empty(t, w.Header().Get("Content-Encoding"))
			require.True(t, strings.HasPrefix(w.Body.String(), "web3drender "))
		})
	}
}

func TestCompressLeavesEmptyBodiesEmpty(t *testing.T) {
	r := newCompressRouter()

	req := httptest.NewRequest(http.MethodGet, "/empty", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Zero(t, w.Body.Len())
}
