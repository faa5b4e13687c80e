package handler

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// requestToken tags the request with a correlation token, reusing X-Request-Id when sent.
func (h *Handler) requestToken(c *gin.Context) {
	tok := strings.TrimSpace(c.GetHeader(RequestIDHeader))
	if tok == "" {
		tok = uuid.NewString()
	}
	c.Set(_tokenKey, tok)
	c.Header(RequestIDHeader, tok)
	c.Next()
}

func token(c *gin.Context) string {
	return c.GetString(_tokenKey)
}

func withJSONHeaders(c *gin.Context) {
	c.Header("Content-Type", "application/json; charset=utf-8")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET,PUT,OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type,Authorization,"+RequestIDHeader)
	c.Header("Access-Control-Expose-Headers", RequestIDHeader)
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func (h *Handler) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()

	route := c.FullPath()
	if route == "" {
		route = "unmatched"
	}
	status := c.Writer.Status()
	h.metrics.HTTPRequest(c.Request.Method, route, status)
	h.log.Debug("request served",
		"token", token(c),
		"method", c.Request.Method,
		"route", route,
		"status", status,
		"elapsed", time.Since(start),
	)
}

// withGzip compresses the response when the client accepts gzip.
func withGzip() gin.HandlerFunc {
	pool := sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return func(c *gin.Context) {
		if !strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
			c.Next()
			return
		}
		gz := pool.Get().(*gzip.Writer)
		gz.Reset(c.Writer)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			pool.Put(gz)
		}()
		c.Header("Content-Encoding", "gzip")
		c.Writer.Header().Add("Vary", "Accept-Encoding")
		c.Writer = &gzipWriter{ResponseWriter: c.Writer, gz: gz}
		c.Next()
	}
}

type gzipWriter struct {
	gin.ResponseWriter
	gz *gzip.Writer
}

func (g *gzipWriter) Write(b []byte) (int, error) {
	return g.gz.Write(b)
}

func (g *gzipWriter) WriteString(s string) (int, error) {
	return g.gz.Write([]byte(s))
}
