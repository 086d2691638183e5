package server

import (
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

// metrics holds race-safe request counters. They exist for observability only
// and are never consulted when deciding whether a request is authorized.
type metrics struct {
	requests     atomic.Int64
	bytesWritten atomic.Int64
}

// countingWriter wraps a ResponseWriter so the middleware can report status
// and payload size after the handler returns.
type countingWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (c *countingWriter) WriteHeader(status int) {
	c.status = status
	c.ResponseWriter.WriteHeader(status)
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	n, err := c.ResponseWriter.Write(p)
	c.bytes += int64(n)
	return n, err
}

func (m *metrics) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		cw := &countingWriter{ResponseWriter: w}
		next.ServeHTTP(cw, r)
		m.requests.Add(1)
		m.bytesWritten.Add(cw.bytes)
		log.Printf("%s %s %d %dB (%s)", r.Method, r.URL.Path, cw.status, cw.bytes, time.Since(start))
	})
}
