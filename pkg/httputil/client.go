// Package httputil provides shared HTTP utilities with connection pooling
// and safe response handling for the Baitline gateway.
package httputil

import (
	"io"
	"net"
	"net/http"
	"sync"
	"time"
)

// MaxResponseSize is the default maximum size for reading HTTP response bodies.
// The evaluation collector only returns small acks, but we never trust a peer
// to bound its own output.
const MaxResponseSize = 1 * 1024 * 1024 // 1MB

// Shared transport with connection pooling. Safe for concurrent use;
// reusing TCP connections matters when the dispatcher retries in a loop.
var sharedTransport = &http.Transport{
	Proxy: http.ProxyFromEnvironment,
	DialContext: (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext,
	ForceAttemptHTTP2:     true,
	MaxIdleConns:          100,
	MaxIdleConnsPerHost:   10,
	IdleConnTimeout:       90 * time.Second,
	TLSHandshakeTimeout:   10 * time.Second,
	ExpectContinueTimeout: 1 * time.Second,
}

var (
	clientMu      sync.Mutex
	clientByTotal = make(map[time.Duration]*http.Client)
)

// Client returns a pooled HTTP client with the given total request timeout.
// Clients are cached per timeout so callers can share connections instead of
// constructing a new http.Client per request.
func Client(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientMu.Lock()
	defer clientMu.Unlock()

	if c, ok := clientByTotal[timeout]; ok {
		return c
	}
	c := &http.Client{
		Timeout:   timeout,
		Transport: sharedTransport,
	}
	clientByTotal[timeout] = c
	return c
}

// ReadResponseBody safely reads an HTTP response body with a size limit.
func ReadResponseBody(r io.Reader, maxSize int64) ([]byte, error) {
	if maxSize <= 0 {
		maxSize = MaxResponseSize
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// DrainAndClose properly drains and closes an HTTP response body.
// This ensures connection reuse in the pool.
func DrainAndClose(body io.ReadCloser) {
	if body != nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(body, MaxResponseSize))
		_ = body.Close()
	}
}
