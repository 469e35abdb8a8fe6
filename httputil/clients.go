// Package httputil builds the outbound HTTP clients shared across the
// migrator.
package httputil

import (
	"net/http"
	"time"
)

// NewMediaClient returns the client used for pulling listing photos
// from the source CDN: generous per-request timeout and connection
// reuse against a single host.
func NewMediaClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Timeout:   60 * time.Second,
		Transport: transport,
	}
}
