// Package fetch downloads pinned source archives, extracts them, and hands
// the resulting tree to the integrity layer for verification.
package fetch

import (
	"crypto/tls"
	"net/http"
	"time"
)

// newSecureClient returns an http.Client restricted to modern TLS.
// Archive fetches carry release tarballs, so the floor is TLS 1.2.
func newSecureClient() *http.Client {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	transport := &http.Transport{
		TLSClientConfig:   tlsConfig,
		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		// Generous ceiling for large monorepo tarballs on slow links.
		Timeout: 15 * time.Minute,
	}
}
