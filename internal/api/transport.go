package api

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
)

// TokenSource supplies the bearer token for each request. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

var _ http.RoundTripper = (*caTransport)(nil)

// caTransport only trusts the CA certificate(s) found in a PEM file.
type caTransport struct {
	transport *http.Transport
}

func (c *caTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return c.transport.RoundTrip(req)
}

func newCATransport(caPath string) (*caTransport, error) {
	caBytes, err := os.ReadFile(caPath)
	if err != nil {
		return nil, fmt.Errorf("read CA file: %w", err)
	}

	pool := x509.NewCertPool()
	n := 0
	rest := caBytes
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			return nil, fmt.Errorf("invalid pem block type %s, expected CERTIFICATE", block.Type)
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("unable to parse certificate: %w", err)
		}
		pool.AddCert(cert)
		n++
	}
	if n == 0 {
		return nil, fmt.Errorf("no certificate found in %s", caPath)
	}

	return &caTransport{transport: &http.Transport{
		Proxy:             http.ProxyFromEnvironment,
		TLSClientConfig:   &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12},
		ForceAttemptHTTP2: true,
	}}, nil
}

// authTransport stamps every request with the bearer token and a request id.
type authTransport struct {
	tokens TokenSource
	// base is resolved on each request so tests can swap http.DefaultTransport.
	base http.RoundTripper
}

func (a *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	out := req.Clone(req.Context())
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}
	out.Header.Set("User-Agent", userAgent)
	if a.tokens != nil {
		tok, err := a.tokens.Token(req.Context())
		if err != nil {
			return nil, fmt.Errorf("load token: %w", err)
		}
		if tok != "" {
			out.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	base := a.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(out)
}
