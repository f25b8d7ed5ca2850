package onvif

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/icholy/digest"
	"github.com/juju/errors"
)

// ContentType of every ONVIF request
const ContentType = "application/soap+xml; charset=utf-8"

// maxResponseSize bounds how much of a device answer is read
const maxResponseSize = 4 << 20

//go:generate mockgen -source=soap.go -destination=mock_transport.go -package=onvif

// Transport sends one SOAP request and returns the raw answer
type Transport interface {
	// Execute posts body to url. When creds is set the request may also be
	// authenticated at the HTTP layer.
	Execute(ctx context.Context, url string, body []byte, creds *Credentials) ([]byte, error)
}

// HTTPTransport is a Transport over HTTP POST with optional HTTP Digest
type HTTPTransport struct {
	Timeout     time.Duration
	InsecureTLS bool

	once sync.Once
	base http.RoundTripper
}

// NewHTTPTransport creates a transport with the given per-request timeout
func NewHTTPTransport(timeout time.Duration, insecureTLS bool) *HTTPTransport {
	return &HTTPTransport{Timeout: timeout, InsecureTLS: insecureTLS}
}

func (t *HTTPTransport) roundTripper() http.RoundTripper {
	t.once.Do(func() {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		if t.InsecureTLS {
			tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		t.base = tr
	})
	return t.base
}

// Execute sends a SOAP request to an ONVIF endpoint. It never retries.
func (t *HTTPTransport) Execute(ctx context.Context, url string, body []byte, creds *Credentials) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithType(errors.Annotatef(err, "onvif: request to %s", url), ErrNetwork)
	}
	req.Header.Set("Content-Type", ContentType)

	timeout := t.Timeout
	if timeout == 0 {
		timeout = DefaultSOAPTimeout
	}

	client := &http.Client{Timeout: timeout, Transport: t.roundTripper()}
	if creds != nil && !creds.IsZero() {
		client.Transport = &digest.Transport{
			Username:  creds.Username,
			Password:  creds.Password,
			Transport: client.Transport,
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, requestError(ctx, url, err)
	}
	defer resp.Body.Close()

	// digest.Transport hands back a drained body when the 401 carries no
	// digest challenge, so the status is checked before reading
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, errors.WithType(&HTTPError{URL: url, StatusCode: resp.StatusCode}, ErrAuthentication)
	}

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, requestError(ctx, url, err)
	}

	// Some cameras return error codes with an empty body instead of a
	// SOAP fault
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.WithType(&HTTPError{URL: url, StatusCode: resp.StatusCode, Body: b}, ErrNetwork)
	}

	if len(bytes.TrimSpace(b)) == 0 {
		err = fmt.Errorf("onvif: HTTP %d from %s: %w", resp.StatusCode, url, ErrEmptyResponse)
		return nil, errors.WithType(err, ErrNetwork)
	}

	return b, nil
}

func requestError(ctx context.Context, url string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Annotatef(ctxErr, "onvif: request to %s", url)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.NewTimeout(err, "onvif: request to "+url)
	}

	return errors.WithType(errors.Annotatef(err, "onvif: request to %s", url), ErrNetwork)
}
