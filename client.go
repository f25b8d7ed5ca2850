package onvif

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Client talks to the device and media services of ONVIF cameras.
// Credentials are passed per call, a Client may serve many cameras.
type Client struct {
	Timeout     time.Duration
	InsecureTLS bool

	// HTTPDigest also answers HTTP Digest challenges with the call
	// credentials, on top of the WS-Security header
	HTTPDigest bool

	// Transport overrides the HTTP transport built from the fields above
	Transport Transport

	Logger *zerolog.Logger

	once      sync.Once
	transport Transport
	mediaURLs *MediaURLCache
}

// NewClient creates a new ONVIF client
func NewClient() *Client {
	return NewClientWithTimeout(DefaultSOAPTimeout)
}

// NewClientWithTimeout creates a new ONVIF client with custom timeout
func NewClientWithTimeout(timeout time.Duration) *Client {
	return &Client{
		Timeout:    timeout,
		HTTPDigest: true,
	}
}

func (c *Client) init() {
	c.once.Do(func() {
		c.transport = c.Transport
		if c.transport == nil {
			c.transport = NewHTTPTransport(c.Timeout, c.InsecureTLS)
		}
		c.mediaURLs = NewMediaURLCache()
	})
}

// MediaURLs returns the media service addresses learned by this client
func (c *Client) MediaURLs() *MediaURLCache {
	c.init()
	return c.mediaURLs
}

func (c *Client) getTransport() Transport {
	c.init()
	return c.transport
}

// httpCreds returns the credentials for the HTTP layer, if enabled
func (c *Client) httpCreds(creds Credentials) *Credentials {
	if !c.HTTPDigest || creds.IsZero() {
		return nil
	}
	return &creds
}

func (c *Client) logger() *zerolog.Logger {
	return pickLogger(c.Logger)
}

// DisplayName returns the best available name for the device
func (d Device) DisplayName() string {
	// Priority: Manufacturer + Model > Name > Model > IP > service URL
	if d.Manufacturer != "" && d.Model != "" {
		return fmt.Sprintf("%s %s", d.Manufacturer, d.Model)
	}

	if d.Name != "" {
		return d.Name
	}

	if d.Model != "" {
		return d.Model
	}

	if d.IPAddress != "" {
		return d.IPAddress
	}

	return d.ServiceURL
}
