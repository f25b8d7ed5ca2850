package onvif

import (
	"context"
	"time"

	"github.com/juju/errors"
)

// call sends op to url and turns SOAP faults into errors. auth adds the
// WS-Security header when set.
func (c *Client) call(ctx context.Context, url string, op operation, auth *AuthComponents, creds Credentials) ([]byte, error) {
	body, err := buildRequest(op, auth)
	if err != nil {
		return nil, err
	}

	resp, err := c.getTransport().Execute(ctx, url, body, c.httpCreds(creds))
	if err != nil {
		// 400 and 500 answers usually carry the fault that explains them
		var httpErr *HTTPError
		if errors.As(err, &httpErr) && len(httpErr.Body) > 0 {
			if fault := faultError(httpErr.Body, err); fault != nil {
				return nil, fault
			}
		}
		return nil, err
	}

	if fault := faultError(resp, nil); fault != nil {
		return nil, fault
	}

	return resp, nil
}

// GetCapabilities asks the device service for the Media service address.
// No WS-Security header is sent, HTTP Digest still applies.
func (c *Client) GetCapabilities(ctx context.Context, deviceURL string, creds Credentials) (string, error) {
	resp, err := c.call(ctx, deviceURL, getCapabilities, nil, creds)
	if err != nil {
		return "", errors.Annotate(err, "GetCapabilities")
	}

	mediaURL, ok := ParseMediaURLFromCapabilities(resp)
	if !ok {
		return "", newKindError(ErrParsing, "onvif: no Media XAddr in capabilities of %s", StripCredentials(deviceURL))
	}

	return mediaURL, nil
}

// ResolveMediaURL returns the Media service address of a device. Known
// addresses come from the cache, otherwise GetCapabilities is asked and
// its answer cached. When that fails the address is guessed from the
// device service path and not cached.
func (c *Client) ResolveMediaURL(ctx context.Context, deviceURL string, creds Credentials) string {
	if mediaURL, ok := c.MediaURLs().Get(deviceURL); ok {
		return mediaURL
	}

	mediaURL, err := c.GetCapabilities(ctx, deviceURL, creds)
	if err == nil {
		c.MediaURLs().Put(deviceURL, mediaURL)
		return mediaURL
	}

	mediaURL = guessMediaURL(deviceURL)
	c.logger().Debug().Err(err).Str("url", StripCredentials(mediaURL)).Msg("[onvif] capabilities failed, guessing media service")

	return mediaURL
}

// GetSystemDateAndTime reads the device UTC clock. Devices answer it
// without authentication.
func (c *Client) GetSystemDateAndTime(ctx context.Context, deviceURL string) (SystemDateTime, error) {
	resp, err := c.call(ctx, deviceURL, getSystemDateAndTime, nil, Credentials{})
	if err != nil {
		return SystemDateTime{}, errors.Annotate(err, "GetSystemDateAndTime")
	}
	return ParseSystemDateAndTime(resp)
}

// ClockOffset returns device UTC minus local UTC, in milliseconds
func (c *Client) ClockOffset(ctx context.Context, deviceURL string) (time.Duration, error) {
	dt, err := c.GetSystemDateAndTime(ctx, deviceURL)
	if err != nil {
		return 0, err
	}
	return dt.Time().Sub(now().UTC()).Truncate(time.Millisecond), nil
}
