package onvif

import (
	"html"
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/gofrs/uuid"
)

// DeviceID returns the name-based id used when a device announces no
// endpoint reference
func DeviceID(serviceURL string) string {
	return "urn:uuid:" + uuid.NewV5(uuid.NamespaceURL, serviceURL).String()
}

// ExtractIPFromURL returns the host of rawURL when it is an IP literal
func ExtractIPFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		return ""
	}
	return host
}

var reExtraSlashes = regexp.MustCompile(`^(rtsps?://)/+`)

// NormalizeStreamURI cleans a Uri as returned by cameras: entities are
// unescaped and doubled slashes after the scheme are collapsed
func NormalizeStreamURI(uri string) string {
	uri = strings.TrimSpace(html.UnescapeString(uri))
	return reExtraSlashes.ReplaceAllString(uri, "$1")
}

// EmbedCredentials puts creds into the userinfo of uri, percent-encoded.
// A uri that already carries userinfo has it replaced.
func EmbedCredentials(uri string, creds Credentials) string {
	if creds.IsZero() {
		return uri
	}

	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		// keep what the camera sent, userinfo spliced after the scheme
		scheme, rest, ok := strings.Cut(uri, "://")
		if !ok {
			return uri
		}
		if i := strings.IndexByte(rest, '@'); i >= 0 && i < strings.IndexAny(rest+"/", "/") {
			rest = rest[i+1:]
		}
		return scheme + "://" + url.UserPassword(creds.Username, creds.Password).String() + "@" + rest
	}

	u.User = url.UserPassword(creds.Username, creds.Password)
	return u.String()
}

// StripCredentials removes userinfo from uri, for logs and storage
func StripCredentials(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		scheme, rest, ok := strings.Cut(uri, "://")
		if !ok {
			return uri
		}
		if i := strings.LastIndexByte(rest, '@'); i >= 0 {
			rest = rest[i+1:]
		}
		return scheme + "://" + rest
	}
	u.User = nil
	return u.String()
}

// guessMediaURL derives the media service address from the device
// service address by the common path conventions
func guessMediaURL(deviceURL string) string {
	if strings.Contains(deviceURL, "device_service") {
		return strings.Replace(deviceURL, "device_service", "media_service", 1)
	}
	return strings.Replace(deviceURL, "/onvif/device", "/onvif/media", 1)
}
