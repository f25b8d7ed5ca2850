package onvif

import (
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// Error kinds. Test with errors.Is.
const (
	// ErrAuthentication covers rejected credentials and rejected digests
	ErrAuthentication = errors.Unauthorized
	// ErrTimeout covers connect and read timeouts
	ErrTimeout = errors.Timeout
	// ErrNetwork covers refused or reset connections, unexpected HTTP
	// statuses and malformed or empty responses
	ErrNetwork = errors.ConstError("network error")
	// ErrEmptyResponse is a successful HTTP exchange without a body
	ErrEmptyResponse = errors.ConstError("empty response")
	// ErrNoProfiles means the device returned zero media profiles
	ErrNoProfiles = errors.ConstError("no media profiles")
	// ErrStreamURI means GetStreamUri succeeded without a usable Uri
	ErrStreamURI = errors.ConstError("no stream uri")
	// ErrParsing means a required field could not be extracted
	ErrParsing = errors.ConstError("parsing failed")
)

// HTTPError is a non-2xx answer from a device
type HTTPError struct {
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("onvif: HTTP %d from %s", e.StatusCode, e.URL)
}

// SOAPFault is a fault element found in a device answer
type SOAPFault struct {
	Code    string
	Subcode string
	Reason  string

	// cause is the transport error the fault was found in, if any
	cause error
}

func (f *SOAPFault) Error() string {
	var sb strings.Builder
	sb.WriteString("onvif: SOAP fault")
	if f.Subcode != "" {
		sb.WriteString(" " + f.Subcode)
	} else if f.Code != "" {
		sb.WriteString(" " + f.Code)
	}
	if f.Reason != "" {
		sb.WriteString(": " + f.Reason)
	}
	return sb.String()
}

// Is makes an authentication fault match ErrAuthentication and every
// other fault match ErrNetwork
func (f *SOAPFault) Is(target error) bool {
	switch target {
	case ErrAuthentication:
		return f.IsAuthentication()
	case ErrNetwork:
		return !f.IsAuthentication()
	}
	return false
}

func (f *SOAPFault) Unwrap() error {
	return f.cause
}

// IsAuthentication reports whether the device rejected the security header
func (f *SOAPFault) IsAuthentication() bool {
	s := strings.ToLower(f.Subcode + " " + f.Reason)
	for _, marker := range []string{
		"notauthorized", "not authorized", "failedauthentication",
		"invalidsecurity", "authentication", "unauthorized",
	} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

func newKindError(kind errors.ConstError, format string, args ...any) error {
	return errors.WithType(errors.Errorf(format, args...), kind)
}

// ErrorKind returns a stable label for the kind of err
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return "authentication"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrNoProfiles):
		return "no_profiles"
	case errors.Is(err, ErrStreamURI):
		return "stream_uri"
	case errors.Is(err, ErrParsing):
		return "parsing"
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrEmptyResponse):
		return "network"
	}
	return "unknown"
}
