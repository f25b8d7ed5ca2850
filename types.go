// Package onvif discovers ONVIF cameras and negotiates authenticated access
// to their Media service streams.
package onvif

import (
	"encoding/base64"
	"time"

	"github.com/rs/zerolog"
)

// Device is a camera found by WS-Discovery
type Device struct {
	// ID is the WS-Discovery endpoint reference, or a name-based UUID of
	// ServiceURL when the device does not announce one
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Manufacturer string `json:"manufacturer,omitempty" yaml:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty" yaml:"model,omitempty"`

	// ServiceURL is the ONVIF device service endpoint (first XAddr)
	ServiceURL string `json:"service_url" yaml:"service_url"`
	IPAddress  string `json:"ip_address" yaml:"ip_address"`
}

// Credentials are the ONVIF account used for a device session
type Credentials struct {
	Username string `json:"username" yaml:"username"`
	Password string `json:"password" yaml:"-"`
}

// IsZero reports whether no username was supplied
func (c Credentials) IsZero() bool {
	return c.Username == ""
}

// MediaProfile is one selectable stream variant of a camera
type MediaProfile struct {
	Token string              `json:"token"`
	Name  string              `json:"name"`
	Video *VideoEncoderConfig `json:"video,omitempty"`
}

// VideoEncoderConfig is the encoder part of a media profile
type VideoEncoderConfig struct {
	Encoding       string `json:"encoding"`
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	FrameRateLimit int    `json:"frame_rate_limit,omitempty"`
	BitrateLimit   int    `json:"bitrate_limit,omitempty"`
}

// AuthComponents is the single-use material of one WS-UsernameToken.
// A fresh value must be generated for every outgoing request.
type AuthComponents struct {
	Username string
	Nonce    []byte
	Created  string
	Digest   string
}

// NonceBase64 returns the nonce as carried in wsse:Nonce
func (a AuthComponents) NonceBase64() string {
	return base64.StdEncoding.EncodeToString(a.Nonce)
}

// SystemDateTime is the UTC clock reported by GetSystemDateAndTime
type SystemDateTime struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Time converts the reported clock to a time.Time in UTC
func (s SystemDateTime) Time() time.Time {
	return time.Date(s.Year, time.Month(s.Month), s.Day, s.Hour, s.Minute, s.Second, 0, time.UTC)
}

// StreamQuality picks between the main and the sub stream of a camera
type StreamQuality string

const (
	MainStream StreamQuality = "main"
	SubStream  StreamQuality = "sub"
)

// StreamInfo is a resolved stream ready for the media player
type StreamInfo struct {
	Quality StreamQuality `json:"quality"`
	Profile MediaProfile  `json:"profile"`
	// URI carries the embedded credentials, never log it as is
	URI string `json:"uri"`
}

// StreamSet holds both streams of a camera
type StreamSet struct {
	Main StreamInfo `json:"main"`
	Sub  StreamInfo `json:"sub"`
}

// DiscoveryOptions provides options for camera discovery
type DiscoveryOptions struct {
	// Timeout bounds the whole discovery run
	Timeout time.Duration
	// MulticastAddr is where the probe is sent, host:port
	MulticastAddr string
	// ReceiveTimeout bounds a single socket read so that the overall
	// timeout and cancellation stay responsive
	ReceiveTimeout time.Duration
	Logger         *zerolog.Logger
}

// Default configuration
const (
	DefaultMulticastAddr  = "239.255.255.250:3702"
	DefaultTimeout        = 5 * time.Second
	DefaultReceiveTimeout = 500 * time.Millisecond
	DefaultSOAPTimeout    = 10 * time.Second
)

// Sub-stream selection limits (PAL D1)
const (
	SubStreamMaxWidth  = 720
	SubStreamMaxHeight = 576
)
