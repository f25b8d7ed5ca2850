package onvif

import (
	"bytes"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/juju/errors"
)

// Answers are matched by local element name with any namespace prefix.
// Cameras disagree on prefixes and schema details, so nothing here needs
// a well-formed document.

const prefix = `<(?:[\w.\-]+:)?`

var patterns sync.Map

func compile(expr string) *regexp.Regexp {
	if re, ok := patterns.Load(expr); ok {
		return re.(*regexp.Regexp)
	}
	re := regexp.MustCompile(expr)
	patterns.Store(expr, re)
	return re
}

// FindTagValue returns the trimmed text of the first non-empty element
// named tag, whatever its prefix
func FindTagValue(b []byte, tag string) string {
	re := compile(prefix + regexp.QuoteMeta(tag) + `(?:\s[^>]*)?>([^<]+)`)
	for _, m := range re.FindAllSubmatch(b, -1) {
		if s := strings.TrimSpace(string(m[1])); s != "" {
			return s
		}
	}
	return ""
}

// findBlocks returns the attributes and the inner content of every tag
// element in document order
func findBlocks(b []byte, tag string) (attrs, inner [][]byte) {
	t := regexp.QuoteMeta(tag)
	re := compile(`(?s)` + prefix + t + `(\s[^>]*)?>(.*?)</(?:[\w.\-]+:)?` + t + `\s*>`)
	for _, m := range re.FindAllSubmatch(b, -1) {
		attrs = append(attrs, m[1])
		inner = append(inner, m[2])
	}
	return
}

// findBlock returns the inner content of the first tag element
func findBlock(b []byte, tag string) ([]byte, bool) {
	_, inner := findBlocks(b, tag)
	if len(inner) == 0 {
		return nil, false
	}
	return inner[0], true
}

func findAttr(attrs []byte, name string) (string, bool) {
	re := compile(`(?:^|\s)` + regexp.QuoteMeta(name) + `\s*=\s*["']([^"']*)["']`)
	m := re.FindSubmatch(attrs)
	if m == nil {
		return "", false
	}
	return string(m[1]), true
}

func atoi(s string) int {
	i, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return i
}

const scopePrefix = "onvif://www.onvif.org/"

// ParseProbeMatch builds a Device from a WS-Discovery answer. It reports
// false for anything that is not a ProbeMatch with an XAddr.
func ParseProbeMatch(b []byte, senderIP string) (Device, bool) {
	if !bytes.Contains(b, []byte("ProbeMatch")) {
		return Device{}, false
	}

	xaddrs := strings.Fields(FindTagValue(b, "XAddrs"))
	if len(xaddrs) == 0 {
		return Device{}, false
	}

	dev := Device{ServiceURL: xaddrs[0]}

	if ref, ok := findBlock(b, "EndpointReference"); ok {
		dev.ID = FindTagValue(ref, "Address")
	} else {
		dev.ID = FindTagValue(b, "Address")
	}
	if dev.ID == "" {
		dev.ID = DeviceID(dev.ServiceURL)
	}

	var location string
	for _, scope := range strings.Fields(FindTagValue(b, "Scopes")) {
		key, value, ok := strings.Cut(strings.TrimPrefix(scope, scopePrefix), "/")
		if !ok || !strings.HasPrefix(scope, scopePrefix) {
			continue
		}
		switch strings.ToLower(key) {
		case "mfr":
			dev.Manufacturer = scopeValue(value)
		case "hardware":
			if dev.Manufacturer == "" {
				dev.Manufacturer = scopeValue(value)
			}
		case "name":
			dev.Model = scopeValue(value)
		case "location":
			// location/country/china, location/city/shenzhen
			if i := strings.LastIndexByte(value, '/'); i >= 0 {
				value = value[i+1:]
			}
			if v := scopeValue(value); v != "" && location == "" {
				location = v
			}
		}
	}

	dev.IPAddress = ExtractIPFromURL(dev.ServiceURL)
	if dev.IPAddress == "" {
		dev.IPAddress = senderIP
	}

	switch {
	case location != "":
		dev.Name = location
	case dev.Model != "":
		dev.Name = dev.Model
	default:
		dev.Name = "Camera @ " + dev.IPAddress
	}

	return dev, true
}

func scopeValue(s string) string {
	if u, err := url.PathUnescape(s); err == nil {
		s = u
	}
	return strings.TrimSpace(strings.ReplaceAll(s, "_", " "))
}

// ParseProfilesResponse returns every media profile of a GetProfiles
// answer in document order. Missing encoder values default to H264 and 0.
func ParseProfilesResponse(b []byte) []MediaProfile {
	var profiles []MediaProfile

	attrs, inner := findBlocks(b, "Profiles")
	for i, block := range inner {
		token, ok := findAttr(attrs[i], "token")
		if !ok || token == "" {
			continue
		}

		profile := MediaProfile{
			Token: token,
			Name:  FindTagValue(block, "Name"),
			Video: &VideoEncoderConfig{Encoding: "H264"},
		}
		if profile.Name == "" {
			profile.Name = token
		}

		encoder, ok := findBlock(block, "VideoEncoderConfiguration")
		if !ok {
			encoder = block
		}
		if s := FindTagValue(encoder, "Encoding"); s != "" {
			profile.Video.Encoding = s
		}
		if res, ok := findBlock(encoder, "Resolution"); ok {
			profile.Video.Width = atoi(FindTagValue(res, "Width"))
			profile.Video.Height = atoi(FindTagValue(res, "Height"))
		} else {
			profile.Video.Width = atoi(FindTagValue(encoder, "Width"))
			profile.Video.Height = atoi(FindTagValue(encoder, "Height"))
		}
		profile.Video.FrameRateLimit = atoi(FindTagValue(encoder, "FrameRateLimit"))
		profile.Video.BitrateLimit = atoi(FindTagValue(encoder, "BitrateLimit"))

		profiles = append(profiles, profile)
	}

	return profiles
}

// ParseStreamURIResponse returns the Uri of a GetStreamUri answer
func ParseStreamURIResponse(b []byte) (string, bool) {
	uri := strings.TrimSpace(html.UnescapeString(FindTagValue(b, "Uri")))
	return uri, uri != ""
}

// ParseMediaURLFromCapabilities returns the Media service XAddr of a
// GetCapabilities answer
func ParseMediaURLFromCapabilities(b []byte) (string, bool) {
	media, ok := findBlock(b, "Media")
	if !ok {
		return "", false
	}
	xaddr := FindTagValue(media, "XAddr")
	return xaddr, xaddr != ""
}

// ParseSystemDateAndTime reads the UTC clock of a GetSystemDateAndTime
// answer. Every field is required.
func ParseSystemDateAndTime(b []byte) (SystemDateTime, error) {
	if block, ok := findBlock(b, "UTCDateTime"); ok {
		b = block
	}

	var values [6]int
	for i, tag := range []string{"Year", "Month", "Day", "Hour", "Minute", "Second"} {
		s := FindTagValue(b, tag)
		v, err := strconv.Atoi(s)
		if err != nil {
			return SystemDateTime{}, newKindError(ErrParsing, "onvif: device time: bad %s %q", tag, s)
		}
		values[i] = v
	}

	return SystemDateTime{
		Year:   values[0],
		Month:  values[1],
		Day:    values[2],
		Hour:   values[3],
		Minute: values[4],
		Second: values[5],
	}, nil
}

var reFault = regexp.MustCompile(prefix + `Fault[\s>/]`)

// ParseSOAPFault returns the fault carried by b, or nil
func ParseSOAPFault(b []byte) *SOAPFault {
	if !reFault.Match(b) {
		return nil
	}

	fault := &SOAPFault{}

	if code, ok := findBlock(b, "Code"); ok {
		// SOAP 1.2
		fault.Code = FindTagValue(code, "Value")
		if sub, ok := findBlock(code, "Subcode"); ok {
			fault.Subcode = FindTagValue(sub, "Value")
		}
	} else {
		fault.Code = FindTagValue(b, "faultcode")
	}

	if reason, ok := findBlock(b, "Reason"); ok {
		fault.Reason = FindTagValue(reason, "Text")
	}
	if fault.Reason == "" {
		fault.Reason = FindTagValue(b, "faultstring")
	}

	fault.Reason = html.UnescapeString(fault.Reason)

	return fault
}

// faultError returns the fault in b as an error, wrapping cause
func faultError(b []byte, cause error) error {
	fault := ParseSOAPFault(b)
	if fault == nil {
		return nil
	}
	fault.cause = cause
	return errors.Trace(fault)
}

var reRequestAction = regexp.MustCompile(`Body[^<]*<([^ />]+)`)

// GetRequestAction returns the local name of the first element in the
// SOAP body, the operation of a request
func GetRequestAction(b []byte) string {
	m := reRequestAction.FindSubmatch(b)
	if len(m) != 2 {
		return ""
	}
	if i := bytes.IndexByte(m[1], ':'); i > 0 {
		return string(m[1][i+1:])
	}
	return string(m[1])
}
