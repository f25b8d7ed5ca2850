package onvif

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/icholy/digest"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const notAuthorizedFault = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope" xmlns:ter="http://www.onvif.org/ver10/error"><env:Body><env:Fault><env:Code><env:Value>env:Sender</env:Value><env:Subcode><env:Value>ter:NotAuthorized</env:Value></env:Subcode></env:Code><env:Reason><env:Text xml:lang="en">Sender not Authorized</env:Text></env:Reason></env:Fault></env:Body></env:Envelope>`

const actionNotSupportedFault = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope" xmlns:ter="http://www.onvif.org/ver10/error"><env:Body><env:Fault><env:Code><env:Value>env:Receiver</env:Value><env:Subcode><env:Value>ter:ActionNotSupported</env:Value></env:Subcode></env:Code><env:Reason><env:Text xml:lang="en">Optional Action Not Implemented</env:Text></env:Reason></env:Fault></env:Body></env:Envelope>`

const streamURIAnswer = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope" xmlns:tt="http://www.onvif.org/ver10/schema" xmlns:trt="http://www.onvif.org/ver10/media/wsdl"><env:Body><trt:GetStreamUriResponse><trt:MediaUri><tt:Uri>%s</tt:Uri><tt:InvalidAfterConnect>false</tt:InvalidAfterConnect><tt:InvalidAfterReboot>false</tt:InvalidAfterReboot><tt:Timeout>PT60S</tt:Timeout></trt:MediaUri></trt:GetStreamUriResponse></env:Body></env:Envelope>`

const capabilitiesAnswer = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope" xmlns:tt="http://www.onvif.org/ver10/schema" xmlns:tds="http://www.onvif.org/ver10/device/wsdl"><env:Body><tds:GetCapabilitiesResponse><tds:Capabilities><tt:Media><tt:XAddr>%s</tt:XAddr><tt:StreamingCapabilities><tt:RTPMulticast>true</tt:RTPMulticast><tt:RTP_TCP>true</tt:RTP_TCP><tt:RTP_RTSP_TCP>true</tt:RTP_RTSP_TCP></tt:StreamingCapabilities></tt:Media></tds:Capabilities></tds:GetCapabilitiesResponse></env:Body></env:Envelope>`

const dateTimeAnswer = `<?xml version="1.0" encoding="UTF-8"?>
<env:Envelope xmlns:env="http://www.w3.org/2003/05/soap-envelope" xmlns:tt="http://www.onvif.org/ver10/schema" xmlns:tds="http://www.onvif.org/ver10/device/wsdl"><env:Body><tds:GetSystemDateAndTimeResponse><tds:SystemDateAndTime><tt:DateTimeType>Manual</tt:DateTimeType><tt:DaylightSavings>false</tt:DaylightSavings><tt:TimeZone><tt:TZ>GMT0</tt:TZ></tt:TimeZone><tt:UTCDateTime><tt:Time><tt:Hour>%d</tt:Hour><tt:Minute>%d</tt:Minute><tt:Second>%d</tt:Second></tt:Time><tt:Date><tt:Year>%d</tt:Year><tt:Month>%d</tt:Month><tt:Day>%d</tt:Day></tt:Date></tt:UTCDateTime></tds:SystemDateAndTime></tds:GetSystemDateAndTimeResponse></env:Body></env:Envelope>`

type request struct {
	path   string
	action string
	body   []byte
}

// fakeCamera answers the device and media services like a camera with
// its own clock and a WS-Security check
type fakeCamera struct {
	username string
	password string

	// clock of the camera relative to the local one
	offset time.Duration
	// allowed difference between wsu:Created and the camera clock
	maxSkew time.Duration
	// status of rejected requests, 400 answers carry a fault
	rejectStatus int

	httpDigest     bool
	noCapabilities bool
	profiles       string
	streamURIs     map[string]string

	server *httptest.Server

	mu       sync.Mutex
	requests []request
	created  []string
}

func newFakeCamera(t *testing.T) *fakeCamera {
	cam := &fakeCamera{
		username:     "admin",
		password:     "secret",
		maxSkew:      30 * time.Second,
		rejectStatus: http.StatusBadRequest,
		profiles:     profilesResponse,
		streamURIs: map[string]string{
			"Profile_1": "rtsp:///192.168.1.64:554/Streaming/Channels/101?transportmode=unicast&amp;profile=Profile_1",
			"Profile_2": "rtsp://192.168.1.64:554/Streaming/Channels/102?transportmode=unicast&amp;profile=Profile_2",
		},
	}

	r := gin.New()
	r.POST("/onvif/device_service", cam.handle)
	r.POST("/onvif/media_service", cam.handle)
	r.POST("/onvif/Media", cam.handle)

	cam.server = httptest.NewServer(r)
	t.Cleanup(cam.server.Close)

	return cam
}

func (c *fakeCamera) deviceURL() string {
	return c.server.URL + "/onvif/device_service"
}

func (c *fakeCamera) actions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var actions []string
	for _, r := range c.requests {
		actions = append(actions, r.action)
	}
	return actions
}

func (c *fakeCamera) lastRequest(action string) request {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.requests) - 1; i >= 0; i-- {
		if c.requests[i].action == action {
			return c.requests[i]
		}
	}
	return request{}
}

func (c *fakeCamera) createdTimes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.created...)
}

func (c *fakeCamera) challenge() *digest.Challenge {
	return &digest.Challenge{Realm: "IP Camera", Nonce: "4e6a41794d7a41794e6a41", QOP: []string{"auth"}, Algorithm: "MD5"}
}

func (c *fakeCamera) checkDigest(r *http.Request) bool {
	cred, err := digest.ParseCredentials(r.Header.Get("Authorization"))
	if err != nil {
		return false
	}
	want, err := digest.Digest(c.challenge(), digest.Options{
		Method:   r.Method,
		URI:      r.URL.RequestURI(),
		Count:    cred.Nc,
		Cnonce:   cred.Cnonce,
		Username: c.username,
		Password: c.password,
	})
	if err != nil {
		return false
	}
	return cred.Username == c.username && cred.Response == want.Response
}

func (c *fakeCamera) checkSecurity(body []byte) bool {
	created := FindTagValue(body, "Created")
	if created != "" {
		c.mu.Lock()
		c.created = append(c.created, created)
		c.mu.Unlock()
	}

	if FindTagValue(body, "Username") != c.username {
		return false
	}

	nonce, err := base64.StdEncoding.DecodeString(FindTagValue(body, "Nonce"))
	if err != nil {
		return false
	}
	if PasswordDigest(nonce, created, c.password) != FindTagValue(body, "Password") {
		return false
	}

	ts, err := time.Parse(CreatedLayout, created)
	if err != nil {
		return false
	}
	skew := ts.Sub(time.Now().Add(c.offset))
	return skew <= c.maxSkew && skew >= -c.maxSkew
}

func (c *fakeCamera) handle(ctx *gin.Context) {
	body, _ := ctx.GetRawData()
	action := GetRequestAction(body)

	c.mu.Lock()
	c.requests = append(c.requests, request{path: ctx.Request.URL.Path, action: action, body: body})
	c.mu.Unlock()

	if c.httpDigest && action != DeviceGetSystemDateAndTime && !c.checkDigest(ctx.Request) {
		ctx.Header("WWW-Authenticate", c.challenge().String())
		ctx.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	switch action {
	case DeviceGetSystemDateAndTime:
		t := time.Now().UTC().Add(c.offset)
		c.reply(ctx, http.StatusOK, fmt.Sprintf(dateTimeAnswer,
			t.Hour(), t.Minute(), t.Second(), t.Year(), int(t.Month()), t.Day()))
		return
	case DeviceGetCapabilities:
		if c.noCapabilities {
			c.reply(ctx, http.StatusInternalServerError, actionNotSupportedFault)
			return
		}
		c.reply(ctx, http.StatusOK, fmt.Sprintf(capabilitiesAnswer, c.server.URL+"/onvif/Media"))
		return
	}

	if !c.checkSecurity(body) {
		if c.rejectStatus == http.StatusBadRequest {
			c.reply(ctx, http.StatusBadRequest, notAuthorizedFault)
			return
		}
		ctx.AbortWithStatus(c.rejectStatus)
		return
	}

	switch action {
	case MediaGetProfiles:
		c.reply(ctx, http.StatusOK, c.profiles)
	case MediaGetStreamUri:
		c.reply(ctx, http.StatusOK, fmt.Sprintf(streamURIAnswer, c.streamURIs[FindTagValue(body, "ProfileToken")]))
	default:
		c.reply(ctx, http.StatusInternalServerError, actionNotSupportedFault)
	}
}

func (c *fakeCamera) reply(ctx *gin.Context, status int, body string) {
	ctx.Data(status, ContentType, []byte(body))
}
