package onvif

import (
	"github.com/beevik/etree"
	"github.com/gofrs/uuid"
	"github.com/juju/errors"
)

// Namespaces used on the wire. Devices compare some of them verbatim.
const (
	NamespaceSOAP      = "http://www.w3.org/2003/05/soap-envelope"
	NamespaceWSSE      = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	NamespaceWSU       = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	NamespaceDevice    = "http://www.onvif.org/ver10/device/wsdl"
	NamespaceMedia     = "http://www.onvif.org/ver10/media/wsdl"
	NamespaceSchema    = "http://www.onvif.org/ver10/schema"
	NamespaceNetwork   = "http://www.onvif.org/ver10/network/wsdl"
	NamespaceAddress   = "http://schemas.xmlsoap.org/ws/2004/08/addressing"
	NamespaceDiscovery = "http://schemas.xmlsoap.org/ws/2005/04/discovery"

	PasswordDigestType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordDigest"
	Base64BinaryType   = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	ActionProbe = "http://schemas.xmlsoap.org/ws/2005/04/discovery/Probe"
	DiscoveryTo = "urn:schemas-xmlsoap-org:ws:2005:04:discovery"
)

// ONVIF operations used by this client
const (
	DeviceGetCapabilities      = "GetCapabilities"
	DeviceGetSystemDateAndTime = "GetSystemDateAndTime"
	MediaGetProfiles           = "GetProfiles"
	MediaGetStreamUri          = "GetStreamUri"
)

// BuildSecurityHeader renders the wsse:Security header for auth
func BuildSecurityHeader(auth AuthComponents) (string, error) {
	doc := etree.NewDocument()
	doc.SetRoot(securityElement(auth))
	s, err := doc.WriteToString()
	if err != nil {
		return "", errors.Annotate(err, "onvif: render security header")
	}
	return s, nil
}

func securityElement(auth AuthComponents) *etree.Element {
	sec := etree.NewElement("wsse:Security")
	sec.CreateAttr("xmlns:wsse", NamespaceWSSE)
	sec.CreateAttr("xmlns:wsu", NamespaceWSU)

	token := sec.CreateElement("wsse:UsernameToken")
	token.CreateElement("wsse:Username").SetText(auth.Username)

	password := token.CreateElement("wsse:Password")
	password.CreateAttr("Type", PasswordDigestType)
	password.SetText(auth.Digest)

	nonce := token.CreateElement("wsse:Nonce")
	nonce.CreateAttr("EncodingType", Base64BinaryType)
	nonce.SetText(auth.NonceBase64())

	token.CreateElement("wsu:Created").SetText(auth.Created)

	return sec
}

// Envelope is a SOAP 1.2 request under construction
type Envelope struct {
	doc    *etree.Document
	header *etree.Element
	body   *etree.Element
}

// NewEnvelope creates an envelope declaring the device, media and schema
// namespaces
func NewEnvelope() *Envelope {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("s:Envelope")
	env.CreateAttr("xmlns:s", NamespaceSOAP)
	env.CreateAttr("xmlns:tds", NamespaceDevice)
	env.CreateAttr("xmlns:trt", NamespaceMedia)
	env.CreateAttr("xmlns:tt", NamespaceSchema)

	return &Envelope{
		doc:    doc,
		header: env.CreateElement("s:Header"),
		body:   env.CreateElement("s:Body"),
	}
}

// NewEnvelopeWithAuth creates an envelope carrying a WS-Security header
func NewEnvelopeWithAuth(auth AuthComponents) *Envelope {
	e := NewEnvelope()
	e.header.AddChild(securityElement(auth))
	return e
}

// Body returns the s:Body element to append the operation to
func (e *Envelope) Body() *etree.Element {
	return e.body
}

// Bytes renders the envelope
func (e *Envelope) Bytes() ([]byte, error) {
	b, err := e.doc.WriteToBytes()
	if err != nil {
		return nil, errors.Annotate(err, "onvif: render envelope")
	}
	return b, nil
}

// operation appends the request element of one ONVIF call to e
type operation func(body *etree.Element)

func getCapabilities(body *etree.Element) {
	body.CreateElement("tds:" + DeviceGetCapabilities).
		CreateElement("tds:Category").SetText("Media")
}

func getSystemDateAndTime(body *etree.Element) {
	body.CreateElement("tds:" + DeviceGetSystemDateAndTime)
}

func getProfiles(body *etree.Element) {
	body.CreateElement("trt:" + MediaGetProfiles)
}

func getStreamUri(token string) operation {
	return func(body *etree.Element) {
		req := body.CreateElement("trt:" + MediaGetStreamUri)
		setup := req.CreateElement("trt:StreamSetup")
		setup.CreateElement("tt:Stream").SetText("RTP-Unicast")
		setup.CreateElement("tt:Transport").CreateElement("tt:Protocol").SetText("RTSP")
		req.CreateElement("trt:ProfileToken").SetText(token)
	}
}

// buildRequest renders op into an envelope, authenticated when auth is set
func buildRequest(op operation, auth *AuthComponents) ([]byte, error) {
	e := NewEnvelope()
	if auth != nil {
		e = NewEnvelopeWithAuth(*auth)
	}
	op(e.Body())
	return e.Bytes()
}

// NewProbe builds a WS-Discovery Probe for NetworkVideoTransmitter devices
// and returns it with its message id
func NewProbe() ([]byte, string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, "", errors.Annotate(err, "onvif: probe message id")
	}
	messageID := "urn:uuid:" + id.String()

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	env := doc.CreateElement("s:Envelope")
	env.CreateAttr("xmlns:s", NamespaceSOAP)
	env.CreateAttr("xmlns:a", NamespaceAddress)
	env.CreateAttr("xmlns:d", NamespaceDiscovery)
	env.CreateAttr("xmlns:dn", NamespaceNetwork)

	header := env.CreateElement("s:Header")
	header.CreateElement("a:Action").SetText(ActionProbe)
	header.CreateElement("a:MessageID").SetText(messageID)
	header.CreateElement("a:To").SetText(DiscoveryTo)

	env.CreateElement("s:Body").
		CreateElement("d:Probe").
		CreateElement("d:Types").SetText("dn:NetworkVideoTransmitter")

	b, err := doc.WriteToBytes()
	if err != nil {
		return nil, "", errors.Annotate(err, "onvif: render probe")
	}
	return b, messageID, nil
}
