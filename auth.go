package onvif

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"time"

	"github.com/juju/errors"
)

// CreatedLayout is the wsu:Created format, UTC with second precision
const CreatedLayout = "2006-01-02T15:04:05Z"

const nonceSize = 16

// now is replaced in tests
var now = time.Now

// GenerateAuthComponents creates the WS-Security material for one request.
// offset is added to the local clock to match the device clock.
func GenerateAuthComponents(username, password string, offset time.Duration) (AuthComponents, error) {
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return AuthComponents{}, errors.NewUnauthorized(err, "onvif: generate nonce")
	}

	created := now().UTC().Add(offset).Format(CreatedLayout)

	return AuthComponents{
		Username: username,
		Nonce:    nonce,
		Created:  created,
		Digest:   PasswordDigest(nonce, created, password),
	}, nil
}

// PasswordDigest computes Base64(SHA-1(nonce + created + password)).
// The concatenation order is fixed by the WS-UsernameToken profile.
func PasswordDigest(nonce []byte, created, password string) string {
	h := sha1.New()
	h.Write(nonce)
	h.Write([]byte(created))
	h.Write([]byte(password))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
