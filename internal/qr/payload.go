// Package qr builds and parses the pairing payload carried inside QR
// images, and renders those images. The payload is a URI of the form
//
//	<scheme>://connect?code=XXXX-XXXX&user=<ownerUserId>
//
// and is treated as untrusted input when parsed: the embedded owner claim
// is verified against the resolved code before a connection is created.
package qr

import (
	"fmt"
	"net/url"

	qrcode "github.com/skip2/go-qrcode"
)

const payloadHost = "connect"

// Payload is the decoded content of a pairing QR image.
type Payload struct {
	Code        string
	OwnerUserID string
}

// Codec builds and parses payloads for a fixed URI scheme.
type Codec struct {
	scheme string
}

func NewCodec(scheme string) *Codec {
	return &Codec{scheme: scheme}
}

// Build encodes a pairing code and its owner for out-of-band transfer.
func (c *Codec) Build(code, ownerUserID string) string {
	q := url.Values{}
	q.Set("code", code)
	q.Set("user", ownerUserID)
	u := url.URL{
		Scheme:   c.scheme,
		Host:     payloadHost,
		RawQuery: q.Encode(),
	}
	return u.String()
}

// Parse decodes a payload, rejecting anything that is not a well-formed
// pairing URI with both parameters present.
func (c *Codec) Parse(payload string) (*Payload, error) {
	u, err := url.Parse(payload)
	if err != nil {
		return nil, fmt.Errorf("unparseable payload: %w", err)
	}
	if u.Scheme != c.scheme || u.Host != payloadHost {
		return nil, fmt.Errorf("payload is not a %s://%s URI", c.scheme, payloadHost)
	}

	q := u.Query()
	code := q.Get("code")
	owner := q.Get("user")
	if code == "" || owner == "" {
		return nil, fmt.Errorf("payload missing code or user parameter")
	}

	return &Payload{Code: code, OwnerUserID: owner}, nil
}

// ImageSize is the pixel width and height of rendered QR images.
const ImageSize = 512

// RenderPNG encodes a payload as a PNG QR image.
func RenderPNG(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, ImageSize)
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return png, nil
}
