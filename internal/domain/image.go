package domain

import (
	"encoding/base64"
	"strings"

	"github.com/pkg/errors"
)

const (
	// InlineImagePrefix starts every inline image string the relay accepts.
	InlineImagePrefix = "data:image/"

	base64Marker = ";base64"
)

// ImagePayload is an inline image string: "data:<media type>;base64,<body>".
type ImagePayload string

// NewImagePayload encodes raw image bytes as an inline image string.
func NewImagePayload(mediaType string, data []byte) ImagePayload {
	return ImagePayload("data:" + mediaType + base64Marker + "," + base64.StdEncoding.EncodeToString(data))
}

// IsInlineImage reports whether s declares an image media type in the inline format.
func IsInlineImage(s string) bool {
	return strings.HasPrefix(s, InlineImagePrefix)
}

// MediaType returns the declared media type, e.g. "image/png".
func (p ImagePayload) MediaType() (string, error) {
	header, _, err := p.split()
	if err != nil {
		return "", err
	}
	mediaType := strings.TrimPrefix(header, "data:")
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return mediaType, nil
}

// Decode returns the binary body of the payload.
func (p ImagePayload) Decode() ([]byte, error) {
	if !IsInlineImage(string(p)) {
		return nil, errors.New("not an inline image")
	}
	return DecodeDataURI(string(p))
}

// IsDataURI reports whether s is a data URI of any media type.
func IsDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

// DecodeDataURI returns the body of a base64 data URI without checking its
// media type.
func DecodeDataURI(s string) ([]byte, error) {
	if !IsDataURI(s) {
		return nil, errors.New("not a data URI")
	}
	header, body, found := strings.Cut(s, ",")
	if !found {
		return nil, errors.New("data URI has no body")
	}
	if !strings.HasSuffix(header, base64Marker) {
		return nil, errors.New("data URI is not base64 encoded")
	}
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode data URI body")
	}
	return data, nil
}

func (p ImagePayload) split() (string, string, error) {
	s := string(p)
	if !IsInlineImage(s) {
		return "", "", errors.New("not an inline image")
	}
	header, body, found := strings.Cut(s, ",")
	if !found {
		return "", "", errors.New("inline image has no body")
	}
	return header, body, nil
}
