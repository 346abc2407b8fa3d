// Package imaging converts between the data-URI wire format and in-memory
// pixel buffers. Decoded images are request-scoped and never shared between
// concurrent requests.
package imaging

import (
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"strings"
)

// Image is a decoded picture plus the format it arrived in.
type Image struct {
	Pixels image.Image
	Format string
}

// DecodeError reports input that could not be turned into pixels.
type DecodeError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode image: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode image: %s", e.Reason)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Decode parses a data-URI encoded image. A bare base64 payload without the
// "data:image/...;base64," header is accepted as well; a present header must
// declare base64 content.
func Decode(dataURI string) (*Image, error) {
	payload := dataURI
	if header, rest, found := strings.Cut(dataURI, ","); found {
		if !strings.HasPrefix(header, "data:") || !strings.HasSuffix(header, ";base64") {
			return nil, &DecodeError{Reason: fmt.Sprintf("malformed data URI header %q", header)}
		}
		payload = rest
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, &DecodeError{Reason: "invalid base64 payload", Err: err}
	}

	return DecodeBytes(raw)
}

// DecodeBytes parses raw image bytes in any registered format.
func DecodeBytes(raw []byte) (*Image, error) {
	img, format, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, &DecodeError{Reason: "unsupported or corrupt image payload", Err: err}
	}
	return &Image{Pixels: img, Format: format}, nil
}

// Encode serializes an image as a PNG data-URI. The output format is always
// PNG regardless of the format the image was decoded from; pixel content is
// preserved losslessly.
func Encode(img *Image) (string, error) {
	raw, err := PNGBytes(img)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw), nil
}

// PNGBytes serializes an image as PNG for transport and digesting.
func PNGBytes(img *Image) ([]byte, error) {
	if img == nil || img.Pixels == nil {
		return nil, fmt.Errorf("encode image: nil image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img.Pixels); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// Digest returns a SHA-1 digest of the image's dimensions and pixel content.
// Images with identical pixels produce identical digests independent of the
// encoding they arrived in.
func Digest(img *Image) []byte {
	bounds := img.Pixels.Bounds()
	rgba := image.NewRGBA(bounds)
	draw.Draw(rgba, bounds, img.Pixels, bounds.Min, draw.Src)

	h := sha1.New()
	var dims [8]byte
	binary.BigEndian.PutUint32(dims[0:4], uint32(bounds.Dx()))
	binary.BigEndian.PutUint32(dims[4:8], uint32(bounds.Dy()))
	h.Write(dims[:])
	h.Write(rgba.Pix)
	return h.Sum(nil)
}
