// Package preprocess prepares user images before they are sent for generation.
package preprocess

import (
	"bytes"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"
	"golang.org/x/image/draw"

	// extra decoders
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/basel-ax/emojify/internal/domain"
)

// MaxDimension bounds the larger side of an uploaded image.
const MaxDimension = 512

const jpegQuality = 92

// Bound returns the dimensions after fitting the larger side into limit while
// keeping the aspect ratio. Dimensions already within bounds are unchanged.
func Bound(width, height, limit int) (int, int) {
	if width > height {
		if width > limit {
			height = scaled(height, limit, width)
			width = limit
		}
	} else if height > limit {
		width = scaled(width, limit, height)
		height = limit
	}
	return width, height
}

func scaled(side, limit, larger int) int {
	v := int(math.Round(float64(side) * float64(limit) / float64(larger)))
	if v < 1 {
		return 1
	}
	return v
}

// Resize decodes an image file, bounds it to MaxDimension and returns it as an
// inline image string. Images already within bounds are passed through as is.
func Resize(data []byte) (domain.ImagePayload, error) {
	mediaType := mimetype.Detect(data).String()

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", domain.NewDecodeError(err)
	}

	bounds := img.Bounds()
	width, height := Bound(bounds.Dx(), bounds.Dy(), MaxDimension)
	if width == bounds.Dx() && height == bounds.Dy() {
		return domain.NewImagePayload(mediaType, data), nil
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	encoded, encodedType, err := encode(dst, mediaType)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode resized image")
	}
	return domain.NewImagePayload(encodedType, encoded), nil
}

// encode writes img in mediaType, falling back to PNG for types without an encoder
func encode(img image.Image, mediaType string) ([]byte, string, error) {
	var buf bytes.Buffer
	var err error
	switch mediaType {
	case "image/jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality})
	case "image/gif":
		err = gif.Encode(&buf, img, nil)
	default:
		mediaType = "image/png"
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mediaType, nil
}
