package transform

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/disintegration/imaging"

	"imageserver/internal/domain"

	// Register decoders for the supported upload formats. Encoding is always
	// jpeg; webp and gif are decode-only.
	_ "image/gif"
	_ "golang.org/x/image/webp"
)

// ImagingBackend implements Backend on top of the imaging package and the
// standard image codecs.
type ImagingBackend struct{}

func NewImagingBackend() *ImagingBackend {
	return &ImagingBackend{}
}

func (b *ImagingBackend) Probe(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("transform: open %s: %w", path, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("transform: probe %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

func (b *ImagingBackend) Rotate(data []byte, degrees int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("transform: decode: %w", err)
	}
	switch ((degrees % 360) + 360) % 360 {
	case 0:
	case 90:
		img = imaging.Rotate270(img)
	case 180:
		img = imaging.Rotate180(img)
	case 270:
		img = imaging.Rotate90(img)
	default:
		return nil, domain.ErrInvalidAngle
	}
	return encodeJPEG(img, domain.CanonicalQuality)
}

func (b *ImagingBackend) Render(path string, width, height domain.Dim, quality int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("transform: open %s: %w", path, err)
	}
	img, err := imaging.Decode(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("transform: decode %s: %w", path, err)
	}

	bounds := img.Bounds()
	if width.Set && height.Set {
		// Exact box requested: scale and crop to the centre.
		img = imaging.Fill(img, width.Value, height.Value, imaging.Center, imaging.Lanczos)
	} else {
		// Scale down preserving aspect ratio; an unset dimension falls back
		// to the source resolution, so Fit never upscales.
		targetW, targetH := bounds.Dx(), bounds.Dy()
		if width.Set {
			targetW = width.Value
		}
		if height.Set {
			targetH = height.Value
		}
		img = imaging.Fit(img, targetW, targetH, imaging.Lanczos)
	}

	return encodeJPEG(img, quality)
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality < 1 {
		quality = 1
	} else if quality > 100 {
		quality = 100
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("transform: encode: %w", err)
	}
	return buf.Bytes(), nil
}
