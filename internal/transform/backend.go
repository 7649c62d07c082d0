package transform

import (
	"bytes"

	"imageserver/internal/domain"
)

// Backend performs the pixel-level work the service itself stays away from:
// probing dimensions, rotating by right angles and producing resized
// re-encoded renditions.
type Backend interface {
	// Probe reports the dimensions of the image at path without rendering it.
	Probe(path string) (width, height int, err error)

	// Rotate decodes the given bytes, rotates them clockwise by the given
	// multiple of 90 degrees (0 re-encodes without rotation) and returns the
	// result encoded in the canonical asset format.
	Rotate(data []byte, degrees int) ([]byte, error)

	// Render produces rendition bytes for the asset at path. When both
	// dimensions are set the image is scaled and centre-cropped to fill the
	// exact box; otherwise it is scaled down preserving aspect ratio, never
	// past its source resolution.
	Render(path string, width, height domain.Dim, quality int) ([]byte, error)
}

// Format describes a supported upload format, detected by magic bytes.
type Format struct {
	Name string
	Ext  string
}

type signature struct {
	format Format
	offset int
	magic  []byte
}

var signatures = []signature{
	{Format{"jpeg", ".jpg"}, 0, []byte{0xff, 0xd8, 0xff}},
	{Format{"png", ".png"}, 0, []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}},
	{Format{"gif", ".gif"}, 0, []byte("GIF8")},
	{Format{"webp", ".webp"}, 8, []byte("WEBP")},
}

// Sniff determines the upload format from its leading bytes. Formats the
// backend cannot decode are rejected with domain.ErrUnsupportedFormat.
func Sniff(data []byte) (Format, error) {
	for _, sig := range signatures {
		end := sig.offset + len(sig.magic)
		if len(data) >= end && bytes.Equal(data[sig.offset:end], sig.magic) {
			return sig.format, nil
		}
	}
	return Format{}, domain.ErrUnsupportedFormat
}
