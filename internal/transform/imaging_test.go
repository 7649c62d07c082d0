package transform

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"imageserver/internal/domain"
)

func makeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 7), uint8(y * 5), 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func writeJPEG(t *testing.T, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fixture.jpg")
	if err := os.WriteFile(path, makeJPEG(t, w, h), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func decodeDims(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decoding output: %v", err)
	}
	return cfg.Width, cfg.Height
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"jpeg", makeJPEG(t, 4, 4), "jpeg"},
		{"png", []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0}, "png"},
		{"gif", []byte("GIF89a...."), "gif"},
		{"webp", []byte("RIFF\x00\x00\x00\x00WEBPVP8 "), "webp"},
	}
	for _, tt := range tests {
		format, err := Sniff(tt.data)
		if err != nil {
			t.Fatalf("Sniff(%s) error: %v", tt.name, err)
		}
		if format.Name != tt.want {
			t.Fatalf("Sniff(%s) = %q, want %q", tt.name, format.Name, tt.want)
		}
	}

	if _, err := Sniff([]byte("plain text, not an image")); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("Sniff(text) = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Sniff(nil); !errors.Is(err, domain.ErrUnsupportedFormat) {
		t.Fatalf("Sniff(nil) = %v, want ErrUnsupportedFormat", err)
	}
}

func TestProbe(t *testing.T) {
	backend := NewImagingBackend()
	path := writeJPEG(t, 40, 20)
	w, h, err := backend.Probe(path)
	if err != nil {
		t.Fatalf("Probe() error: %v", err)
	}
	if w != 40 || h != 20 {
		t.Fatalf("Probe() = %dx%d, want 40x20", w, h)
	}
}

func TestRotate(t *testing.T) {
	backend := NewImagingBackend()
	src := makeJPEG(t, 40, 20)

	tests := []struct {
		degrees      int
		wantW, wantH int
	}{
		{0, 40, 20},
		{90, 20, 40},
		{180, 40, 20},
		{270, 20, 40},
	}
	for _, tt := range tests {
		out, err := backend.Rotate(src, tt.degrees)
		if err != nil {
			t.Fatalf("Rotate(%d) error: %v", tt.degrees, err)
		}
		if w, h := decodeDims(t, out); w != tt.wantW || h != tt.wantH {
			t.Fatalf("Rotate(%d) = %dx%d, want %dx%d", tt.degrees, w, h, tt.wantW, tt.wantH)
		}
	}

	if _, err := backend.Rotate(src, 45); !errors.Is(err, domain.ErrInvalidAngle) {
		t.Fatalf("Rotate(45) = %v, want ErrInvalidAngle", err)
	}
}

func TestRenderFitAndFill(t *testing.T) {
	backend := NewImagingBackend()
	path := writeJPEG(t, 40, 20)

	tests := []struct {
		name          string
		width, height domain.Dim
		wantW, wantH  int
	}{
		{"width only scales down", domain.SomeDim(20), domain.Dim{}, 20, 10},
		{"height only scales down", domain.Dim{}, domain.SomeDim(10), 20, 10},
		{"both crop to exact box", domain.SomeDim(10), domain.SomeDim(10), 10, 10},
		{"unspecified keeps source size", domain.Dim{}, domain.Dim{}, 40, 20},
		{"never upscales past source", domain.SomeDim(400), domain.Dim{}, 40, 20},
	}
	for _, tt := range tests {
		out, err := backend.Render(path, tt.width, tt.height, domain.DefaultQuality)
		if err != nil {
			t.Fatalf("Render(%s) error: %v", tt.name, err)
		}
		if w, h := decodeDims(t, out); w != tt.wantW || h != tt.wantH {
			t.Fatalf("Render(%s) = %dx%d, want %dx%d", tt.name, w, h, tt.wantW, tt.wantH)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	backend := NewImagingBackend()
	path := writeJPEG(t, 40, 20)

	a, err := backend.Render(path, domain.SomeDim(20), domain.Dim{}, 80)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	b, err := backend.Render(path, domain.SomeDim(20), domain.Dim{}, 80)
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("Render() produced different bytes for identical inputs")
	}
}
