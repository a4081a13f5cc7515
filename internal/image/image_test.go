package image

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writeTestImage(t *testing.T, name string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 128, A: 255})
		}
	}

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create test image: %v", err)
	}
	defer f.Close()

	switch filepath.Ext(name) {
	case ".png":
		err = png.Encode(f, img)
	default:
		err = jpeg.Encode(f, img, &jpeg.Options{Quality: 90})
	}
	if err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return path
}

func TestParseSize(t *testing.T) {
	cases := []struct {
		in      string
		w, h    int
		wantErr bool
	}{
		{"512x512", 512, 512, false},
		{"1024x768", 1024, 768, false},
		{" 800X600 ", 800, 600, false},
		{"512", 0, 0, true},
		{"0x512", 0, 0, true},
		{"-1x512", 0, 0, true},
		{"axb", 0, 0, true},
		{"", 0, 0, true},
	}

	for _, tc := range cases {
		w, h, err := ParseSize(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseSize(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseSize(%q): %v", tc.in, err)
			continue
		}
		if w != tc.w || h != tc.h {
			t.Errorf("ParseSize(%q) = %dx%d, want %dx%d", tc.in, w, h, tc.w, tc.h)
		}
	}
}

func TestProbe(t *testing.T) {
	path := writeTestImage(t, "probe.png", 320, 240)

	info, err := Probe(path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if info.Width != 320 || info.Height != 240 {
		t.Errorf("expected 320x240, got %dx%d", info.Width, info.Height)
	}
	if info.Format != "png" {
		t.Errorf("expected png format, got %q", info.Format)
	}
}

func TestProbeNonImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.jpg")
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Probe(path); err == nil {
		t.Error("expected error for non-image content")
	}
}

func TestPrepareDownscales(t *testing.T) {
	path := writeTestImage(t, "large.jpg", 2000, 1000)

	data, info, err := Prepare(path, 512, 512)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if info.Width != 2000 || info.Height != 1000 {
		t.Errorf("expected original dimensions preserved in info, got %dx%d", info.Width, info.Height)
	}

	out, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
	b := out.Bounds()
	if b.Dx() > 512 || b.Dy() > 512 {
		t.Errorf("output exceeds bounding box: %dx%d", b.Dx(), b.Dy())
	}
	// Aspect ratio 2:1 must survive the fit
	if b.Dx() != 512 || b.Dy() != 256 {
		t.Errorf("expected 512x256, got %dx%d", b.Dx(), b.Dy())
	}
}

func TestPrepareKeepsSmallImages(t *testing.T) {
	path := writeTestImage(t, "small.png", 100, 80)

	data, _, err := Prepare(path, 512, 512)
	if err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}

	out, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not valid JPEG: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 100 || b.Dy() != 80 {
		t.Errorf("small image should not be scaled, got %dx%d", b.Dx(), b.Dy())
	}
}
