// Package image prepares image files for model submission: probing
// dimensions and format, downscaling to a bounding box, and re-encoding
// as JPEG so every backend sees one well-known payload format.
package image

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"

	// imaging registers jpeg/png/gif/tiff/bmp decoders; webp comes from x/image
	_ "golang.org/x/image/webp"

	"github.com/franz/autotag/internal/util"
)

const (
	// DefaultMaxWidth and DefaultMaxHeight bound the payload sent to the
	// model. Larger inputs are scaled down, smaller ones pass unscaled.
	DefaultMaxWidth  = 512
	DefaultMaxHeight = 512

	jpegQuality = 85
)

// Info holds the original file's probed properties
type Info struct {
	Width  int
	Height int
	Format string
}

// ParseSize parses a "WxH" size string such as "512x512"
func ParseSize(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(strings.TrimSpace(s)), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("%w: size must be WxH, got %q", util.ErrInvalidConfig, s)
	}

	w, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || w <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid width in %q", util.ErrInvalidConfig, s)
	}
	h, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || h <= 0 {
		return 0, 0, fmt.Errorf("%w: invalid height in %q", util.ErrInvalidConfig, s)
	}
	return w, h, nil
}

// Probe reads the image header and returns dimensions and format
// without decoding pixel data
func Probe(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return Info{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return Info{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Prepare loads an image, scales it down to fit within maxW x maxH
// preserving aspect ratio, and returns it as JPEG bytes together with
// the original dimensions. Images already inside the box are re-encoded
// without scaling.
func Prepare(path string, maxW, maxH int) ([]byte, Info, error) {
	info, err := Probe(path)
	if err != nil {
		return nil, Info{}, err
	}

	src, err := imaging.Open(path)
	if err != nil {
		return nil, info, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	if info.Width > maxW || info.Height > maxH {
		src = imaging.Fit(src, maxW, maxH, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, src, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, info, fmt.Errorf("failed to encode %s: %w", path, err)
	}

	util.DebugLog("Prepared %s: %dx%d %s -> %d bytes", path, info.Width, info.Height, info.Format, buf.Len())
	return buf.Bytes(), info, nil
}
