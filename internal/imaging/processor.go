// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging validates and normalizes downloaded QR code bitmaps.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // WebP decoder
)

// Dimension limits for accepted bitmaps.
const (
	MinDimension = 21 // smallest QR symbol, one pixel per module
	MaxDimension = 4096
)

// ErrUnsupportedFormat is returned for data that is not a decodable bitmap.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Result is a normalized square PNG.
type Result struct {
	PNG          []byte
	Width        int
	Height       int
	SourceFormat string
	SourceWidth  int
	SourceHeight int
}

// NormalizePNG decodes data, checks its dimensions and returns it as a PNG
// of exactly size x size pixels. Nearest-neighbour scaling keeps module
// edges sharp.
func NormalizePNG(data []byte, size int) (*Result, error) {
	format := detectFormat(data)
	if format == "" {
		return nil, ErrUnsupportedFormat
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if err := checkDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	b := img.Bounds()
	if size > 0 && (b.Dx() != size || b.Dy() != size) {
		img = imaging.Resize(img, size, size, imaging.NearestNeighbor)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}

	out := img.Bounds()
	return &Result{
		PNG:          buf.Bytes(),
		Width:        out.Dx(),
		Height:       out.Dy(),
		SourceFormat: format,
		SourceWidth:  b.Dx(),
		SourceHeight: b.Dy(),
	}, nil
}

func checkDimensions(w, h int) error {
	if w < MinDimension || h < MinDimension {
		return fmt.Errorf("image too small: %dx%d", w, h)
	}
	if w > MaxDimension || h > MaxDimension {
		return fmt.Errorf("image too large: %dx%d", w, h)
	}
	return nil
}

// detectFormat detects the image format from raw bytes.
func detectFormat(data []byte) string {
	contentType := http.DetectContentType(data)
	// Explicitly reject TIFF (CVE-2023-36308 in disintegration/imaging)
	if strings.Contains(contentType, "tiff") {
		return ""
	}
	switch {
	case strings.Contains(contentType, "jpeg"):
		return "jpeg"
	case strings.Contains(contentType, "png"):
		return "png"
	case strings.Contains(contentType, "gif"):
		return "gif"
	case strings.Contains(contentType, "webp"):
		return "webp"
	default:
		return ""
	}
}
