// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package imaging normalizes uploaded page scans before they are forwarded
// to the backend: EXIF orientation is applied, oversized scans are scaled
// down, and everything is re-encoded as JPEG so the public viewer serves
// one predictable format.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"net/http"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp" // WebP decoder
)

// JPEGQuality is the re-encode quality for normalized page scans.
const JPEGQuality = 90

// Result contains the normalized image and its metadata.
type Result struct {
	Data     []byte
	Width    int
	Height   int
	MimeType string
}

// Normalizer prepares page scans for upload.
type Normalizer struct {
	maxEdge int // long-edge cap in pixels, 0 = no resizing
}

// NewNormalizer creates a normalizer. maxEdge caps the long edge of each
// page scan; typical phone camera scans are far larger than any screen
// needs.
func NewNormalizer(maxEdge int) *Normalizer {
	return &Normalizer{maxEdge: maxEdge}
}

// Normalize reads one page scan and returns it oriented, bounded and
// JPEG-encoded. Unsupported or undecodable input is rejected.
func (n *Normalizer) Normalize(r io.Reader) (*Result, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}

	if format := detectFormat(data); format == "" {
		return nil, fmt.Errorf("unsupported image format")
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	// Apply EXIF orientation before any resize
	orientation := readExifOrientation(bytes.NewReader(data))
	img = applyOrientation(img, orientation)

	// Bound the long edge
	if n.maxEdge > 0 {
		b := img.Bounds()
		if b.Dx() > n.maxEdge || b.Dy() > n.maxEdge {
			img = imaging.Fit(img, n.maxEdge, n.maxEdge, imaging.Lanczos)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	bounds := img.Bounds()
	return &Result{
		Data:     buf.Bytes(),
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		MimeType: "image/jpeg",
	}, nil
}

// IsImage checks whether a MIME type is an acceptable page scan format.
func IsImage(mimeType string) bool {
	switch mimeType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// IsPDF checks whether a MIME type is a PDF.
func IsPDF(mimeType string) bool {
	return mimeType == "application/pdf"
}

// DetectMimeType detects the MIME type of uploaded data.
func DetectMimeType(data []byte) string {
	contentType := http.DetectContentType(data)
	// http.DetectContentType returns types like "image/jpeg; charset=utf-8"
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = contentType[:idx]
	}
	return contentType
}

// readExifOrientation reads the EXIF orientation tag from image data.
// Returns 1 (normal) if orientation cannot be determined.
func readExifOrientation(r io.Reader) int {
	x, err := exif.Decode(r)
	if err != nil {
		return 1
	}

	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1
	}

	orientation, err := tag.Int(0)
	if err != nil {
		return 1
	}

	return orientation
}

// applyOrientation applies EXIF orientation transformation to an image.
// Orientation values:
// 1: Normal
// 2: Flip horizontal
// 3: Rotate 180°
// 4: Flip vertical
// 5: Rotate 90° CW + flip horizontal
// 6: Rotate 90° CW
// 7: Rotate 90° CCW + flip horizontal
// 8: Rotate 90° CCW
func applyOrientation(img image.Image, orientation int) image.Image {
	switch orientation {
	case 2:
		return imaging.FlipH(img)
	case 3:
		return imaging.Rotate180(img)
	case 4:
		return imaging.FlipV(img)
	case 5:
		return imaging.FlipH(imaging.Rotate270(img))
	case 6:
		return imaging.Rotate270(img)
	case 7:
		return imaging.FlipH(imaging.Rotate90(img))
	case 8:
		return imaging.Rotate90(img)
	default:
		return img
	}
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
