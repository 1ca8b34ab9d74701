// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Epaper file types.
const (
	FileTypeImages = "images"
	FileTypePDF    = "pdf"
)

// Epaper statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ValidStatuses contains all valid epaper statuses.
var ValidStatuses = []string{StatusDraft, StatusPublished, StatusArchived}

// DateLayout is the wire format for edition dates. The backend enforces one
// edition per calendar date.
const DateLayout = "2006-01-02"

// Epaper is a single dated newspaper edition, represented either as an
// ordered image sequence or as a PDF. Owned by the backend; referenced here.
type Epaper struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Date      string         `json:"date"` // YYYY-MM-DD
	FileType  string         `json:"fileType"`
	Status    string         `json:"status"`
	Images    []EpaperImage  `json:"images"`
	PDF       *EpaperFile    `json:"pdf,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// EpaperImage is one page of an image edition. PageNumber is a contiguous
// 1..N ordering consistent with array position.
type EpaperImage struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	PageNumber int    `json:"pageNumber"`
}

// EpaperFile describes an uploaded PDF.
type EpaperFile struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	Size     int64  `json:"size"`
}

// Pagination is the backend's list envelope.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// IsValidStatus checks if a status value is valid.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidFileType checks if a file type value is valid.
func IsValidFileType(ft string) bool {
	return ft == FileTypeImages || ft == FileTypePDF
}

// ParseDate parses an edition date in wire format.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// RenumberPages rewrites PageNumber to the contiguous 1..N ordering implied
// by array position. Called after any reorder so numbering and position
// cannot diverge.
func RenumberPages(images []EpaperImage) {
	for i := range images {
		images[i].PageNumber = i + 1
	}
}

// IsImagePermutation reports whether order contains exactly the IDs of
// images, each once, in any order. Used to validate a reorder request before
// it is forwarded to the backend.
func IsImagePermutation(images []EpaperImage, order []string) bool {
	if len(order) != len(images) {
		return false
	}
	have := make(map[string]bool, len(images))
	for _, img := range images {
		have[img.ID] = true
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if !have[id] || seen[id] {
			return false
		}
		seen[id] = true
	}
	return true
}

// ReorderImages returns a new slice with images arranged per order (a
// validated permutation of image IDs) and page numbers renumbered from 1.
func ReorderImages(images []EpaperImage, order []string) []EpaperImage {
	byID := make(map[string]EpaperImage, len(images))
	for _, img := range images {
		byID[img.ID] = img
	}
	out := make([]EpaperImage, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	RenumberPages(out)
	return out
}
