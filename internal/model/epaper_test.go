// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"reflect"
	"testing"
)

func threePages() []EpaperImage {
	return []EpaperImage{
		{ID: "a", PageNumber: 1},
		{ID: "b", PageNumber: 2},
		{ID: "c", PageNumber: 3},
	}
}

func TestRenumberPages(t *testing.T) {
	images := []EpaperImage{
		{ID: "a", PageNumber: 7},
		{ID: "b", PageNumber: 0},
		{ID: "c", PageNumber: 3},
	}
	RenumberPages(images)
	for i, img := range images {
		if img.PageNumber != i+1 {
			t.Errorf("image %d: PageNumber = %d, want %d", i, img.PageNumber, i+1)
		}
	}
}

func TestIsImagePermutation(t *testing.T) {
	tests := []struct {
		name     string
		order    []string
		expected bool
	}{
		{"identity", []string{"a", "b", "c"}, true},
		{"reversed", []string{"c", "b", "a"}, true},
		{"move last to front", []string{"c", "a", "b"}, true},
		{"missing id", []string{"a", "b"}, false},
		{"extra id", []string{"a", "b", "c", "d"}, false},
		{"unknown id", []string{"a", "b", "x"}, false},
		{"duplicate id", []string{"a", "a", "b"}, false},
		{"empty against non-empty", []string{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsImagePermutation(threePages(), tt.order); got != tt.expected {
				t.Errorf("IsImagePermutation(%v) = %v, want %v", tt.order, got, tt.expected)
			}
		})
	}
}

func TestIsImagePermutation_Empty(t *testing.T) {
	if !IsImagePermutation(nil, nil) {
		t.Error("empty order against empty images should be a valid permutation")
	}
}

func TestReorderImages(t *testing.T) {
	// Moving C before A yields [C(1), A(2), B(3)].
	got := ReorderImages(threePages(), []string{"c", "a", "b"})

	want := []EpaperImage{
		{ID: "c", PageNumber: 1},
		{ID: "a", PageNumber: 2},
		{ID: "b", PageNumber: 3},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReorderImages = %+v, want %+v", got, want)
	}
}

func TestReorderImages_DoesNotMutateInput(t *testing.T) {
	in := threePages()
	_ = ReorderImages(in, []string{"c", "b", "a"})
	if in[0].ID != "a" || in[0].PageNumber != 1 {
		t.Errorf("input slice was mutated: %+v", in)
	}
}

func TestIsValidStatus(t *testing.T) {
	for _, s := range ValidStatuses {
		if !IsValidStatus(s) {
			t.Errorf("IsValidStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "Published", "deleted"} {
		if IsValidStatus(s) {
			t.Errorf("IsValidStatus(%q) = true, want false", s)
		}
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-08-24")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.Year() != 2026 || d.Month() != 8 || d.Day() != 24 {
		t.Errorf("ParseDate = %v", d)
	}
	if _, err := ParseDate("24/08/2026"); err == nil {
		t.Error("expected error for wrong layout")
	}
}
