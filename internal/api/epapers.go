// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"

	"github.com/olegiv/epress-go/internal/model"
)

// EpaperListParams filters the edition list. Zero values are omitted from
// the query string.
type EpaperListParams struct {
	Page      int
	Limit     int
	Search    string
	Status    string
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
}

// EpaperList is the paginated list envelope returned by the backend.
type EpaperList struct {
	Epapers    []model.Epaper   `json:"epapers"`
	Pagination model.Pagination `json:"pagination"`
}

// FilePart is one file destined for a multipart upload. Content is read
// once during assembly.
type FilePart struct {
	FileName    string
	ContentType string
	Content     io.Reader
}

// EpaperUpload carries the fields of a create or update request. On update
// an empty scalar means "leave unchanged" and is not sent; Images are
// appended in slice order; at most one PDF part is ever sent.
type EpaperUpload struct {
	Name           string
	Date           string // YYYY-MM-DD
	FileType       string
	Status         string
	Images         []FilePart
	PDF            *FilePart
	RemovePDF      bool
	ReplaceImageID string
}

type epaperResponse struct {
	Message string        `json:"message"`
	Epaper  *model.Epaper `json:"epaper"`
}

type reorderRequest struct {
	ImageOrder []string `json:"imageOrder"`
}

type reorderResponse struct {
	Message string              `json:"message"`
	Images  []model.EpaperImage `json:"images"`
}

type dateRangeResponse struct {
	Epapers []model.Epaper `json:"epapers"`
}

// Epapers fetches a page of editions.
func (c *Client) Epapers(ctx context.Context, p EpaperListParams) (*EpaperList, error) {
	q := url.Values{}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Search != "" {
		q.Set("search", p.Search)
	}
	if p.Status != "" {
		q.Set("status", p.Status)
	}
	if p.StartDate != "" {
		q.Set("startDate", p.StartDate)
	}
	if p.EndDate != "" {
		q.Set("endDate", p.EndDate)
	}

	var resp EpaperList
	if err := c.getJSON(ctx, "/epapers", q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Epaper fetches a single edition by ID.
func (c *Client) Epaper(ctx context.Context, id string) (*model.Epaper, error) {
	var ep model.Epaper
	if err := c.getJSON(ctx, "/epapers/"+id, nil, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// EpaperByDate fetches the edition for an exact calendar date. A backend
// 404 comes back as a KindNotFound error, which callers treat as a
// fallback signal rather than a failure.
func (c *Client) EpaperByDate(ctx context.Context, date string) (*model.Epaper, error) {
	q := url.Values{"date": {date}}
	var ep model.Epaper
	if err := c.getJSON(ctx, "/epapers/by-date", q, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// EpapersInRange fetches all editions with dates inside [start, end].
func (c *Client) EpapersInRange(ctx context.Context, start, end string) ([]model.Epaper, error) {
	q := url.Values{"startDate": {start}, "endDate": {end}}
	var resp dateRangeResponse
	if err := c.getJSON(ctx, "/epapers/date-range", q, &resp); err != nil {
		return nil, err
	}
	return resp.Epapers, nil
}

// CreateEpaper uploads a new edition.
func (c *Client) CreateEpaper(ctx context.Context, in EpaperUpload) (*model.Epaper, error) {
	return c.sendEpaperForm(ctx, http.MethodPost, "/epapers", in)
}

// UpdateEpaper modifies an existing edition. Fields left at their zero
// value are not sent and stay unchanged on the backend.
func (c *Client) UpdateEpaper(ctx context.Context, id string, in EpaperUpload) (*model.Epaper, error) {
	return c.sendEpaperForm(ctx, http.MethodPut, "/epapers/"+id, in)
}

// ReorderEpaperImages persists a new page order and returns the canonical
// sequence as the backend now has it. Callers render the response, not
// their own optimistic order.
func (c *Client) ReorderEpaperImages(ctx context.Context, id string, order []string) ([]model.EpaperImage, error) {
	var resp reorderResponse
	err := c.sendJSON(ctx, http.MethodPatch, "/epapers/"+id+"/reorder", reorderRequest{ImageOrder: order}, &resp)
	if err != nil {
		return nil, err
	}
	return resp.Images, nil
}

// DeleteEpaper removes an edition and its files.
func (c *Client) DeleteEpaper(ctx context.Context, id string) error {
	return c.delete(ctx, "/epapers/"+id)
}

// DeleteEpaperImage removes a single page image from an edition.
func (c *Client) DeleteEpaperImage(ctx context.Context, id, imageID string) error {
	return c.delete(ctx, "/epapers/"+id+"/images/"+imageID)
}

// sendEpaperForm assembles the multipart body and issues the request.
func (c *Client) sendEpaperForm(ctx context.Context, method, path string, in EpaperUpload) (*model.Epaper, error) {
	body, contentType, err := buildEpaperForm(in)
	if err != nil {
		return nil, newTransportError(err)
	}

	req, err := c.newRequest(ctx, method, path, nil, body)
	if err != nil {
		return nil, newTransportError(err)
	}
	req.Header.Set("Content-Type", contentType)

	var resp epaperResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Epaper, nil
}

// buildEpaperForm writes scalars as text parts and files as file parts,
// preserving image order. Empty scalars are omitted.
func buildEpaperForm(in EpaperUpload) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	scalars := [][2]string{
		{"name", in.Name},
		{"date", in.Date},
		{"fileType", in.FileType},
		{"status", in.Status},
		{"replaceImageId", in.ReplaceImageID},
	}
	for _, kv := range scalars {
		if kv[1] == "" {
			continue
		}
		if err := w.WriteField(kv[0], kv[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", kv[0], err)
		}
	}
	if in.RemovePDF {
		if err := w.WriteField("removePDF", "true"); err != nil {
			return nil, "", fmt.Errorf("writing field removePDF: %w", err)
		}
	}

	for i, img := range in.Images {
		if err := writeFilePart(w, "images", img); err != nil {
			return nil, "", fmt.Errorf("writing image %d: %w", i, err)
		}
	}
	if in.PDF != nil {
		if err := writeFilePart(w, "pdf", *in.PDF); err != nil {
			return nil, "", fmt.Errorf("writing pdf: %w", err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing form: %w", err)
	}
	return buf, w.FormDataContentType(), nil
}

func writeFilePart(w *multipart.Writer, field string, f FilePart) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name=%q; filename=%q`, field, f.FileName))
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, f.Content)
	return err
}
