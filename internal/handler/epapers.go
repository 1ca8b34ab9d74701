// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/cache"
	"github.com/olegiv/epress-go/internal/imaging"
	"github.com/olegiv/epress-go/internal/middleware"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/render"
	"github.com/olegiv/epress-go/internal/store"
	"github.com/olegiv/epress-go/internal/util"
)

// EpapersPerPage is the number of editions per admin list page.
const EpapersPerPage = 20

// EpapersHandler handles edition management routes.
type EpapersHandler struct {
	client     *api.Client
	renderer   *render.Renderer
	events     *store.Events
	editions   *cache.Editions
	normalizer *imaging.Normalizer
}

// NewEpapersHandler creates a new EpapersHandler.
func NewEpapersHandler(client *api.Client, renderer *render.Renderer, events *store.Events, editions *cache.Editions, normalizer *imaging.Normalizer) *EpapersHandler {
	return &EpapersHandler{
		client:     client,
		renderer:   renderer,
		events:     events,
		editions:   editions,
		normalizer: normalizer,
	}
}

// EpapersListData holds data for the editions list template.
type EpapersListData struct {
	Epapers    []model.Epaper
	Pagination AdminPagination
	Search     string
	Status     string
	StartDate  string
	EndDate    string
	Statuses   []string
}

// List handles GET /admin/epapers with search, status and date filters.
func (h *EpapersHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}

	params := api.EpaperListParams{
		Page:      page,
		Limit:     EpapersPerPage,
		Search:    strings.TrimSpace(q.Get("search")),
		Status:    q.Get("status"),
		StartDate: q.Get("startDate"),
		EndDate:   q.Get("endDate"),
	}

	list, err := h.client.Epapers(r.Context(), params)
	if err != nil {
		flashAPIError(w, r, h.renderer, redirectAdmin, "failed to list editions", err)
		return
	}

	data := EpapersListData{
		Epapers:    list.Epapers,
		Pagination: BuildAdminPagination(list.Pagination, redirectAdminEpapers, q),
		Search:     params.Search,
		Status:     params.Status,
		StartDate:  params.StartDate,
		EndDate:    params.EndDate,
		Statuses:   model.ValidStatuses,
	}

	if err := h.renderer.Render(w, r, "admin/epapers_list", adminTemplateData(r, "ePapers", data)); err != nil {
		logAndInternalError(w, "failed to render editions list", "error", err)
	}
}

// EpaperFormData holds data for the edition form template.
type EpaperFormData struct {
	Epaper     *model.Epaper
	Errors     map[string]string
	FormValues map[string]string
	Statuses   []string
	IsEdit     bool
}

// NewForm handles GET /admin/epapers/create.
func (h *EpapersHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderEpaperForm(w, r, "New ePaper", EpaperFormData{
		Errors:     make(map[string]string),
		FormValues: map[string]string{"fileType": model.FileTypeImages, "status": model.StatusDraft},
		Statuses:   model.ValidStatuses,
	})
}

// Create handles POST /admin/epapers/create with a multipart upload.
func (h *EpapersHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		flashError(w, r, h.renderer, redirectAdminEpapersNew, "Invalid upload data")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	date := r.FormValue("date")
	fileType := r.FormValue("fileType")
	status := r.FormValue("status")

	formValues := map[string]string{
		"name":     name,
		"date":     date,
		"fileType": fileType,
		"status":   status,
	}

	validationErrors := validateEpaperForm(name, date, fileType, status)

	var images []*multipart.FileHeader
	var pdf *multipart.FileHeader
	if r.MultipartForm != nil {
		images = r.MultipartForm.File["images"]
		if pdfs := r.MultipartForm.File["pdf"]; len(pdfs) > 0 {
			pdf = pdfs[0]
		}
	}

	switch fileType {
	case model.FileTypeImages:
		if len(images) == 0 {
			validationErrors["images"] = "At least one page image is required"
		}
	case model.FileTypePDF:
		if pdf == nil {
			validationErrors["pdf"] = "A PDF file is required"
		}
	}

	if len(validationErrors) > 0 {
		h.renderEpaperForm(w, r, "New ePaper", EpaperFormData{
			Errors:     validationErrors,
			FormValues: formValues,
			Statuses:   model.ValidStatuses,
		})
		return
	}

	upload := api.EpaperUpload{
		Name:     name,
		Date:     date,
		FileType: fileType,
		Status:   status,
	}
	if err := h.attachFiles(&upload, images, pdf); err != nil {
		slog.Error("upload preprocessing failed", "error", err)
		flashError(w, r, h.renderer, redirectAdminEpapersNew, "One of the uploaded files could not be processed")
		return
	}

	created, err := h.client.CreateEpaper(r.Context(), upload)
	if err != nil {
		flashAPIError(w, r, h.renderer, redirectAdminEpapersNew, "failed to create edition", err)
		return
	}

	h.invalidateEditions(r, created.Date)
	slog.Info("edition created", "epaper_id", created.ID, "date", created.Date, "created_by", middleware.GetUserName(r))
	h.logEpaperEvent(r, "Edition created: "+created.Name)

	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectAdminEpapersView, created.ID), "ePaper created successfully")
}

// EditForm handles GET /admin/epapers/edit/{id}.
func (h *EpapersHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.requireEpaper(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	h.renderEpaperForm(w, r, "Edit ePaper", EpaperFormData{
		Epaper: ep,
		Errors: make(map[string]string),
		FormValues: map[string]string{
			"name":     ep.Name,
			"date":     ep.Date,
			"fileType": ep.FileType,
			"status":   ep.Status,
		},
		Statuses: model.ValidStatuses,
		IsEdit:   true,
	})
}

// Update handles POST /admin/epapers/edit/{id}. Unchanged fields are not
// forwarded; the backend keeps their current values.
func (h *EpapersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	editURL := fmt.Sprintf(redirectAdminEpapersEdit, id)

	ep, ok := h.requireEpaper(w, r, id)
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		flashError(w, r, h.renderer, editURL, "Invalid upload data")
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	date := r.FormValue("date")
	status := r.FormValue("status")

	validationErrors := make(map[string]string)
	if name == "" {
		validationErrors["name"] = "Name is required"
	}
	if date != "" {
		if _, err := model.ParseDate(date); err != nil {
			validationErrors["date"] = "Date must be YYYY-MM-DD"
		}
	}
	if status != "" && !model.IsValidStatus(status) {
		validationErrors["status"] = "Invalid status"
	}

	if len(validationErrors) > 0 {
		h.renderEpaperForm(w, r, "Edit ePaper", EpaperFormData{
			Epaper: ep,
			Errors: validationErrors,
			FormValues: map[string]string{
				"name": name, "date": date, "fileType": ep.FileType, "status": status,
			},
			Statuses: model.ValidStatuses,
			IsEdit:   true,
		})
		return
	}

	upload := api.EpaperUpload{
		Name:           name,
		Date:           date,
		Status:         status,
		RemovePDF:      r.FormValue("removePDF") == "on",
		ReplaceImageID: r.FormValue("replaceImageId"),
	}

	var images []*multipart.FileHeader
	var pdf *multipart.FileHeader
	if r.MultipartForm != nil {
		images = r.MultipartForm.File["images"]
		if pdfs := r.MultipartForm.File["pdf"]; len(pdfs) > 0 {
			pdf = pdfs[0]
		}
	}
	if upload.ReplaceImageID != "" && len(images) != 1 {
		flashError(w, r, h.renderer, editURL, "Replacing a page requires exactly one image")
		return
	}
	if err := h.attachFiles(&upload, images, pdf); err != nil {
		slog.Error("upload preprocessing failed", "error", err, "epaper_id", id)
		flashError(w, r, h.renderer, editURL, "One of the uploaded files could not be processed")
		return
	}

	updated, err := h.client.UpdateEpaper(r.Context(), id, upload)
	if err != nil {
		flashAPIError(w, r, h.renderer, editURL, "failed to update edition", err)
		return
	}

	// The date may have moved; both the old and new day go stale.
	h.invalidateEditions(r, ep.Date, updated.Date)
	slog.Info("edition updated", "epaper_id", id, "updated_by", middleware.GetUserName(r))
	h.logEpaperEvent(r, "Edition updated: "+updated.Name)

	flashSuccess(w, r, h.renderer, fmt.Sprintf(redirectAdminEpapersView, id), "ePaper updated successfully")
}

// EpaperViewData holds data for the edition view template.
type EpaperViewData struct {
	Epaper     *model.Epaper
	ReorderURL string
	PDFURL     string
}

// View handles GET /admin/epapers/view/{id}: page thumbnails with
// drag-reorder for image editions, download link for PDF editions.
func (h *EpapersHandler) View(w http.ResponseWriter, r *http.Request) {
	ep, ok := h.requireEpaper(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	data := EpaperViewData{
		Epaper:     ep,
		ReorderURL: fmt.Sprintf(redirectAdminEpapers+"/%s/reorder", ep.ID),
	}
	if ep.PDF != nil {
		data.PDFURL = fmt.Sprintf(redirectAdminEpapers+"/%s/pdf", ep.ID)
	}

	if err := h.renderer.Render(w, r, "admin/epapers_view", adminTemplateData(r, ep.Name, data)); err != nil {
		logAndInternalError(w, "failed to render edition view", "error", err)
	}
}

// reorderPayload is the request body for the page-order endpoint.
type reorderPayload struct {
	ImageOrder []string `json:"imageOrder"`
}

// reorderResult is the response body: the order the backend now holds.
// On failure Images carries the last-confirmed order so the client can
// roll back instead of showing an order the server never accepted.
type reorderResult struct {
	Images []model.EpaperImage `json:"images"`
	Error  string              `json:"error,omitempty"`
}

// Reorder handles POST /admin/epapers/{id}/reorder. The submitted ids
// must be a permutation of the edition's current image ids; page numbers
// are re-derived from position by the backend.
func (h *EpapersHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ep, err := h.client.Epaper(r.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			writeJSONError(w, http.StatusNotFound, "Edition not found")
		} else {
			slog.Error("failed to load edition for reorder", "error", err, "epaper_id", id)
			writeJSONError(w, http.StatusBadGateway, api.UserMessage(err))
		}
		return
	}

	var payload reorderPayload
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, reorderResult{Images: ep.Images, Error: "Invalid request body"})
		return
	}

	if !model.IsImagePermutation(ep.Images, payload.ImageOrder) {
		writeJSON(w, http.StatusBadRequest, reorderResult{Images: ep.Images, Error: "Submitted order does not match the edition's pages"})
		return
	}

	images, err := h.client.ReorderEpaperImages(r.Context(), id, payload.ImageOrder)
	if err != nil {
		slog.Error("reorder rejected by backend", "error", err, "epaper_id", id)
		writeJSON(w, http.StatusBadGateway, reorderResult{Images: ep.Images, Error: api.UserMessage(err)})
		return
	}

	h.invalidateEditions(r, ep.Date)
	h.logEpaperEvent(r, "Pages reordered: "+ep.Name)

	writeJSON(w, http.StatusOK, reorderResult{Images: images})
}

// Delete handles POST /admin/epapers/delete/{id}.
func (h *EpapersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ep, ok := h.requireEpaper(w, r, id)
	if !ok {
		return
	}

	if err := h.client.DeleteEpaper(r.Context(), id); err != nil {
		flashAPIError(w, r, h.renderer, redirectAdminEpapers, "failed to delete edition", err)
		return
	}

	h.invalidateEditions(r, ep.Date)
	slog.Info("edition deleted", "epaper_id", id, "deleted_by", middleware.GetUserName(r))
	h.logEpaperEvent(r, "Edition deleted: "+ep.Name)

	flashSuccess(w, r, h.renderer, redirectAdminEpapers, "ePaper deleted successfully")
}

// DeleteImage handles POST /admin/epapers/{id}/images/{imageId}.
func (h *EpapersHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	imageID := chi.URLParam(r, "imageId")
	viewURL := fmt.Sprintf(redirectAdminEpapersView, id)

	ep, ok := h.requireEpaper(w, r, id)
	if !ok {
		return
	}

	if err := h.client.DeleteEpaperImage(r.Context(), id, imageID); err != nil {
		flashAPIError(w, r, h.renderer, viewURL, "failed to delete page", err)
		return
	}

	h.invalidateEditions(r, ep.Date)
	h.logEpaperEvent(r, "Page removed from edition: "+ep.Name)

	flashSuccess(w, r, h.renderer, viewURL, "Page deleted")
}

// DownloadPDF handles GET /admin/epapers/{id}/pdf, streaming the edition's
// PDF from the backend so the bearer token never reaches the browser.
func (h *EpapersHandler) DownloadPDF(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ep, err := h.client.Epaper(r.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			http.NotFound(w, r)
		} else {
			logAndHTTPError(w, "Bad Gateway", http.StatusBadGateway, "failed to load edition for download", "error", err, "epaper_id", id)
		}
		return
	}
	if ep.PDF == nil {
		http.NotFound(w, r)
		return
	}

	body, contentType, length, err := h.client.Download(r.Context(), ep.PDF.URL)
	if err != nil {
		logAndHTTPError(w, "Bad Gateway", http.StatusBadGateway, "failed to fetch PDF from backend", "error", err, "epaper_id", id)
		return
	}
	defer body.Close()

	filename := util.Slugify(ep.Name + " " + ep.Date)
	if filename == "" {
		filename = "epaper-" + ep.Date
	}

	if contentType == "" {
		contentType = "application/pdf"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`.pdf"`)
	if length > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	}

	if _, err := io.Copy(w, body); err != nil {
		slog.Error("PDF stream interrupted", "error", err, "epaper_id", id)
	}
}

// attachFiles normalizes image uploads and attaches them (and an optional
// PDF) to the outgoing request. PDFs pass through untouched.
func (h *EpapersHandler) attachFiles(upload *api.EpaperUpload, images []*multipart.FileHeader, pdf *multipart.FileHeader) error {
	for _, fh := range images {
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("opening %s: %w", fh.Filename, err)
		}
		res, err := h.normalizer.Normalize(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("normalizing %s: %w", fh.Filename, err)
		}
		upload.Images = append(upload.Images, api.FilePart{
			FileName:    fh.Filename,
			ContentType: res.MimeType,
			Content:     bytes.NewReader(res.Data),
		})
	}

	if pdf != nil {
		f, err := pdf.Open()
		if err != nil {
			return fmt.Errorf("opening %s: %w", pdf.Filename, err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("reading %s: %w", pdf.Filename, err)
		}
		if !imaging.IsPDF(imaging.DetectMimeType(data)) {
			return fmt.Errorf("%s is not a PDF", pdf.Filename)
		}
		upload.PDF = &api.FilePart{
			FileName:    pdf.Filename,
			ContentType: "application/pdf",
			Content:     bytes.NewReader(data),
		}
	}

	return nil
}

// requireEpaper fetches an edition or redirects to the list with a flash.
func (h *EpapersHandler) requireEpaper(w http.ResponseWriter, r *http.Request, id string) (*model.Epaper, bool) {
	ep, err := h.client.Epaper(r.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			flashError(w, r, h.renderer, redirectAdminEpapers, "ePaper not found")
		} else {
			flashAPIError(w, r, h.renderer, redirectAdminEpapers, "failed to load edition", err)
		}
		return nil, false
	}
	return ep, true
}

func (h *EpapersHandler) renderEpaperForm(w http.ResponseWriter, r *http.Request, title string, data EpaperFormData) {
	if err := h.renderer.Render(w, r, "admin/epapers_form", adminTemplateData(r, title, data)); err != nil {
		logAndInternalError(w, "failed to render edition form", "error", err)
	}
}

// invalidateEditions drops cached landing-page lookups after a write.
func (h *EpapersHandler) invalidateEditions(r *http.Request, dates ...string) {
	if h.editions == nil {
		return
	}
	if err := h.editions.Invalidate(r.Context(), dates...); err != nil {
		slog.Error("failed to invalidate edition cache", "error", err)
	}
}

// logEpaperEvent records an edition management event in the audit log.
func (h *EpapersHandler) logEpaperEvent(r *http.Request, message string) {
	if h.events == nil {
		return
	}
	if _, err := h.events.Create(r.Context(), store.Event{
		Level:    store.EventLevelInfo,
		Category: store.EventCategoryEpaper,
		Message:  message,
		Actor:    middleware.GetUserName(r),
	}); err != nil {
		slog.Error("failed to record edition event", "error", err)
	}
}

// validateEpaperForm validates the required fields of a new edition.
func validateEpaperForm(name, date, fileType, status string) map[string]string {
	validationErrors := make(map[string]string)

	if name == "" {
		validationErrors["name"] = "Name is required"
	}

	if date == "" {
		validationErrors["date"] = "Date is required"
	} else if _, err := model.ParseDate(date); err != nil {
		validationErrors["date"] = "Date must be YYYY-MM-DD"
	}

	if !model.IsValidFileType(fileType) {
		validationErrors["fileType"] = "File type must be images or pdf"
	}

	if !model.IsValidStatus(status) {
		validationErrors["status"] = "Invalid status"
	}

	return validationErrors
}
