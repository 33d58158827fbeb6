package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/cardlink/apiserver/internal/storage"
)

const (
	maxImageBytes     = 5 << 20
	maxUploadMemory   = 8 << 20
	formFieldImage    = "image"
	uploadKeyPrefix   = "cards/"
	uploadURLPathBase = "/uploads/"
)

// UploadHandler stores card images (profile pictures, company logos) in
// object storage and serves them back.
type UploadHandler struct {
	storage *storage.Storage
}

// NewUploadHandler constructs a handler with the provided storage.
func NewUploadHandler(st *storage.Storage) *UploadHandler {
	return &UploadHandler{storage: st}
}

// UploadRouter registers upload routes on the given router. Uploading
// requires a token; fetching an uploaded image is public, since image
// URLs end up on publicly shared cards.
func UploadRouter(r chi.Router, st *storage.Storage, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUploadHandler(st)

	r.With(authMiddleware).Post("/", handler.UploadImage)
	r.Get("/*", handler.ServeImage)
}

// UploadImage accepts a multipart image of at most 5 MiB and returns
// the URL to reference from a card.
func (h *UploadHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if _, err := userIDFromContext(r.Context()); err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldImage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		writeError(w, http.StatusBadRequest, "only image uploads are allowed")
		return
	}

	data, err := readFileLimited(file, maxImageBytes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := uploadKeyPrefix + uuid.NewString() + imageExtension(header.Filename)
	if err := h.storage.Put(r.Context(), key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{URL: uploadURLPathBase + key})
}

// ServeImage streams an uploaded image back to any caller.
func (h *UploadHandler) ServeImage(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "*")
	if key == "" || strings.Contains(key, "..") {
		writeError(w, http.StatusBadRequest, "invalid image key")
		return
	}

	obj, contentType, err := h.storage.Get(r.Context(), key)
	if err != nil {
		writeError(w, http.StatusNotFound, "image not found")
		return
	}
	defer obj.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	_, _ = io.Copy(w, obj)
}

// UploadResponse carries the stored image URL.
type UploadResponse struct {
	URL string `json:"url"`
}

func imageExtension(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg":
		return ext
	default:
		return ""
	}
}

func readFileLimited(reader io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(reader, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("uploaded file exceeds %d bytes", limit)
	}
	return data, nil
}
