package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/taskkart/backend/internal/files"
)

// FileHandler hands out short-lived URLs for stored files.
type FileHandler struct {
	Files  files.Store
	Logger *slog.Logger
}

const filesPrefix = "/api/v1/files/"

// URL handles GET /api/v1/files/{key}/view and /api/v1/files/{key}/download.
// The response carries a presigned URL the client follows directly.
func (h *FileHandler) URL(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, filesPrefix)
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" {
		http.Error(w, `{"error":"invalid file path"}`, http.StatusBadRequest)
		return
	}
	key, mode := parts[0], parts[1]

	var (
		url string
		err error
	)
	switch mode {
	case "view":
		url, err = h.Files.ViewURL(key)
	case "download":
		filename := r.URL.Query().Get("name")
		if filename == "" {
			filename = key
		}
		url, err = h.Files.DownloadURL(key, filename)
	default:
		http.Error(w, `{"error":"unknown file action"}`, http.StatusNotFound)
		return
	}
	if err != nil {
		h.Logger.Error("presign file url", "key", key, "error", err)
		http.Error(w, `{"error":"failed to sign url"}`, http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
