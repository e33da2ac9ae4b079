package server

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"musicshare/core/apperr"
	"musicshare/core/auth"
	"musicshare/core/catalog"
	"musicshare/logger"
	"musicshare/storage"

	"github.com/gorilla/mux"
)

const maxUploadBytes = 64 << 20

func (h *APIHandler) mediaDisabled(w http.ResponseWriter) bool {
	if h.media != nil {
		return false
	}
	writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: storage.ErrMediaDisabled.Error()})
	return true
}

// UploadMediaHandler stores an audio file or cover image (admin). The returned
// name is what a track's track_url or image_url refers to.
func (h *APIHandler) UploadMediaHandler(w http.ResponseWriter, r *http.Request) {
	if h.mediaDisabled(w) {
		return
	}
	id, _ := identityFrom(r.Context())
	if err := auth.RequireAdmin(id); err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeError(w, r, fmt.Errorf("%w: invalid multipart body", apperr.ErrInvalidFormat))
		return
	}
	kind, err := storage.ParseKind(r.FormValue("kind"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, fmt.Errorf("%w: missing file", apperr.ErrInvalidFormat))
		return
	}
	defer file.Close()

	name := r.FormValue("name")
	if name == "" {
		name = path.Base(header.Filename)
	}
	if kind == storage.KindAudio {
		err = catalog.ValidateMediaExtension(name)
	} else {
		err = catalog.ValidateImageExtension(name)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	key, err := storage.ObjectKey(kind, name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	info, err := h.media.Put(r.Context(), key, file, header.Size, storage.ContentType(name))
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger.Info("Media uploaded",
		logger.String("key", key),
		logger.Int64("size", info.Size),
		logger.String("by", id.Username))
	writeJSON(w, http.StatusOK, map[string]interface{}{"name": name, "key": key, "size": info.Size})
}

// MediaHandler streams objects of one kind, e.g. GET /audio/{name}.
func (h *APIHandler) MediaHandler(kind storage.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.mediaDisabled(w) {
			return
		}
		key, err := storage.ObjectKey(kind, mux.Vars(r)["name"])
		if err != nil {
			writeError(w, r, err)
			return
		}

		obj, err := h.media.Get(r.Context(), key)
		if err != nil {
			writeError(w, r, err)
			return
		}
		defer obj.Close()

		contentType := obj.ContentType
		if contentType == "" || contentType == "application/octet-stream" {
			contentType = storage.ContentType(key)
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=31536000") // 缓存一年

		// Seekable objects get range support, which audio players rely on.
		if rs, ok := obj.ReadCloser.(io.ReadSeeker); ok {
			http.ServeContent(w, r, key, obj.LastModified, rs)
			return
		}
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
		if _, err := io.Copy(w, obj); err != nil {
			logger.Error("Error serving media", logger.String("key", key), logger.ErrorField(err))
		}
	}
}
