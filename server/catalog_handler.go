package server

import (
	"net/http"

	"musicshare/model"
)

// ListAuthorsHandler 获取作者列表
func (h *APIHandler) ListAuthorsHandler(w http.ResponseWriter, r *http.Request) {
	authors, err := h.catalog.ListAuthors(r.Context(), pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, authors)
}

// GetAuthorHandler returns an author with its tracks.
func (h *APIHandler) GetAuthorHandler(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	author, err := h.catalog.GetAuthor(r.Context(), alias)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// ListAuthorTracksHandler pages through the tracks of one author.
func (h *APIHandler) ListAuthorTracksHandler(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tracks, err := h.catalog.ListTracksByAuthor(r.Context(), alias, pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

// ListTracksHandler 获取歌曲列表
func (h *APIHandler) ListTracksHandler(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.catalog.ListTracks(r.Context(), pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *APIHandler) GetTrackHandler(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	track, err := h.catalog.GetTrack(r.Context(), alias)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

type authorRequest struct {
	Name  string `json:"name"`
	Alias string `json:"alias"`
}

// CreateAuthorHandler 创建作者 (admin)
func (h *APIHandler) CreateAuthorHandler(w http.ResponseWriter, r *http.Request) {
	var req authorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := identityFrom(r.Context())
	author, err := h.catalog.CreateAuthor(r.Context(), id, req.Name, req.Alias)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, author)
}

// CreateTrackHandler 为作者创建歌曲 (admin)
func (h *APIHandler) CreateTrackHandler(w http.ResponseWriter, r *http.Request) {
	authorAlias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in model.TrackInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := identityFrom(r.Context())
	track, err := h.catalog.CreateTrack(r.Context(), id, authorAlias, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

// DeleteAuthorHandler removes an author and all of its tracks (admin).
func (h *APIHandler) DeleteAuthorHandler(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := identityFrom(r.Context())
	if err := h.catalog.DeleteAuthor(r.Context(), id, alias); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": alias})
}

// DeleteTrackHandler 删除歌曲 (admin)
func (h *APIHandler) DeleteTrackHandler(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := identityFrom(r.Context())
	if err := h.catalog.DeleteTrack(r.Context(), id, alias); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": alias})
}
