package server

import (
	"net/http"

	"musicshare/model"
)

// CreatePlaylistHandler creates a playlist owned by the caller.
func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var in model.PlaylistInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := identityFrom(r.Context())
	playlist, err := h.catalog.CreatePlaylist(r.Context(), id, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// AddTrackToPlaylistHandler 添加歌曲到播放列表 (creator or admin)
func (h *APIHandler) AddTrackToPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	playlistAlias, err := aliasVar(r, "playlist")
	if err != nil {
		writeError(w, r, err)
		return
	}
	trackAlias, err := aliasVar(r, "track")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := identityFrom(r.Context())
	playlist, err := h.catalog.AddTrackToPlaylist(r.Context(), id, playlistAlias, trackAlias)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// ListPlaylistsHandler returns playlists with their first few tracks.
func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.catalog.ListPlaylists(r.Context(), pageFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	playlist, err := h.catalog.GetPlaylist(r.Context(), alias)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

// DeletePlaylistHandler 删除播放列表 (creator or admin)
func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	alias, err := aliasVar(r, "alias")
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, _ := identityFrom(r.Context())
	if err := h.catalog.DeletePlaylist(r.Context(), id, alias); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deleted": alias})
}
