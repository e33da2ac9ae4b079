// Package catalog implements the author, track and playlist operations. Every
// mutation checks the caller's rights before touching the store.
package catalog

import (
	"context"
	"fmt"
	"strings"

	"musicshare/core/apperr"
	"musicshare/core/auth"
	applog "musicshare/logger"
	"musicshare/model"
	"musicshare/repository"
	"musicshare/storage"
)

// PlaylistPreviewSize is how many tracks the playlist overview shows per playlist.
const PlaylistPreviewSize = 5

// withPaths sets the served media paths for references that name a single
// object in the media store.
func withPaths(t *model.Track) *model.Track {
	return t.Decorate(func(ref string) bool { return storage.ValidateName(ref) == nil })
}

// Service 曲库服务
type Service struct {
	authors   repository.AuthorRepository
	tracks    repository.TrackRepository
	playlists repository.PlaylistRepository
}

// NewService creates the catalog service.
func NewService(authors repository.AuthorRepository, tracks repository.TrackRepository, playlists repository.PlaylistRepository) *Service {
	return &Service{authors: authors, tracks: tracks, playlists: playlists}
}

func requireText(field, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%w: %s must not be empty", apperr.ErrInvalidFormat, field)
	}
	return value, nil
}

// CreateAuthor adds an author. Admin only.
func (s *Service) CreateAuthor(ctx context.Context, id auth.Identity, name, alias string) (*model.Author, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return nil, err
	}
	name, err := requireText("name", name)
	if err != nil {
		return nil, err
	}
	if err := ValidateAlias(alias); err != nil {
		return nil, err
	}

	author := &model.Author{Name: name, Alias: alias}
	if err := s.authors.Create(ctx, author); err != nil {
		return nil, err
	}
	applog.Info("Author created", applog.String("alias", alias), applog.String("by", id.Username))
	return author, nil
}

// DeleteAuthor removes an author together with its tracks. Admin only.
func (s *Service) DeleteAuthor(ctx context.Context, id auth.Identity, alias string) error {
	if err := auth.RequireAdmin(id); err != nil {
		return err
	}
	if err := s.authors.DeleteWithTracks(ctx, alias); err != nil {
		return err
	}
	applog.Info("Author deleted", applog.String("alias", alias), applog.String("by", id.Username))
	return nil
}

// CreateTrack publishes a track under the author with authorAlias. Admin only.
func (s *Service) CreateTrack(ctx context.Context, id auth.Identity, authorAlias string, in model.TrackInput) (*model.Track, error) {
	if err := auth.RequireAdmin(id); err != nil {
		return nil, err
	}
	if err := ValidateMediaExtension(in.TrackURL); err != nil {
		return nil, err
	}
	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	if err := ValidateAlias(in.Alias); err != nil {
		return nil, err
	}

	track := &model.Track{
		Title:       title,
		Alias:       in.Alias,
		Description: in.Description,
		TrackURL:    in.TrackURL,
		ImageURL:    in.ImageURL,
	}
	if err := s.tracks.Create(ctx, authorAlias, track); err != nil {
		return nil, err
	}
	applog.Info("Track created",
		applog.String("alias", track.Alias),
		applog.String("author", authorAlias),
		applog.String("by", id.Username))
	return withPaths(track), nil
}

// DeleteTrack removes a track and detaches it from every playlist. Admin only.
func (s *Service) DeleteTrack(ctx context.Context, id auth.Identity, alias string) error {
	if err := auth.RequireAdmin(id); err != nil {
		return err
	}
	if err := s.tracks.Delete(ctx, alias); err != nil {
		return err
	}
	applog.Info("Track deleted", applog.String("alias", alias), applog.String("by", id.Username))
	return nil
}

// CreatePlaylist creates an empty playlist owned by the caller.
func (s *Service) CreatePlaylist(ctx context.Context, id auth.Identity, in model.PlaylistInput) (*model.Playlist, error) {
	title, err := requireText("title", in.Title)
	if err != nil {
		return nil, err
	}
	if err := ValidateAlias(in.Alias); err != nil {
		return nil, err
	}

	playlist := &model.Playlist{
		Title:       title,
		Alias:       in.Alias,
		Description: in.Description,
		CreatorID:   id.UserID,
	}
	if err := s.playlists.Create(ctx, playlist); err != nil {
		return nil, err
	}
	return playlist, nil
}

// AddTrackToPlaylist appends a track to a playlist the caller owns (or any
// playlist for an admin) and returns the updated playlist.
func (s *Service) AddTrackToPlaylist(ctx context.Context, id auth.Identity, playlistAlias, trackAlias string) (*model.PlaylistWithTracks, error) {
	playlist, err := s.playlists.GetByAlias(ctx, playlistAlias)
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrAdmin(id, playlist.CreatorID); err != nil {
		return nil, err
	}
	if err := s.playlists.AddTrack(ctx, playlist.ID, trackAlias); err != nil {
		return nil, err
	}
	return s.withTracks(ctx, playlist, 0)
}

// DeletePlaylist removes a playlist the caller owns (or any playlist for an admin).
func (s *Service) DeletePlaylist(ctx context.Context, id auth.Identity, alias string) error {
	playlist, err := s.playlists.GetByAlias(ctx, alias)
	if err != nil {
		return err
	}
	if err := auth.RequireOwnerOrAdmin(id, playlist.CreatorID); err != nil {
		return err
	}
	if err := s.playlists.Delete(ctx, playlist.ID); err != nil {
		return err
	}
	applog.Info("Playlist deleted", applog.String("alias", alias), applog.String("by", id.Username))
	return nil
}

func (s *Service) ListAuthors(ctx context.Context, page repository.Page) ([]*model.Author, error) {
	return s.authors.List(ctx, page)
}

func (s *Service) ListTracks(ctx context.Context, page repository.Page) ([]*model.Track, error) {
	tracks, err := s.tracks.List(ctx, page)
	if err != nil {
		return nil, err
	}
	return decorate(tracks), nil
}

// ListPlaylists returns playlists with their creator and first tracks.
func (s *Service) ListPlaylists(ctx context.Context, page repository.Page) ([]*model.PlaylistWithTracks, error) {
	playlists, err := s.playlists.List(ctx, page)
	if err != nil {
		return nil, err
	}
	out := make([]*model.PlaylistWithTracks, 0, len(playlists))
	for _, p := range playlists {
		pw, err := s.withTracks(ctx, p, PlaylistPreviewSize)
		if err != nil {
			return nil, err
		}
		out = append(out, pw)
	}
	return out, nil
}

// GetAuthor returns an author with its tracks.
func (s *Service) GetAuthor(ctx context.Context, alias string) (*model.AuthorWithTracks, error) {
	author, err := s.authors.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	tracks, err := s.tracks.ListByAuthor(ctx, author.ID, repository.Page{Limit: repository.MaxPageLimit})
	if err != nil {
		return nil, err
	}
	return &model.AuthorWithTracks{Author: *author, Tracks: decorate(tracks)}, nil
}

// GetTrack returns a track with its author.
func (s *Service) GetTrack(ctx context.Context, alias string) (*model.Track, error) {
	track, err := s.tracks.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	return withPaths(track), nil
}

// GetPlaylist returns a playlist with all its tracks and its creator's name.
func (s *Service) GetPlaylist(ctx context.Context, alias string) (*model.PlaylistWithTracks, error) {
	playlist, err := s.playlists.GetByAlias(ctx, alias)
	if err != nil {
		return nil, err
	}
	return s.withTracks(ctx, playlist, 0)
}

func (s *Service) ListTracksByAuthor(ctx context.Context, authorAlias string, page repository.Page) ([]*model.Track, error) {
	author, err := s.authors.GetByAlias(ctx, authorAlias)
	if err != nil {
		return nil, err
	}
	tracks, err := s.tracks.ListByAuthor(ctx, author.ID, page)
	if err != nil {
		return nil, err
	}
	return decorate(tracks), nil
}

func (s *Service) withTracks(ctx context.Context, p *model.Playlist, limit int) (*model.PlaylistWithTracks, error) {
	tracks, err := s.playlists.Tracks(ctx, p.ID, limit)
	if err != nil {
		return nil, err
	}
	pw := &model.PlaylistWithTracks{Playlist: *p, Tracks: decorate(tracks)}
	if p.Creator != nil {
		pw.Creator = p.Creator.Username
	}
	return pw, nil
}

func decorate(tracks []*model.Track) []*model.Track {
	for _, t := range tracks {
		withPaths(t)
	}
	return tracks
}
