package repository

import (
	"context"
	"fmt"

	"musicshare/core/apperr"
	"musicshare/model"

	"gorm.io/gorm"
)

// PlaylistRepository defines the playlist and association data operations.
type PlaylistRepository interface {
	Create(ctx context.Context, playlist *model.Playlist) error
	GetByAlias(ctx context.Context, alias string) (*model.Playlist, error)
	List(ctx context.Context, page Page) ([]*model.Playlist, error)
	ListByCreator(ctx context.Context, userID int64) ([]*model.Playlist, error)
	// Tracks returns the tracks of a playlist in insertion order; limit <= 0
	// returns all of them.
	Tracks(ctx context.Context, playlistID int64, limit int) ([]*model.Track, error)
	// AddTrack associates the track with the given alias with the playlist.
	AddTrack(ctx context.Context, playlistID int64, trackAlias string) error
	// Delete removes the playlist and its associations; tracks stay.
	Delete(ctx context.Context, playlistID int64) error
}

type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository creates a playlist repository backed by GORM.
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

func (r *gormPlaylistRepository) Create(ctx context.Context, playlist *model.Playlist) error {
	if err := r.db.WithContext(ctx).Omit("Creator").Create(playlist).Error; err != nil {
		switch {
		case isDuplicateKey(err):
			return fmt.Errorf("playlist %q: %w", playlist.Alias, apperr.ErrAlreadyExists)
		case isForeignKeyViolation(err):
			return fmt.Errorf("creator %d: %w", playlist.CreatorID, apperr.ErrNotFound)
		}
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

func (r *gormPlaylistRepository) GetByAlias(ctx context.Context, alias string) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.db.WithContext(ctx).
		Joins("Creator").
		Where("playlists.alias = ?", alias).
		First(&playlist).Error
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("playlist %q: %w", alias, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get playlist %q: %w", alias, err)
	}
	return &playlist, nil
}

func (r *gormPlaylistRepository) List(ctx context.Context, page Page) ([]*model.Playlist, error) {
	playlists := make([]*model.Playlist, 0)
	err := r.db.WithContext(ctx).
		Joins("Creator").
		Scopes(paginate(page)).
		Order("playlists.id ASC").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

func (r *gormPlaylistRepository) ListByCreator(ctx context.Context, userID int64) ([]*model.Playlist, error) {
	playlists := make([]*model.Playlist, 0)
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", userID).
		Order("id ASC").
		Find(&playlists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists of user %d: %w", userID, err)
	}
	return playlists, nil
}

func (r *gormPlaylistRepository) Tracks(ctx context.Context, playlistID int64, limit int) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	q := r.db.WithContext(ctx).
		Joins("Author").
		Joins("JOIN association ON association.track_id = tracks.id").
		Where("association.playlist_id = ?", playlistID).
		Order("association.created_at ASC").
		Order("tracks.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tracks of playlist %d: %w", playlistID, err)
	}
	return tracks, nil
}

func (r *gormPlaylistRepository) AddTrack(ctx context.Context, playlistID int64, trackAlias string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var track model.Track
		if err := tx.Select("id").Where("alias = ?", trackAlias).First(&track).Error; err != nil {
			if isNotFound(err) {
				return fmt.Errorf("track %q: %w", trackAlias, apperr.ErrNotFound)
			}
			return fmt.Errorf("failed to get track %q: %w", trackAlias, err)
		}

		link := model.PlaylistTrack{PlaylistID: playlistID, TrackID: track.ID}
		if err := tx.Omit("Playlist", "Track").Create(&link).Error; err != nil {
			switch {
			case isDuplicateKey(err):
				return fmt.Errorf("track %q already in playlist: %w", trackAlias, apperr.ErrAlreadyExists)
			case isForeignKeyViolation(err):
				return fmt.Errorf("playlist %d: %w", playlistID, apperr.ErrNotFound)
			}
			return fmt.Errorf("failed to add track %q to playlist %d: %w", trackAlias, playlistID, err)
		}
		return nil
	})
}

func (r *gormPlaylistRepository) Delete(ctx context.Context, playlistID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", playlistID).Delete(&model.PlaylistTrack{}).Error; err != nil {
			return fmt.Errorf("failed to detach tracks of playlist %d: %w", playlistID, err)
		}
		res := tx.Delete(&model.Playlist{}, playlistID)
		if res.Error != nil {
			return fmt.Errorf("failed to delete playlist %d: %w", playlistID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("playlist %d: %w", playlistID, apperr.ErrNotFound)
		}
		return nil
	})
}
