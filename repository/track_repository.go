package repository

import (
	"context"
	"fmt"

	"musicshare/core/apperr"
	"musicshare/model"

	"gorm.io/gorm"
)

// TrackRepository defines the interface for track data operations.
type TrackRepository interface {
	// Create stores the track under the author with the given alias.
	Create(ctx context.Context, authorAlias string, track *model.Track) error
	GetByAlias(ctx context.Context, alias string) (*model.Track, error)
	List(ctx context.Context, page Page) ([]*model.Track, error)
	ListByAuthor(ctx context.Context, authorID int64, page Page) ([]*model.Track, error)
	// Delete removes the track and its playlist associations; playlists stay.
	Delete(ctx context.Context, alias string) error
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a track repository backed by GORM.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

func (r *gormTrackRepository) Create(ctx context.Context, authorAlias string, track *model.Track) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		author, err := findAuthor(tx, authorAlias)
		if err != nil {
			return err
		}

		track.AuthorID = author.ID
		if err := tx.Omit("Author").Create(track).Error; err != nil {
			switch {
			case isDuplicateKey(err):
				return fmt.Errorf("track %q: %w", track.Alias, apperr.ErrAlreadyExists)
			case isForeignKeyViolation(err):
				return fmt.Errorf("author %q: %w", authorAlias, apperr.ErrNotFound)
			}
			return fmt.Errorf("failed to create track: %w", err)
		}
		track.Author = author
		return nil
	})
}

func (r *gormTrackRepository) GetByAlias(ctx context.Context, alias string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		Joins("Author").
		Where("tracks.alias = ?", alias).
		First(&track).Error
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("track %q: %w", alias, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get track %q: %w", alias, err)
	}
	return &track, nil
}

func (r *gormTrackRepository) List(ctx context.Context, page Page) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	err := r.db.WithContext(ctx).
		Joins("Author").
		Scopes(paginate(page)).
		Order("tracks.id ASC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks: %w", err)
	}
	return tracks, nil
}

func (r *gormTrackRepository) ListByAuthor(ctx context.Context, authorID int64, page Page) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	err := r.db.WithContext(ctx).
		Joins("Author").
		Where("tracks.author_id = ?", authorID).
		Scopes(paginate(page)).
		Order("tracks.id ASC").
		Find(&tracks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tracks of author %d: %w", authorID, err)
	}
	return tracks, nil
}

func (r *gormTrackRepository) Delete(ctx context.Context, alias string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var track model.Track
		if err := tx.Where("alias = ?", alias).First(&track).Error; err != nil {
			if isNotFound(err) {
				return fmt.Errorf("track %q: %w", alias, apperr.ErrNotFound)
			}
			return fmt.Errorf("failed to get track %q: %w", alias, err)
		}

		if err := tx.Where("track_id = ?", track.ID).Delete(&model.PlaylistTrack{}).Error; err != nil {
			return fmt.Errorf("failed to detach track %q from playlists: %w", alias, err)
		}
		if err := tx.Delete(&model.Track{}, track.ID).Error; err != nil {
			return fmt.Errorf("failed to delete track %q: %w", alias, err)
		}
		return nil
	})
}
