package repository

import (
	"context"
	"fmt"

	"musicshare/core/apperr"
	"musicshare/model"

	"gorm.io/gorm"
)

// AuthorRepository defines the author data operations.
type AuthorRepository interface {
	Create(ctx context.Context, author *model.Author) error
	GetByAlias(ctx context.Context, alias string) (*model.Author, error)
	List(ctx context.Context, page Page) ([]*model.Author, error)
	// DeleteWithTracks removes the author, every track it owns and those
	// tracks' playlist associations in one transaction.
	DeleteWithTracks(ctx context.Context, alias string) error
}

type gormAuthorRepository struct {
	db *gorm.DB
}

// NewGormAuthorRepository creates an author repository backed by GORM.
func NewGormAuthorRepository(db *gorm.DB) AuthorRepository {
	return &gormAuthorRepository{db: db}
}

func (r *gormAuthorRepository) Create(ctx context.Context, author *model.Author) error {
	if err := r.db.WithContext(ctx).Create(author).Error; err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("author %q: %w", author.Alias, apperr.ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create author: %w", err)
	}
	return nil
}

func (r *gormAuthorRepository) GetByAlias(ctx context.Context, alias string) (*model.Author, error) {
	return findAuthor(r.db.WithContext(ctx), alias)
}

func findAuthor(db *gorm.DB, alias string) (*model.Author, error) {
	var author model.Author
	if err := db.Where("alias = ?", alias).First(&author).Error; err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("author %q: %w", alias, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get author %q: %w", alias, err)
	}
	return &author, nil
}

func (r *gormAuthorRepository) List(ctx context.Context, page Page) ([]*model.Author, error) {
	authors := make([]*model.Author, 0)
	err := r.db.WithContext(ctx).
		Scopes(paginate(page)).
		Order("id ASC").
		Find(&authors).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list authors: %w", err)
	}
	return authors, nil
}

func (r *gormAuthorRepository) DeleteWithTracks(ctx context.Context, alias string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		author, err := findAuthor(tx, alias)
		if err != nil {
			return err
		}

		ownedTracks := tx.Model(&model.Track{}).Select("id").Where("author_id = ?", author.ID)
		if err := tx.Where("track_id IN (?)", ownedTracks).Delete(&model.PlaylistTrack{}).Error; err != nil {
			return fmt.Errorf("failed to detach tracks of author %q: %w", alias, err)
		}
		if err := tx.Where("author_id = ?", author.ID).Delete(&model.Track{}).Error; err != nil {
			return fmt.Errorf("failed to delete tracks of author %q: %w", alias, err)
		}
		if err := tx.Delete(&model.Author{}, author.ID).Error; err != nil {
			return fmt.Errorf("failed to delete author %q: %w", alias, err)
		}
		return nil
	})
}
