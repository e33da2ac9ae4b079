package model

import "time"

// Author publishes tracks. Name and Alias are both globally unique.
type Author struct {
	ID        int64     `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"size:191;uniqueIndex;not null"`
	Alias     string    `json:"alias" gorm:"size:191;uniqueIndex;not null"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Author) TableName() string {
	return "authors"
}

// AuthorWithTracks is an author together with the tracks they own.
type AuthorWithTracks struct {
	Author Author   `json:"author"`
	Tracks []*Track `json:"tracks"`
}
