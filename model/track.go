package model

import "time"

// Track represents a published audio track owned by exactly one Author.
type Track struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Alias       string    `json:"alias" gorm:"size:191;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"size:2048"`
	TrackURL    string    `json:"trackUrl" gorm:"column:track_url;size:255;uniqueIndex;not null"`
	ImageURL    string    `json:"imageUrl" gorm:"column:image_url;size:255"`
	AuthorID    int64     `json:"authorId" gorm:"index;not null"`
	Author      *Author   `json:"author,omitempty" gorm:"foreignKey:AuthorID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	// Served locations of the media, filled in for responses only.
	AudioPath string `json:"audioPath,omitempty" gorm:"-"`
	ImagePath string `json:"imagePath,omitempty" gorm:"-"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

// TrackInput carries the client-supplied fields of a new track.
type TrackInput struct {
	Title       string `json:"title"`
	Alias       string `json:"alias"`
	Description string `json:"description"`
	TrackURL    string `json:"track_url"`
	ImageURL    string `json:"image_url"`
}

// Decorate fills the media paths the web client loads audio and cover art
// from. References that servable rejects (external URLs, nested keys) get no
// path; clients use the raw reference instead.
func (t *Track) Decorate(servable func(ref string) bool) *Track {
	if t.TrackURL != "" && servable(t.TrackURL) {
		t.AudioPath = "/audio/" + t.TrackURL
	}
	if t.ImageURL != "" && servable(t.ImageURL) {
		t.ImagePath = "/img/" + t.ImageURL
	}
	return t
}
