package model

import "time"

// Playlist is a user-curated, unordered set of tracks.
type Playlist struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:255;not null"`
	Alias       string    `json:"alias" gorm:"size:191;uniqueIndex;not null"`
	Description string    `json:"description" gorm:"size:2048"`
	CreatorID   int64     `json:"creatorId" gorm:"index;not null;<-:create"` // immutable after creation
	Creator     *User     `json:"-" gorm:"foreignKey:CreatorID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistInput carries the client-supplied fields of a new playlist.
type PlaylistInput struct {
	Title       string `json:"title"`
	Alias       string `json:"alias"`
	Description string `json:"description"`
}

// PlaylistTrack is the playlist<->track association. The composite primary
// key rejects a second copy of the same pair.
type PlaylistTrack struct {
	PlaylistID int64     `json:"playlistId" gorm:"primaryKey;autoIncrement:false"`
	TrackID    int64     `json:"trackId" gorm:"primaryKey;autoIncrement:false;index"`
	Playlist   *Playlist `json:"-" gorm:"foreignKey:PlaylistID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	Track      *Track    `json:"-" gorm:"foreignKey:TrackID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定表名
func (PlaylistTrack) TableName() string {
	return "association"
}

// PlaylistWithTracks 包含播放列表信息和其包含的歌曲
type PlaylistWithTracks struct {
	Playlist Playlist `json:"playlist"`
	Creator  string   `json:"creator"`
	Tracks   []*Track `json:"tracks"`
}

// All lists every persisted model, in dependency order, for migrations.
func All() []interface{} {
	return []interface{}{&User{}, &Author{}, &Track{}, &Playlist{}, &PlaylistTrack{}}
}
