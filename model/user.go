package model

import "time"

// Rights is a user's privilege level.
type Rights string

const (
	RightsUser  Rights = "user"
	RightsAdmin Rights = "admin"
)

// Valid reports whether r is a known privilege level.
func (r Rights) Valid() bool {
	return r == RightsUser || r == RightsAdmin
}

// User represents a registered account.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	Salt         string    `json:"-" gorm:"size:64;uniqueIndex;not null"` // hex encoded, unique per user
	Rights       Rights    `json:"rights" gorm:"size:20;not null;default:'user'"`
	Bio          string    `json:"bio" gorm:"size:1024;not null;default:''"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user holds admin rights.
func (u *User) IsAdmin() bool {
	return u.Rights == RightsAdmin
}
