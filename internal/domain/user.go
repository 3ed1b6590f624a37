package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID           uuid.UUID                      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Username     string                         `json:"username" gorm:"uniqueIndex;not null"`
	Email        string                         `json:"email" gorm:"uniqueIndex;not null"`
	FullName     string                         `json:"fullName" gorm:"not null"`
	Avatar       string                         `json:"avatar" gorm:"not null"`
	CoverImage   string                         `json:"coverImage"`
	PasswordHash string                         `json:"-" gorm:"not null"`
	RefreshToken *string                        `json:"-"`
	WatchHistory datatypes.JSONSlice[uuid.UUID] `json:"watchHistory" gorm:"type:jsonb;not null;default:'[]'"`
	CreatedAt    time.Time                      `json:"createdAt"`
	UpdatedAt    time.Time                      `json:"updatedAt"`
}

// HasSession reports whether the user currently holds a refresh token.
func (u *User) HasSession() bool {
	return u.RefreshToken != nil && *u.RefreshToken != ""
}

// Sanitized returns a copy without the password hash and stored refresh token.
// JSON encoding already drops both; the copy keeps them out of logs and events too.
func (u *User) Sanitized() *User {
	c := *u
	c.PasswordHash = ""
	c.RefreshToken = nil
	if u.WatchHistory != nil {
		c.WatchHistory = append(datatypes.JSONSlice[uuid.UUID]{}, u.WatchHistory...)
	}
	return &c
}

// WithWatched returns history with videoID moved to the front, dropping any
// earlier occurrence so each video appears once.
func WithWatched(history []uuid.UUID, videoID uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(history)+1)
	out = append(out, videoID)
	for _, id := range history {
		if id != videoID {
			out = append(out, id)
		}
	}
	return out
}
