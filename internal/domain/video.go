package domain

import (
	"time"

	"github.com/google/uuid"
)

type Video struct {
	ID          uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	OwnerID     uuid.UUID `json:"ownerId" gorm:"type:uuid;not null;index"`
	Owner       *User     `json:"-" gorm:"foreignKey:OwnerID"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile" gorm:"not null"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views" gorm:"not null;default:0"`
	IsPublished bool      `json:"isPublished" gorm:"not null;default:true"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// VideoOwner is the public projection of a video's uploader.
type VideoOwner struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"fullName"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
}

// WatchedVideo is a watch-history entry with its owner resolved.
type WatchedVideo struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	VideoFile   string     `json:"videoFile"`
	Thumbnail   string     `json:"thumbnail"`
	Duration    float64    `json:"duration"`
	Views       int64      `json:"views"`
	Owner       VideoOwner `json:"owner"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewWatchedVideo(v *Video) WatchedVideo {
	w := WatchedVideo{
		ID:          v.ID,
		Title:       v.Title,
		Description: v.Description,
		VideoFile:   v.VideoFile,
		Thumbnail:   v.Thumbnail,
		Duration:    v.Duration,
		Views:       v.Views,
		CreatedAt:   v.CreatedAt,
	}
	if v.Owner != nil {
		w.Owner = VideoOwner{
			ID:       v.Owner.ID,
			FullName: v.Owner.FullName,
			Username: v.Owner.Username,
			Avatar:   v.Owner.Avatar,
		}
	} else {
		w.Owner.ID = v.OwnerID
	}
	return w
}
