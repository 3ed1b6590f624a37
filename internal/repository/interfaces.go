package repository

import (
	"context"
	"errors"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository is the credential store. Lookups return ErrNotFound when no
// row matches; Create and UpdateDetails return ErrDuplicate on a unique clash.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByUsernameOrEmail matches either non-empty identifier.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, fullName, email string) (*domain.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*domain.User, error)
	UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*domain.User, error)
	SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error
	// RotateRefreshToken replaces the stored token only if it still equals current.
	// It reports false when another writer got there first.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) (bool, error)
	ClearRefreshToken(ctx context.Context, id uuid.UUID) error
	PrependWatchHistory(ctx context.Context, id uuid.UUID, videoID uuid.UUID) error
}

type VideoRepository interface {
	Create(ctx context.Context, video *domain.Video) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Video, error)
	// GetWithOwners loads the given videos with owners; missing ids are skipped
	// and the result order is unspecified.
	GetWithOwners(ctx context.Context, ids []uuid.UUID) ([]*domain.Video, error)
	IncrementViews(ctx context.Context, id uuid.UUID) error
}

type ChannelRepository interface {
	// GetProfile returns ErrNotFound when no user has the username.
	GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*domain.ChannelProfile, error)
	Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
	Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error
}

type Repositories struct {
	User    UserRepository
	Video   VideoRepository
	Channel ChannelRepository
}
