package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
)

type ChannelService struct {
	users    repository.UserRepository
	videos   repository.VideoRepository
	channels repository.ChannelRepository
}

func NewChannelService(users repository.UserRepository, videos repository.VideoRepository, channels repository.ChannelRepository) *ChannelService {
	return &ChannelService{users: users, videos: videos, channels: channels}
}

// GetChannelProfile returns the public profile of username as seen by viewerID.
func (s *ChannelService) GetChannelProfile(ctx context.Context, viewerID uuid.UUID, username string) (*domain.ChannelProfile, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, domain.NewValidationError("username is missing")
	}

	profile, err := s.channels.GetProfile(ctx, username, viewerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("channel does not exist")
		}
		slog.ErrorContext(ctx, "failed to load channel", "op", "service.GetChannelProfile", "username", username, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}
	return profile, nil
}

func (s *ChannelService) Subscribe(ctx context.Context, viewerID uuid.UUID, username string) (*domain.ChannelProfile, error) {
	channel, err := s.resolveChannel(ctx, username)
	if err != nil {
		return nil, err
	}
	if channel.ID == viewerID {
		return nil, domain.NewBadRequestError("cannot subscribe to your own channel")
	}

	if err := s.channels.Subscribe(ctx, viewerID, channel.ID); err != nil {
		slog.ErrorContext(ctx, "failed to subscribe", "op", "service.Subscribe", "channel_id", channel.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}
	return s.GetChannelProfile(ctx, viewerID, channel.Username)
}

func (s *ChannelService) Unsubscribe(ctx context.Context, viewerID uuid.UUID, username string) (*domain.ChannelProfile, error) {
	channel, err := s.resolveChannel(ctx, username)
	if err != nil {
		return nil, err
	}

	if err := s.channels.Unsubscribe(ctx, viewerID, channel.ID); err != nil {
		slog.ErrorContext(ctx, "failed to unsubscribe", "op", "service.Unsubscribe", "channel_id", channel.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}
	return s.GetChannelProfile(ctx, viewerID, channel.Username)
}

// GetWatchHistory returns the user's watched videos, most recent first.
// Videos deleted since they were watched are skipped.
func (s *ChannelService) GetWatchHistory(ctx context.Context, userID uuid.UUID) ([]domain.WatchedVideo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("user does not exist")
		}
		return nil, domain.NewInternalError("something went wrong", err)
	}

	history := []domain.WatchedVideo{}
	if len(user.WatchHistory) == 0 {
		return history, nil
	}

	videos, err := s.videos.GetWithOwners(ctx, user.WatchHistory)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load watch history", "op", "service.GetWatchHistory", "user_id", userID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}

	byID := make(map[uuid.UUID]*domain.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	for _, id := range user.WatchHistory {
		if v, ok := byID[id]; ok {
			history = append(history, domain.NewWatchedVideo(v))
		}
	}

	return history, nil
}

// RecordView counts a view and moves the video to the front of the history.
func (s *ChannelService) RecordView(ctx context.Context, userID, videoID uuid.UUID) error {
	if _, err := s.videos.GetByID(ctx, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("video does not exist")
		}
		return domain.NewInternalError("something went wrong", err)
	}

	if err := s.videos.IncrementViews(ctx, videoID); err != nil {
		return domain.NewInternalError("something went wrong", err)
	}

	if err := s.users.PrependWatchHistory(ctx, userID, videoID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewNotFoundError("user does not exist")
		}
		slog.ErrorContext(ctx, "failed to update watch history", "op", "service.RecordView", "user_id", userID, "error", err)
		return domain.NewInternalError("something went wrong", err)
	}
	return nil
}

func (s *ChannelService) resolveChannel(ctx context.Context, username string) (*domain.User, error) {
	username = normalizeUsername(username)
	if username == "" {
		return nil, domain.NewValidationError("username is missing")
	}

	channel, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("channel does not exist")
		}
		return nil, domain.NewInternalError("something went wrong", err)
	}
	return channel, nil
}
