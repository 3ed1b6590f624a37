package memory

import (
	"context"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
)

type channelRepository struct {
	s *Store
}

func (r *channelRepository) GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*domain.ChannelProfile, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var channel *domain.User
	for _, u := range r.s.users {
		if u.Username == username {
			channel = u
			break
		}
	}
	if channel == nil {
		return nil, repository.ErrNotFound
	}

	profile := &domain.ChannelProfile{
		ID:         channel.ID,
		FullName:   channel.FullName,
		Username:   channel.Username,
		Email:      channel.Email,
		Avatar:     channel.Avatar,
		CoverImage: channel.CoverImage,
	}
	for key := range r.s.subscriptions {
		if key.channel == channel.ID {
			profile.SubscribersCount++
			if key.subscriber == viewerID {
				profile.IsSubscribed = true
			}
		}
		if key.subscriber == channel.ID {
			profile.ChannelsSubscribedToCount++
		}
	}
	return profile, nil
}

func (r *channelRepository) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := subscriptionKey{subscriber: subscriberID, channel: channelID}
	if _, ok := r.s.subscriptions[key]; !ok {
		r.s.subscriptions[key] = r.s.now()
	}
	return nil
}

func (r *channelRepository) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.subscriptions, subscriptionKey{subscriber: subscriberID, channel: channelID})
	return nil
}
