package postgres

import (
	"context"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const channelProfileQuery = `
SELECT
	u.id,
	u.full_name,
	u.username,
	u.email,
	u.avatar,
	u.cover_image,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.channel_id = u.id) AS subscribers_count,
	(SELECT COUNT(*) FROM subscriptions s WHERE s.subscriber_id = u.id) AS channels_subscribed_to_count,
	EXISTS (
		SELECT 1 FROM subscriptions s WHERE s.channel_id = u.id AND s.subscriber_id = ?
	) AS is_subscribed
FROM users u
WHERE u.username = ?`

type channelRepository struct {
	db *gorm.DB
}

func NewChannelRepository(db *gorm.DB) *channelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) GetProfile(ctx context.Context, username string, viewerID uuid.UUID) (*domain.ChannelProfile, error) {
	var profile domain.ChannelProfile
	res := r.db.WithContext(ctx).Raw(channelProfileQuery, viewerID, username).Scan(&profile)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, repository.ErrNotFound
	}
	return &profile, nil
}

func (r *channelRepository) Subscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	sub := &domain.Subscription{
		ID:           uuid.New(),
		SubscriberID: subscriberID,
		ChannelID:    channelID,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(sub).Error
}

func (r *channelRepository) Unsubscribe(ctx context.Context, subscriberID, channelID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Delete(&domain.Subscription{}, "subscriber_id = ? AND channel_id = ?", subscriberID, channelID).
		Error
}
