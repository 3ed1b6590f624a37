package memory

import (
	"context"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
)

type videoRepository struct {
	s *Store
}

func (r *videoRepository) Create(ctx context.Context, video *domain.Video) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if video.ID == uuid.Nil {
		video.ID = uuid.New()
	}
	if _, ok := r.s.videos[video.ID]; ok {
		return repository.ErrDuplicate
	}
	now := r.s.now()
	if video.CreatedAt.IsZero() {
		video.CreatedAt = now
	}
	video.UpdatedAt = now
	r.s.videos[video.ID] = cloneVideo(video)
	return nil
}

func (r *videoRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Video, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	v, ok := r.s.videos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneVideo(v), nil
}

func (r *videoRepository) GetWithOwners(ctx context.Context, ids []uuid.UUID) ([]*domain.Video, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	videos := make([]*domain.Video, 0, len(ids))
	for _, id := range ids {
		v, ok := r.s.videos[id]
		if !ok {
			continue
		}
		c := cloneVideo(v)
		if owner, ok := r.s.users[v.OwnerID]; ok {
			c.Owner = &domain.User{
				ID:       owner.ID,
				FullName: owner.FullName,
				Username: owner.Username,
				Avatar:   owner.Avatar,
			}
		}
		videos = append(videos, c)
	}
	return videos, nil
}

func (r *videoRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	v, ok := r.s.videos[id]
	if !ok {
		return repository.ErrNotFound
	}
	v.Views++
	return nil
}
