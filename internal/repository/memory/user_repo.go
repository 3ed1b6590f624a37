package memory

import (
	"context"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type userRepository struct {
	s *Store
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if _, ok := r.s.users[user.ID]; ok {
		return repository.ErrDuplicate
	}

	now := r.s.now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	if user.WatchHistory == nil {
		user.WatchHistory = datatypes.JSONSlice[uuid.UUID]{}
	}

	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	if username == "" && email == "" {
		return nil, repository.ErrNotFound
	}
	for _, u := range r.s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *userRepository) UpdateDetails(ctx context.Context, id uuid.UUID, fullName, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	for otherID, other := range r.s.users {
		if otherID != id && other.Email == email {
			return nil, repository.ErrDuplicate
		}
	}
	u.FullName = fullName
	u.Email = email
	u.UpdatedAt = r.s.now()
	return cloneUser(u), nil
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.mutate(id, func(u *domain.User) { u.PasswordHash = hash })
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	if err := r.mutate(id, func(u *domain.User) { u.Avatar = url }); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	if err := r.mutate(id, func(u *domain.User) { u.CoverImage = url }); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *userRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.mutate(id, func(u *domain.User) { u.RefreshToken = &token })
}

func (r *userRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok || u.RefreshToken == nil || *u.RefreshToken != current {
		return false, nil
	}
	u.RefreshToken = &next
	u.UpdatedAt = r.s.now()
	return true, nil
}

func (r *userRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return r.mutate(id, func(u *domain.User) { u.RefreshToken = nil })
}

func (r *userRepository) PrependWatchHistory(ctx context.Context, id uuid.UUID, videoID uuid.UUID) error {
	return r.mutate(id, func(u *domain.User) {
		u.WatchHistory = domain.WithWatched(u.WatchHistory, videoID)
	})
}

// Delete removes a user outright. Only tests use it, to model an account
// that disappears while its tokens are still live.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
}

func (r *userRepository) mutate(id uuid.UUID, fn func(u *domain.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = r.s.now()
	return nil
}
