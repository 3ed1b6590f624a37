package postgres

import (
	"context"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	if user.WatchHistory == nil {
		user.WatchHistory = datatypes.JSONSlice[uuid.UUID]{}
	}
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, "username = ?", username).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	q := r.db.WithContext(ctx)
	switch {
	case username != "" && email != "":
		q = q.Where("username = ? OR email = ?", username, email)
	case username != "":
		q = q.Where("username = ?", username)
	case email != "":
		q = q.Where("email = ?", email)
	default:
		return nil, repository.ErrNotFound
	}

	var user domain.User
	if err := q.First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *userRepository) UpdateDetails(ctx context.Context, id uuid.UUID, fullName, email string) (*domain.User, error) {
	return r.updateAndFetch(ctx, id, map[string]any{
		"full_name": fullName,
		"email":     email,
	})
}

func (r *userRepository) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(ctx, id, map[string]any{"password_hash": hash})
}

func (r *userRepository) UpdateAvatar(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	return r.updateAndFetch(ctx, id, map[string]any{"avatar": url})
}

func (r *userRepository) UpdateCoverImage(ctx context.Context, id uuid.UUID, url string) (*domain.User, error) {
	return r.updateAndFetch(ctx, id, map[string]any{"cover_image": url})
}

func (r *userRepository) SetRefreshToken(ctx context.Context, id uuid.UUID, token string) error {
	return r.update(ctx, id, map[string]any{"refresh_token": token})
}

func (r *userRepository) RotateRefreshToken(ctx context.Context, id uuid.UUID, current, next string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("id = ? AND refresh_token = ?", id, current).
		Update("refresh_token", next)
	if res.Error != nil {
		return false, translateError(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *userRepository) ClearRefreshToken(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{"refresh_token": nil})
}

func (r *userRepository) PrependWatchHistory(ctx context.Context, id uuid.UUID, videoID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user domain.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id", "watch_history").
			First(&user, "id = ?", id).Error
		if err != nil {
			return translateError(err)
		}

		history := datatypes.JSONSlice[uuid.UUID](domain.WithWatched(user.WatchHistory, videoID))
		return tx.Model(&domain.User{}).
			Where("id = ?", id).
			Update("watch_history", history).Error
	})
}

func (r *userRepository) update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translateError(res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepository) updateAndFetch(ctx context.Context, id uuid.UUID, fields map[string]any) (*domain.User, error) {
	if err := r.update(ctx, id, fields); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}
