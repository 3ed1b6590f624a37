package service

import (
	"context"
	"errors"
	"html"
	"log/slog"
	"strings"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/media"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
)

const (
	avatarFolder = "avatars"
	coverFolder  = "covers"
)

type AccountService struct {
	users          repository.UserRepository
	uploader       media.Uploader
	hasher         PasswordHasher
	policy         *bluemonday.Policy
	validate       *validator.Validate
	avatarMaxWidth int
}

func NewAccountService(users repository.UserRepository, uploader media.Uploader, hasher PasswordHasher, avatarMaxWidth int) *AccountService {
	return &AccountService{
		users:          users,
		uploader:       uploader,
		hasher:         hasher,
		policy:         bluemonday.StrictPolicy(),
		validate:       validator.New(),
		avatarMaxWidth: avatarMaxWidth,
	}
}

type RegisterInput struct {
	FullName   string
	Email      string
	Username   string
	Password   string
	Avatar     *media.File
	CoverImage *media.File
}

func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	fullName := s.cleanName(input.FullName)
	email := strings.TrimSpace(input.Email)
	username := normalizeUsername(input.Username)

	if fullName == "" || email == "" || username == "" || strings.TrimSpace(input.Password) == "" {
		return nil, domain.NewValidationError("all fields are required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, domain.NewValidationError("email is invalid")
	}
	if len(input.Password) > maxPasswordBytes {
		return nil, domain.NewValidationError("password must be at most 72 bytes")
	}

	_, err := s.users.FindByUsernameOrEmail(ctx, username, email)
	if err == nil {
		return nil, domain.NewConflictError("user with email or username already exists")
	}
	if !errors.Is(err, repository.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to check existing user", "op", "service.Register", "error", err)
		return nil, domain.NewInternalError("something went wrong while registering the user", err)
	}

	if input.Avatar == nil || len(input.Avatar.Data) == 0 {
		return nil, domain.NewValidationError("avatar file is required")
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, domain.NewInternalError("something went wrong while registering the user", err)
	}

	avatar, err := s.store(ctx, avatarFolder, input.Avatar)
	if err != nil {
		return nil, err
	}
	if avatar.URL == "" {
		return nil, domain.NewValidationError("avatar file is required")
	}
	uploaded := []media.Stored{avatar}

	var cover media.Stored
	if input.CoverImage != nil && len(input.CoverImage.Data) > 0 {
		cover, err = s.store(ctx, coverFolder, input.CoverImage)
		if err != nil {
			s.discard(ctx, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, cover)
	}

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     fullName,
		Avatar:       avatar.URL,
		CoverImage:   cover.URL,
		PasswordHash: hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		s.discard(ctx, uploaded)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.NewConflictError("user with email or username already exists")
		}
		slog.ErrorContext(ctx, "failed to create user", "op", "service.Register", "error", err)
		return nil, domain.NewInternalError("something went wrong while registering the user", err)
	}

	created, err := s.users.GetByID(ctx, user.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to reload user", "op", "service.Register", "user_id", user.ID, "error", err)
		return nil, domain.NewInternalError("something went wrong while registering the user", err)
	}

	return created.Sanitized(), nil
}

func (s *AccountService) UpdateDetails(ctx context.Context, userID uuid.UUID, fullName, email string) (*domain.User, error) {
	fullName = s.cleanName(fullName)
	email = strings.TrimSpace(email)
	if fullName == "" || email == "" {
		return nil, domain.NewValidationError("all fields are required")
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return nil, domain.NewValidationError("email is invalid")
	}

	user, err := s.users.UpdateDetails(ctx, userID, fullName, email)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return nil, domain.NewConflictError("email is already in use")
		case errors.Is(err, repository.ErrNotFound):
			return nil, domain.NewNotFoundError("user does not exist")
		}
		slog.ErrorContext(ctx, "failed to update details", "op", "service.UpdateDetails", "user_id", userID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}

	return user.Sanitized(), nil
}

func (s *AccountService) UpdateAvatar(ctx context.Context, userID uuid.UUID, file *media.File) (*domain.User, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, domain.NewValidationError("avatar file is missing")
	}
	return s.replaceImage(ctx, userID, avatarFolder, file, "error while uploading avatar", s.users.UpdateAvatar)
}

func (s *AccountService) UpdateCoverImage(ctx context.Context, userID uuid.UUID, file *media.File) (*domain.User, error) {
	if file == nil || len(file.Data) == 0 {
		return nil, domain.NewValidationError("cover image file is missing")
	}
	return s.replaceImage(ctx, userID, coverFolder, file, "error while uploading cover image", s.users.UpdateCoverImage)
}

func (s *AccountService) replaceImage(
	ctx context.Context,
	userID uuid.UUID,
	folder string,
	file *media.File,
	uploadFailed string,
	save func(context.Context, uuid.UUID, string) (*domain.User, error),
) (*domain.User, error) {
	current, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("user does not exist")
		}
		slog.ErrorContext(ctx, "failed to load user", "op", "service.replaceImage", "user_id", userID, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}
	previous := current.Avatar
	if folder == coverFolder {
		previous = current.CoverImage
	}

	stored, err := s.store(ctx, folder, file)
	if err != nil {
		return nil, err
	}
	if stored.URL == "" {
		return nil, domain.NewBadRequestError(uploadFailed)
	}

	user, err := save(ctx, userID, stored.URL)
	if err != nil {
		s.discard(ctx, []media.Stored{stored})
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.NewNotFoundError("user does not exist")
		}
		slog.ErrorContext(ctx, "failed to save image url", "op", "service.replaceImage", "user_id", userID, "folder", folder, "error", err)
		return nil, domain.NewInternalError("something went wrong", err)
	}

	if key, ok := s.uploader.KeyForURL(previous); ok && key != stored.Key {
		s.discard(ctx, []media.Stored{{Key: key}})
	}

	return user.Sanitized(), nil
}

func (s *AccountService) store(ctx context.Context, folder string, file *media.File) (media.Stored, error) {
	data, contentType, err := media.NormalizeImage(file.Data, s.avatarMaxWidth)
	if err != nil {
		switch {
		case errors.Is(err, media.ErrUnsupportedImage):
			return media.Stored{}, domain.NewValidationError("unsupported image type", file.Name)
		case errors.Is(err, media.ErrImageTooLarge):
			return media.Stored{}, domain.NewValidationError("image is too large", file.Name)
		}
		return media.Stored{}, domain.NewInternalError("something went wrong while processing the image", err)
	}

	stored, err := s.uploader.Upload(ctx, media.Object{
		Key:         media.NewObjectKey(folder, contentType),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to upload image", "op", "service.store", "folder", folder, "error", err)
		return media.Stored{}, domain.NewInternalError("something went wrong while uploading the file", err)
	}
	return stored, nil
}

// discard removes blobs that no user row points at. Failures are only logged.
func (s *AccountService) discard(ctx context.Context, objects []media.Stored) {
	for _, obj := range objects {
		if obj.Key == "" {
			continue
		}
		if err := s.uploader.Delete(ctx, obj.Key); err != nil {
			slog.WarnContext(ctx, "failed to delete unreferenced upload", "op", "service.discard", "key", obj.Key, "error", err)
		}
	}
}

const maxCleanPasses = 4

// cleanName strips markup from a display name and stores it as plain text.
// Entities are decoded before sanitizing so encoded tags cannot survive as
// real ones, and the pass repeats until nested encodings are exhausted.
func (s *AccountService) cleanName(name string) string {
	for i := 0; i < maxCleanPasses; i++ {
		next := html.UnescapeString(s.policy.Sanitize(html.UnescapeString(name)))
		if next == name {
			return strings.TrimSpace(name)
		}
		name = next
	}
	return strings.TrimSpace(strings.NewReplacer("<", "", ">", "").Replace(name))
}
