package service

import (
	"github.com/dom/videotube-backend/internal/config"
	"github.com/dom/videotube-backend/internal/media"
	"github.com/dom/videotube-backend/internal/repository"
)

type Services struct {
	Auth    *AuthService
	Account *AccountService
	Channel *ChannelService
	Tokens  *TokenService
}

func NewServices(repos *repository.Repositories, uploader media.Uploader, notifier SessionNotifier, recorder EventRecorder, cfg *config.Config) (*Services, error) {
	tokens, err := NewTokenService(TokenConfig{
		AccessSecret:  cfg.AccessTokenSecret,
		RefreshSecret: cfg.RefreshTokenSecret,
		AccessTTL:     cfg.AccessTokenExpiry,
		RefreshTTL:    cfg.RefreshTokenExpiry,
	})
	if err != nil {
		return nil, err
	}

	hasher := NewBcryptHasher(cfg.BcryptCost)

	return &Services{
		Auth:    NewAuthService(repos.User, tokens, hasher, notifier, recorder),
		Account: NewAccountService(repos.User, uploader, hasher, cfg.AvatarMaxWidth),
		Channel: NewChannelService(repos.User, repos.Video, repos.Channel),
		Tokens:  tokens,
	}, nil
}
