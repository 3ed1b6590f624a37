package service_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/media"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/dom/videotube-backend/internal/repository/memory"
	"github.com/dom/videotube-backend/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	testAccessSecret  = "test-access-secret"
	testRefreshSecret = "test-refresh-secret"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []domain.SessionEvent
}

func (n *recordingNotifier) NotifySession(_ uuid.UUID, event domain.SessionEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) Events() []domain.SessionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.SessionEvent(nil), n.events...)
}

type recordingUploader struct {
	media.Uploader
	mu      sync.Mutex
	deleted []string
}

func (u *recordingUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	u.deleted = append(u.deleted, key)
	u.mu.Unlock()
	return u.Uploader.Delete(ctx, key)
}

type harness struct {
	repos    *repository.Repositories
	tokens   *service.TokenService
	hasher   service.PasswordHasher
	notifier *recordingNotifier
	uploader *recordingUploader
	auth     *service.AuthService
	account  *service.AccountService
	channel  *service.ChannelService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	repos := memory.NewRepositories(memory.NewStore())
	tokens, err := service.NewTokenService(service.TokenConfig{
		AccessSecret:  testAccessSecret,
		RefreshSecret: testRefreshSecret,
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    24 * time.Hour,
	})
	require.NoError(t, err)

	disk, err := media.NewDiskUploader(t.TempDir(), "http://test.local/media")
	require.NoError(t, err)

	h := &harness{
		repos:    repos,
		tokens:   tokens,
		hasher:   service.NewBcryptHasher(bcrypt.MinCost),
		notifier: &recordingNotifier{},
		uploader: &recordingUploader{Uploader: disk},
	}
	h.auth = service.NewAuthService(repos.User, tokens, h.hasher, h.notifier, nil)
	h.account = service.NewAccountService(repos.User, h.uploader, h.hasher, 128)
	h.channel = service.NewChannelService(repos.User, repos.Video, repos.Channel)
	return h
}

func (h *harness) createUser(t *testing.T, username, email, password string) *domain.User {
	t.Helper()
	hash, err := h.hasher.Hash(password)
	require.NoError(t, err)

	user := &domain.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		FullName:     "User " + username,
		Avatar:       "http://test.local/media/avatars/" + username + ".png",
		PasswordHash: hash,
	}
	require.NoError(t, h.repos.User.Create(context.Background(), user))
	return user
}

func (h *harness) createVideo(t *testing.T, owner uuid.UUID, title string) *domain.Video {
	t.Helper()
	video := &domain.Video{
		ID:          uuid.New(),
		OwnerID:     owner,
		Title:       title,
		VideoFile:   "http://test.local/media/videos/" + title + ".mp4",
		IsPublished: true,
	}
	require.NoError(t, h.repos.Video.Create(context.Background(), video))
	return video
}

func pngFile(t *testing.T, name string, w, h int) *media.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return &media.File{Name: name, Data: buf.Bytes()}
}

// oversizedPNG declares w by h pixels in its header and carries no pixel data.
func oversizedPNG(name string, w, h uint32) *media.File {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], w)
	binary.BigEndian.PutUint32(ihdr[4:8], h)
	ihdr[8], ihdr[9] = 8, 6

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return &media.File{Name: name, Data: buf.Bytes()}
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind, message string) {
	t.Helper()
	require.Error(t, err)
	appErr := domain.AsAppError(err)
	require.Equal(t, kind, appErr.Kind, "unexpected kind for %v", err)
	if message != "" {
		require.Equal(t, message, appErr.Message)
	}
}
