// Package memory is an in-process store behind the repository interfaces.
// It backs STORE_DRIVER=memory for local runs and the service and handler tests.
package memory

import (
	"sync"
	"time"

	"github.com/dom/videotube-backend/internal/domain"
	"github.com/dom/videotube-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type subscriptionKey struct {
	subscriber uuid.UUID
	channel    uuid.UUID
}

// Store holds every table behind one lock, so each method is atomic the way a
// single-row update is in the postgres store.
type Store struct {
	mu            sync.RWMutex
	users         map[uuid.UUID]*domain.User
	videos        map[uuid.UUID]*domain.Video
	subscriptions map[subscriptionKey]time.Time
	now           func() time.Time
}

func NewStore() *Store {
	return &Store{
		users:         make(map[uuid.UUID]*domain.User),
		videos:        make(map[uuid.UUID]*domain.Video),
		subscriptions: make(map[subscriptionKey]time.Time),
		now:           time.Now,
	}
}

func NewRepositories(s *Store) *repository.Repositories {
	return &repository.Repositories{
		User:    &userRepository{s: s},
		Video:   &videoRepository{s: s},
		Channel: &channelRepository{s: s},
	}
}

// cloneUser copies u so callers never share the stored pointer.
func cloneUser(u *domain.User) *domain.User {
	c := *u
	if u.RefreshToken != nil {
		token := *u.RefreshToken
		c.RefreshToken = &token
	}
	c.WatchHistory = append(datatypes.JSONSlice[uuid.UUID]{}, u.WatchHistory...)
	return &c
}

func cloneVideo(v *domain.Video) *domain.Video {
	c := *v
	c.Owner = nil
	return &c
}
