// Package media stores user-supplied images and hands back public URLs.
package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// File is an upload as received from a client.
type File struct {
	Name string
	Data []byte
}

type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

type Stored struct {
	Key string
	URL string
}

type Uploader interface {
	Upload(ctx context.Context, obj Object) (Stored, error)
	Delete(ctx context.Context, key string) error
	// KeyForURL maps a URL returned by Upload back to its key. It reports
	// false for URLs this uploader did not produce.
	KeyForURL(url string) (string, bool)
}

func keyForURL(publicURL, url string) (string, bool) {
	key, ok := strings.CutPrefix(url, publicURL+"/")
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// NewObjectKey builds a collision-free key such as avatars/2024/05/<uuid>.png.
func NewObjectKey(folder, contentType string) string {
	now := time.Now().UTC()
	name := uuid.NewString() + extensions[contentType]
	return path.Join(folder, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", int(now.Month())), name)
}
