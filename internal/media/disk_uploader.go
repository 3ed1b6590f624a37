package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskUploader keeps objects under a local directory that the router serves.
type DiskUploader struct {
	root      string
	publicURL string
}

func NewDiskUploader(root, publicURL string) (*DiskUploader, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &DiskUploader{root: root, publicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (u *DiskUploader) Root() string { return u.root }

func (u *DiskUploader) Upload(ctx context.Context, obj Object) (Stored, error) {
	full, err := u.path(obj.Key)
	if err != nil {
		return Stored{}, err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return Stored{}, fmt.Errorf("create object dir: %w", err)
	}
	if err := os.WriteFile(full, obj.Data, 0o644); err != nil {
		return Stored{}, fmt.Errorf("write object %s: %w", obj.Key, err)
	}
	return Stored{Key: obj.Key, URL: u.publicURL + "/" + obj.Key}, nil
}

func (u *DiskUploader) Delete(ctx context.Context, key string) error {
	full, err := u.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

func (u *DiskUploader) KeyForURL(url string) (string, bool) {
	key, ok := keyForURL(u.publicURL, url)
	if !ok {
		return "", false
	}
	if _, err := u.path(key); err != nil {
		return "", false
	}
	return key, true
}

func (u *DiskUploader) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(u.root, clean), nil
}
