package objstore

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/brogergvhs/novelpipe/internal/util"
)

// FSBucket maps keys to files below Root.
type FSBucket struct {
	Root      string
	PublicURL string
}

func NewFSBucket(root, publicURL string) *FSBucket {
	return &FSBucket{Root: root, PublicURL: publicURL}
}

func (b *FSBucket) path(key string) string {
	return filepath.Join(b.Root, filepath.FromSlash(key))
}

func (b *FSBucket) Put(_ context.Context, key string, data []byte, _ string) error {
	return util.WriteFileAtomic(b.path(key), data)
}

func (b *FSBucket) Get(_ context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

func (b *FSBucket) URL(key string) string {
	if b.PublicURL != "" {
		return joinURL(b.PublicURL, key)
	}
	abs, err := filepath.Abs(b.path(key))
	if err != nil {
		abs = b.path(key)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
