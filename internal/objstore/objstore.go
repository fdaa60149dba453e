// Package objstore stages pipeline artifacts and cover images at
// deterministic keys. Writes overwrite; there are no transactions.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrNotFound = errors.New("object not found")

const (
	ContentTypeHTML = "text/html; charset=utf-8"
	ContentTypeJSON = "application/json"
)

type Bucket interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	// URL is the public address of key.
	URL(key string) string
}

func RawChapterKey(slug string, n int) string {
	return fmt.Sprintf("raw-novels/%s/chapters/%d.html", slug, n)
}

func RawNovelKey(slug string) string {
	return fmt.Sprintf("raw-novels/%s/novel.json", slug)
}

func TranslatedChapterKey(slug string, n int) string {
	return fmt.Sprintf("translated-novels/%s/chapters/%d.html", slug, n)
}

func TranslatedNovelKey(slug string) string {
	return fmt.Sprintf("translated-novels/%s/novel.json", slug)
}

// CoverKey expects ext with its leading dot.
func CoverKey(slug, ext string) string {
	return "covers/" + slug + ext
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

const (
	BackendNone = "none"
	BackendFS   = "fs"
	BackendS3   = "s3"
)

type Options struct {
	Backend   string
	Dir       string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	PublicURL string
	UseSSL    bool
}

// Open returns nil, nil for the "none" backend: staging is optional.
func Open(ctx context.Context, o Options) (Bucket, error) {
	switch o.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendFS:
		if o.Dir == "" {
			return nil, errors.New("fs storage requires a directory")
		}
		return NewFSBucket(o.Dir, o.PublicURL), nil
	case BackendS3:
		return NewS3Bucket(ctx, o)
	}
	return nil, fmt.Errorf("unknown storage backend %q", o.Backend)
}
