package objstore

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeys(t *testing.T) {
	assert.Equal(t, "raw-novels/iron-saint/chapters/12.html", RawChapterKey("iron-saint", 12))
	assert.Equal(t, "raw-novels/iron-saint/novel.json", RawNovelKey("iron-saint"))
	assert.Equal(t, "translated-novels/iron-saint/chapters/3.html", TranslatedChapterKey("iron-saint", 3))
	assert.Equal(t, "covers/iron-saint.webp", CoverKey("iron-saint", ".webp"))
}

func TestFSBucket(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	b := NewFSBucket(root, "https://cdn.example/")

	key := RawChapterKey("iron-saint", 1)
	require.NoError(t, b.Put(ctx, key, []byte("<p>one</p>"), "text/html"))
	require.NoError(t, b.Put(ctx, key, []byte("<p>uno</p>"), "text/html"))

	got, err := b.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "<p>uno</p>", string(got))
	assert.FileExists(t, filepath.Join(root, "raw-novels", "iron-saint", "chapters", "1.html"))

	_, err = b.Get(ctx, "covers/none.jpg")
	assert.True(t, errors.Is(err, ErrNotFound))

	assert.Equal(t, "https://cdn.example/covers/iron-saint.jpg", b.URL(CoverKey("iron-saint", ".jpg")))
	assert.Contains(t, NewFSBucket(root, "").URL("covers/x.jpg"), "file://")
}

func TestOpen(t *testing.T) {
	b, err := Open(context.Background(), Options{Backend: BackendNone})
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = Open(context.Background(), Options{Backend: BackendFS, Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSBucket{}, b)

	_, err = Open(context.Background(), Options{Backend: BackendS3})
	assert.Error(t, err)

	_, err = Open(context.Background(), Options{Backend: "gcs"})
	assert.Error(t, err)
}
