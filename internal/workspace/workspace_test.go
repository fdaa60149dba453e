package workspace

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/novelpipe/internal/novel"
)

func TestResolve(t *testing.T) {
	assert.Equal(t, "iron-saint", Resolve("iron-saint"))
	assert.Equal(t, "iron-saint", Resolve("iron-saint.json"))
	assert.Equal(t, "iron-saint", Resolve("data/raw/iron-saint.json"))
	assert.Equal(t, "iron-saint", Resolve(" iron-saint "))
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "novels.example.com", HostOf("https://novels.example.com/list?page=2"))
	assert.Equal(t, "listing", HostOf("::"))
}

func TestRawRoundTrip(t *testing.T) {
	w := New(t.TempDir())

	_, err := w.LoadRaw("missing")
	assert.ErrorIs(t, err, ErrNoInput)
	assert.True(t, errors.Is(err, fs.ErrNotExist))

	raw := &novel.RawNovel{
		Slug:     "iron-saint",
		Listing:  novel.SourceListing{Title: "Iron Saint"},
		Chapters: []novel.RawChapter{{ChapterRef: novel.ChapterRef{Number: 1}, Content: "<p>a</p>"}},
	}
	require.NoError(t, w.SaveRaw(raw))
	assert.False(t, raw.UpdatedAt.IsZero())

	got, err := w.LoadRaw("iron-saint")
	require.NoError(t, err)
	assert.Equal(t, "Iron Saint", got.Listing.Title)
	assert.Len(t, got.Chapters, 1)
}

func TestLoadTranslated_EmptyWhenMissing(t *testing.T) {
	w := New(t.TempDir())

	out, err := w.LoadTranslated("iron-saint")
	require.NoError(t, err)
	assert.Equal(t, "iron-saint", out.Slug)
	assert.Equal(t, w.RawPath("iron-saint"), out.SourceFile)
	assert.Empty(t, out.Chapters)

	out.Put(novel.TranslatedChapter{Number: 1, Content: "<p>x</p>"})
	require.NoError(t, w.SaveTranslated(context.Background(), out))

	again, err := w.LoadTranslated("iron-saint")
	require.NoError(t, err)
	assert.Len(t, again.Chapters, 1)
}

func TestListInputs(t *testing.T) {
	w := New(t.TempDir())

	inputs, err := w.ListInputs()
	require.NoError(t, err)
	assert.Empty(t, inputs)

	for _, s := range []string{"zeta", "alpha"} {
		require.NoError(t, w.SaveRaw(&novel.RawNovel{Slug: s, Chapters: make([]novel.RawChapter, 2)}))
	}
	require.NoError(t, w.SaveTranslated(context.Background(), &novel.TranslatedNovel{
		Slug:     "zeta",
		Chapters: []novel.TranslatedChapter{{Number: 1}},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(w.RawDir(), "broken.json"), []byte("{"), 0o644))

	inputs, err = w.ListInputs()
	require.NoError(t, err)
	require.Len(t, inputs, 2)
	assert.Equal(t, "alpha", inputs[0].Slug)
	assert.Equal(t, 2, inputs[1].Chapters)
	assert.Equal(t, 1, inputs[1].Translated)
}

func TestListings(t *testing.T) {
	w := New(t.TempDir())
	lf := &ListingFile{Source: "https://novels.example.com/ranking", Novels: []novel.SourceListing{{Title: "A"}}}
	require.NoError(t, w.SaveListings(lf))

	got, err := w.LoadListings("novels.example.com")
	require.NoError(t, err)
	assert.Len(t, got.Novels, 1)
}
