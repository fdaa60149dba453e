package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/brogergvhs/novelpipe/internal/novel"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	s, err := Open("sqlite:"+dsn, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.AutoMigrate(context.Background()))
	return s
}

func count(t *testing.T, s *Store, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, s.DB().Model(model).Count(&n).Error)
	return n
}

func ironSaint() NovelRecord {
	return NovelRecord{
		Title:     "The Iron Saint",
		Author:    "Kim Hana",
		Synopsis:  "A saint of iron.",
		Cover:     "https://cdn.example/covers/the-iron-saint.jpg",
		Status:    novel.StatusOngoing,
		SourceURL: "https://novels.example/n/iron",
		Genres:    []string{"Fantasy", "Action", "fantasy"},
		Chapters: []ChapterRecord{
			{Number: 1, Title: "Dawn", Original: "<p>one</p>", WordCount: 1},
			{Number: 2, Title: "Noon", Original: "<p>two</p>", WordCount: 1},
			{Number: 3, Title: "Dusk", Original: "<p>three</p>", WordCount: 1},
		},
	}
}

func TestImportNovel_Idempotent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	first, err := s.ImportNovel(ctx, ironSaint(), ImportOptions{})
	require.NoError(t, err)
	assert.True(t, first.NovelCreated)
	assert.Equal(t, 3, first.Inserted)
	assert.Empty(t, first.Failed)

	second, err := s.ImportNovel(ctx, ironSaint(), ImportOptions{})
	require.NoError(t, err)
	assert.False(t, second.NovelCreated)
	assert.Equal(t, first.NovelID, second.NovelID)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 3, second.Skipped)

	assert.Equal(t, int64(1), count(t, s, &Novel{}))
	assert.Equal(t, int64(3), count(t, s, &Chapter{}))
	assert.Equal(t, int64(2), count(t, s, &Genre{}))
	assert.Equal(t, int64(2), count(t, s, &NovelGenre{}))

	var n Novel
	require.NoError(t, s.DB().Where("slug = ?", "the-iron-saint").First(&n).Error)
	assert.Equal(t, "The Iron Saint", n.Title)
	assert.Equal(t, "ONGOING", n.Status)
}

func TestImportNovel_ConflictUpdatesDisplayFieldsOnly(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.ImportNovel(ctx, ironSaint(), ImportOptions{})
	require.NoError(t, err)

	again := ironSaint()
	again.Title = "The Iron Saint (Remastered)"
	again.Slug = "the-iron-saint"
	again.Author = "Someone Else"
	again.Synopsis = "Updated synopsis."
	again.Cover = "https://cdn.example/covers/new.jpg"
	again.SourceURL = ""
	again.Chapters[0].Original = "<p>edited upstream</p>"
	_, err = s.ImportNovel(ctx, again, ImportOptions{})
	require.NoError(t, err)

	var n Novel
	require.NoError(t, s.DB().Where("slug = ?", "the-iron-saint").First(&n).Error)
	assert.Equal(t, "The Iron Saint", n.Title)
	assert.Equal(t, "Kim Hana", n.Author)
	assert.Equal(t, "Updated synopsis.", n.Synopsis)
	assert.Equal(t, "https://cdn.example/covers/new.jpg", n.Cover)
	assert.Equal(t, "https://novels.example/n/iron", n.SourceURL)

	var ch Chapter
	require.NoError(t, s.DB().Where(&Chapter{NovelID: n.ID, ChapterNumber: 1}).First(&ch).Error)
	assert.Equal(t, "<p>one</p>", ch.ContentOriginal)
}

func TestImportNovel_GenreDedupAcrossNovels(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.ImportNovel(ctx, NovelRecord{Title: "Sky Garden", Genres: []string{"Fantasy"}}, ImportOptions{})
	require.NoError(t, err)
	_, err = s.ImportNovel(ctx, NovelRecord{Title: "Sea Road", Genres: []string{"Fantasy"}}, ImportOptions{})
	require.NoError(t, err)

	var genres []Genre
	require.NoError(t, s.DB().Find(&genres).Error)
	require.Len(t, genres, 1)
	assert.Equal(t, "fantasy", genres[0].Slug)
	assert.Equal(t, "Fantasy", genres[0].Name)
	assert.Equal(t, int64(2), count(t, s, &NovelGenre{}))
}

func TestImportNovel_NewChaptersAppended(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	rec := ironSaint()
	rec.Chapters = rec.Chapters[:2]
	_, err := s.ImportNovel(ctx, rec, ImportOptions{})
	require.NoError(t, err)

	res, err := s.ImportNovel(ctx, ironSaint(), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, int64(3), count(t, s, &Chapter{}))
}

func TestImportNovel_FillTranslations(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.ImportNovel(ctx, ironSaint(), ImportOptions{})
	require.NoError(t, err)

	tr := ironSaint()
	tr.Chapters[0].Translated = "<p>uno</p>"
	tr.Chapters[1].Translated = "<p>dos</p>"

	res, err := s.ImportNovel(ctx, tr, ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Filled)

	res, err = s.ImportNovel(ctx, tr, ImportOptions{FillTranslations: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Filled)
	assert.Equal(t, 1, res.Skipped)

	tr.Chapters[0].Translated = "<p>overwritten?</p>"
	res, err = s.ImportNovel(ctx, tr, ImportOptions{FillTranslations: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Filled)

	var ch Chapter
	require.NoError(t, s.DB().Where(&Chapter{ChapterNumber: 1}).First(&ch).Error)
	assert.Equal(t, "<p>uno</p>", ch.ContentTranslated)
	assert.Equal(t, "<p>one</p>", ch.ContentOriginal)
}

func TestImportNovel_FailedChapterDoesNotStopOthers(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	diskFull := errors.New("disk full")
	require.NoError(t, s.DB().Callback().Create().Before("gorm:create").
		Register("test:fail_chapter_2", func(db *gorm.DB) {
			if c, ok := db.Statement.Dest.(*Chapter); ok && c.ChapterNumber == 2 {
				_ = db.AddError(diskFull)
			}
		}))

	res, err := s.ImportNovel(ctx, ironSaint(), ImportOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Inserted)
	require.Len(t, res.Failed, 1)
	assert.Equal(t, 2, res.Failed[0].Number)
	assert.ErrorIs(t, res.Failed[0].Err, diskFull)

	var numbers []int
	require.NoError(t, s.DB().Model(&Chapter{}).Order(colChapterNumber).Pluck(colChapterNumber, &numbers).Error)
	assert.Equal(t, []int{1, 3}, numbers)
}

func TestAutoMigrate_WebAppSchema(t *testing.T) {
	s := openTestStore(t)
	m := s.DB().Migrator()

	for _, table := range []string{"Novel", "Chapter", "Genre", "_GenreToNovel"} {
		assert.True(t, m.HasTable(table), table)
	}
	for _, col := range []string{"novelId", "chapterNumber", "contentOriginal", "contentTranslated", "wordCount", "isPremium"} {
		assert.True(t, m.HasColumn(&Chapter{}, col), col)
	}
	assert.True(t, m.HasColumn(&Novel{}, "sourceUrl"))
	assert.True(t, m.HasColumn(&NovelGenre{}, "A"))
	assert.True(t, m.HasColumn(&NovelGenre{}, "B"))
	assert.True(t, m.HasIndex(&Chapter{}, "Chapter_novelId_chapterNumber_key"))
}

func TestImportNovel_RequiresTitle(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ImportNovel(context.Background(), NovelRecord{Title: "  "}, ImportOptions{})
	assert.ErrorIs(t, err, ErrInvalidNovel)
}

func TestDialectorFor(t *testing.T) {
	_, lite, err := dialectorFor("postgres://user:pw@localhost:5432/app")
	require.NoError(t, err)
	assert.False(t, lite)

	_, lite, err = dialectorFor("sqlite:novels.db")
	require.NoError(t, err)
	assert.True(t, lite)

	_, _, err = dialectorFor("mysql://user:secret@db/app")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "secret")
}

func TestFromDocuments(t *testing.T) {
	raw := &novel.RawNovel{
		Slug: "the-iron-saint",
		Listing: novel.SourceListing{
			Title: "철의 성자", URL: "https://novels.example/n/iron", CoverURL: "https://src.example/c.jpg",
			Genres: []string{"Fantasy"}, Status: novel.StatusCompleted,
		},
		Chapters: []novel.RawChapter{
			{ChapterRef: novel.ChapterRef{Number: 1, Title: "1화"}, Content: "<p>하나</p>", WordCount: 1},
			{ChapterRef: novel.ChapterRef{Number: 2, Title: "2화"}, Content: "<p>둘</p>", WordCount: 1},
		},
	}
	tr := &novel.TranslatedNovel{Title: "The Iron Saint"}
	tr.Put(novel.TranslatedChapter{Number: 2, Title: "Chapter 2", Content: "<p>two</p>", WordCount: 1})

	rec := FromDocuments(raw, tr)
	assert.Equal(t, "The Iron Saint", rec.Title)
	assert.Equal(t, "the-iron-saint", rec.Slug)
	assert.Equal(t, "https://src.example/c.jpg", rec.Cover)
	require.Len(t, rec.Chapters, 2)
	assert.Empty(t, rec.Chapters[0].Translated)
	assert.Equal(t, "<p>two</p>", rec.Chapters[1].Translated)
	assert.Equal(t, "Chapter 2", rec.Chapters[1].Title)
}
