package novel

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	cases := map[string]Status{
		"":                  StatusOngoing,
		"Ongoing":           StatusOngoing,
		"COMPLETED":         StatusCompleted,
		"Status: Completed": StatusCompleted,
		"완결":                StatusCompleted,
		"On Hold":           StatusHiatus,
		"discontinued":      StatusDropped,
		"something else":    StatusOngoing,
	}

	for in, want := range cases {
		assert.Equal(t, want, ParseStatus(in), "input %q", in)
	}
}

func TestStatusUnmarshalNormalizes(t *testing.T) {
	var l SourceListing
	require.NoError(t, json.Unmarshal([]byte(`{"title":"x","status":"finished"}`), &l))
	assert.Equal(t, StatusCompleted, l.Status)
}

func TestTranslatedNovelPutKeepsOrder(t *testing.T) {
	var doc TranslatedNovel
	doc.Put(TranslatedChapter{Number: 3})
	doc.Put(TranslatedChapter{Number: 1})
	doc.Put(TranslatedChapter{Number: 2, Title: "first"})
	doc.Put(TranslatedChapter{Number: 2, Title: "second"})

	require.Len(t, doc.Chapters, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{doc.Chapters[0].Number, doc.Chapters[1].Number, doc.Chapters[2].Number})

	ch, ok := doc.Chapter(2)
	require.True(t, ok)
	assert.Equal(t, "second", ch.Title)
}

func TestRawNovelPut(t *testing.T) {
	var doc RawNovel
	doc.Put(RawChapter{ChapterRef: ChapterRef{Number: 5}})
	doc.Put(RawChapter{ChapterRef: ChapterRef{Number: 2}, Content: "<p>a</p>"})
	doc.Put(RawChapter{ChapterRef: ChapterRef{Number: 2}, Content: "<p>b</p>"})

	require.Len(t, doc.Chapters, 2)
	assert.Equal(t, 2, doc.Chapters[0].Number)

	ch, ok := doc.Chapter(2)
	require.True(t, ok)
	assert.Equal(t, "<p>b</p>", ch.Content)
}
