package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/brogergvhs/novelpipe/internal/chapters"
	"github.com/brogergvhs/novelpipe/internal/checkpoint"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/workspace"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"failure", errors.New("boom"), ExitFailure},
		{"usage", usagef("missing argument"), ExitUsage},
		{"wrapped usage", fmt.Errorf("scrape: %w", usagef("bad range")), ExitUsage},
		{"partial", errPartial, ExitPartial},
		{"wrapped partial", fmt.Errorf("translate: %w", errPartial), ExitPartial},
		{"canceled", context.Canceled, ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func rawChapters(ns ...int) *novel.RawNovel {
	raw := &novel.RawNovel{Slug: "iron-saint"}
	for _, n := range ns {
		raw.Chapters = append(raw.Chapters, novel.RawChapter{
			ChapterRef: novel.ChapterRef{Number: n},
			Content:    "<p>text</p>",
		})
	}
	return raw
}

func TestPendingCount(t *testing.T) {
	raw := rawChapters(1, 2, 3, 4)
	out := &novel.TranslatedNovel{Chapters: []novel.TranslatedChapter{
		{Number: 1, Content: "<p>done</p>"},
		{Number: 2, Content: "  "},
	}}
	cp := checkpoint.New("iron-saint", "raw/iron-saint.json")
	// 2 is marked but has no content, so it is redone
	cp.Mark(1, 2)

	assert.Equal(t, 3, pendingCount(raw, out, cp, nil))
	assert.Equal(t, 1, pendingCount(raw, out, cp, map[int]bool{1: true, 2: true}))
	assert.Equal(t, 0, pendingCount(raw, out, cp, map[int]bool{1: true}))
}

func TestPrintInputs(t *testing.T) {
	ws := workspace.New(t.TempDir())

	var buf bytes.Buffer
	printInputs(&buf, ws)
	assert.Contains(t, buf.String(), "No scraped novels")

	raw := rawChapters(1, 2)
	raw.Listing.Title = "The Iron Saint"
	require.NoError(t, ws.SaveRaw(raw))

	buf.Reset()
	printInputs(&buf, ws)
	assert.Contains(t, buf.String(), "SLUG")
	assert.Contains(t, buf.String(), "iron-saint")
	assert.Contains(t, buf.String(), "The Iron Saint")
}

func TestMissingInput(t *testing.T) {
	ws := workspace.New(t.TempDir())

	var buf bytes.Buffer
	err := missingInput(&buf, "novelpipe translate <slug>", ws)

	assert.Equal(t, ExitUsage, exitCode(err))
	assert.Contains(t, buf.String(), "Usage: novelpipe translate <slug>")
}

func TestStageCommandsRegistered(t *testing.T) {
	for _, name := range []string{"discover", "scrape", "translate", "import", "run", "config", "version"} {
		c, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, c.Name())
	}
}

func TestCheckSelection(t *testing.T) {
	all, err := chapters.Numbers("", "")
	require.NoError(t, err)
	// a novel without free chapters is still written
	assert.NoError(t, checkSelection(all, 0, 0))

	rng, err := chapters.Numbers("40-45", "")
	require.NoError(t, err)
	assert.NoError(t, checkSelection(rng, 6, 120))

	err = checkSelection(rng, 0, 12)
	assert.Equal(t, ExitUsage, exitCode(err))
	assert.EqualError(t, err, "no chapters selected out of 12")
}

func TestLoadCheckpoint(t *testing.T) {
	ctx := context.Background()
	cps := checkpoint.NewFileStore(t.TempDir())

	cp := checkpoint.New("iron-saint", "raw/iron-saint.json")
	cp.Mark(1, 2, 3)
	require.NoError(t, cps.Save(ctx, cp))

	got, err := loadCheckpoint(ctx, cps, "iron-saint", "raw/iron-saint.json", false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, got.Completed)

	got, err = loadCheckpoint(ctx, cps, "iron-saint", "raw/iron-saint.json", true)
	require.NoError(t, err)
	assert.Empty(t, got.Completed)

	_, err = cps.Load(ctx, "iron-saint")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
}

// withoutSecrets points the global flags at an empty data dir with no config
// file and clears the credentials the stages check.
func withoutSecrets(t *testing.T) {
	t.Helper()

	ignore, dataDir, envFile := flagIgnoreConfig, flagDataDir, flagEnvFile
	t.Cleanup(func() { flagIgnoreConfig, flagDataDir, flagEnvFile = ignore, dataDir, envFile })

	dir := t.TempDir()
	flagIgnoreConfig = true
	flagDataDir = dir
	flagEnvFile = filepath.Join(dir, "none.env")
	for _, k := range []string{"OPENAI_API_KEY", "DATABASE_URL", "REDIS_URL"} {
		t.Setenv(k, "")
	}
}

func TestMissingArgumentReportedBeforeCredentials(t *testing.T) {
	withoutSecrets(t)

	stages := []struct {
		name string
		run  func(*cobra.Command, []string) error
	}{
		{"translate", runTranslate},
		{"import", runImport},
	}

	for _, tt := range stages {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			c := &cobra.Command{}
			c.SetOut(&buf)

			err := tt.run(c, nil)
			assert.Equal(t, ExitUsage, exitCode(err))
			assert.EqualError(t, err, "missing argument")
			assert.Contains(t, buf.String(), "Usage: novelpipe "+tt.name)
			assert.Contains(t, buf.String(), "No scraped novels")
		})
	}

	err := runTranslate(&cobra.Command{}, []string{"iron-saint"})
	assert.Equal(t, ExitUsage, exitCode(err))
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}
