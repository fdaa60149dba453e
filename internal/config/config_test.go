package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brogergvhs/novelpipe/internal/checkpoint"
	"github.com/brogergvhs/novelpipe/internal/objstore"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	for _, k := range []string{"OPENAI_API_KEY", "OPENAI_BASE_URL", "DATABASE_URL", "REDIS_URL",
		"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_PUBLIC_URL"} {
		t.Setenv(k, "")
	}
	return dir
}

func TestLoadMerged_DefaultsWithoutProfile(t *testing.T) {
	isolate(t)

	cfg, used, err := LoadMerged(Options{EnvFiles: []string{filepath.Join(t.TempDir(), "none.env")}})
	require.NoError(t, err)
	assert.Contains(t, used, "default config in memory")
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, FetchHTTP, cfg.Fetch.Mode)
	assert.Equal(t, 3, cfg.Fetch.Retries)
	assert.Equal(t, 5*time.Second, cfg.Fetch.RetryDelay)
	assert.Equal(t, 5, cfg.Translate.Concurrency)
	assert.NotEmpty(t, cfg.Site.ChapterBody)
	assert.NoError(t, cfg.Validate(StageDiscover, StageScrape))
}

func TestLoadMerged_ProfileThenFlags(t *testing.T) {
	isolate(t)

	_, err := InitDefaultConfig()
	require.NoError(t, err)
	path, err := ActiveConfigPath()
	require.NoError(t, err)

	yml := `
data_dir: /srv/novels
fetch:
  mode: browser
  settle_delay: 5s
translate:
  concurrency: 8
site:
  chapter_body: ["#novel-body"]
  reverse_chapter_order: true
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	cfg, used, err := LoadMerged(Options{Concurrency: 2, CheckpointBackend: checkpoint.BackendRedis})
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "/srv/novels", cfg.DataDir)
	assert.Equal(t, FetchBrowser, cfg.Fetch.Mode)
	assert.Equal(t, 5*time.Second, cfg.Fetch.SettleDelay)
	assert.Equal(t, 3, cfg.Fetch.Retries, "unset keys keep defaults")
	assert.Equal(t, 2, cfg.Translate.Concurrency)
	assert.Equal(t, []string{"#novel-body"}, cfg.Site.ChapterBody)
	assert.True(t, cfg.Site.ReverseChapterOrder)
	assert.NotEmpty(t, cfg.Site.ChapterLinks)
	assert.Equal(t, checkpoint.BackendRedis, cfg.Checkpoint.Backend)

	cfg, used, err = LoadMerged(Options{IgnoreConfig: true})
	require.NoError(t, err)
	assert.Equal(t, "(ignored config)", used)
	assert.Equal(t, FetchHTTP, cfg.Fetch.Mode)
}

func TestLoadMerged_SecretsFromEnvFile(t *testing.T) {
	isolate(t)
	_ = os.Unsetenv("OPENAI_API_KEY")
	_ = os.Unsetenv("DATABASE_URL")

	env := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(env, []byte("OPENAI_API_KEY=sk-from-file\nDATABASE_URL=postgres://u:p@db/novels\n"), 0o644))
	t.Cleanup(func() {
		_ = os.Unsetenv("OPENAI_API_KEY")
		_ = os.Unsetenv("DATABASE_URL")
	})

	cfg, _, err := LoadMerged(Options{IgnoreConfig: true, EnvFiles: []string{env}})
	require.NoError(t, err)
	assert.Equal(t, "sk-from-file", cfg.Secrets.OpenAIKey)
	assert.NoError(t, cfg.Validate(StageTranslate, StageImport))
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Validate(StageTranslate, StageImport)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	assert.Contains(t, err.Error(), "DATABASE_URL")

	cfg.Fetch.Mode = "telnet"
	cfg.Checkpoint.Backend = "etcd"
	cfg.Storage.Backend = objstore.BackendS3
	err = cfg.Validate(StageScrape)
	require.Error(t, err)
	for _, want := range []string{"fetch.mode", "checkpoint.backend", "S3_ENDPOINT"} {
		assert.Contains(t, err.Error(), want)
	}

	cfg = DefaultConfig()
	cfg.Secrets.OpenAIKey = "sk"
	cfg.Checkpoint.Backend = checkpoint.BackendPostgres
	err = cfg.Validate(StageTranslate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint.backend postgres requires DATABASE_URL")
}

func TestProfiles(t *testing.T) {
	root := isolate(t)

	_, err := CurrentLabel()
	assert.ErrorIs(t, err, ErrNoConfig)

	path, err := InitDefaultConfig()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "novelpipe", "configs", "Default.yaml"), path)

	_, err = InitDefaultConfig()
	assert.True(t, errors.Is(err, os.ErrExist))

	_, err = CreateConfig("site-b")
	require.NoError(t, err)
	_, err = CreateConfig("site-b")
	assert.ErrorIs(t, err, ErrConfigExists)
	_, err = CreateConfig("../escape")
	assert.Error(t, err)

	require.NoError(t, SwitchConfig("site-b"))
	assert.Error(t, SwitchConfig("missing"))

	require.NoError(t, RenameConfig("site-b", "site-c"))
	label, err := CurrentLabel()
	require.NoError(t, err)
	assert.Equal(t, "site-c", label)

	list, err := ListConfigs()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Default", list[0].Label)
	assert.True(t, list[1].Active)

	fallback, err := RemoveConfig("site-c")
	require.NoError(t, err)
	assert.True(t, fallback)
	label, _ = CurrentLabel()
	assert.Equal(t, DefaultLabel, label)

	_, err = RemoveConfig(DefaultLabel)
	assert.Error(t, err)
}

func TestAddAndResetConfig(t *testing.T) {
	isolate(t)

	src := filepath.Join(t.TempDir(), "mine.yaml")
	require.NoError(t, os.WriteFile(src, []byte("fetch:\n  mode: curl\n"), 0o644))
	dst, err := AddConfig("mine", src)
	require.NoError(t, err)

	cfg, err := loadYAML(dst)
	require.NoError(t, err)
	assert.Equal(t, FetchCurl, cfg.Fetch.Mode)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("fetch: [unclosed"), 0o644))
	_, err = AddConfig("bad", bad)
	assert.Error(t, err)

	_, err = ResetConfig("mine")
	require.NoError(t, err)
	cfg, err = loadYAML(dst)
	require.NoError(t, err)
	assert.Equal(t, FetchHTTP, cfg.Fetch.Mode)
}

func TestPrintHidesSecrets(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Secrets.OpenAIKey = "sk-very-secret"
	cfg.Fetch.Cookie = "sid=secret"

	var b strings.Builder
	cfg.Fprint(&b)
	assert.NotContains(t, b.String(), "sk-very-secret")
	assert.NotContains(t, b.String(), "sid=secret")
	assert.Contains(t, b.String(), "OPENAI_API_KEY=set")
}
