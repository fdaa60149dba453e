package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/brogergvhs/novelpipe/internal/checkpoint"
	"github.com/brogergvhs/novelpipe/internal/extract"
	"github.com/brogergvhs/novelpipe/internal/fetch"
	"github.com/brogergvhs/novelpipe/internal/objstore"
	"github.com/brogergvhs/novelpipe/internal/sanitize"
	"github.com/brogergvhs/novelpipe/internal/source"
	"github.com/brogergvhs/novelpipe/internal/translate"
	"github.com/brogergvhs/novelpipe/internal/workspace"
)

const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"
	FetchCurl    = "curl"
)

type FetchConfig struct {
	Mode       string            `yaml:"mode"`
	UserAgent  string            `yaml:"user_agent"`
	Cookie     string            `yaml:"cookie"`
	CookieFile string            `yaml:"cookie_file"`
	Headers    map[string]string `yaml:"headers,omitempty"`

	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	// Delay is slept between requests to the source site.
	Delay time.Duration `yaml:"delay"`

	BypassCloudflare bool          `yaml:"bypass_cloudflare"`
	CacheTTL         time.Duration `yaml:"cache_ttl"`

	SettleDelay time.Duration `yaml:"settle_delay"`
	Headless    bool          `yaml:"headless"`
	BrowserPath string        `yaml:"browser_path,omitempty"`

	CurlBinary string `yaml:"curl_binary"`
}

type TranslateConfig struct {
	Model             string        `yaml:"model"`
	SourceLang        string        `yaml:"source_lang"`
	TargetLang        string        `yaml:"target_lang"`
	Temperature       float64       `yaml:"temperature"`
	Concurrency       int           `yaml:"concurrency"`
	WaveDelay         time.Duration `yaml:"wave_delay"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryBase         time.Duration `yaml:"retry_base"`
	MaxChunkChars     int           `yaml:"max_chunk_chars"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
	Timeout           time.Duration `yaml:"timeout"`
	SystemPrompt      string        `yaml:"system_prompt,omitempty"`
}

type CheckpointConfig struct {
	Backend string `yaml:"backend"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"`
	// Dir is the root of the fs backend; empty means {data_dir}/storage.
	Dir       string `yaml:"dir,omitempty"`
	PublicURL string `yaml:"public_url,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// Secrets come from the environment (and .env), never from profiles.
type Secrets struct {
	OpenAIKey     string
	OpenAIBaseURL string
	DatabaseURL   string
	RedisURL      string
	S3Endpoint    string
	S3AccessKey   string
	S3SecretKey   string
	S3Bucket      string
	S3PublicURL   string
}

type Config struct {
	DataDir string `yaml:"data_dir"`
	Debug   bool   `yaml:"debug"`

	Fetch      FetchConfig      `yaml:"fetch"`
	Site       extract.Profile  `yaml:"site"`
	Sanitize   sanitize.Options `yaml:"sanitize"`
	Translate  TranslateConfig  `yaml:"translate"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Storage    StorageConfig    `yaml:"storage"`

	Secrets Secrets `yaml:"-"`
}

// Options carries CLI flag values; zero values leave the profile untouched.
type Options struct {
	IgnoreConfig      bool
	Debug             bool
	DataDir           string
	FetchMode         string
	UserAgent         string
	Cookie            string
	CookieFile        string
	Concurrency       int
	Model             string
	CheckpointBackend string
	StorageBackend    string
	// EnvFiles are loaded before reading secrets; missing files are ignored.
	EnvFiles []string
}

func DefaultConfig() *Config {
	return &Config{
		DataDir: workspace.DefaultDir,
		Fetch: FetchConfig{
			Mode:             FetchHTTP,
			Timeout:          30 * time.Second,
			Retries:          fetch.DefaultRetries,
			RetryDelay:       fetch.DefaultRetryDelay,
			Delay:            source.DefaultDelay,
			BypassCloudflare: true,
			CacheTTL:         10 * time.Minute,
			SettleDelay:      fetch.DefaultSettleDelay,
			Headless:         true,
			CurlBinary:       "curl",
		},
		Site:     extract.DefaultProfile(),
		Sanitize: sanitize.DefaultOptions(),
		Translate: TranslateConfig{
			Model:         translate.DefaultModel,
			SourceLang:    "Korean",
			TargetLang:    "English",
			Temperature:   0.3,
			Concurrency:   translate.DefaultConcurrency,
			WaveDelay:     translate.DefaultWaveDelay,
			MaxAttempts:   translate.DefaultMaxAttempts,
			RetryBase:     translate.DefaultRetryBase,
			MaxChunkChars: translate.DefaultMaxChunkChars,
			Timeout:       3 * time.Minute,
		},
		Checkpoint: CheckpointConfig{Backend: checkpoint.BackendFile},
		Storage:    StorageConfig{Backend: objstore.BackendNone},
	}
}

func SaveYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func loadYAML(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// unset keys keep their defaults
	c := DefaultConfig()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, err
	}

	return c, nil
}

// LoadMerged resolves defaults, the active profile, CLI overrides and the
// environment, in increasing priority. The second return describes where the
// profile came from.
func LoadMerged(opts Options) (*Config, string, error) {
	loadEnv(opts.EnvFiles)

	var (
		cfg  *Config
		used string
	)

	activePath, err := ActiveConfigPath()
	switch {
	case opts.IgnoreConfig:
		cfg, used = DefaultConfig(), "(ignored config)"
	case errors.Is(err, ErrNoConfig) || activePath == "":
		cfg, used = DefaultConfig(), "(default config in memory)\nRun `novelpipe config init` to create an actual config\n"
	case err != nil:
		return nil, "", err
	default:
		cfg, err = loadYAML(activePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config %s: %w", activePath, err)
		}
		used = activePath
	}

	mergeConfig(cfg, opts)
	normalizeDefaults(cfg)
	cfg.Secrets = ReadSecrets()

	return cfg, used, nil
}

func loadEnv(files []string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		// variables already set in the environment win
		_ = godotenv.Load(f)
	}
}

func ReadSecrets() Secrets {
	return Secrets{
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RedisURL:      os.Getenv("REDIS_URL"),
		S3Endpoint:    os.Getenv("S3_ENDPOINT"),
		S3AccessKey:   os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:   os.Getenv("S3_SECRET_KEY"),
		S3Bucket:      os.Getenv("S3_BUCKET"),
		S3PublicURL:   os.Getenv("S3_PUBLIC_URL"),
	}
}

func mergeConfig(c *Config, o Options) {
	if o.Debug {
		c.Debug = true
	}
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.FetchMode != "" {
		c.Fetch.Mode = o.FetchMode
	}
	if o.UserAgent != "" {
		c.Fetch.UserAgent = o.UserAgent
	}
	if o.Cookie != "" {
		c.Fetch.Cookie = o.Cookie
	}
	if o.CookieFile != "" {
		c.Fetch.CookieFile = o.CookieFile
	}
	if o.Concurrency != 0 {
		c.Translate.Concurrency = o.Concurrency
	}
	if o.Model != "" {
		c.Translate.Model = o.Model
	}
	if o.CheckpointBackend != "" {
		c.Checkpoint.Backend = o.CheckpointBackend
	}
	if o.StorageBackend != "" {
		c.Storage.Backend = o.StorageBackend
	}
}

func normalizeDefaults(c *Config) {
	d := DefaultConfig()
	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = d.Fetch.Mode
	}
	if c.Fetch.Timeout <= 0 {
		c.Fetch.Timeout = d.Fetch.Timeout
	}
	if c.Fetch.Retries < 0 {
		c.Fetch.Retries = 0
	}
	if c.Fetch.CurlBinary == "" {
		c.Fetch.CurlBinary = d.Fetch.CurlBinary
	}
	if c.Translate.Concurrency <= 0 {
		c.Translate.Concurrency = d.Translate.Concurrency
	}
	if c.Checkpoint.Backend == "" {
		c.Checkpoint.Backend = d.Checkpoint.Backend
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = d.Storage.Backend
	}
	c.Site = c.Site.WithDefaults()
}

type Stage int

const (
	StageDiscover Stage = iota
	StageScrape
	StageTranslate
	StageImport
)

var (
	fetchModes         = []string{FetchHTTP, FetchBrowser, FetchCurl}
	checkpointBackends = []string{checkpoint.BackendFile, checkpoint.BackendRedis, checkpoint.BackendPostgres}
	storageBackends    = []string{objstore.BackendNone, objstore.BackendFS, objstore.BackendS3}
)

// Validate rejects unknown enum values and missing credentials for the
// stages about to run.
func (c *Config) Validate(stages ...Stage) error {
	var errs []error
	if !slices.Contains(fetchModes, c.Fetch.Mode) {
		errs = append(errs, fmt.Errorf("fetch.mode %q is not one of %s", c.Fetch.Mode, strings.Join(fetchModes, ", ")))
	}
	if !slices.Contains(checkpointBackends, c.Checkpoint.Backend) {
		errs = append(errs, fmt.Errorf("checkpoint.backend %q is not one of %s", c.Checkpoint.Backend, strings.Join(checkpointBackends, ", ")))
	}
	if !slices.Contains(storageBackends, c.Storage.Backend) {
		errs = append(errs, fmt.Errorf("storage.backend %q is not one of %s", c.Storage.Backend, strings.Join(storageBackends, ", ")))
	}

	for _, st := range stages {
		switch st {
		case StageScrape:
			if c.Storage.Backend == objstore.BackendS3 {
				s := c.Secrets
				if s.S3Endpoint == "" || s.S3Bucket == "" || s.S3AccessKey == "" || s.S3SecretKey == "" {
					errs = append(errs, errors.New("storage.backend s3 requires S3_ENDPOINT, S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY"))
				}
			}
		case StageTranslate:
			if c.Secrets.OpenAIKey == "" {
				errs = append(errs, errors.New("translate requires OPENAI_API_KEY"))
			}
			switch c.Checkpoint.Backend {
			case checkpoint.BackendRedis:
				if c.Secrets.RedisURL == "" {
					errs = append(errs, errors.New("checkpoint.backend redis requires REDIS_URL"))
				}
			case checkpoint.BackendPostgres:
				if c.Secrets.DatabaseURL == "" {
					errs = append(errs, errors.New("checkpoint.backend postgres requires DATABASE_URL"))
				}
			}
		case StageImport:
			if c.Secrets.DatabaseURL == "" {
				errs = append(errs, errors.New("import requires DATABASE_URL"))
			}
		}
	}

	return errors.Join(errs...)
}

func (c *Config) Print() {
	c.Fprint(os.Stdout)
}

func (c *Config) Fprint(w io.Writer) {
	fmt.Fprintf(w, " -data_dir: %s\n", c.DataDir)
	if c.Debug {
		fmt.Fprintf(w, " -debug: %t\n", c.Debug)
	}
	fmt.Fprintf(w, " -fetch.mode: %s\n", c.Fetch.Mode)
	fmt.Fprintf(w, " -fetch.retries: %d (every %s)\n", c.Fetch.Retries, c.Fetch.RetryDelay)
	fmt.Fprintf(w, " -fetch.delay: %s\n", c.Fetch.Delay)
	if c.Fetch.UserAgent != "" {
		fmt.Fprintf(w, " -fetch.user_agent: %s\n", c.Fetch.UserAgent)
	}
	if c.Fetch.Cookie != "" {
		fmt.Fprintf(w, " -fetch.cookie: (set)\n")
	}
	if c.Fetch.CookieFile != "" {
		fmt.Fprintf(w, " -fetch.cookie_file: %s\n", c.Fetch.CookieFile)
	}
	if c.Fetch.Mode == FetchBrowser {
		fmt.Fprintf(w, " -fetch.settle_delay: %s\n", c.Fetch.SettleDelay)
	}
	if c.Site.ReverseChapterOrder {
		fmt.Fprintf(w, " -site.reverse_chapter_order: true\n")
	}
	fmt.Fprintf(w, " -translate.model: %s (%s → %s)\n", c.Translate.Model, c.Translate.SourceLang, c.Translate.TargetLang)
	fmt.Fprintf(w, " -translate.concurrency: %d (wave delay %s)\n", c.Translate.Concurrency, c.Translate.WaveDelay)
	fmt.Fprintf(w, " -translate.max_attempts: %d (base %s)\n", c.Translate.MaxAttempts, c.Translate.RetryBase)
	fmt.Fprintf(w, " -checkpoint.backend: %s\n", c.Checkpoint.Backend)
	fmt.Fprintf(w, " -storage.backend: %s\n", c.Storage.Backend)
	fmt.Fprintf(w, " -secrets: OPENAI_API_KEY=%s DATABASE_URL=%s REDIS_URL=%s S3=%s\n",
		setOrNot(c.Secrets.OpenAIKey), setOrNot(c.Secrets.DatabaseURL), setOrNot(c.Secrets.RedisURL), setOrNot(c.Secrets.S3Endpoint))
}

func setOrNot(v string) string {
	if v == "" {
		return "unset"
	}
	return "set"
}
