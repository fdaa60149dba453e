package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/brogergvhs/novelpipe/internal/chapters"
	"github.com/brogergvhs/novelpipe/internal/checkpoint"
	"github.com/brogergvhs/novelpipe/internal/config"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/source"
	"github.com/brogergvhs/novelpipe/internal/translate"
	"github.com/brogergvhs/novelpipe/internal/ui"
	"github.com/brogergvhs/novelpipe/internal/util"
	"github.com/brogergvhs/novelpipe/internal/workspace"

	"github.com/spf13/cobra"
)

var (
	flagConcurrency int
	flagModel       string
	flagCheckpoint  string
	flagFresh       bool
)

func init() {
	translateCmd := &cobra.Command{
		Use:   "translate <slug>",
		Short: "Translate a scraped novel into {data}/translated/{slug}.json",
		Long: "Translate a scraped novel chapter by chapter in concurrent waves.\n" +
			"Progress is checkpointed after every wave; rerunning resumes where the last run stopped.",
		RunE: runTranslate,
	}

	addSelectionFlags(translateCmd)
	addTranslateFlags(translateCmd)
	translateCmd.Flags().StringVar(&flagStorage, "storage", "", "object storage backend for the translated document (none|fs|s3)")

	rootCmd.AddCommand(translateCmd)
}

func addTranslateFlags(c *cobra.Command) {
	c.Flags().IntVar(&flagConcurrency, "concurrency", 0, "chapters translated per wave")
	c.Flags().StringVar(&flagModel, "model", "", "chat completion model")
	c.Flags().StringVar(&flagCheckpoint, "checkpoint", "", "checkpoint backend (file|redis|postgres)")
	c.Flags().BoolVar(&flagFresh, "fresh", false, "discard the saved checkpoint and translate every chapter again")
}

func translateOptions() config.Options {
	return config.Options{
		Concurrency:       flagConcurrency,
		Model:             flagModel,
		CheckpointBackend: flagCheckpoint,
		StorageBackend:    flagStorage,
	}
}

func runTranslate(cmd *cobra.Command, args []string) error {
	e, err := setup(translateOptions())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return missingInput(cmd.OutOrStdout(), "novelpipe translate <slug>", e.ws)
	}
	if err := e.validate(config.StageTranslate); err != nil {
		return err
	}

	ctx, cancel := e.interruptible(cmd.Context())
	defer cancel()

	return e.translate(ctx, workspace.Resolve(args[0]))
}

func (e *env) translate(ctx context.Context, slug string) error {
	raw, err := e.ws.LoadRaw(slug)
	if err != nil {
		if errors.Is(err, workspace.ErrNoInput) {
			fmt.Fprintf(os.Stdout, "No raw document for %q.\n\n", slug)
			printInputs(os.Stdout, e.ws)
			return usagef("%v", err)
		}
		return err
	}

	sel, err := chapters.Numbers(flagRange, flagList)
	if err != nil {
		return usagef("%v", err)
	}
	only := sel.Map(chapters.RawNumbers(raw.Chapters))
	if !sel.Empty() && len(only) == 0 {
		return usagef("no chapters selected out of %d", len(raw.Chapters))
	}

	out, err := e.ws.LoadTranslated(slug)
	if err != nil {
		return err
	}
	out.Slug = raw.Slug

	cps, err := checkpoint.Open(ctx, checkpoint.Options{
		Backend:     e.cfg.Checkpoint.Backend,
		Dir:         e.ws.CheckpointDir(),
		RedisURL:    e.cfg.Secrets.RedisURL,
		DatabaseURL: e.cfg.Secrets.DatabaseURL,
	})
	if err != nil {
		return err
	}
	defer func() { _ = cps.Close() }()

	cp, err := loadCheckpoint(ctx, cps, slug, e.ws.RawPath(slug), flagFresh)
	if err != nil {
		return err
	}

	bucket, err := e.bucket(ctx)
	if err != nil {
		return err
	}

	tc := e.cfg.Translate
	client := translate.NewClient(translate.ClientOptions{
		BaseURL:           e.cfg.Secrets.OpenAIBaseURL,
		APIKey:            e.cfg.Secrets.OpenAIKey,
		Model:             tc.Model,
		Temperature:       tc.Temperature,
		Timeout:           tc.Timeout,
		RequestsPerMinute: tc.RequestsPerMinute,
	})

	pending := pendingCount(raw, out, cp, only)
	fmt.Printf("%s: %s, %d to translate with %s\n", raw.Listing.Title, util.Plural(len(raw.Chapters), "chapter"), pending, tc.Model)

	stats := ui.NewStats()
	pm := ui.NewProgressManager()
	bar := pm.Register("Translating", pending)
	prev := e.log.SetOutput(pm.Writer())

	titles := make(map[int]string, len(raw.Chapters))
	for _, ch := range raw.Chapters {
		titles[ch.Number] = ch.Title
	}

	tr := translate.New(client, translate.Options{
		SourceLang:    tc.SourceLang,
		TargetLang:    tc.TargetLang,
		SystemPrompt:  tc.SystemPrompt,
		Concurrency:   tc.Concurrency,
		WaveDelay:     tc.WaveDelay,
		MaxAttempts:   tc.MaxAttempts,
		RetryBase:     tc.RetryBase,
		MaxChunkChars: tc.MaxChunkChars,
		Log:           e.log,
		OnResult: func(r translate.ChapterResult) {
			label := chapters.Label(novel.ChapterRef{Number: r.Number, Title: titles[r.Number]})
			if r.Err != nil {
				stats.Failed.Add(1)
				e.log.Fail(label, r.Err)
			} else {
				stats.Succeeded.Add(1)
				e.log.OK(label, fmt.Sprintf("%.1fs", r.Duration.Seconds()))
			}
			bar.Done(r.Err != nil)
		},
	})

	sum, runErr := tr.Run(ctx, translate.Job{
		Raw:        raw,
		Output:     out,
		Checkpoint: cp,
		Store:      cps,
		SaveOutput: e.ws.SaveTranslated,
		Only:       only,
	})

	bar.MarkDone()
	pm.Close()
	e.log.SetOutput(prev)

	stats.Skipped.Store(int64(sum.Skipped))
	for _, ch := range out.Chapters {
		if only == nil || only[ch.Number] {
			stats.Words.Add(int64(ch.WordCount))
		}
	}
	stats.Summary(os.Stdout, "Translation")
	fmt.Printf("Translated document: %s\n", relPath(e.ws.TranslatedPath(slug)))

	if bucket != nil {
		if err := source.StageTranslated(context.WithoutCancel(ctx), bucket, out); err != nil {
			e.log.Warnf("stage translated document: %v\n", err)
		}
	}

	if runErr != nil {
		if ctx.Err() != nil {
			fmt.Println("Interrupted; progress is checkpointed, rerun the same command to resume.")
		}
		return runErr
	}
	if len(sum.Failed) > 0 {
		nums := make([]string, len(sum.Failed))
		for i, f := range sum.Failed {
			nums[i] = fmt.Sprint(f.Number)
		}
		fmt.Printf("Failed chapters: %s\n", strings.Join(nums, ", "))
		return errPartial
	}
	return nil
}

// loadCheckpoint returns the stored checkpoint, discarding it first when
// fresh is set.
func loadCheckpoint(ctx context.Context, cps checkpoint.Store, slug, rawPath string, fresh bool) (*checkpoint.Checkpoint, error) {
	if fresh {
		if err := cps.Delete(ctx, slug); err != nil {
			return nil, fmt.Errorf("discard checkpoint: %w", err)
		}
	}
	return checkpoint.LoadOrNew(ctx, cps, slug, rawPath)
}

// pendingCount mirrors the translator's skip rule for the progress total.
func pendingCount(raw *novel.RawNovel, out *novel.TranslatedNovel, cp *checkpoint.Checkpoint, only map[int]bool) int {
	n := 0
	for _, ch := range raw.Chapters {
		if only != nil && !only[ch.Number] {
			continue
		}
		if cp.Done(ch.Number) {
			if tc, ok := out.Chapter(ch.Number); ok && strings.TrimSpace(tc.Content) != "" {
				continue
			}
		}
		n++
	}
	return n
}
