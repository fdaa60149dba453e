// Package translate sends chapter text through an LLM chat endpoint in
// bounded concurrent waves and checkpoints progress after every wave.
package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/brogergvhs/novelpipe/internal/checkpoint"
	"github.com/brogergvhs/novelpipe/internal/novel"
	"github.com/brogergvhs/novelpipe/internal/retry"
	"github.com/brogergvhs/novelpipe/internal/sanitize"
)

const (
	DefaultConcurrency = 5
	DefaultWaveDelay   = 2 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryBase   = 5 * time.Second

	maxThrottleDelay = 2 * time.Minute
)

const DefaultSystemPrompt = `You are a professional literary translator. Translate the web novel text the user sends from {source} into natural, fluent {target}.
Keep every paragraph break: separate paragraphs with exactly one blank line and never merge or split paragraphs.
Keep character names and terms consistent. Output only the translated text without notes, explanations or a preamble.`

const titlePrompt = `Translate the web novel title the user sends from {source} into {target}. Reply with the translated title only, on one line, without quotes.`

const synopsisPrompt = `Translate the web novel synopsis the user sends from {source} into natural {target}. Keep paragraph breaks. Output only the translation.`

var (
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
	ErrNothingToTranslate = errors.New("chapter has no text")
)

type Logger interface {
	Debugf(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any) {}
func (nopLogger) Warnf(string, ...any)  {}

type Options struct {
	SourceLang   string
	TargetLang   string
	SystemPrompt string
	// Concurrency is the wave width.
	Concurrency int
	// WaveDelay is slept between waves.
	WaveDelay time.Duration
	// MaxAttempts per chapter; waits grow as attempt × RetryBase.
	MaxAttempts   int
	RetryBase     time.Duration
	MaxChunkChars int
	// MaxThrottleWaits bounds 429 waits per chapter; 0 waits as long as ctx allows.
	MaxThrottleWaits int

	Sleep    func(ctx context.Context, d time.Duration) error
	Log      Logger
	OnResult func(ChapterResult)
}

func (o Options) withDefaults() Options {
	if o.SourceLang == "" {
		o.SourceLang = "Korean"
	}
	if o.TargetLang == "" {
		o.TargetLang = "English"
	}
	if o.SystemPrompt == "" {
		o.SystemPrompt = DefaultSystemPrompt
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.WaveDelay < 0 {
		o.WaveDelay = 0
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryBase <= 0 {
		o.RetryBase = DefaultRetryBase
	}
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = DefaultMaxChunkChars
	}
	if o.Sleep == nil {
		o.Sleep = retry.SleepContext
	}
	if o.Log == nil {
		o.Log = nopLogger{}
	}
	return o
}

type Translator struct {
	c Completer
	o Options
}

func New(c Completer, o Options) *Translator {
	return &Translator{c: c, o: o.withDefaults()}
}

func (t *Translator) prompt(tmpl string) string {
	return strings.NewReplacer("{source}", t.o.SourceLang, "{target}", t.o.TargetLang).Replace(tmpl)
}

func (t *Translator) policy(label string) retry.Policy {
	return retry.Policy{
		MaxAttempts:      t.o.MaxAttempts,
		Backoff:          retry.Linear(t.o.RetryBase),
		Retryable:        retryable,
		Throttled:        func(err error) bool { return errors.Is(err, ErrRateLimited) },
		ThrottleBackoff:  t.throttleBackoff,
		MaxThrottleWaits: t.o.MaxThrottleWaits,
		Sleep:            t.o.Sleep,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			t.o.Log.Debugf("%s: attempt %d failed (%v), retrying in %s\n", label, attempt, err, wait)
		},
	}
}

func (t *Translator) throttleBackoff(wait int, err error) time.Duration {
	var rl *RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return min(time.Duration(wait)*t.o.RetryBase, maxThrottleDelay)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}
	return true
}

// TranslateChapter translates one chapter. Long chapters are split on
// paragraph breaks and the parts are joined in order; a retry only repeats
// the parts that have not succeeded yet.
func (t *Translator) TranslateChapter(ctx context.Context, novelTitle string, ch novel.RawChapter) (novel.TranslatedChapter, error) {
	src, err := sanitize.Clean(ch.Content, sanitize.Options{})
	if err != nil {
		return novel.TranslatedChapter{}, fmt.Errorf("chapter %d: %w", ch.Number, err)
	}

	chunks := Split(src.Text(), t.o.MaxChunkChars)
	if len(chunks) == 0 {
		return novel.TranslatedChapter{}, fmt.Errorf("chapter %d: %w", ch.Number, ErrNothingToTranslate)
	}

	system := t.prompt(t.o.SystemPrompt)
	done := make([]string, len(chunks))

	err = t.policy(fmt.Sprintf("chapter %d", ch.Number)).Do(ctx, func(ctx context.Context) error {
		for i, chunk := range chunks {
			if done[i] != "" {
				continue
			}
			out, err := t.c.Complete(ctx, system, userMessage(novelTitle, ch.Number, i, len(chunks), chunk))
			if err != nil {
				return err
			}
			cleaned := Clean(out)
			if cleaned == "" {
				return ErrEmptyReply
			}
			done[i] = cleaned
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, retry.ErrExhausted) {
			return novel.TranslatedChapter{}, fmt.Errorf("%w: chapter %d: %w", ErrMaxRetriesExceeded, ch.Number, err)
		}
		return novel.TranslatedChapter{}, fmt.Errorf("chapter %d: %w", ch.Number, err)
	}

	res := sanitize.FromText(strings.Join(done, "\n\n"), 1)
	return novel.TranslatedChapter{
		Number:    ch.Number,
		Title:     chapterTitle(ch),
		Content:   res.HTML,
		WordCount: res.WordCount,
	}, nil
}

func userMessage(title string, n, part, parts int, text string) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "Novel: %s\n", title)
	}
	fmt.Fprintf(&b, "Chapter %d", n)
	if parts > 1 {
		fmt.Fprintf(&b, " (part %d of %d)", part+1, parts)
	}
	b.WriteString("\n\n")
	b.WriteString(text)
	return b.String()
}

// chapterTitle keeps Latin-script titles and replaces the rest with
// "Chapter N"; titles are not sent to the model.
func chapterTitle(ch novel.RawChapter) string {
	t := strings.TrimSpace(ch.Title)
	if t == "" {
		return fmt.Sprintf("Chapter %d", ch.Number)
	}
	for _, r := range t {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return fmt.Sprintf("Chapter %d", ch.Number)
		}
	}
	return t
}

// TranslateMeta translates the novel title and synopsis.
func (t *Translator) TranslateMeta(ctx context.Context, l novel.SourceListing) (title, synopsis string, err error) {
	err = t.policy("title").Do(ctx, func(ctx context.Context) error {
		out, err := t.c.Complete(ctx, t.prompt(titlePrompt), l.Title)
		if err != nil {
			return err
		}
		title = firstLine(Clean(out))
		if title == "" {
			return ErrEmptyReply
		}
		return nil
	})
	if err != nil {
		return "", "", fmt.Errorf("translate title: %w", err)
	}

	if strings.TrimSpace(l.Synopsis) == "" {
		return title, "", nil
	}

	err = t.policy("synopsis").Do(ctx, func(ctx context.Context) error {
		out, err := t.c.Complete(ctx, t.prompt(synopsisPrompt), l.Synopsis)
		if err != nil {
			return err
		}
		synopsis = Clean(out)
		if synopsis == "" {
			return ErrEmptyReply
		}
		return nil
	})
	if err != nil {
		return title, "", fmt.Errorf("translate synopsis: %w", err)
	}

	return title, synopsis, nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.Trim(strings.TrimSpace(s), `"'“”「」`)
}

// Job is one novel's translation run.
type Job struct {
	Raw        *novel.RawNovel
	Output     *novel.TranslatedNovel
	Checkpoint *checkpoint.Checkpoint
	Store      checkpoint.Store
	// SaveOutput durably writes the partial output document.
	SaveOutput func(ctx context.Context, out *novel.TranslatedNovel) error
	// Only restricts the run to these chapter numbers when non-empty.
	Only map[int]bool
}

type ChapterResult struct {
	Number   int
	Err      error
	Duration time.Duration
}

type ChapterError struct {
	Number int
	Err    error
}

type Summary struct {
	Succeeded int
	Skipped   int
	Failed    []ChapterError
	// Reconciled lists numbers that were marked done without content.
	Reconciled []int
}

// Run translates every chapter of the job that the checkpoint does not list
// as done. After each wave the output document is written first and the
// checkpoint second, so a crash between the two only costs a re-translation.
// Per-chapter failures are recorded in the summary and never stop the run;
// an error is returned only when progress cannot be saved, the API rejects
// the credentials or ctx ends.
func (t *Translator) Run(ctx context.Context, job Job) (Summary, error) {
	var sum Summary
	out, cp := job.Output, job.Checkpoint

	sum.Reconciled = cp.Reconcile(func(n int) bool {
		c, ok := out.Chapter(n)
		return ok && strings.TrimSpace(c.Content) != ""
	})
	if len(sum.Reconciled) > 0 {
		t.o.Log.Warnf("%s: %d chapters were marked done without content and will be redone: %v\n",
			job.Raw.Slug, len(sum.Reconciled), sum.Reconciled)
	}

	var pending []novel.RawChapter
	for _, ch := range job.Raw.Chapters {
		if len(job.Only) > 0 && !job.Only[ch.Number] {
			continue
		}
		if cp.Done(ch.Number) {
			sum.Skipped++
			continue
		}
		pending = append(pending, ch)
	}

	// flushes must land even when ctx was cancelled mid-wave
	flushCtx := context.WithoutCancel(ctx)
	flush := func() error {
		out.UpdatedAt = time.Now().UTC()
		if err := job.SaveOutput(flushCtx, out); err != nil {
			return fmt.Errorf("save output: %w", err)
		}
		if err := job.Store.Save(flushCtx, cp); err != nil {
			return fmt.Errorf("save checkpoint: %w", err)
		}
		return nil
	}

	if out.Title == "" && job.Raw.Listing.Title != "" {
		title, synopsis, err := t.TranslateMeta(ctx, job.Raw.Listing)
		if err != nil {
			t.o.Log.Warnf("%s: %v\n", job.Raw.Slug, err)
		}
		if title != "" {
			out.Title = title
		}
		if synopsis != "" {
			out.Synopsis = synopsis
		}
		if err := flush(); err != nil {
			return sum, err
		}
	}

	novelTitle := job.Raw.Listing.Title
	width := t.o.Concurrency

	for start := 0; start < len(pending); start += width {
		wave := pending[start:min(start+width, len(pending))]
		results := make([]novel.TranslatedChapter, len(wave))
		errs := make([]error, len(wave))

		var g errgroup.Group
		for i, ch := range wave {
			g.Go(func() error {
				began := time.Now()
				results[i], errs[i] = t.TranslateChapter(ctx, novelTitle, ch)
				if t.o.OnResult != nil {
					t.o.OnResult(ChapterResult{Number: ch.Number, Err: errs[i], Duration: time.Since(began)})
				}
				var apiErr *APIError
				if errors.As(errs[i], &apiErr) && apiErr.Unauthorized() {
					return errs[i]
				}
				return nil
			})
		}
		fatal := g.Wait()

		for i, ch := range wave {
			if errs[i] != nil {
				sum.Failed = append(sum.Failed, ChapterError{Number: ch.Number, Err: errs[i]})
				continue
			}
			out.Put(results[i])
			cp.Mark(ch.Number)
			sum.Succeeded++
		}

		if err := flush(); err != nil {
			return sum, err
		}
		if fatal != nil {
			return sum, fmt.Errorf("translation API rejected the credentials: %w", fatal)
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		if start+width < len(pending) {
			if err := t.o.Sleep(ctx, t.o.WaveDelay); err != nil {
				return sum, err
			}
		}
	}

	return sum, nil
}
