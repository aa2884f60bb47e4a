package pipeline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/content-i18n/internal/applier"
	"github.com/cuongbtq/content-i18n/internal/detector"
	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/locale"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
	"github.com/cuongbtq/content-i18n/internal/provider"
	"github.com/cuongbtq/content-i18n/internal/queue"
	"github.com/cuongbtq/content-i18n/internal/scanner"
	"github.com/cuongbtq/content-i18n/internal/storage/memory"
	"github.com/cuongbtq/content-i18n/shared/logger"
)

type fixture struct {
	store      *memory.Store
	languages  *locale.Languages
	pipeline   *pipeline.Pipeline
	notifier   *recordingPublisher
	de, en, fr domain.Language
}

func newFixture(t *testing.T, lock pipeline.Locker) *fixture {
	t.Helper()

	log := logger.NewDiscard().Logger
	store := memory.New()
	f := &fixture{store: store, notifier: &recordingPublisher{}}
	f.de = store.AddLanguage(domain.Language{Code: "de", Name: "Deutsch", IsActive: true, IsDefault: true})
	f.en = store.AddLanguage(domain.Language{Code: "en", Name: "English", IsActive: true, SortOrder: 1})
	f.fr = store.AddLanguage(domain.Language{Code: "fr", Name: "Français", IsActive: true, SortOrder: 2})
	f.languages = locale.NewLanguages(store, time.Minute)

	f.pipeline = pipeline.New(pipeline.Deps{
		Scanner:  scanner.New(scanner.DefaultRegistry(), store, log),
		Detector: detector.New(store, f.languages, log),
		Queue:    queue.NewManager(store, queue.DefaultPolicy(), log),
		Lock:     lock,
		Notifier: pipeline.NewRabbitNotifier(f.notifier),
		Logger:   log,
	})
	return f
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []any
	err  error
}

func (r *recordingPublisher) PublishJSON(_ context.Context, v any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, v)
	return r.err
}

type phraseBook map[string]string

func (phraseBook) Name() string                      { return "mt" }
func (phraseBook) Configured(provider.Settings) bool { return true }
func (p phraseBook) Translate(_ context.Context, _ provider.Settings, req provider.Request) (string, error) {
	out, ok := p[req.Target.Code]
	if !ok {
		return "", errors.New("no phrase")
	}
	return out, nil
}

// drain plays the worker: claim every available job and complete it.
func drain(t *testing.T, f *fixture, p *provider.Provider) int {
	t.Helper()
	ctx := context.Background()

	done := 0
	for {
		job, err := f.store.ClaimNextJob(ctx, "test-worker")
		if errors.Is(err, domain.ErrNoJobAvailable) {
			return done
		}
		require.NoError(t, err)

		target, err := f.languages.ByID(ctx, job.LanguageID)
		require.NoError(t, err)

		res, err := p.Translate(ctx, provider.Request{Text: job.OriginalText, Source: f.de, Target: target})
		require.NoError(t, err)
		require.NoError(t, f.store.CompleteJob(ctx, job, res.Text, res.Provider))
		done++
	}
}

func TestPipeline_EndToEnd(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	log := logger.NewDiscard().Logger

	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{
		"question": "",
		"answer":   "Ja, das ist möglich.",
	}})

	summary, err := f.pipeline.Run(ctx, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fr"}, summary.Languages)
	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 2, summary.New)
	assert.Equal(t, 0, summary.Changed)
	assert.Equal(t, 2, summary.JobsCreated)
	assert.Empty(t, summary.ScanErrors)

	require.Len(t, f.notifier.msgs, 1)
	assert.Equal(t, domain.JobMessage{Reason: pipeline.ReasonSync, Jobs: 2}, f.notifier.msgs[0])

	p := provider.New(provider.Options{
		Defaults: provider.Settings{MTAPIKey: "k"},
		MT: phraseBook{
			"en": "Yes, that is possible.",
			"fr": "Oui, c'est possible.",
		},
		Logger: log,
	})
	assert.Equal(t, 2, drain(t, f, p))

	app := applier.New(f.store, f.languages, log)
	items := []domain.Record{{ID: "q1", Fields: map[string]string{"answer": "Ja, das ist möglich."}}}

	en, err := app.Apply(ctx, items, "faq", "en", []string{"answer"})
	require.NoError(t, err)
	assert.Equal(t, "Yes, that is possible.", en[0].Fields["answer"])

	fr, err := app.Apply(ctx, items, "faq", "fr", []string{"answer"})
	require.NoError(t, err)
	assert.Equal(t, "Oui, c'est possible.", fr[0].Fields["answer"])

	de, err := app.Apply(ctx, items, "faq", "de", []string{"answer"})
	require.NoError(t, err)
	assert.Equal(t, "Ja, das ist möglich.", de[0].Fields["answer"])

	// A second run finds nothing to do.
	summary, err = f.pipeline.Run(ctx, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.New)
	assert.Equal(t, 2, summary.Unchanged)
	assert.Equal(t, 0, summary.JobsCreated)
	assert.Len(t, f.notifier.msgs, 1)

	// Editing the source marks both translations outdated and queues new jobs.
	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{"answer": "Ja, das geht."}})
	summary, err = f.pipeline.Run(ctx, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Changed)
	assert.Equal(t, 2, summary.MarkedOutdated)
	assert.Equal(t, 2, summary.JobsCreated)

	tr, err := f.store.GetTranslation(ctx, domain.TranslationKey{
		LanguageID: f.en.ID, ContentType: "faq", ContentID: "q1", Field: "answer",
	})
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.True(t, tr.IsOutdated)
	assert.Equal(t, "Yes, that is possible.", tr.Value)
}

func TestPipeline_FailedJobIsNotRequeued(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{"answer": "Ja."}})

	summary, err := f.pipeline.Run(ctx, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.JobsCreated)

	for {
		job, err := f.store.ClaimNextJob(ctx, "test-worker")
		if errors.Is(err, domain.ErrNoJobAvailable) {
			break
		}
		require.NoError(t, err)
		require.NoError(t, f.store.FailJob(ctx, job.JobID, "test-worker", "mt: api key is not configured"))
	}

	for run := 0; run < 2; run++ {
		summary, err = f.pipeline.Run(ctx, pipeline.Options{})
		require.NoError(t, err)
		assert.Equal(t, 2, summary.New)
		assert.Equal(t, 0, summary.JobsCreated)
		assert.Equal(t, 2, summary.HeldFailed)
	}
	assert.Len(t, f.store.Jobs(), 2)
	assert.Len(t, f.notifier.msgs, 1)

	// Editing the source releases the held keys.
	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{"answer": "Ja, gern."}})
	summary, err = f.pipeline.Run(ctx, pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.JobsCreated)
	assert.Equal(t, 0, summary.HeldFailed)
	assert.Len(t, f.store.Jobs(), 4)
}

func TestPipeline_SingleLanguage(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{"question": "Wie?"}})

	summary, err := f.pipeline.Run(context.Background(), pipeline.Options{LanguageID: f.fr.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"fr"}, summary.Languages)
	assert.Equal(t, 1, summary.JobsCreated)

	_, err = f.pipeline.Run(context.Background(), pipeline.Options{LanguageID: f.de.ID})
	assert.ErrorIs(t, err, domain.ErrNotTargetLanguage)

	_, err = f.pipeline.Run(context.Background(), pipeline.Options{LanguageID: 999})
	assert.ErrorIs(t, err, domain.ErrLanguageNotFound)
}

func TestPipeline_DetectIsReadOnly(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{"question": "Wie?", "answer": "So."}})

	preview, err := f.pipeline.Detect(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 4, preview.New)
	assert.Len(t, preview.Changes, 4)
	assert.Empty(t, f.store.Jobs())
	assert.Empty(t, f.notifier.msgs)
}

func TestPipeline_ScanErrorsAreReported(t *testing.T) {
	f := newFixture(t, nil)
	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{"question": "Wie?"}})
	f.store.FailContentType("page", errors.New("relation \"pages\" does not exist"))

	summary, err := f.pipeline.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	require.Len(t, summary.ScanErrors, 1)
	assert.Contains(t, summary.ScanErrors[0], "page")
	assert.Equal(t, 2, summary.JobsCreated)
}

func TestPipeline_NotifyFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.notifier.err = errors.New("broker down")
	f.store.PutRecord("faq", domain.Record{ID: "q1", Fields: map[string]string{"question": "Wie?"}})

	summary, err := f.pipeline.Run(context.Background(), pipeline.Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.JobsCreated)
}

func TestPipeline_ConcurrentRunIsRejected(t *testing.T) {
	lock := pipeline.NewLocalLock()
	f := newFixture(t, lock)

	unlock, err := lock.TryLock(context.Background())
	require.NoError(t, err)

	_, err = f.pipeline.Run(context.Background(), pipeline.Options{})
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	unlock()
	_, err = f.pipeline.Run(context.Background(), pipeline.Options{})
	assert.NoError(t, err)
}

func TestPipeline_CancelledRun(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.pipeline.Run(ctx, pipeline.Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.store.Jobs())
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
	err    error
}

func (r *fakeRedis) SetNX(ctx context.Context, key string, value any, _ time.Duration) *redis.BoolCmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return redis.NewBoolResult(false, r.err)
	}
	if _, ok := r.values[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	r.values[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (r *fakeRedis) Eval(ctx context.Context, _ string, keys []string, args ...any) *redis.Cmd {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.values[keys[0]] == args[0] {
		delete(r.values, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func TestRedisLock(t *testing.T) {
	client := &fakeRedis{values: map[string]string{}}
	log := logger.NewDiscard().Logger
	a := pipeline.NewRedisLock(client, "sync", time.Minute, log)
	b := pipeline.NewRedisLock(client, "sync", time.Minute, log)
	ctx := context.Background()

	unlock, err := a.TryLock(ctx)
	require.NoError(t, err)

	_, err = b.TryLock(ctx)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	// A lock taken over after expiry is not released by the old holder.
	client.values["sync"] = "someone-else"
	unlock()
	assert.Equal(t, "someone-else", client.values["sync"])

	delete(client.values, "sync")
	unlock, err = b.TryLock(ctx)
	require.NoError(t, err)
	unlock()
	assert.Empty(t, client.values)
}

func TestRedisLock_Error(t *testing.T) {
	client := &fakeRedis{values: map[string]string{}, err: errors.New("connection refused")}
	lock := pipeline.NewRedisLock(client, "", 0, logger.NewDiscard().Logger)

	_, err := lock.TryLock(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrSyncInProgress)
}
