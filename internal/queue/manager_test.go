package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/storage/memory"
	"github.com/cuongbtq/content-i18n/shared/logger"
)

func change(kind string, lang int64, value string, hasTranslation bool) domain.ChangedContent {
	return domain.ChangedContent{
		TranslatableField: domain.TranslatableField{
			ContentType: "faq", ContentID: "q1", Field: "answer", Value: value, Priority: 80,
		},
		LanguageID:     lang,
		Change:         kind,
		NewHash:        domain.HashValue(value),
		HasTranslation: hasTranslation,
	}
}

func newManager(store Store, policy Policy) *Manager {
	return NewManager(store, policy, logger.NewDiscard().Logger)
}

func TestEnqueue_CreatesOneJobPerKey(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := newManager(store, DefaultPolicy())

	changes := []domain.ChangedContent{
		change(domain.ChangeNew, 2, "Ja, das ist möglich.", false),
		change(domain.ChangeNew, 3, "Ja, das ist möglich.", false),
	}

	result, err := m.Enqueue(ctx, changes)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 2, result.Jobs())

	jobs := store.Jobs()
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		assert.Equal(t, domain.JobStatusPending, job.Status)
		assert.Equal(t, 80, job.Priority)
		assert.Equal(t, 3, job.MaxAttempts)
		assert.Equal(t, "Ja, das ist möglich.", job.OriginalText)
	}
}

func TestEnqueue_SecondRunUpdatesExistingJob(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := newManager(store, DefaultPolicy())

	_, err := m.Enqueue(ctx, []domain.ChangedContent{change(domain.ChangeNew, 2, "Hallo", false)})
	require.NoError(t, err)

	job, err := store.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)
	require.NoError(t, store.RetryJob(ctx, job.JobID, "w1", "timeout", job.AvailableAt))

	result, err := m.Enqueue(ctx, []domain.ChangedContent{change(domain.ChangeNew, 2, "Hallo Welt", false)})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.Updated)

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, job.JobID, jobs[0].JobID)
	assert.Equal(t, domain.JobStatusPending, jobs[0].Status)
	assert.Equal(t, "Hallo Welt", jobs[0].OriginalText)
	assert.Equal(t, domain.HashValue("Hallo Welt"), jobs[0].SourceHash)
	assert.Equal(t, 0, jobs[0].Attempts)
	assert.Nil(t, jobs[0].LastError)
}

func TestEnqueue_ChangedBoostsPriorityAndMarksOutdated(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.PutTranslation(domain.Translation{
		LanguageID: 2, ContentType: "faq", ContentID: "q1", Field: "answer",
		Value: "Yes.", SourceHash: domain.HashValue("Ja."), Status: domain.TranslationStatusTranslated,
	})
	m := newManager(store, DefaultPolicy())

	result, err := m.Enqueue(ctx, []domain.ChangedContent{change(domain.ChangeChanged, 2, "Ja, gern.", true)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.MarkedOutdated)
	assert.Equal(t, 1, result.Created)

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, 80+domain.ChangedPriorityBoost, jobs[0].Priority)

	tr, err := store.GetTranslation(ctx, domain.TranslationKey{LanguageID: 2, ContentType: "faq", ContentID: "q1", Field: "answer"})
	require.NoError(t, err)
	assert.True(t, tr.IsOutdated)
	assert.Equal(t, "Yes.", tr.Value, "stale value stays servable")
}

func TestEnqueue_Policy(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		policy      Policy
		change      domain.ChangedContent
		wantCreated int
		wantSkipped int
		wantMarked  int
	}{
		{
			name:        "new disabled",
			policy:      Policy{CreateJobsForNew: false, CreateJobsForChanged: true},
			change:      change(domain.ChangeNew, 2, "Hallo", false),
			wantSkipped: 1,
		},
		{
			name:        "changed disabled still marks outdated",
			policy:      Policy{CreateJobsForNew: true, CreateJobsForChanged: false},
			change:      change(domain.ChangeChanged, 2, "Hallo", true),
			wantSkipped: 1,
			wantMarked:  1,
		},
		{
			name:        "blank value skipped",
			policy:      DefaultPolicy(),
			change:      change(domain.ChangeNew, 2, "  \t ", false),
			wantSkipped: 1,
		},
		{
			name:        "both enabled",
			policy:      DefaultPolicy(),
			change:      change(domain.ChangeNew, 2, "Hallo", false),
			wantCreated: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			result, err := newManager(store, tt.policy).Enqueue(ctx, []domain.ChangedContent{tt.change})
			require.NoError(t, err)
			assert.Equal(t, tt.wantCreated, result.Created)
			assert.Equal(t, tt.wantSkipped, result.Skipped)
			assert.Equal(t, tt.wantMarked, result.MarkedOutdated)
			assert.Len(t, store.Jobs(), tt.wantCreated)
		})
	}
}

func TestEnqueue_InFlightJobWithSameHashLeftAlone(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := newManager(store, DefaultPolicy())

	c := change(domain.ChangeNew, 2, "Hallo", false)
	_, err := m.Enqueue(ctx, []domain.ChangedContent{c})
	require.NoError(t, err)
	job, err := store.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)

	result, err := m.Enqueue(ctx, []domain.ChangedContent{c})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InFlight)

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

// racingStore reports no active job on the first lookup but rejects the
// insert, as a concurrent sync would.
type racingStore struct {
	*memory.Store
	lookups int
}

func (s *racingStore) FindActiveJob(ctx context.Context, key domain.TranslationKey) (*domain.TranslationJob, error) {
	s.lookups++
	if s.lookups == 1 {
		return nil, domain.ErrJobNotFound
	}
	return s.Store.FindActiveJob(ctx, key)
}

func TestEnqueue_ConcurrentCreateFallsBackToUpdate(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{Store: memory.New()}
	require.NoError(t, store.CreateJob(ctx, &domain.TranslationJob{
		LanguageID: 2, ContentType: "faq", ContentID: "q1", Field: "answer",
		OriginalText: "Hallo", SourceHash: domain.HashValue("Hallo"), Priority: 80,
	}))

	result, err := newManager(store, DefaultPolicy()).Enqueue(ctx, []domain.ChangedContent{
		change(domain.ChangeNew, 2, "Hallo Welt", false),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Updated)
	assert.Len(t, store.Jobs(), 1)
}

type brokenStore struct{ *memory.Store }

func (brokenStore) MarkOutdated(context.Context, domain.TranslationKey) error {
	return errors.New("disk full")
}

func TestEnqueue_PersistenceErrorPropagates(t *testing.T) {
	store := brokenStore{memory.New()}
	_, err := newManager(store, DefaultPolicy()).Enqueue(context.Background(), []domain.ChangedContent{
		change(domain.ChangeChanged, 2, "Hallo", true),
	})
	assert.ErrorContains(t, err, "disk full")
}

func TestEnqueue_PendingRetryKeepsBackoff(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := newManager(store, DefaultPolicy())

	c := change(domain.ChangeNew, 2, "Hallo", false)
	_, err := m.Enqueue(ctx, []domain.ChangedContent{c})
	require.NoError(t, err)

	job, err := store.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)
	backoff := time.Now().Add(10 * time.Minute).Truncate(time.Second)
	require.NoError(t, store.RetryJob(ctx, job.JobID, "w1", "rate limited", backoff))

	result, err := m.Enqueue(ctx, []domain.ChangedContent{c})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InFlight)
	assert.Equal(t, 0, result.Updated)
	assert.Equal(t, 0, result.Created)

	got, err := store.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)
	assert.Equal(t, 1, got.Attempts)
	assert.True(t, backoff.Equal(got.AvailableAt))
	require.NotNil(t, got.LastError)
	assert.Equal(t, "rate limited", *got.LastError)
}

func TestEnqueue_FailedJobs(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		text           string
		wantCreated    int
		wantSkipped    int
		wantHeldFailed int
		wantJobs       int
	}{
		{
			name:           "same source text is held",
			text:           "Hallo",
			wantSkipped:    1,
			wantHeldFailed: 1,
			wantJobs:       1,
		},
		{
			name:        "edited source text gets a new job",
			text:        "Hallo Welt",
			wantCreated: 1,
			wantJobs:    2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			m := newManager(store, DefaultPolicy())

			_, err := m.Enqueue(ctx, []domain.ChangedContent{change(domain.ChangeNew, 2, "Hallo", false)})
			require.NoError(t, err)
			job, err := store.ClaimNextJob(ctx, "w1")
			require.NoError(t, err)
			require.NoError(t, store.FailJob(ctx, job.JobID, "w1", "no backend supports language hy"))

			for run := 0; run < 2; run++ {
				result, err := m.Enqueue(ctx, []domain.ChangedContent{change(domain.ChangeNew, 2, tt.text, false)})
				require.NoError(t, err)
				if run == 0 {
					assert.Equal(t, tt.wantCreated, result.Created)
					assert.Equal(t, tt.wantSkipped, result.Skipped)
					assert.Equal(t, tt.wantHeldFailed, result.HeldFailed)
				}
			}
			assert.Len(t, store.Jobs(), tt.wantJobs)
		})
	}
}

func TestEnqueue_OperatorRetryReactivatesHeldKey(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	m := newManager(store, DefaultPolicy())
	c := change(domain.ChangeNew, 2, "Hallo", false)

	_, err := m.Enqueue(ctx, []domain.ChangedContent{c})
	require.NoError(t, err)
	job, err := store.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)
	require.NoError(t, store.FailJob(ctx, job.JobID, "w1", "quota exceeded"))

	_, err = store.RetryFailedJob(ctx, job.JobID)
	require.NoError(t, err)

	result, err := m.Enqueue(ctx, []domain.ChangedContent{c})
	require.NoError(t, err)
	assert.Equal(t, 1, result.InFlight)
	assert.Equal(t, 0, result.HeldFailed)

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, domain.JobStatusPending, jobs[0].Status)
	assert.Equal(t, 0, jobs[0].Attempts)
}
