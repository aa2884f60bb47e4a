package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newJob(lang int64, id, field string, priority int) *domain.TranslationJob {
	return &domain.TranslationJob{
		LanguageID:   lang,
		ContentType:  "faq",
		ContentID:    id,
		Field:        field,
		OriginalText: "Hallo",
		SourceHash:   domain.HashValue("Hallo"),
		Priority:     priority,
		MaxAttempts:  3,
	}
}

func TestStore_CreateJobRejectsSecondActiveJob(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateJob(ctx, newJob(2, "q1", "answer", 80)))
	err := s.CreateJob(ctx, newJob(2, "q1", "answer", 90))
	assert.ErrorIs(t, err, domain.ErrDuplicateActiveJob)

	// a different language is a different key
	require.NoError(t, s.CreateJob(ctx, newJob(3, "q1", "answer", 80)))
	assert.Len(t, s.Jobs(), 2)
}

func TestStore_ClaimNextJobOrder(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.now))

	low := newJob(2, "q1", "answer", 50)
	require.NoError(t, s.CreateJob(ctx, low))
	clock.advance(time.Second)
	high := newJob(2, "q2", "answer", 90)
	require.NoError(t, s.CreateJob(ctx, high))
	clock.advance(time.Second)
	later := newJob(2, "q3", "answer", 90)
	later.AvailableAt = clock.t.Add(time.Hour)
	require.NoError(t, s.CreateJob(ctx, later))

	first, err := s.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, high.JobID, first.JobID)
	assert.Equal(t, domain.JobStatusProcessing, first.Status)
	assert.Equal(t, 1, first.Attempts)

	second, err := s.ClaimNextJob(ctx, "w2")
	require.NoError(t, err)
	assert.Equal(t, low.JobID, second.JobID)

	_, err = s.ClaimNextJob(ctx, "w3")
	assert.ErrorIs(t, err, domain.ErrNoJobAvailable)

	clock.advance(2 * time.Hour)
	third, err := s.ClaimNextJob(ctx, "w3")
	require.NoError(t, err)
	assert.Equal(t, later.JobID, third.JobID)
}

func TestStore_CompleteJob(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateJob(ctx, newJob(2, "q1", "answer", 80)))
	job, err := s.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)

	require.NoError(t, s.CompleteJob(ctx, job, "Hello", "mt"))

	tr, err := s.GetTranslation(ctx, job.Key())
	require.NoError(t, err)
	require.NotNil(t, tr)
	assert.Equal(t, "Hello", tr.Value)
	assert.Equal(t, job.SourceHash, tr.SourceHash)
	assert.Equal(t, domain.TranslationStatusTranslated, tr.Status)
	assert.False(t, tr.IsOutdated)
	assert.Equal(t, "mt", tr.Provider)

	stored, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusTranslated, stored.Status)
	assert.NotNil(t, stored.CompletedAt)
}

func TestStore_CompleteJobSupersededByRefresh(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateJob(ctx, newJob(2, "q1", "answer", 80)))
	job, err := s.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)

	require.NoError(t, s.RefreshJob(ctx, job.JobID, "Hallo Welt", domain.HashValue("Hallo Welt"), 90))

	err = s.CompleteJob(ctx, job, "Hello", "mt")
	assert.ErrorIs(t, err, domain.ErrJobSuperseded)

	tr, err := s.GetTranslation(ctx, job.Key())
	require.NoError(t, err)
	assert.Nil(t, tr)

	stored, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, stored.Status)
	assert.Equal(t, 0, stored.Attempts)
	assert.Equal(t, "Hallo Welt", stored.OriginalText)
}

func TestStore_RetryAndFail(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.now))

	require.NoError(t, s.CreateJob(ctx, newJob(2, "q1", "answer", 80)))
	job, err := s.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)

	assert.ErrorIs(t, s.RetryJob(ctx, job.JobID, "other", "boom", clock.t), domain.ErrJobAlreadyClaimed)
	require.NoError(t, s.RetryJob(ctx, job.JobID, "w1", "boom", clock.t.Add(time.Minute)))

	_, err = s.ClaimNextJob(ctx, "w1")
	assert.ErrorIs(t, err, domain.ErrNoJobAvailable)

	clock.advance(time.Minute)
	job, err = s.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, 2, job.Attempts)

	require.NoError(t, s.FailJob(ctx, job.JobID, "w1", "still broken"))
	stored, err := s.GetJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFailed, stored.Status)
	require.NotNil(t, stored.LastError)
	assert.Equal(t, "still broken", *stored.LastError)

	// a terminal job no longer blocks a new active job for the key
	require.NoError(t, s.CreateJob(ctx, newJob(2, "q1", "answer", 80)))
}

func TestStore_RetryFailedJob(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateJob(ctx, newJob(2, "q1", "answer", 80)))
	job, err := s.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)

	_, err = s.RetryFailedJob(ctx, job.JobID)
	assert.ErrorIs(t, err, domain.ErrJobNotFailed)

	require.NoError(t, s.FailJob(ctx, job.JobID, "w1", "nope"))
	reset, err := s.RetryFailedJob(ctx, job.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, reset.Status)
	assert.Equal(t, 0, reset.Attempts)

	_, err = s.RetryFailedJob(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestStore_ResetStaleJobs(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.now))

	require.NoError(t, s.CreateJob(ctx, newJob(2, "q1", "answer", 80)))
	require.NoError(t, s.CreateJob(ctx, newJob(2, "q2", "answer", 80)))
	stale, err := s.ClaimNextJob(ctx, "w1")
	require.NoError(t, err)

	clock.advance(10 * time.Minute)
	fresh, err := s.ClaimNextJob(ctx, "w2")
	require.NoError(t, err)

	n, err := s.ResetStaleJobs(ctx, clock.t.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetJob(ctx, stale.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, got.Status)

	got, err = s.GetJob(ctx, fresh.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, got.Status)
}

func TestStore_ListJobsPagination(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.now))

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.CreateJob(ctx, newJob(2, id, "answer", 80)))
		clock.advance(time.Second)
	}

	page, err := s.ListJobs(ctx, domain.JobFilter{PageSize: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "c", page[0].ContentID)

	next, err := s.ListJobs(ctx, domain.JobFilter{
		PageSize: 1,
		Cursor:   &domain.JobCursor{CreatedAt: page[0].CreatedAt, JobID: page[0].JobID},
	})
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.Equal(t, "b", next[0].ContentID)

	filtered, err := s.ListJobs(ctx, domain.JobFilter{Status: domain.JobStatusFailed})
	require.NoError(t, err)
	assert.Empty(t, filtered)
}

func TestStore_MarkOutdatedKeepsValue(t *testing.T) {
	ctx := context.Background()
	s := New()

	key := domain.TranslationKey{LanguageID: 2, ContentType: "faq", ContentID: "q1", Field: "answer"}
	s.PutTranslation(domain.Translation{
		LanguageID: 2, ContentType: "faq", ContentID: "q1", Field: "answer",
		Value: "Yes", SourceHash: "old", Status: domain.TranslationStatusTranslated,
	})

	require.NoError(t, s.MarkOutdated(ctx, key))
	require.NoError(t, s.MarkOutdated(ctx, domain.TranslationKey{LanguageID: 9}))

	tr, err := s.GetTranslation(ctx, key)
	require.NoError(t, err)
	assert.True(t, tr.IsOutdated)
	assert.Equal(t, "Yes", tr.Value)
	assert.Equal(t, domain.TranslationStatusTranslated, tr.Status)
}

func TestStore_LatestFailedJob(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := New(WithClock(clock.now))
	key := domain.TranslationKey{LanguageID: 2, ContentType: "faq", ContentID: "q1", Field: "answer"}

	_, err := s.LatestFailedJob(ctx, key)
	assert.ErrorIs(t, err, domain.ErrJobNotFound)

	fail := func(text string) string {
		job := newJob(2, "q1", "answer", 80)
		job.OriginalText = text
		job.SourceHash = domain.HashValue(text)
		require.NoError(t, s.CreateJob(ctx, job))
		claimed, err := s.ClaimNextJob(ctx, "w1")
		require.NoError(t, err)
		require.NoError(t, s.FailJob(ctx, claimed.JobID, "w1", "unsupported language"))
		clock.advance(time.Minute)
		return claimed.JobID
	}
	fail("Hallo")
	second := fail("Hallo Welt")

	// an unrelated key does not match
	require.NoError(t, s.CreateJob(ctx, newJob(3, "q1", "answer", 80)))

	got, err := s.LatestFailedJob(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, second, got.JobID)
	assert.Equal(t, domain.HashValue("Hallo Welt"), got.SourceHash)
}
