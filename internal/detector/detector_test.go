package detector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/locale"
	"github.com/cuongbtq/content-i18n/internal/storage/memory"
	"github.com/cuongbtq/content-i18n/shared/logger"
)

type fixture struct {
	store    *memory.Store
	detector *Detector
	de       domain.Language
	en       domain.Language
	fr       domain.Language
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	f := &fixture{store: store}
	f.de = store.AddLanguage(domain.Language{Code: "de", IsActive: true, IsDefault: true})
	f.en = store.AddLanguage(domain.Language{Code: "en", IsActive: true, SortOrder: 1})
	f.fr = store.AddLanguage(domain.Language{Code: "fr", IsActive: true, SortOrder: 2})
	store.AddLanguage(domain.Language{Code: "it", IsActive: false, SortOrder: 3})

	f.detector = New(store, locale.NewLanguages(store, time.Minute), logger.NewDiscard().Logger)
	return f
}

func answer(value string) domain.TranslatableField {
	return domain.TranslatableField{ContentType: "faq", ContentID: "q1", Field: "answer", Value: value, Priority: 80}
}

func (f *fixture) translate(lang domain.Language, field domain.TranslatableField, value string) {
	f.store.PutTranslation(domain.Translation{
		LanguageID:  lang.ID,
		ContentType: field.ContentType,
		ContentID:   field.ContentID,
		Field:       field.Field,
		Value:       value,
		SourceHash:  domain.HashValue(field.Value),
		Status:      domain.TranslationStatusTranslated,
	})
}

func TestDetect_NewForEveryActiveTarget(t *testing.T) {
	f := newFixture(t)
	field := answer("Ja, das ist möglich.")

	result, err := f.detector.Detect(context.Background(), []domain.TranslatableField{field}, 0)
	require.NoError(t, err)

	require.Len(t, result.Changes, 2)
	assert.Equal(t, 2, result.New)
	assert.Equal(t, f.en.ID, result.Changes[0].LanguageID)
	assert.Equal(t, f.fr.ID, result.Changes[1].LanguageID)
	for _, c := range result.Changes {
		assert.Equal(t, domain.ChangeNew, c.Change)
		assert.False(t, c.HasTranslation)
		assert.Empty(t, c.OldHash)
		assert.Equal(t, domain.HashValue("Ja, das ist möglich."), c.NewHash)
	}
}

func TestDetect_Classification(t *testing.T) {
	f := newFixture(t)
	original := answer("Ja.")
	f.translate(f.en, original, "Yes.")
	f.translate(f.fr, original, "Oui.")

	t.Run("matching hash is unchanged", func(t *testing.T) {
		result, err := f.detector.Detect(context.Background(), []domain.TranslatableField{original}, 0)
		require.NoError(t, err)
		assert.Empty(t, result.Changes)
		assert.Equal(t, 2, result.Unchanged)
	})

	t.Run("edited source is changed", func(t *testing.T) {
		edited := answer("Ja, natürlich.")
		result, err := f.detector.Detect(context.Background(), []domain.TranslatableField{edited}, 0)
		require.NoError(t, err)
		require.Len(t, result.Changes, 2)
		for _, c := range result.Changes {
			assert.Equal(t, domain.ChangeChanged, c.Change)
			assert.True(t, c.HasTranslation)
			assert.Equal(t, domain.HashValue("Ja."), c.OldHash)
			assert.Equal(t, domain.HashValue("Ja, natürlich."), c.NewHash)
		}
	})
}

func TestDetect_SingleLanguage(t *testing.T) {
	f := newFixture(t)

	result, err := f.detector.Detect(context.Background(), []domain.TranslatableField{answer("Hallo")}, f.fr.ID)
	require.NoError(t, err)
	require.Len(t, result.Changes, 1)
	assert.Equal(t, f.fr.ID, result.Changes[0].LanguageID)

	_, err = f.detector.Detect(context.Background(), nil, f.de.ID)
	assert.ErrorIs(t, err, domain.ErrNotTargetLanguage)

	_, err = f.detector.Detect(context.Background(), nil, 42)
	assert.ErrorIs(t, err, domain.ErrLanguageNotFound)
}

func TestDetect_Idempotent(t *testing.T) {
	f := newFixture(t)
	field := answer("Ja, das ist möglich.")

	first, err := f.detector.Detect(context.Background(), []domain.TranslatableField{field}, 0)
	require.NoError(t, err)
	second, err := f.detector.Detect(context.Background(), []domain.TranslatableField{field}, 0)
	require.NoError(t, err)

	assert.Equal(t, first.Changes, second.Changes, "detection never writes")
}

type failingHashStore struct{}

func (failingHashStore) TranslationHashes(context.Context, int64, string) (map[domain.FieldRef]string, error) {
	return nil, errors.New("timeout")
}

func TestDetect_StoreError(t *testing.T) {
	f := newFixture(t)
	d := New(failingHashStore{}, locale.NewLanguages(f.store, time.Minute), logger.NewDiscard().Logger)

	_, err := d.Detect(context.Background(), []domain.TranslatableField{answer("x")}, 0)
	assert.Error(t, err)
}
