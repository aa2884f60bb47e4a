package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/content-i18n/internal/config"
	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/provider"
	"github.com/cuongbtq/content-i18n/internal/storage/memory"
	"github.com/cuongbtq/content-i18n/shared/logger"
)

func newMTServer(t *testing.T, gotKey *string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotKey = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"translations": []map[string]string{{"text": "Hallo Welt"}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInitProvider(t *testing.T) {
	var gotKey string
	srv := newMTServer(t, &gotKey)

	cfg := config.TranslationConfig{
		Preference: config.PreferenceAuto,
		MT:         config.MTConfig{APIKey: "config-key", BaseURL: srv.URL},
	}
	store := memory.New()
	p := InitProvider(&cfg, store, logger.NewDiscard().Logger)

	req := provider.Request{
		Text:   "Hello world",
		Source: domain.Language{ID: 1, Code: "en", IsDefault: true},
		Target: domain.Language{ID: 2, Code: "de"},
	}

	t.Run("config defaults", func(t *testing.T) {
		res, err := p.Translate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "Hallo Welt", res.Text)
		assert.Equal(t, "mt", res.Provider)
		assert.Equal(t, "DeepL-Auth-Key config-key", gotKey)
	})

	t.Run("stored key wins after invalidate", func(t *testing.T) {
		require.NoError(t, store.PutSettings(context.Background(), map[string]string{
			provider.KeyMTAPIKey: "stored-key",
		}))
		p.Invalidate()

		_, err := p.Translate(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, "DeepL-Auth-Key stored-key", gotKey)
	})

	t.Run("no backend for unsupported locale", func(t *testing.T) {
		_, err := p.Translate(context.Background(), provider.Request{
			Text:   "Hello",
			Source: req.Source,
			Target: domain.Language{ID: 3, Code: "hy"},
		})
		require.Error(t, err)
		assert.True(t, domain.IsConfigurationError(err))
	})
}

func TestInitLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")

	l, err := InitLogger(&config.LoggingConfig{Level: "info", Format: "json", Output: path})
	require.NoError(t, err)

	l.Info("hello", "component", "test")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}
