package provider

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/semaphore"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/provider/ai"
	"github.com/cuongbtq/content-i18n/internal/provider/mt"
)

// MTClient is the machine-translation backend
type MTClient interface {
	Translate(ctx context.Context, text, sourceLang, targetLang, apiKey string) (string, error)
}

// AIClient is the general-purpose backend
type AIClient interface {
	Translate(ctx context.Context, text, targetLanguage, sourceLanguage string, creds ai.Credentials) (string, error)
}

// Strategy is one translation backend
type Strategy interface {
	Name() string
	Configured(s Settings) bool
	Translate(ctx context.Context, s Settings, req Request) (string, error)
}

type mtStrategy struct {
	client MTClient
	sem    *semaphore.Weighted
}

// NewMTStrategy wraps an MT client, allowing at most maxInFlight concurrent calls
func NewMTStrategy(client MTClient, maxInFlight int) Strategy {
	return &mtStrategy{client: client, sem: newSemaphore(maxInFlight)}
}

func (m *mtStrategy) Name() string { return mt.Name }

func (m *mtStrategy) Configured(s Settings) bool {
	return m.client != nil && s.MTAPIKey != ""
}

func (m *mtStrategy) Translate(ctx context.Context, s Settings, req Request) (string, error) {
	target, ok := s.Capabilities.Lookup(req.Target.Code)
	if !ok {
		return "", &domain.ProviderError{
			Provider: mt.Name,
			Kind:     domain.ProviderErrorRejected,
			Err:      fmt.Errorf("locale %q is not supported", req.Target.Code),
		}
	}

	if err := m.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer m.sem.Release(1)

	return m.client.Translate(ctx, req.Text, strings.ToUpper(baseCode(req.Source.Code)), target, s.MTAPIKey)
}

type aiStrategy struct {
	client AIClient
	sem    *semaphore.Weighted
}

// NewAIStrategy wraps an AI client, allowing at most maxInFlight concurrent calls
func NewAIStrategy(client AIClient, maxInFlight int) Strategy {
	return &aiStrategy{client: client, sem: newSemaphore(maxInFlight)}
}

func (a *aiStrategy) Name() string { return ai.Name }

func (a *aiStrategy) Configured(s Settings) bool {
	return a.client != nil && s.AIAPIKey != ""
}

func (a *aiStrategy) Translate(ctx context.Context, s Settings, req Request) (string, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer a.sem.Release(1)

	return a.client.Translate(ctx, req.Text, LanguageName(req.Target), LanguageName(req.Source),
		ai.Credentials{APIKey: s.AIAPIKey, Model: s.AIModel})
}

// LanguageName returns the English name of a language for prompts
func LanguageName(lang domain.Language) string {
	if tag, err := language.Parse(lang.Code); err == nil {
		if name := display.English.Tags().Name(tag); name != "" {
			return name
		}
	}
	if lang.Name != "" {
		return lang.Name
	}
	return lang.Code
}

func newSemaphore(n int) *semaphore.Weighted {
	if n <= 0 {
		n = 1
	}
	return semaphore.NewWeighted(int64(n))
}
