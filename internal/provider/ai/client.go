// Package ai is the client of an OpenAI-compatible chat completions API used
// as the general-purpose translation backend.
package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// Name identifies the backend in errors and stored translations
const Name = "ai"

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
)

// Config holds client settings
type Config struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// Credentials are resolved per call so operator changes apply without a restart
type Credentials struct {
	APIKey string
	Model  string
}

// Client calls the chat completions endpoint
type Client struct {
	http        *resty.Client
	baseURL     string
	model       string
	temperature float64
}

// New creates a new Client
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Client{
		http:        resty.New().SetTimeout(timeout),
		baseURL:     baseURL,
		model:       model,
		temperature: cfg.Temperature,
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message message `json:"message"`
	} `json:"choices"`
}

// SystemPrompt returns the instruction sent with every request
func SystemPrompt(targetLanguage, sourceLanguage string) string {
	return fmt.Sprintf(
		"You are a professional website translator. Translate the user's text from %s to %s. "+
			"Keep HTML tags, Markdown, placeholders such as {name} and line breaks exactly as they are. "+
			"Reply with the translation only, without quotes or explanations.",
		sourceLanguage, targetLanguage,
	)
}

// Translate translates text between two languages given by display name
func (c *Client) Translate(ctx context.Context, text, targetLanguage, sourceLanguage string, creds Credentials) (string, error) {
	if creds.APIKey == "" {
		return "", &domain.ProviderError{Provider: Name, Kind: domain.ProviderErrorAuth, Err: errors.New("missing api key")}
	}

	model := creds.Model
	if model == "" {
		model = c.model
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+creds.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(chatRequest{
			Model: model,
			Messages: []message{
				{Role: "system", Content: SystemPrompt(targetLanguage, sourceLanguage)},
				{Role: "user", Content: text},
			},
			Temperature: c.temperature,
		}).
		SetResult(&out).
		Post(c.baseURL + "/chat/completions")
	if err != nil {
		return "", &domain.ProviderError{Provider: Name, Kind: domain.ProviderErrorNetwork, Err: err}
	}

	if resp.IsError() {
		return "", &domain.ProviderError{
			Provider:   Name,
			Kind:       classifyStatus(resp.StatusCode()),
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("%s: %s", resp.Status(), truncate(resp.String(), 200)),
		}
	}

	if len(out.Choices) == 0 {
		return "", &domain.ProviderError{Provider: Name, Kind: domain.ProviderErrorRejected, Err: errors.New("no choices returned")}
	}

	translated := strings.TrimSpace(out.Choices[0].Message.Content)
	if translated == "" {
		return "", &domain.ProviderError{Provider: Name, Kind: domain.ProviderErrorRejected, Err: errors.New("empty completion")}
	}
	return translated, nil
}

func classifyStatus(status int) domain.ProviderErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ProviderErrorAuth
	case http.StatusPaymentRequired, http.StatusTooManyRequests:
		return domain.ProviderErrorQuota
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return domain.ProviderErrorNetwork
	default:
		return domain.ProviderErrorRejected
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
