// Package mt is the client of the DeepL-compatible machine-translation API.
package mt

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
const Name = "mt"

const (
	proURL  = "https://api.deepl.com"
	freeURL = "https://api-free.deepl.com"

	// statusQuotaExceeded is DeepL's "character limit reached" status
	statusQuotaExceeded = 456
)

// Config holds client settings
type Config struct {
	// BaseURL overrides the host chosen from the API key
	BaseURL string
	Timeout time.Duration
}

// Client calls the /v2/translate endpoint
type Client struct {
	http    *resty.Client
	baseURL string
}

// New creates a new Client
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		http:    resty.New().SetTimeout(timeout),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}
}

type translateRequest struct {
	Text       []string `json:"text"`
	SourceLang string   `json:"source_lang,omitempty"`
	TargetLang string   `json:"target_lang"`
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// Translate translates text from sourceLang to targetLang, both given as MT
// language codes.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang, apiKey string) (string, error) {
	if apiKey == "" {
		return "", &domain.ProviderError{Provider: Name, Kind: domain.ProviderErrorAuth, Err: errors.New("missing api key")}
	}

	var out translateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "DeepL-Auth-Key "+apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(translateRequest{
			Text:       []string{text},
			SourceLang: sourceLang,
			TargetLang: targetLang,
		}).
		SetResult(&out).
		Post(c.endpoint(apiKey))
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

	if len(out.Translations) == 0 {
		return "", &domain.ProviderError{Provider: Name, Kind: domain.ProviderErrorRejected, Err: errors.New("empty translation response")}
	}
	return out.Translations[0].Text, nil
}

func (c *Client) endpoint(apiKey string) string {
	base := c.baseURL
	if base == "" {
		base = proURL
		if strings.HasSuffix(apiKey, ":fx") {
			base = freeURL
		}
	}
	return base + "/v2/translate"
}

func classifyStatus(status int) domain.ProviderErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ProviderErrorAuth
	case http.StatusTooManyRequests, statusQuotaExceeded:
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
