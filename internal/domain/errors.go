package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrJobAlreadyClaimed is returned when attempting to claim a job that's already claimed
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in PENDING status")

	// ErrNoJobAvailable is returned when no PENDING job is ready to be claimed
	ErrNoJobAvailable = errors.New("no job available")

	// ErrDuplicateActiveJob is returned when a second non-terminal job would be created for one key
	ErrDuplicateActiveJob = errors.New("active job already exists for key")

	// ErrJobSuperseded is returned when a job was refreshed with new source text while being processed
	ErrJobSuperseded = errors.New("job superseded by newer source text")

	// ErrContentNotFound is returned when a source record does not exist or is not eligible
	ErrContentNotFound = errors.New("content not found")

	// ErrJobNotFailed is returned when an operator retries a job that is not FAILED
	ErrJobNotFailed = errors.New("job is not in FAILED status")

	// ErrLanguageNotFound is returned when a locale code or language id is unknown
	ErrLanguageNotFound = errors.New("language not found")

	// ErrSourceLanguageMissing is returned when no language is flagged as default
	ErrSourceLanguageMissing = errors.New("no default source language configured")

	// ErrNotTargetLanguage is returned when the source language is used as a translation target
	ErrNotTargetLanguage = errors.New("language is not a translation target")

	// ErrSyncInProgress is returned when another sync run holds the run-lock
	ErrSyncInProgress = errors.New("sync already in progress")

	// ErrNoBackend is returned when neither translation backend can serve a request
	ErrNoBackend = errors.New("no functioning translation backend")

	// ErrMaxRetriesExceeded is returned when a job has exceeded its retry limit
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)

// ScanError reports a failure to read one content type during a scan.
type ScanError struct {
	ContentType string
	Err         error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.ContentType, e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

// ConfigurationError reports a request that cannot be served with the current
// provider configuration. It is never retried automatically.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return "translation configuration error: " + e.Reason + ": " + e.Err.Error()
	}
	return "translation configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// ProviderErrorKind classifies backend failures.
type ProviderErrorKind string

const (
	ProviderErrorAuth     ProviderErrorKind = "auth"
	ProviderErrorQuota    ProviderErrorKind = "quota"
	ProviderErrorNetwork  ProviderErrorKind = "network"
	ProviderErrorRejected ProviderErrorKind = "rejected"
)

// ProviderError wraps a failed backend call.
type ProviderError struct {
	Provider   string
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Provider, e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// TranslationFailedError is returned when every attempted backend failed.
type TranslationFailedError struct {
	Errors []error
}

func (e *TranslationFailedError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	return "translation failed: " + strings.Join(msgs, "; ")
}

func (e *TranslationFailedError) Unwrap() []error {
	return e.Errors
}

// RetryableError wraps transient errors that should trigger a retry
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}
