package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cuongbtq/content-i18n/internal/config"
)

// Operator setting keys stored in app_settings
const (
	KeyPreference          = "translation.preference"
	KeyMTAPIKey            = "translation.mt_api_key"
	KeyAIAPIKey            = "translation.ai_api_key"
	KeyAIModel             = "translation.ai_model"
	KeyCapabilityOverrides = "translation.capability_overrides"
)

// SettingsStore reads and writes operator settings
type SettingsStore interface {
	GetSettings(ctx context.Context) (map[string]string, error)
	PutSettings(ctx context.Context, values map[string]string) error
}

// Settings is the effective backend configuration for one call
type Settings struct {
	Preference   string       `json:"preference"`
	MTAPIKey     string       `json:"-"`
	AIAPIKey     string       `json:"-"`
	AIModel      string       `json:"ai_model,omitempty"`
	Capabilities Capabilities `json:"-"`
}

// SettingsFromConfig builds the defaults that stored settings override
func SettingsFromConfig(cfg config.TranslationConfig) Settings {
	return Settings{
		Preference:   cfg.Preference,
		MTAPIKey:     cfg.MT.APIKey,
		AIAPIKey:     cfg.AI.APIKey,
		AIModel:      cfg.AI.Model,
		Capabilities: DefaultCapabilities().Merge(cfg.CapabilityOverrides),
	}
}

// View is the redacted form of Settings exposed to operators
type View struct {
	Preference     string `json:"preference"`
	MTConfigured   bool   `json:"mt_configured"`
	AIConfigured   bool   `json:"ai_configured"`
	AIModel        string `json:"ai_model,omitempty"`
	SupportedCodes int    `json:"mt_supported_locales"`
}

// View returns the settings without credentials
func (s Settings) View() View {
	supported := 0
	for _, v := range s.Capabilities {
		if v != nil {
			supported++
		}
	}
	return View{
		Preference:     s.Preference,
		MTConfigured:   s.MTAPIKey != "",
		AIConfigured:   s.AIAPIKey != "",
		AIModel:        s.AIModel,
		SupportedCodes: supported,
	}
}

func loadSettings(ctx context.Context, store SettingsStore, defaults Settings) (Settings, error) {
	s := defaults
	if s.Capabilities == nil {
		s.Capabilities = DefaultCapabilities()
	}
	if store == nil {
		return s, nil
	}

	values, err := store.GetSettings(ctx)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to load provider settings: %w", err)
	}

	if v := strings.TrimSpace(values[KeyPreference]); v != "" {
		s.Preference = v
	}
	if v := strings.TrimSpace(values[KeyMTAPIKey]); v != "" {
		s.MTAPIKey = v
	}
	if v := strings.TrimSpace(values[KeyAIAPIKey]); v != "" {
		s.AIAPIKey = v
	}
	if v := strings.TrimSpace(values[KeyAIModel]); v != "" {
		s.AIModel = v
	}
	if raw := strings.TrimSpace(values[KeyCapabilityOverrides]); raw != "" {
		var overrides Capabilities
		if err := json.Unmarshal([]byte(raw), &overrides); err != nil {
			return Settings{}, fmt.Errorf("invalid %s: %w", KeyCapabilityOverrides, err)
		}
		s.Capabilities = s.Capabilities.Merge(overrides)
	}

	if s.Preference == "" {
		s.Preference = config.PreferenceAuto
	}
	return s, nil
}

// SettingsUpdate is a partial change to operator settings. Nil fields are left
// as they are; an empty string clears the stored value.
type SettingsUpdate struct {
	Preference          *string      `json:"preference"`
	MTAPIKey            *string      `json:"mt_api_key"`
	AIAPIKey            *string      `json:"ai_api_key"`
	AIModel             *string      `json:"ai_model"`
	CapabilityOverrides Capabilities `json:"capability_overrides"`
}

// Values validates the update and returns the settings rows to write
func (u SettingsUpdate) Values() (map[string]string, error) {
	values := make(map[string]string)

	if u.Preference != nil {
		p := strings.TrimSpace(*u.Preference)
		switch p {
		case "", config.PreferenceAuto, config.PreferenceMTForced, config.PreferenceAIForced:
		default:
			return nil, fmt.Errorf("invalid preference %q: must be one of %s, %s, %s",
				p, config.PreferenceAuto, config.PreferenceMTForced, config.PreferenceAIForced)
		}
		values[KeyPreference] = p
	}
	if u.MTAPIKey != nil {
		values[KeyMTAPIKey] = strings.TrimSpace(*u.MTAPIKey)
	}
	if u.AIAPIKey != nil {
		values[KeyAIAPIKey] = strings.TrimSpace(*u.AIAPIKey)
	}
	if u.AIModel != nil {
		values[KeyAIModel] = strings.TrimSpace(*u.AIModel)
	}
	if u.CapabilityOverrides != nil {
		normalized := make(Capabilities, len(u.CapabilityOverrides))
		for k, v := range u.CapabilityOverrides {
			if normalizeCode(k) == "" {
				return nil, fmt.Errorf("capability override has an empty locale code")
			}
			normalized[normalizeCode(k)] = v
		}
		raw, err := json.Marshal(normalized)
		if err != nil {
			return nil, fmt.Errorf("failed to encode capability overrides: %w", err)
		}
		values[KeyCapabilityOverrides] = string(raw)
	}

	if len(values) == 0 {
		return nil, fmt.Errorf("no settings to update")
	}
	return values, nil
}
