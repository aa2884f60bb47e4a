package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Provider preference values
const (
	PreferenceAuto     = "auto"
	PreferenceMTForced = "mt-forced"
	PreferenceAIForced = "ai-forced"
)

// Config represents the complete application configuration
type Config struct {
	Server       ServerConfig        `yaml:"server"`
	Database     DatabaseConfig      `yaml:"database"`
	RabbitMQ     RabbitMQConfig      `yaml:"rabbitmq"`
	Redis        RedisConfig         `yaml:"redis"`
	Logging      LoggingConfig       `yaml:"logging"`
	App          AppConfig           `yaml:"app"`
	Worker       WorkerConfig        `yaml:"worker"`
	Sync         SyncConfig          `yaml:"sync"`
	Translation  TranslationConfig   `yaml:"translation"`
	Locale       LocaleConfig        `yaml:"locale"`
	ContentTypes []ContentTypeConfig `yaml:"content_types"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds RabbitMQ connection and exchange/queue configuration.
// An empty host disables job notifications; workers then rely on polling.
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// Enabled reports whether a broker is configured.
func (c RabbitMQConfig) Enabled() bool {
	return c.Host != ""
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int  `yaml:"prefetch_count"`
	AutoAck       bool `yaml:"auto_ack"`
	Exclusive     bool `yaml:"exclusive"`
}

// RedisConfig holds the optional Redis connection used for the sync run-lock.
// An empty URL selects the in-process lock.
type RedisConfig struct {
	URL            string        `yaml:"url"`
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryInterval  time.Duration `yaml:"retry_interval"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	LockKey        string        `yaml:"lock_key"`
	LockTTL        time.Duration `yaml:"lock_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level            string `yaml:"level"`
	Format           string `yaml:"format"`
	Output           string `yaml:"output"`
	EnableCaller     bool   `yaml:"enable_caller"`
	EnableStackTrace bool   `yaml:"enable_stack_trace"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker service configuration
type WorkerConfig struct {
	Concurrency       int           `yaml:"concurrency"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	JobTimeout        time.Duration `yaml:"job_timeout"`
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryBaseDelay    time.Duration `yaml:"retry_base_delay"`
	RetryMaxDelay     time.Duration `yaml:"retry_max_delay"`
}

// SyncConfig holds scan/detect/queue settings
type SyncConfig struct {
	// Interval schedules periodic runs in the worker service; zero disables them.
	Interval             time.Duration `yaml:"interval"`
	CreateJobsForNew     *bool         `yaml:"create_jobs_for_new"`
	CreateJobsForChanged *bool         `yaml:"create_jobs_for_changed"`
}

// JobsForNew reports whether NEW fields are queued. Defaults to true.
func (c SyncConfig) JobsForNew() bool {
	return c.CreateJobsForNew == nil || *c.CreateJobsForNew
}

// JobsForChanged reports whether CHANGED fields are queued. Defaults to true.
func (c SyncConfig) JobsForChanged() bool {
	return c.CreateJobsForChanged == nil || *c.CreateJobsForChanged
}

// TranslationConfig holds translation backend defaults. Operator settings
// stored in the database take precedence over these values.
type TranslationConfig struct {
	Preference          string             `yaml:"preference"`
	MT                  MTConfig           `yaml:"mt"`
	AI                  AIConfig           `yaml:"ai"`
	CapabilityOverrides map[string]*string `yaml:"capability_overrides"`
	BatchDelay          time.Duration      `yaml:"batch_delay"`
	MaxInFlight         int                `yaml:"max_in_flight"`
	ConfigTTL           time.Duration      `yaml:"config_ttl"`
}

// MTConfig holds the machine-translation backend settings
type MTConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AIConfig holds the AI backend settings
type AIConfig struct {
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// LocaleConfig holds locale resolution settings
type LocaleConfig struct {
	CookieName       string        `yaml:"cookie_name"`
	FallbackLocale   string        `yaml:"fallback_locale"`
	BaseURL          string        `yaml:"base_url"`
	LanguageCacheTTL time.Duration `yaml:"language_cache_ttl"`
}

// ContentTypeConfig registers one translatable content type
type ContentTypeConfig struct {
	Name         string        `yaml:"name"`
	Table        string        `yaml:"table"`
	IDColumn     string        `yaml:"id_column"`
	ActiveFilter string        `yaml:"active_filter"`
	OrderBy      string        `yaml:"order_by"`
	Priority     int           `yaml:"priority"`
	Fields       []FieldConfig `yaml:"fields"`
}

// FieldConfig maps a logical field name to a column
type FieldConfig struct {
	Name   string `yaml:"name"`
	Column string `yaml:"column"`
}

// envOverrides carries secrets that may be supplied through the environment
// instead of the config file. Non-empty values win over the YAML.
type envOverrides struct {
	DatabasePassword string `env:"DATABASE_PASSWORD"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD"`
	RedisURL         string `env:"REDIS_URL"`
	MTAPIKey         string `env:"MT_API_KEY"`
	AIAPIKey         string `env:"AI_API_KEY"`
}

// Load reads and parses the configuration file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment overrides: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyEnv() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return err
	}

	if overrides.DatabasePassword != "" {
		c.Database.Password = overrides.DatabasePassword
	}
	if overrides.RabbitMQPassword != "" {
		c.RabbitMQ.Password = overrides.RabbitMQPassword
	}
	if overrides.RedisURL != "" {
		c.Redis.URL = overrides.RedisURL
	}
	if overrides.MTAPIKey != "" {
		c.Translation.MT.APIKey = overrides.MTAPIKey
	}
	if overrides.AIAPIKey != "" {
		c.Translation.AI.APIKey = overrides.AIAPIKey
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Translation.Preference == "" {
		c.Translation.Preference = PreferenceAuto
	}
	if c.Translation.BatchDelay <= 0 {
		c.Translation.BatchDelay = 200 * time.Millisecond
	}
	if c.Translation.MaxInFlight <= 0 {
		c.Translation.MaxInFlight = 4
	}
	if c.Translation.ConfigTTL <= 0 {
		c.Translation.ConfigTTL = 5 * time.Minute
	}
	if c.Translation.MT.Timeout <= 0 {
		c.Translation.MT.Timeout = 20 * time.Second
	}
	if c.Translation.AI.Timeout <= 0 {
		c.Translation.AI.Timeout = 60 * time.Second
	}

	if c.Locale.CookieName == "" {
		c.Locale.CookieName = "locale"
	}
	if c.Locale.LanguageCacheTTL <= 0 {
		c.Locale.LanguageCacheTTL = 60 * time.Second
	}

	if c.Worker.PollInterval <= 0 {
		c.Worker.PollInterval = 5 * time.Second
	}
	if c.Worker.MaxAttempts <= 0 {
		c.Worker.MaxAttempts = 3
	}
	if c.Worker.RetryBaseDelay <= 0 {
		c.Worker.RetryBaseDelay = 30 * time.Second
	}
	if c.Worker.RetryMaxDelay <= 0 {
		c.Worker.RetryMaxDelay = 10 * time.Minute
	}
	if c.Worker.StaleAfter <= 0 {
		c.Worker.StaleAfter = 5 * time.Minute
	}
	if c.Worker.SweepInterval <= 0 {
		c.Worker.SweepInterval = time.Minute
	}

	if c.Redis.LockKey == "" {
		c.Redis.LockKey = "content-i18n:sync-lock"
	}
	if c.Redis.LockTTL <= 0 {
		c.Redis.LockTTL = 10 * time.Minute
	}
}

// ValidateAPIConfig checks the settings required by the API service
func (c *Config) ValidateAPIConfig() error {
	if c.Server.Port < MinPort || c.Server.Port > MaxPort {
		return fmt.Errorf("invalid server port: %d (must be between %d and %d)", c.Server.Port, MinPort, MaxPort)
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if c.Locale.FallbackLocale == "" {
		return fmt.Errorf("locale fallback_locale is required")
	}

	return c.validateTranslation()
}

// ValidateWorkerConfig checks the settings required by the worker service
func (c *Config) ValidateWorkerConfig() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.HeartbeatInterval <= 0 {
		return fmt.Errorf("worker heartbeat_interval must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Worker.StaleAfter <= c.Worker.HeartbeatInterval {
		return fmt.Errorf("worker stale_after must be greater than heartbeat_interval")
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	return c.validateTranslation()
}

// ValidateCLIConfig checks the settings required by the operator CLI
func (c *Config) ValidateCLIConfig() error {
	if err := c.validateDatabase(); err != nil {
		return err
	}
	return c.validateTranslation()
}

func (c *Config) validateDatabase() error {
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.Port < MinPort || c.Database.Port > MaxPort {
		return fmt.Errorf("invalid database port: %d (must be between %d and %d)", c.Database.Port, MinPort, MaxPort)
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if !c.RabbitMQ.Enabled() {
		return nil
	}

	if c.RabbitMQ.Port < MinPort || c.RabbitMQ.Port > MaxPort {
		return fmt.Errorf("invalid rabbitmq port: %d (must be between %d and %d)", c.RabbitMQ.Port, MinPort, MaxPort)
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}

func (c *Config) validateTranslation() error {
	switch c.Translation.Preference {
	case PreferenceAuto, PreferenceMTForced, PreferenceAIForced:
	default:
		return fmt.Errorf("invalid translation preference: %q (must be %s, %s or %s)",
			c.Translation.Preference, PreferenceAuto, PreferenceMTForced, PreferenceAIForced)
	}

	for _, ct := range c.ContentTypes {
		if ct.Name == "" || ct.Table == "" {
			return fmt.Errorf("content type name and table are required")
		}
		if len(ct.Fields) == 0 {
			return fmt.Errorf("content type %s has no fields", ct.Name)
		}
	}

	return nil
}
