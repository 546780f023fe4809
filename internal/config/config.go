package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Sending   SendingConfig   `yaml:"sending"`
	Transport TransportConfig `yaml:"transport"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	SES       SESConfig       `yaml:"ses"`
	Resend    ResendConfig    `yaml:"resend"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Uploads   UploadsConfig   `yaml:"uploads"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	BodyLimitBytes int64    `yaml:"body_limit_bytes"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// In a container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for net.Listen.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// LogConfig holds logger settings
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// SendingConfig holds the send pipeline limits
type SendingConfig struct {
	MaxPerBatch   int `yaml:"max_per_batch"`
	DelayMS       int `yaml:"delay_ms"`
	TestModeLimit int `yaml:"test_mode_limit"`
	PreviewLimit  int `yaml:"preview_limit"`
}

// Delay returns the inter-message pause as a duration
func (c SendingConfig) Delay() time.Duration {
	return time.Duration(c.DelayMS) * time.Millisecond
}

// minShutdownTimeout is the floor for a graceful stop.
const minShutdownTimeout = 30 * time.Second

// ShutdownTimeout is how long a graceful stop waits for in-flight batches:
// every pause of a full batch plus one transport timeout, never under 30 s.
func (c *Config) ShutdownTimeout() time.Duration {
	perMessage := minShutdownTimeout
	if strings.EqualFold(c.Transport.Type, "smtp") && c.SMTP.TimeoutSeconds > 0 {
		perMessage = c.SMTP.Timeout()
	}
	d := time.Duration(c.Sending.MaxPerBatch)*c.Sending.Delay() + perMessage
	if d < minShutdownTimeout {
		return minShutdownTimeout
	}
	return d
}

// TransportConfig selects the mail transport
type TransportConfig struct {
	Type string `yaml:"type"` // "smtp", "ses" or "resend"
}

// SMTPConfig holds SMTP relay settings
type SMTPConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Secure         bool   `yaml:"secure"` // implicit TLS (465); otherwise STARTTLS when offered
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	MaxConnections int    `yaml:"max_connections"`
	MaxMessages    int    `yaml:"max_messages"` // per connection before it is recycled
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SMTPConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	ConfigurationSet string `yaml:"configuration_set"`
	Endpoint         string `yaml:"endpoint"` // optional override, e.g. a local SES mock
}

// ResendConfig holds Resend API configuration
type ResendConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	MaxRetries int    `yaml:"max_retries"` // on 429/503; negative disables
}

// RateLimitConfig holds API rate limiting settings
type RateLimitConfig struct {
	RequestsPerMinute int    `yaml:"requests_per_minute"`
	RedisURL          string `yaml:"redis_url"`
}

// UploadsConfig holds recipient file upload settings
type UploadsConfig struct {
	MaxBytes int64  `yaml:"max_bytes"`
	S3Bucket string `yaml:"s3_bucket"`
	S3Region string `yaml:"s3_region"`
	S3Prefix string `yaml:"s3_prefix"`
}

// DefaultDelayMS is the inter-message pause used when delay_ms is absent.
const DefaultDelayMS = 400

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{Sending: SendingConfig{DelayMS: DefaultDelayMS}}
	applyDefaults(cfg)
	return cfg
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// delay_ms may legitimately be 0, so its default is set before decoding
	cfg := Config{Sending: SendingConfig{DelayMS: DefaultDelayMS}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.BodyLimitBytes == 0 {
		cfg.Server.BodyLimitBytes = 2 << 20
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.RedactPII == nil {
		redact := true
		cfg.Log.RedactPII = &redact
	}
	if cfg.Sending.MaxPerBatch == 0 {
		cfg.Sending.MaxPerBatch = 200
	}
	if cfg.Sending.DelayMS < 0 {
		cfg.Sending.DelayMS = 0
	}
	if cfg.Sending.TestModeLimit == 0 {
		cfg.Sending.TestModeLimit = 5
	}
	if cfg.Sending.PreviewLimit == 0 {
		cfg.Sending.PreviewLimit = 20
	}
	if cfg.Transport.Type == "" {
		cfg.Transport.Type = "smtp"
	}
	if cfg.SMTP.Host == "" {
		cfg.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.SMTP.Port == 0 {
		cfg.SMTP.Port = 465
		cfg.SMTP.Secure = true
	}
	if cfg.SMTP.MaxConnections == 0 {
		cfg.SMTP.MaxConnections = 3
	}
	if cfg.SMTP.MaxMessages == 0 {
		cfg.SMTP.MaxMessages = 100
	}
	if cfg.SMTP.TimeoutSeconds == 0 {
		cfg.SMTP.TimeoutSeconds = 30
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = 120
	}
	if cfg.Resend.MaxRetries == 0 {
		cfg.Resend.MaxRetries = 2
	}
	if cfg.Uploads.MaxBytes == 0 {
		cfg.Uploads.MaxBytes = 10 << 20
	}
	if cfg.Uploads.S3Prefix == "" {
		cfg.Uploads.S3Prefix = "uploads"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It loads a .env file (if present) before reading env vars. A missing
// config file is not an error: defaults plus environment are enough to run.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	envInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	envString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	envInt("PORT", &cfg.Server.Port)
	envString("LOG_LEVEL", &cfg.Log.Level)

	envInt("MAX_PER_BATCH", &cfg.Sending.MaxPerBatch)
	envInt("SEND_DELAY_MS", &cfg.Sending.DelayMS)
	envString("MAIL_TRANSPORT", &cfg.Transport.Type)

	envString("SMTP_HOST", &cfg.SMTP.Host)
	envInt("SMTP_PORT", &cfg.SMTP.Port)
	if v := os.Getenv("SMTP_SECURE"); v != "" {
		cfg.SMTP.Secure = v == "true"
	}
	envString("SMTP_USER", &cfg.SMTP.Username)
	envString("SMTP_PASS", &cfg.SMTP.Password)

	envString("AWS_SES_REGION", &cfg.SES.Region)
	envString("AWS_SES_ACCESS_KEY", &cfg.SES.AccessKey)
	envString("AWS_SES_SECRET_KEY", &cfg.SES.SecretKey)

	envString("RESEND_API_KEY", &cfg.Resend.APIKey)
	envString("RESEND_BASE_URL", &cfg.Resend.BaseURL)

	envString("REDIS_URL", &cfg.RateLimit.RedisURL)

	envString("UPLOAD_S3_BUCKET", &cfg.Uploads.S3Bucket)
	envString("UPLOAD_S3_REGION", &cfg.Uploads.S3Region)

	if cfg.Sending.DelayMS < 0 {
		cfg.Sending.DelayMS = 0
	}
	return errors.Join(errs...)
}
