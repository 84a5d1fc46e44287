package core

import (
	"fmt"
	"strings"
	"time"
)

type WebhookConfig struct {
	Secrets          []string `koanf:"secrets" mapstructure:"secrets"`
	ToleranceSeconds int      `koanf:"tolerance_seconds" mapstructure:"tolerance_seconds"`
	Path             string   `koanf:"path" mapstructure:"path"`
}

func (c WebhookConfig) Tolerance() time.Duration {
	return time.Duration(c.ToleranceSeconds) * time.Second
}

type ProcessorConfig struct {
	BaseURL              string `koanf:"base_url" mapstructure:"base_url"`
	SecretKey            string `koanf:"secret_key" mapstructure:"secret_key"`
	TimeoutSeconds       int    `koanf:"timeout_seconds" mapstructure:"timeout_seconds"`
	MaxResponseBodyBytes int64  `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

func (c ProcessorConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type FeeConfig struct {
	EndowmentSharePercent float64 `koanf:"endowment_share_percent" mapstructure:"endowment_share_percent"`
}

type DatabaseConfig struct {
	Driver             string `koanf:"driver" mapstructure:"driver"`
	DSN                string `koanf:"dsn" mapstructure:"dsn"`
	Debug              bool   `koanf:"debug" mapstructure:"debug"`
	PingTimeoutSeconds int    `koanf:"ping_timeout_seconds" mapstructure:"ping_timeout_seconds"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" mapstructure:"addr"`
}

type NotificationConfig struct {
	Enabled                  bool   `koanf:"enabled" mapstructure:"enabled"`
	Sender                   string `koanf:"sender" mapstructure:"sender"`
	From                     string `koanf:"from" mapstructure:"from"`
	SMTPHost                 string `koanf:"smtp_host" mapstructure:"smtp_host"`
	SMTPPort                 int    `koanf:"smtp_port" mapstructure:"smtp_port"`
	SMTPUser                 string `koanf:"smtp_user" mapstructure:"smtp_user"`
	SMTPPassword             string `koanf:"smtp_password" mapstructure:"smtp_password"`
	ReceiptBaseURL           string `koanf:"receipt_base_url" mapstructure:"receipt_base_url"`
	RecipientCacheTTLSeconds int    `koanf:"recipient_cache_ttl_seconds" mapstructure:"recipient_cache_ttl_seconds"`
}

type Config struct {
	ServiceName   string             `koanf:"service_name" mapstructure:"service_name"`
	Webhook       WebhookConfig      `koanf:"webhook" mapstructure:"webhook"`
	Processor     ProcessorConfig    `koanf:"processor" mapstructure:"processor"`
	Fees          FeeConfig          `koanf:"fees" mapstructure:"fees"`
	Database      DatabaseConfig     `koanf:"database" mapstructure:"database"`
	HTTP          HTTPConfig         `koanf:"http" mapstructure:"http"`
	Notifications NotificationConfig `koanf:"notifications" mapstructure:"notifications"`
}

const (
	NotificationSenderLog  = "log"
	NotificationSenderSMTP = "smtp"
	NotificationSenderJob  = "job"
)

func DefaultConfig() Config {
	return Config{
		ServiceName: "give-reconciler",
		Webhook: WebhookConfig{
			ToleranceSeconds: 300,
			Path:             "/webhooks/processor",
		},
		Processor: ProcessorConfig{
			BaseURL:              "https://api.stripe.com",
			TimeoutSeconds:       20,
			MaxResponseBodyBytes: 1 << 20,
		},
		Fees: FeeConfig{
			EndowmentSharePercent: 30,
		},
		Database: DatabaseConfig{
			Driver:             "postgres",
			PingTimeoutSeconds: 5,
		},
		HTTP: HTTPConfig{
			Addr: ":8080",
		},
		Notifications: NotificationConfig{
			Enabled:                  true,
			Sender:                   NotificationSenderLog,
			SMTPPort:                 587,
			RecipientCacheTTLSeconds: 300,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Webhook.ToleranceSeconds <= 0 {
		return fmt.Errorf("core: webhook.tolerance_seconds must be positive")
	}
	if c.Fees.EndowmentSharePercent < 0 || c.Fees.EndowmentSharePercent > 100 {
		return fmt.Errorf("core: fees.endowment_share_percent must be within [0,100]")
	}
	switch strings.TrimSpace(strings.ToLower(c.Database.Driver)) {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("core: database.driver %q is not supported", c.Database.Driver)
	}
	switch strings.TrimSpace(strings.ToLower(c.Notifications.Sender)) {
	case NotificationSenderLog, NotificationSenderJob:
	case NotificationSenderSMTP:
		if strings.TrimSpace(c.Notifications.SMTPHost) == "" || strings.TrimSpace(c.Notifications.From) == "" {
			return fmt.Errorf("core: notifications.smtp_host and notifications.from are required for smtp sender")
		}
	default:
		return fmt.Errorf("core: notifications.sender %q is not supported", c.Notifications.Sender)
	}
	return nil
}

// ValidateWebhook checks what delivery verification needs.
func (c Config) ValidateWebhook() error {
	for _, secret := range c.Webhook.Secrets {
		if strings.TrimSpace(secret) != "" {
			return nil
		}
	}
	return fmt.Errorf("core: webhook.secrets requires at least one secret")
}

// ValidateProcessor checks what outbound processor calls need.
func (c Config) ValidateProcessor() error {
	if strings.TrimSpace(c.Processor.BaseURL) == "" {
		return fmt.Errorf("core: processor.base_url is required")
	}
	if strings.TrimSpace(c.Processor.SecretKey) == "" {
		return fmt.Errorf("core: processor.secret_key is required")
	}
	return nil
}
