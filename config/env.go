package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const DefaultEnvPrefix = "GIVE_"

// Environment loads a raw config layer from process environment variables,
// with optional .env files underneath. Only variables that are set produce
// keys, so unset values fall through to lower layers.
type Environment struct {
	Prefix   string
	DotEnv   []string
	Lookup   func() []string
	readFile func(string) (map[string]string, error)
}

func NewEnvironment(dotenv ...string) Environment {
	return Environment{Prefix: DefaultEnvPrefix, DotEnv: dotenv}
}

type envLayer struct {
	ServiceName *string `env:"SERVICE_NAME"`

	WebhookSecrets   []string `env:"WEBHOOK_SECRETS" envSeparator:","`
	WebhookTolerance *int     `env:"WEBHOOK_TOLERANCE_SECONDS"`
	WebhookPath      *string  `env:"WEBHOOK_PATH"`

	ProcessorBaseURL      *string `env:"PROCESSOR_BASE_URL"`
	ProcessorSecretKey    *string `env:"PROCESSOR_SECRET_KEY"`
	ProcessorTimeout      *int    `env:"PROCESSOR_TIMEOUT_SECONDS"`
	ProcessorMaxBodyBytes *int64  `env:"PROCESSOR_MAX_RESPONSE_BODY_BYTES"`

	EndowmentSharePercent *float64 `env:"FEES_ENDOWMENT_SHARE_PERCENT"`

	DatabaseDriver      *string `env:"DATABASE_DRIVER"`
	DatabaseDSN         *string `env:"DATABASE_DSN"`
	DatabaseDebug       *bool   `env:"DATABASE_DEBUG"`
	DatabasePingTimeout *int    `env:"DATABASE_PING_TIMEOUT_SECONDS"`

	HTTPAddr *string `env:"HTTP_ADDR"`

	NotificationsEnabled  *bool   `env:"NOTIFICATIONS_ENABLED"`
	NotificationsSender   *string `env:"NOTIFICATIONS_SENDER"`
	NotificationsFrom     *string `env:"NOTIFICATIONS_FROM"`
	SMTPHost              *string `env:"NOTIFICATIONS_SMTP_HOST"`
	SMTPPort              *int    `env:"NOTIFICATIONS_SMTP_PORT"`
	SMTPUser              *string `env:"NOTIFICATIONS_SMTP_USER"`
	SMTPPassword          *string `env:"NOTIFICATIONS_SMTP_PASSWORD"`
	ReceiptBaseURL        *string `env:"NOTIFICATIONS_RECEIPT_BASE_URL"`
	RecipientCacheSeconds *int    `env:"NOTIFICATIONS_RECIPIENT_CACHE_TTL_SECONDS"`
}

func (e Environment) LoadRaw(context.Context) (map[string]any, error) {
	values, err := e.environment()
	if err != nil {
		return nil, err
	}
	var layer envLayer
	if err := env.ParseWithOptions(&layer, env.Options{
		Prefix:      e.Prefix,
		Environment: values,
	}); err != nil {
		return nil, fmt.Errorf("config: parse environment: %w", err)
	}
	return layer.toMap(), nil
}

// environment merges .env files under the live environment; the first
// .env file wins over later ones, and real variables win over all files.
func (e Environment) environment() (map[string]string, error) {
	read := e.readFile
	if read == nil {
		read = func(path string) (map[string]string, error) { return godotenv.Read(path) }
	}
	merged := map[string]string{}
	for i := len(e.DotEnv) - 1; i >= 0; i-- {
		path := strings.TrimSpace(e.DotEnv[i])
		if path == "" {
			continue
		}
		values, err := read(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		for key, value := range values {
			merged[key] = value
		}
	}
	lookup := e.Lookup
	if lookup == nil {
		lookup = os.Environ
	}
	for key, value := range env.ToMap(lookup()) {
		merged[key] = value
	}
	return merged, nil
}

func (l envLayer) toMap() map[string]any {
	out := map[string]any{}
	section := func(name string) map[string]any {
		existing, ok := out[name].(map[string]any)
		if !ok {
			existing = map[string]any{}
			out[name] = existing
		}
		return existing
	}
	if l.ServiceName != nil {
		out["service_name"] = *l.ServiceName
	}

	if len(l.WebhookSecrets) > 0 {
		secrets := make([]any, 0, len(l.WebhookSecrets))
		for _, secret := range l.WebhookSecrets {
			if secret = strings.TrimSpace(secret); secret != "" {
				secrets = append(secrets, secret)
			}
		}
		section("webhook")["secrets"] = secrets
	}
	setInt(section, "webhook", "tolerance_seconds", l.WebhookTolerance)
	setString(section, "webhook", "path", l.WebhookPath)

	setString(section, "processor", "base_url", l.ProcessorBaseURL)
	setString(section, "processor", "secret_key", l.ProcessorSecretKey)
	setInt(section, "processor", "timeout_seconds", l.ProcessorTimeout)
	if l.ProcessorMaxBodyBytes != nil {
		section("processor")["max_response_body_bytes"] = *l.ProcessorMaxBodyBytes
	}

	if l.EndowmentSharePercent != nil {
		section("fees")["endowment_share_percent"] = *l.EndowmentSharePercent
	}

	setString(section, "database", "driver", l.DatabaseDriver)
	setString(section, "database", "dsn", l.DatabaseDSN)
	setBool(section, "database", "debug", l.DatabaseDebug)
	setInt(section, "database", "ping_timeout_seconds", l.DatabasePingTimeout)

	setString(section, "http", "addr", l.HTTPAddr)

	setBool(section, "notifications", "enabled", l.NotificationsEnabled)
	setString(section, "notifications", "sender", l.NotificationsSender)
	setString(section, "notifications", "from", l.NotificationsFrom)
	setString(section, "notifications", "smtp_host", l.SMTPHost)
	setInt(section, "notifications", "smtp_port", l.SMTPPort)
	setString(section, "notifications", "smtp_user", l.SMTPUser)
	setString(section, "notifications", "smtp_password", l.SMTPPassword)
	setString(section, "notifications", "receipt_base_url", l.ReceiptBaseURL)
	setInt(section, "notifications", "recipient_cache_ttl_seconds", l.RecipientCacheSeconds)
	return out
}

func setString(section func(string) map[string]any, name, key string, value *string) {
	if value != nil {
		section(name)[key] = *value
	}
}

func setInt(section func(string) map[string]any, name, key string, value *int) {
	if value != nil {
		section(name)[key] = *value
	}
}

func setBool(section func(string) map[string]any, name, key string, value *bool) {
	if value != nil {
		section(name)[key] = *value
	}
}
