package core

import (
	"context"
	"fmt"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

// StaticRawConfigLoader serves a fixed map, typically parsed CLI flags.
type StaticRawConfigLoader struct {
	Values map[string]any
}

func (l StaticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if l.Values == nil {
		return map[string]any{}, nil
	}
	return l.Values, nil
}

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

// LayeredConfigProvider merges defaults < file < env < runtime through a
// go-options stack, then decodes and validates the result with cfgx.
type LayeredConfigProvider struct {
	File    RawConfigLoader
	Env     RawConfigLoader
	Runtime RawConfigLoader
}

func NewLayeredConfigProvider(file, env, runtime RawConfigLoader) *LayeredConfigProvider {
	return &LayeredConfigProvider{File: file, Env: env, Runtime: runtime}
}

func (p *LayeredConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	fileLayer, err := loadRawLayer(ctx, "file", p.File)
	if err != nil {
		return Config{}, err
	}
	envLayer, err := loadRawLayer(ctx, "env", p.Env)
	if err != nil {
		return Config{}, err
	}
	runtimeLayer, err := loadRawLayer(ctx, "runtime", p.Runtime)
	if err != nil {
		return Config{}, err
	}

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			configToLayerMap(defaults),
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("file", 10),
			fileLayer,
			opts.WithSnapshotID[map[string]any]("file"),
		),
		opts.NewLayer(
			opts.NewScope("env", 20),
			envLayer,
			opts.WithSnapshotID[map[string]any]("env"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 30),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func loadRawLayer(ctx context.Context, name string, loader RawConfigLoader) (map[string]any, error) {
	if loader == nil {
		return map[string]any{}, nil
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return nil, fmt.Errorf("core: load %s config: %w", name, err)
	}
	if raw == nil {
		return map[string]any{}, nil
	}
	return raw, nil
}

func configToLayerMap(cfg Config) map[string]any {
	return map[string]any{
		"service_name": cfg.ServiceName,
		"webhook": map[string]any{
			"secrets":           append([]string(nil), cfg.Webhook.Secrets...),
			"tolerance_seconds": cfg.Webhook.ToleranceSeconds,
			"path":              cfg.Webhook.Path,
		},
		"processor": map[string]any{
			"base_url":                cfg.Processor.BaseURL,
			"secret_key":              cfg.Processor.SecretKey,
			"timeout_seconds":         cfg.Processor.TimeoutSeconds,
			"max_response_body_bytes": cfg.Processor.MaxResponseBodyBytes,
		},
		"fees": map[string]any{
			"endowment_share_percent": cfg.Fees.EndowmentSharePercent,
		},
		"database": map[string]any{
			"driver":               cfg.Database.Driver,
			"dsn":                  cfg.Database.DSN,
			"debug":                cfg.Database.Debug,
			"ping_timeout_seconds": cfg.Database.PingTimeoutSeconds,
		},
		"http": map[string]any{
			"addr": cfg.HTTP.Addr,
		},
		"notifications": map[string]any{
			"enabled":                     cfg.Notifications.Enabled,
			"sender":                      cfg.Notifications.Sender,
			"from":                        cfg.Notifications.From,
			"smtp_host":                   cfg.Notifications.SMTPHost,
			"smtp_port":                   cfg.Notifications.SMTPPort,
			"smtp_user":                   cfg.Notifications.SMTPUser,
			"smtp_password":               cfg.Notifications.SMTPPassword,
			"receipt_base_url":            cfg.Notifications.ReceiptBaseURL,
			"recipient_cache_ttl_seconds": cfg.Notifications.RecipientCacheTTLSeconds,
		},
	}
}
