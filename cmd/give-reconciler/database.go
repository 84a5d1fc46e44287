package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/Chriskfigures777/give-app-sub003/core"
	"github.com/Chriskfigures777/give-app-sub003/migrations"
)

type persistenceConfig struct {
	db      core.DatabaseConfig
	service string
}

func (c persistenceConfig) GetDebug() bool { return c.db.Debug }

func (c persistenceConfig) GetDriver() string { return c.db.Driver }

func (c persistenceConfig) GetServer() string { return c.db.DSN }

func (c persistenceConfig) GetPingTimeout() time.Duration {
	if c.db.PingTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.db.PingTimeoutSeconds) * time.Second
}

func (c persistenceConfig) GetOtelIdentifier() string { return c.service }

func openDatabase(cfg core.Config) (*persistence.Client, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Database.Driver))
	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	var dialect schema.Dialect
	switch driver {
	case "postgres":
		dialect = pgdialect.New()
	case "sqlite3":
		dialect = sqlitedialect.New()
	default:
		return nil, fmt.Errorf("database driver %q is not supported", cfg.Database.Driver)
	}
	sqlDB, err := sql.Open(driver, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if driver == "sqlite3" {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(persistenceConfig{db: cfg.Database, service: cfg.ServiceName}, sqlDB, dialect)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}
	return client, nil
}

func migrationDialect(driver string) string {
	if strings.EqualFold(strings.TrimSpace(driver), "sqlite3") {
		return migrations.DialectSQLite
	}
	return migrations.DialectPostgres
}

// migrate registers the embedded tree for the configured dialect and applies it.
func migrate(ctx context.Context, client *persistence.Client, driver string) (migrations.Registration, error) {
	dialect := migrationDialect(driver)
	reg, err := migrations.Register(ctx, func(_ context.Context, candidate string, _ string, fsys fs.FS) error {
		if candidate != dialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, migrations.WithDialects(dialect))
	if err != nil {
		return reg, err
	}
	if err := client.Migrate(ctx); err != nil {
		return reg, fmt.Errorf("apply migrations: %w", err)
	}
	return reg, nil
}
