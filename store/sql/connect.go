package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"

	defaultPingTimeout    = 5 * time.Second
	defaultOtelIdentifier = "go-syncauth"
)

// ConnectConfig satisfies the go-persistence-bun client configuration for
// the drivers this module ships with.
type ConnectConfig struct {
	Driver         string
	DSN            string
	Debug          bool
	PingTimeout    time.Duration
	OtelIdentifier string
}

func (c ConnectConfig) GetDebug() bool {
	return c.Debug
}

func (c ConnectConfig) GetDriver() string {
	return strings.TrimSpace(c.Driver)
}

func (c ConnectConfig) GetServer() string {
	return strings.TrimSpace(c.DSN)
}

func (c ConnectConfig) GetPingTimeout() time.Duration {
	if c.PingTimeout <= 0 {
		return defaultPingTimeout
	}
	return c.PingTimeout
}

func (c ConnectConfig) GetOtelIdentifier() string {
	if trimmed := strings.TrimSpace(c.OtelIdentifier); trimmed != "" {
		return trimmed
	}
	return defaultOtelIdentifier
}

// ConnectPostgres opens a postgres-backed persistence client through lib/pq.
func ConnectPostgres(cfg ConnectConfig) (*persistence.Client, error) {
	cfg.Driver = DriverPostgres
	if cfg.GetServer() == "" {
		return nil, fmt.Errorf("sqlstore: postgres dsn is required")
	}
	sqlDB, err := sql.Open(DriverPostgres, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open postgres database: %w", err)
	}
	client, err := persistence.New(cfg, sqlDB, pgdialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new postgres persistence client: %w", err)
	}
	return client, nil
}

// ConnectSQLite opens a sqlite-backed persistence client through
// mattn/go-sqlite3. Shared in-memory databases are pinned to a single
// connection so the schema survives connection churn.
func ConnectSQLite(cfg ConnectConfig) (*persistence.Client, error) {
	cfg.Driver = DriverSQLite
	if cfg.GetServer() == "" {
		return nil, fmt.Errorf("sqlstore: sqlite dsn is required")
	}
	sqlDB, err := sql.Open(DriverSQLite, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open sqlite database: %w", err)
	}
	if strings.Contains(cfg.GetServer(), "mode=memory") {
		sqlDB.SetMaxOpenConns(1)
	}
	client, err := persistence.New(cfg, sqlDB, sqlitedialect.New())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new sqlite persistence client: %w", err)
	}
	return client, nil
}
