// Package app resolves a workspace into a running application context:
// config, open database, logger and engine. Both the CLI and the HTTP
// server bootstrap through it so they agree on defaults.
package app

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"teampulse/internal/config"
	"teampulse/internal/db"
	"teampulse/internal/engine"
	"teampulse/internal/logging"
	"teampulse/internal/migrate"
)

// Options select how the workspace is resolved. ConfigPath, when set,
// names an explicit config file and wins over <workspace>/teampulse.yml.
type Options struct {
	Workspace  string
	ConfigPath string
}

// Context bundles everything a command needs once the workspace is open.
type Context struct {
	Workspace string
	Config    *config.Config
	DB        *sql.DB
	Log       *zap.Logger
	Engine    engine.Engine
}

// Open loads the config (falling back to defaults when no file exists yet),
// ensures the workspace directory, opens and migrates the SQLite database,
// and wires the engine. The caller owns Close.
func Open(opts Options) (*Context, error) {
	cfg, err := ResolveConfig(opts)
	if err != nil {
		return nil, err
	}
	conn, err := db.Open(db.Config{Workspace: opts.Workspace})
	if err != nil {
		return nil, err
	}
	if err := migrate.Migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &Context{
		Workspace: opts.Workspace,
		Config:    cfg,
		DB:        conn,
		Log:       log,
		Engine:    engine.New(conn, log),
	}, nil
}

// ResolveConfig applies the config lookup order without opening anything
// else: explicit path, then <workspace>/teampulse.yml, then defaults.
func ResolveConfig(opts Options) (*config.Config, error) {
	if opts.ConfigPath != "" {
		return config.FromFile(opts.ConfigPath)
	}
	cfg, err := config.LoadOptional(opts.Workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("default")
	}
	return cfg, nil
}

// Close flushes the logger and releases the database.
func (c *Context) Close() error {
	if c.Log != nil {
		_ = c.Log.Sync()
	}
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
