// Package aurum is the root façade of the Aurum ORM: an EntityManager
// over a Connection, a metadata Registry and a Unit of Work, following
// the teacher's Application/Container split in application.go — Engine
// plays the role of the teacher's Application (the process-wide,
// shared collaborators), EntityManager plays the per-request Context
// (the session-scoped one).
package aurum

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/metadata"
	"github.com/aurum-go/aurum/internal/migrate"
	"github.com/aurum-go/aurum/internal/ormconfig"
	"github.com/aurum-go/aurum/internal/ormerrors"
	"github.com/aurum-go/aurum/internal/ormlog"
)

// Engine owns the process-wide collaborators spec.md §5's
// "Shared-resource policy" describes as shared across sessions: the
// Connection, the metadata Registry, the migration Registry and the
// default logger. Sessions (EntityManagers) are created from it and
// each gets its own Unit of Work.
type Engine struct {
	conn       *conn.Conn
	registry   *metadata.Registry
	logger     ormlog.Logger
	config     *ormconfig.Config
	migrations *migrate.Registry
	runner     *migrate.Runner
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithLogger overrides the Engine's default (null) logger.
func WithLogger(logger ormlog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithConnection lets a caller hand the Engine an already-open
// Connection instead of having it opened from config — used by tests
// and by callers wiring an in-memory SQLite database.
func WithConnection(c *conn.Conn) Option {
	return func(e *Engine) { e.conn = c }
}

// New builds an Engine from an ormconfig.Config following the
// connection.* keys spec.md §6 recognises. If cfg is nil, ormconfig.New()
// is used, which loads aurum.toml / .env / process environment the way
// the teacher's own Application does for its own Config.
func New(cfg *ormconfig.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = ormconfig.New()
		if err := cfg.Load(); err != nil {
			return nil, ormerrors.NewConfigurationError("connection", err)
		}
	}

	e := &Engine{
		registry:   metadata.NewRegistry(),
		logger:     ormlog.NewNullLogger(),
		config:     cfg,
		migrations: migrate.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.conn == nil {
		connCfg, err := connConfigFromOrmconfig(cfg)
		if err != nil {
			return nil, err
		}
		c, err := conn.Open(connCfg)
		if err != nil {
			return nil, ormerrors.NewConfigurationError("connection", err)
		}
		e.conn = c
	}

	return e, nil
}

func connConfigFromOrmconfig(cfg *ormconfig.Config) (conn.Config, error) {
	driver := cfg.GetString("connection.driver", "sqlite")
	out := conn.Config{
		Driver:       driver,
		MaxOpenConns: cfg.GetInt("connection.max_open_conns", 10),
		MaxIdleConns: cfg.GetInt("connection.max_idle_conns", 5),
	}

	switch driver {
	case "sqlite":
		out.Path = cfg.GetString("connection.path", ":memory:")
	case "mysql":
		out.Host = cfg.GetString("connection.host", "127.0.0.1")
		out.Port = cfg.GetInt("connection.port", 3306)
		out.Database = cfg.GetString("connection.database", "")
		out.User = cfg.GetString("connection.user", "")
		out.Password = cfg.GetString("connection.password", "")
		if out.Database == "" {
			return conn.Config{}, ormerrors.NewConfigurationError("connection.database",
				fmt.Errorf("connection.database is required for the mysql driver"))
		}
	default:
		return conn.Config{}, ormerrors.NewConfigurationError("connection.driver",
			fmt.Errorf("unsupported driver %q (must be sqlite or mysql)", driver))
	}
	return out, nil
}

// Connection returns the Engine's shared Connection.
func (e *Engine) Connection() *conn.Conn { return e.conn }

// Registry returns the Engine's shared metadata Registry.
func (e *Engine) Registry() *metadata.Registry { return e.registry }

// Logger returns the Engine's default logger.
func (e *Engine) Logger() ormlog.Logger { return e.logger }

// Config returns the Engine's configuration.
func (e *Engine) Config() *ormconfig.Config { return e.config }

// Register associates a factory that builds class's EntityDescriptor on
// first use — a thin pass-through to metadata.Registry.RegisterFactory,
// exposed here so application code never has to import internal/metadata.
func (e *Engine) Register(class reflect.Type, factory func() *metadata.EntityDescriptor) {
	e.registry.RegisterFactory(class, factory)
}

// RegisterMigration adds a migration unit to the Engine's migration
// registry, for later execution through Migrations().
func (e *Engine) RegisterMigration(m migrate.Migration) {
	e.migrations.Register(m)
}

// Migrations returns the Engine's migration Runner, building it lazily
// on first use against the migrations.table configuration key (default
// aurum_migrations, per spec.md §6). internal/migrate builds the
// tracking table from a prefix (it appends "_migrations" itself), so
// the configured full table name has that suffix trimmed before being
// handed down — "aurum_migrations" round-trips to prefix "aurum".
func (e *Engine) Migrations() *migrate.Runner {
	if e.runner == nil {
		tableName := e.config.GetString("migrations.table", "aurum_migrations")
		prefix := strings.TrimSuffix(tableName, "_migrations")
		e.runner = migrate.NewRunner(e.conn, e.migrations, prefix, e.logger)
	}
	return e.runner
}

// NewSession opens a new EntityManager: a fresh, session-scoped Unit of
// Work sharing the Engine's Connection and Registry. Per spec.md §5,
// the Connection is shared but each session's UnitOfWork (and its
// identity map) is exclusive to that session.
func (e *Engine) NewSession() *EntityManager {
	return newEntityManager(e)
}

// Close releases the Engine's underlying Connection.
func (e *Engine) Close() error {
	return e.conn.Close()
}

// Ping verifies the Engine's Connection is reachable.
func (e *Engine) Ping() error {
	return e.conn.Ping()
}
