// Package conn is Aurum's Connection/Transaction Abstraction: a thin
// dialect-aware wrapper over database/sql plus the per-dialect
// identifier-quoting rules the query builder and schema builder both
// need.
package conn

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect names the two supported SQL dialect families.
type Dialect string

const (
	SQLite Dialect = "sqlite"
	MySQL  Dialect = "mysql"
)

// Conn wraps a *sql.DB together with the dialect it was opened against.
type Conn struct {
	db      *sql.DB
	dialect Dialect
}

// Config describes how to open a Conn; exactly one of the sqlite or
// mysql fields is consulted depending on Driver, per spec.md §6's
// configuration surface.
type Config struct {
	Driver string // "sqlite" or "mysql"

	// SQLite
	Path string // file path, ":memory:" allowed

	// MySQL
	Host     string
	Port     int
	Database string
	User     string
	Password string

	MaxOpenConns int
	MaxIdleConns int
}

// Open establishes a connection per Config and pings it.
func Open(cfg Config) (*Conn, error) {
	var driverName string
	var dsn string

	switch Dialect(cfg.Driver) {
	case SQLite:
		driverName = "sqlite3"
		dsn = cfg.Path
		if dsn == "" {
			dsn = ":memory:"
		}
	case MySQL:
		driverName = "mysql"
		port := cfg.Port
		if port == 0 {
			port = 3306
		}
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true", cfg.User, cfg.Password, cfg.Host, port, cfg.Database)
	default:
		return nil, fmt.Errorf("conn: unsupported driver %q", cfg.Driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return &Conn{db: db, dialect: Dialect(cfg.Driver)}, nil
}

// Wrap adapts an already-open *sql.DB (e.g. one the caller opened
// itself, or a test fixture) into a Conn for the given dialect.
func Wrap(db *sql.DB, dialect Dialect) *Conn {
	return &Conn{db: db, dialect: dialect}
}

func (c *Conn) Dialect() Dialect { return c.dialect }
func (c *Conn) DB() *sql.DB      { return c.db }
func (c *Conn) Close() error     { return c.db.Close() }
func (c *Conn) Ping() error      { return c.db.Ping() }

func (c *Conn) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

func (c *Conn) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, nil)
}

// Quote renders an identifier (table or column name) quoted per this
// connection's dialect: backticks on MySQL, double quotes on SQLite.
func (c *Conn) Quote(identifier string) string {
	switch c.dialect {
	case MySQL:
		return "`" + identifier + "`"
	default:
		return `"` + identifier + `"`
	}
}
