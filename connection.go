package aurum

import (
	"database/sql"

	"github.com/aurum-go/aurum/internal/conn"
)

// Connection/Transaction Abstraction re-exports, for callers that want
// to open a Connection themselves (WithConnection) rather than have
// New derive one from configuration.
type (
	Connection     = conn.Conn
	ConnectionConfig = conn.Config
	Dialect        = conn.Dialect
)

const (
	SQLite = conn.SQLite
	MySQL  = conn.MySQL
)

// OpenConnection opens a Connection per cfg — driver detection,
// dialect-specific DSN assembly and a connectivity ping.
func OpenConnection(cfg ConnectionConfig) (*Connection, error) {
	return conn.Open(cfg)
}

// WrapConnection adapts an already-open *sql.DB into a Connection for
// the given dialect, for callers that manage their own database/sql
// pool (e.g. sharing one pool across an aurum Engine and other code).
func WrapConnection(db *sql.DB, dialect Dialect) *Connection {
	return conn.Wrap(db, dialect)
}
