package migrate

import (
	"context"
	"time"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/ormerrors"
	"github.com/aurum-go/aurum/internal/schema"
)

// trackedRow is one row of the `<prefix>_migrations` table (spec.md
// §4.5 "Tracking"): monotonic id, unique version, description,
// executed_at, and the elapsed time, stored in the integer column
// execution_time_ms as whole milliseconds (there is no execution_time
// column in seconds).
type trackedRow struct {
	ID            int64
	Version       string
	Description   string
	ExecutedAt    time.Time
	ExecutionTime time.Duration
}

// repository owns the migration tracking table, built through
// internal/schema so SQLite and MySQL both go through the same DDL
// path as any other migration-authored table (SPEC_FULL.md §4.5).
type repository struct {
	conn      *conn.Conn
	builder   *schema.Builder
	tableName string
}

func newRepository(c *conn.Conn, tableNamePrefix string) *repository {
	prefix := tableNamePrefix
	if prefix == "" {
		prefix = "aurum"
	}
	return &repository{
		conn:      c,
		builder:   schema.New(c),
		tableName: prefix + "_migrations",
	}
}

func (r *repository) ensureTable(ctx context.Context) error {
	exists, err := r.builder.HasTable(ctx, r.tableName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return r.builder.Create(ctx, r.tableName, func(tbl *schema.Table) {
		tbl.ID()
		tbl.String("version").NotNull().Unique()
		tbl.String("description", 500)
		tbl.DateTime("executed_at").NotNull()
		tbl.BigInteger("execution_time_ms").NotNull().Default(0)
		tbl.Index("version")
	})
}

// executed returns every tracked row, ordered by id ascending (the
// order they were applied in).
func (r *repository) executed(ctx context.Context) ([]trackedRow, error) {
	rows, err := r.conn.QueryContext(ctx,
		"SELECT id, version, description, executed_at, execution_time_ms FROM "+r.tableName+" ORDER BY id ASC")
	if err != nil {
		return nil, ormerrors.NewQueryError("", err)
	}
	defer rows.Close()

	var out []trackedRow
	for rows.Next() {
		var row trackedRow
		var executedAt string
		var execMS int64
		if err := rows.Scan(&row.ID, &row.Version, &row.Description, &executedAt, &execMS); err != nil {
			return nil, ormerrors.NewQueryError("", err)
		}
		row.ExecutionTime = time.Duration(execMS) * time.Millisecond
		if t, perr := time.Parse(time.RFC3339, executedAt); perr == nil {
			row.ExecutedAt = t
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// executedSet returns the tracked versions as a set, for dependency
// resolution and pending-set computation.
func (r *repository) executedSet(ctx context.Context) (map[string]bool, error) {
	rows, err := r.executed(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		set[row.Version] = true
	}
	return set, nil
}

// latest returns the highest-id tracked version, or "" if none.
func (r *repository) latest(ctx context.Context) (string, error) {
	rows, err := r.executed(ctx)
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	return rows[len(rows)-1].Version, nil
}

func (r *repository) record(ctx context.Context, tx *conn.Tx, m Migration, elapsed time.Duration) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO "+r.tableName+" (version, description, executed_at, execution_time_ms) VALUES (?, ?, ?, ?)",
		m.Version(), m.Description(), time.Now().UTC().Format(time.RFC3339), elapsed.Milliseconds())
	return err
}

func (r *repository) unrecord(ctx context.Context, tx *conn.Tx, version string) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM "+r.tableName+" WHERE version = ?", version)
	return err
}

// recordDirect inserts a tracking row outside any transaction, for
// non-transactional migrations which own their own commit boundary.
func (r *repository) recordDirect(ctx context.Context, m Migration, elapsed time.Duration) error {
	_, err := r.conn.ExecContext(ctx,
		"INSERT INTO "+r.tableName+" (version, description, executed_at, execution_time_ms) VALUES (?, ?, ?, ?)",
		m.Version(), m.Description(), time.Now().UTC().Format(time.RFC3339), elapsed.Milliseconds())
	return err
}

func (r *repository) unrecordDirect(ctx context.Context, version string) error {
	_, err := r.conn.ExecContext(ctx, "DELETE FROM "+r.tableName+" WHERE version = ?", version)
	return err
}
