package migrate_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/migrate"
	"github.com/aurum-go/aurum/internal/ormerrors"
)

func openTestConn(t *testing.T) *conn.Conn {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return conn.Wrap(db, conn.SQLite)
}

func tableExists(t *testing.T, c *conn.Conn, name string) bool {
	t.Helper()
	var count int
	err := c.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name = ?", name).Scan(&count)
	require.NoError(t, err)
	return count > 0
}

// createTableMigration is a minimal fixture unit: Up creates a single
// table, Down drops it.
type createTableMigration struct {
	*migrate.BaseMigration
	tableName string
}

func newCreateTableMigration(version, tableName string, deps ...string) *createTableMigration {
	return &createTableMigration{
		BaseMigration: migrate.NewBaseMigration(version, "create "+tableName, deps...),
		tableName:     tableName,
	}
}

func (m *createTableMigration) Up(ctx context.Context, exec migrate.Executor) error {
	_, err := exec.ExecContext(ctx, "CREATE TABLE "+m.tableName+" (id INTEGER PRIMARY KEY)")
	return err
}

func (m *createTableMigration) Down(ctx context.Context, exec migrate.Executor) error {
	_, err := exec.ExecContext(ctx, "DROP TABLE "+m.tableName)
	return err
}

// failingMigration issues one successful statement and then fails,
// exercising atomicity: the successful statement must not survive.
type failingMigration struct {
	*migrate.BaseMigration
}

func (m *failingMigration) Up(ctx context.Context, exec migrate.Executor) error {
	if _, err := exec.ExecContext(ctx, "CREATE TABLE should_not_persist (id INTEGER PRIMARY KEY)"); err != nil {
		return err
	}
	return errors.New("boom")
}

func (m *failingMigration) Down(ctx context.Context, exec migrate.Executor) error { return nil }

// skippingMigration always raises SkipMigration from Up.
type skippingMigration struct {
	*migrate.BaseMigration
}

func (m *skippingMigration) Up(ctx context.Context, exec migrate.Executor) error {
	return ormerrors.NewSkipMigration("already applied by a prior deploy")
}

func (m *skippingMigration) Down(ctx context.Context, exec migrate.Executor) error { return nil }

func TestMigrateToLatestAppliesInDependencyOrder(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()

	posts := newCreateTableMigration("20260101000100", "posts", "20260101000000")
	users := newCreateTableMigration("20260101000000", "users")
	// Register out of dependency order to prove the DFS sort matters.
	registry.Register(posts)
	registry.Register(users)

	runner := migrate.NewRunner(c, registry, "", nil)
	ctx := context.Background()

	require.NoError(t, runner.MigrateToLatest(ctx))

	assert.True(t, tableExists(t, c, "users"))
	assert.True(t, tableExists(t, c, "posts"))

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, status.AppliedCount)
	assert.Equal(t, 0, status.PendingCount)
	assert.Equal(t, "20260101000100", status.LatestAppliedVersion)
}

func TestCircularDependencyFailsWithoutApplyingAnything(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()

	a := newCreateTableMigration("20260101000000", "a_table", "20260101000001")
	b := newCreateTableMigration("20260101000001", "b_table", "20260101000000")
	registry.Register(a)
	registry.Register(b)

	runner := migrate.NewRunner(c, registry, "", nil)
	err := runner.MigrateToLatest(context.Background())

	require.Error(t, err)
	var migErr *ormerrors.MigrationError
	require.True(t, errors.As(err, &migErr))
	assert.Equal(t, "circular-dependency", migErr.Operation)

	assert.False(t, tableExists(t, c, "a_table"))
	assert.False(t, tableExists(t, c, "b_table"))
}

func TestDependencyNotMetFails(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()

	orphan := newCreateTableMigration("20260101000000", "orphan_table", "19990101000000")
	registry.Register(orphan)

	runner := migrate.NewRunner(c, registry, "", nil)
	err := runner.MigrateToLatest(context.Background())

	require.Error(t, err)
	var migErr *ormerrors.MigrationError
	require.True(t, errors.As(err, &migErr))
	assert.Equal(t, "dependency-not-met", migErr.Operation)
}

func TestRollbackLastReversesMostRecentlyApplied(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()

	users := newCreateTableMigration("20260101000000", "users")
	posts := newCreateTableMigration("20260101000100", "posts", "20260101000000")
	registry.Register(users)
	registry.Register(posts)

	runner := migrate.NewRunner(c, registry, "", nil)
	ctx := context.Background()
	require.NoError(t, runner.MigrateToLatest(ctx))

	require.NoError(t, runner.RollbackLast(ctx))

	assert.True(t, tableExists(t, c, "users"))
	assert.False(t, tableExists(t, c, "posts"))

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20260101000000", status.LatestAppliedVersion)
	assert.Equal(t, 1, status.AppliedCount)
}

func TestTransactionalMigrationFailureLeavesNoTrace(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()

	bad := &failingMigration{BaseMigration: migrate.NewBaseMigration("20260101000000", "boom")}
	registry.Register(bad)

	runner := migrate.NewRunner(c, registry, "", nil)
	err := runner.MigrateToLatest(context.Background())

	require.Error(t, err)
	var migErr *ormerrors.MigrationError
	require.True(t, errors.As(err, &migErr))
	assert.Equal(t, "up", migErr.Operation)

	assert.False(t, tableExists(t, c, "should_not_persist"))

	status, statusErr := runner.Status(context.Background())
	require.NoError(t, statusErr)
	assert.Equal(t, 0, status.AppliedCount)
}

func TestDryRunExecutesNoDDLAndWritesNoTrackingRow(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()
	users := newCreateTableMigration("20260101000000", "users")
	registry.Register(users)

	runner := migrate.NewRunner(c, registry, "", nil)
	runner.DryRun = true

	require.NoError(t, runner.MigrateToLatest(context.Background()))

	assert.False(t, tableExists(t, c, "users"))

	status, err := runner.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.AppliedCount)
	assert.Equal(t, 1, status.PendingCount)
}

func TestMigrateToVersionAppliesThenRollsBackToTarget(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()

	users := newCreateTableMigration("20260101000000", "users")
	posts := newCreateTableMigration("20260101000100", "posts", "20260101000000")
	comments := newCreateTableMigration("20260101000200", "comments", "20260101000100")
	registry.Register(users)
	registry.Register(posts)
	registry.Register(comments)

	runner := migrate.NewRunner(c, registry, "", nil)
	ctx := context.Background()

	require.NoError(t, runner.MigrateToVersion(ctx, "20260101000100"))
	assert.True(t, tableExists(t, c, "users"))
	assert.True(t, tableExists(t, c, "posts"))
	assert.False(t, tableExists(t, c, "comments"))

	require.NoError(t, runner.MigrateToVersion(ctx, "20260101000000"))
	assert.True(t, tableExists(t, c, "users"))
	assert.False(t, tableExists(t, c, "posts"))

	status, err := runner.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "20260101000000", status.LatestAppliedVersion)
	assert.Equal(t, 1, status.AppliedCount)
}

func TestSkipMigrationIsNotAnErrorAndLeavesTrackingUntouched(t *testing.T) {
	c := openTestConn(t)
	registry := migrate.NewRegistry()
	skip := &skippingMigration{BaseMigration: migrate.NewBaseMigration("20260101000000", "skip me")}
	registry.Register(skip)

	runner := migrate.NewRunner(c, registry, "", nil)
	require.NoError(t, runner.MigrateToLatest(context.Background()))

	status, err := runner.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, status.AppliedCount)
}
