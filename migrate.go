package aurum

import (
	"time"

	"github.com/aurum-go/aurum/internal/migrate"
)

// Migration Engine re-exports. Application code implements Migration
// against these aliases (it cannot import internal/migrate directly)
// the same way it describes entities against the metadata.go aliases.
type (
	Executor        = migrate.Executor
	Migration       = migrate.Migration
	BaseMigration   = migrate.BaseMigration
	MigrationRunner = migrate.Runner
	MigrationStatus = migrate.Status
	Differ          = migrate.Differ
	MigrationPlan   = migrate.Plan
)

// NewBaseMigration builds a BaseMigration with the given version,
// description and dependency versions. Transactional defaults to true.
func NewBaseMigration(version, description string, dependencies ...string) *BaseMigration {
	return migrate.NewBaseMigration(version, description, dependencies...)
}

// NewMigrationVersion formats now as the 14-digit YYYYMMDDHHMMSS
// version identifier spec.md §6 requires.
func NewMigrationVersion(now time.Time) string {
	return migrate.NewVersion(now)
}

// GenerateMigration scaffolds a new migration unit file under dir,
// named "<version>_<slug>.go", validating description and checking for
// a version collision against the Engine's migration registry.
func (e *Engine) GenerateMigration(dir, packageName, description string, now time.Time) (version, path string, err error) {
	return migrate.Generate(e.migrations, dir, packageName, description, now)
}

// NewDiffer builds a schema Differ bound to the Engine's Connection,
// for comparing an EntityDescriptor's declarative schema against the
// live database (the `aurum migration:diff` CLI surface, §6).
func (e *Engine) NewDiffer() *Differ {
	return migrate.NewDiffer(e.conn)
}
