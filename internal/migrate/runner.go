package migrate

import (
	"context"
	"errors"
	"time"

	"github.com/aurum-go/aurum/internal/conn"
	"github.com/aurum-go/aurum/internal/ormerrors"
	"github.com/aurum-go/aurum/internal/ormlog"
)

// Status reports the engine's view of applied/pending work (spec.md
// §4.5 "Status").
type Status struct {
	LatestAppliedVersion string
	PendingCount         int
	AppliedCount         int
	TotalKnown           int
}

// Runner applies and reverses Migration units against a Conn,
// tracking progress in a dedicated table. It is the engine spec.md
// §4.5 describes; Connection and Metadata are its only dependencies
// (the latter only via Differ, in differ.go).
type Runner struct {
	conn     *conn.Conn
	registry *Registry
	repo     *repository
	logger   ormlog.Logger
	DryRun   bool
}

// NewRunner builds a Runner. tableNamePrefix defaults to "aurum" when
// empty, producing the tracking table "aurum_migrations".
func NewRunner(c *conn.Conn, registry *Registry, tableNamePrefix string, logger ormlog.Logger) *Runner {
	return &Runner{
		conn:     c,
		registry: registry,
		repo:     newRepository(c, tableNamePrefix),
		logger:   logger,
	}
}

func (r *Runner) log(ctx context.Context, message string, fields map[string]interface{}) {
	if r.logger == nil {
		return
	}
	r.logger.InfoContext(ctx, message, fields)
}

// pendingOrdered returns every registered unit not yet tracked,
// topologically sorted by Dependencies().
func (r *Runner) pendingOrdered(ctx context.Context) ([]Migration, error) {
	if err := r.repo.ensureTable(ctx); err != nil {
		return nil, err
	}
	tracked, err := r.repo.executedSet(ctx)
	if err != nil {
		return nil, err
	}

	var pending []Migration
	for _, m := range r.registry.All() {
		if !tracked[m.Version()] {
			pending = append(pending, m)
		}
	}
	return dependencyOrder(pending, tracked)
}

// MigrateToLatest applies every pending unit in dependency order
// (spec.md §4.5 "migrateToLatest").
func (r *Runner) MigrateToLatest(ctx context.Context) error {
	pending, err := r.pendingOrdered(ctx)
	if err != nil {
		return err
	}
	for _, m := range pending {
		if err := r.applyUp(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// MigrateToVersion moves the schema to exactly version: applying ups
// if it is ahead of the latest tracked version, or downs (in reverse
// order) if it is behind (spec.md §4.5 "migrateToVersion").
func (r *Runner) MigrateToVersion(ctx context.Context, version string) error {
	if err := r.repo.ensureTable(ctx); err != nil {
		return err
	}
	tracked, err := r.repo.executed(ctx)
	if err != nil {
		return err
	}
	trackedSet := make(map[string]bool, len(tracked))
	for _, row := range tracked {
		trackedSet[row.Version] = true
	}

	all := r.registry.All()

	if !trackedSet[version] {
		// Target is ahead of (or beside) the tracked set: apply every
		// untracked unit whose version is <= target, in dependency order.
		var ups []Migration
		for _, m := range all {
			if !trackedSet[m.Version()] && m.Version() <= version {
				ups = append(ups, m)
			}
		}
		ordered, err := dependencyOrder(ups, trackedSet)
		if err != nil {
			return err
		}
		for _, m := range ordered {
			if err := r.applyUp(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}

	// Target is tracked: roll back every tracked unit with a version
	// strictly greater than target, most-recent first.
	for i := len(tracked) - 1; i >= 0; i-- {
		row := tracked[i]
		if row.Version <= version {
			continue
		}
		m, ok := r.registry.Get(row.Version)
		if !ok {
			return ormerrors.NewMigrationError(row.Version, "file-missing", nil)
		}
		if err := r.applyDown(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// RollbackLast reverses the most recently tracked unit (spec.md §4.5
// "rollbackLast").
func (r *Runner) RollbackLast(ctx context.Context) error {
	if err := r.repo.ensureTable(ctx); err != nil {
		return err
	}
	latest, err := r.repo.latest(ctx)
	if err != nil {
		return err
	}
	if latest == "" {
		return nil
	}
	m, ok := r.registry.Get(latest)
	if !ok {
		return ormerrors.NewMigrationError(latest, "file-missing", nil)
	}
	return r.applyDown(ctx, m)
}

// Status reports the engine's applied/pending counts (spec.md §4.5
// "Status").
func (r *Runner) Status(ctx context.Context) (Status, error) {
	if err := r.repo.ensureTable(ctx); err != nil {
		return Status{}, err
	}
	tracked, err := r.repo.executed(ctx)
	if err != nil {
		return Status{}, err
	}
	latest := ""
	if len(tracked) > 0 {
		latest = tracked[len(tracked)-1].Version
	}
	total := r.registry.Len()
	return Status{
		LatestAppliedVersion: latest,
		AppliedCount:         len(tracked),
		PendingCount:         total - len(tracked),
		TotalKnown:           total,
	}, nil
}

// applyUp runs one unit's Up, transactionally unless Transactional()
// is false, and records it in the tracking table on success. A
// *ormerrors.SkipMigration returned by Up is not a failure: the unit
// is logged as skipped and tracking is left untouched (spec.md §4.5).
func (r *Runner) applyUp(ctx context.Context, m Migration) error {
	if r.DryRun {
		r.log(ctx, "migration (dry-run): would apply", map[string]interface{}{"version": m.Version()})
		return nil
	}

	start := time.Now()
	ctx = ormlog.WithMigration(ctx, m.Version())

	var skip *ormerrors.SkipMigration
	if m.Transactional() {
		tx, err := r.conn.Begin(ctx)
		if err != nil {
			return ormerrors.NewMigrationError(m.Version(), "up", err)
		}
		if err := m.Up(ctx, tx); err != nil {
			tx.Rollback()
			if errors.As(err, &skip) {
				r.log(ctx, "migration skipped", map[string]interface{}{"version": m.Version(), "reason": skip.Reason})
				return nil
			}
			return ormerrors.NewMigrationError(m.Version(), "up", err)
		}
		if err := r.repo.record(ctx, tx, m, time.Since(start)); err != nil {
			tx.Rollback()
			return ormerrors.NewMigrationError(m.Version(), "up", err)
		}
		if err := tx.Commit(); err != nil {
			return ormerrors.NewMigrationError(m.Version(), "up", err)
		}
	} else {
		if err := m.Up(ctx, r.conn); err != nil {
			if errors.As(err, &skip) {
				r.log(ctx, "migration skipped", map[string]interface{}{"version": m.Version(), "reason": skip.Reason})
				return nil
			}
			return ormerrors.NewMigrationError(m.Version(), "up", err)
		}
		if err := r.repo.recordDirect(ctx, m, time.Since(start)); err != nil {
			return ormerrors.NewMigrationError(m.Version(), "up", err)
		}
	}

	r.log(ctx, "migration applied", map[string]interface{}{"version": m.Version()})
	return nil
}

func (r *Runner) applyDown(ctx context.Context, m Migration) error {
	if r.DryRun {
		r.log(ctx, "migration (dry-run): would roll back", map[string]interface{}{"version": m.Version()})
		return nil
	}

	ctx = ormlog.WithMigration(ctx, m.Version())
	var skip *ormerrors.SkipMigration

	if m.Transactional() {
		tx, err := r.conn.Begin(ctx)
		if err != nil {
			return ormerrors.NewMigrationError(m.Version(), "down", err)
		}
		if err := m.Down(ctx, tx); err != nil {
			tx.Rollback()
			if errors.As(err, &skip) {
				r.log(ctx, "rollback skipped", map[string]interface{}{"version": m.Version(), "reason": skip.Reason})
				return nil
			}
			return ormerrors.NewMigrationError(m.Version(), "down", err)
		}
		if err := r.repo.unrecord(ctx, tx, m.Version()); err != nil {
			tx.Rollback()
			return ormerrors.NewMigrationError(m.Version(), "down", err)
		}
		if err := tx.Commit(); err != nil {
			return ormerrors.NewMigrationError(m.Version(), "down", err)
		}
	} else {
		if err := m.Down(ctx, r.conn); err != nil {
			if errors.As(err, &skip) {
				r.log(ctx, "rollback skipped", map[string]interface{}{"version": m.Version(), "reason": skip.Reason})
				return nil
			}
			return ormerrors.NewMigrationError(m.Version(), "down", err)
		}
		if err := r.repo.unrecordDirect(ctx, m.Version()); err != nil {
			return ormerrors.NewMigrationError(m.Version(), "down", err)
		}
	}

	r.log(ctx, "migration rolled back", map[string]interface{}{"version": m.Version()})
	return nil
}
