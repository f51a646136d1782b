package migrate

import "sort"

// Registry holds the known migration units for a session, grounded on
// the teacher's MigrationRegistry (internal/database/migrations/base_migration.go)
// but keyed by version rather than by free-text name, since spec.md §4.5
// identifies a unit by its 14-digit version.
type Registry struct {
	units map[string]Migration
}

// NewRegistry returns an empty migration registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[string]Migration)}
}

// Register adds a unit, keyed by its version. Registering the same
// version twice overwrites the previous registration, mirroring the
// teacher's idempotent Register.
func (r *Registry) Register(m Migration) {
	r.units[m.Version()] = m
}

// Get returns the unit registered under version, if any.
func (r *Registry) Get(version string) (Migration, bool) {
	m, ok := r.units[version]
	return m, ok
}

// All returns every registered unit, sorted ascending by version.
func (r *Registry) All() []Migration {
	versions := make([]string, 0, len(r.units))
	for v := range r.units {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	out := make([]Migration, 0, len(versions))
	for _, v := range versions {
		out = append(out, r.units[v])
	}
	return out
}

// Len reports how many units are registered.
func (r *Registry) Len() int { return len(r.units) }
