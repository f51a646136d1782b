package migrate

import "github.com/aurum-go/aurum/internal/ormerrors"

// visitState tracks a unit's position in the depth-first traversal
// dependencyOrder performs, so a back-edge (a node reached while it is
// still on the current path) is recognised as a cycle rather than a
// diamond dependency.
type visitState int

const (
	unvisited visitState = iota
	visiting
	visited
)

// dependencyOrder topologically sorts units by Dependencies() via
// depth-first traversal, visiting each unit at most once (spec.md
// §4.5 "Dependency ordering"). tracked names versions already applied
// in a prior run; a dependency satisfied by tracked is a leaf. A
// dependency naming a version neither pending nor tracked fails with
// MigrationError{Operation: "dependency-not-met"}; a cycle fails with
// MigrationError{Operation: "circular-dependency"}.
func dependencyOrder(units []Migration, tracked map[string]bool) ([]Migration, error) {
	byVersion := make(map[string]Migration, len(units))
	for _, m := range units {
		byVersion[m.Version()] = m
	}

	state := make(map[string]visitState, len(units))
	var ordered []Migration

	var visit func(version string) error
	visit = func(version string) error {
		switch state[version] {
		case visited:
			return nil
		case visiting:
			return ormerrors.NewMigrationError(version, "circular-dependency", nil)
		}

		m, ok := byVersion[version]
		if !ok {
			if tracked[version] {
				return nil
			}
			return ormerrors.NewMigrationError(version, "dependency-not-met", nil)
		}

		state[version] = visiting
		for _, dep := range m.Dependencies() {
			if err := visit(dep); err != nil {
				return err
			}
		}
		state[version] = visited
		ordered = append(ordered, m)
		return nil
	}

	for _, m := range units {
		if err := visit(m.Version()); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}
