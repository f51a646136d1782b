package aurum

import (
	"errors"

	"github.com/aurum-go/aurum/internal/ormerrors"
)

// Error taxonomy re-exports. Aurum's internal packages construct these
// directly; the root package only aliases the types and constructors so
// callers never need to import internal/ormerrors themselves — the same
// "type alias for backward compatibility" pattern the teacher uses in
// application.go for its http types.
type (
	ConfigurationError = ormerrors.ConfigurationError
	MetadataError       = ormerrors.MetadataError
	PersistenceError    = ormerrors.PersistenceError
	QueryError          = ormerrors.QueryError
	HydrationError      = ormerrors.HydrationError
	MigrationError      = ormerrors.MigrationError
	SkipMigration       = ormerrors.SkipMigration
	NotFound            = ormerrors.NotFound
)

// IsNotFound reports whether err (or anything it wraps) is a NotFound,
// the only member of the taxonomy that find() itself never returns —
// it is exposed here for callers using singleScalar()-style operations
// that do.
func IsNotFound(err error) bool {
	var nf *NotFound
	return errors.As(err, &nf)
}

// IsSkipMigration reports whether err is the SkipMigration control
// signal rather than a genuine migration failure.
func IsSkipMigration(err error) bool {
	var skip *SkipMigration
	return errors.As(err, &skip)
}
