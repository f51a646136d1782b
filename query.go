package aurum

import (
	"github.com/aurum-go/aurum/internal/hydrate"
	"github.com/aurum-go/aurum/internal/query"
)

// Query Builder & Hydration re-exports, for callers that need to name
// the types EntityManager.Query and its iterators return.
type (
	QueryBuilder  = query.Builder
	ArrayIterator = query.ArrayIterator
	EntityIterator = hydrate.Iterator
)
