// Sentinel errors shared across the engine. Handlers of these errors treat
// them as local no-op signals rather than failures: a stale row id or index
// (for example a license row deleted while an edit to it was in flight) must
// degrade gracefully instead of interrupting the caller.
package engine

import "errors"

// ErrRowNotFound is returned when an operation references a row id that is
// not present in the store.
var ErrRowNotFound = errors.New("row not found")

// ErrIndexOutOfRange is returned when a license or contact index does not
// exist on the addressed row.
var ErrIndexOutOfRange = errors.New("index out of range")

// ErrUnknownField is returned when a field path does not name a known
// account record field.
var ErrUnknownField = errors.New("unknown field path")

// ErrUnknownCatalog is returned for a CatalogKind outside the four known
// taxonomies.
var ErrUnknownCatalog = errors.New("unknown catalog kind")

// ErrTaxonomyInUse is returned when a taxonomy option cannot be deleted
// because a currently loaded account record still references its name.
var ErrTaxonomyInUse = errors.New("taxonomy option is in use")
