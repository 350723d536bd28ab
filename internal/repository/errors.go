// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrNameExists indicates a unique-name collision on a
// taxonomy table and becomes an HTTP 409 upstream.
package repository

import "errors"

// ErrNameExists is returned when an insert or rename collides with an
// existing name in a taxonomy table. Handlers should translate this
// into an HTTP 409 response whose message names the duplicate.
var ErrNameExists = errors.New("name already exists")
