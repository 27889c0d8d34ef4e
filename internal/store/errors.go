package store

import "errors"

// ErrNotFound keeps storage-level "no such record" consistent across the
// flat-file and PostgreSQL backends.
var ErrNotFound = errors.New("record not found")
