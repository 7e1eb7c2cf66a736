package models

import "errors"

// ErrNotFound marks a missing domain entity (reminder, profile, log row,
// subscription). Callers distinguish it from transient store errors.
var ErrNotFound = errors.New("not found")
