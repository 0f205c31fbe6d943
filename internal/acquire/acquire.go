// Package acquire produces a local working copy of a repository.
package acquire

import (
	"context"
	"errors"
)

// ErrAcquisitionFailed is returned when a repository cannot be cloned or
// opened. Nothing downstream runs after it.
var ErrAcquisitionFailed = errors.New("failed to acquire repository")

// Source is an acquired working copy.
type Source struct {
	Location string // what the caller asked for
	Dir      string // absolute local directory
	Revision string // commit hash, empty when unknown
	Branch   string // checked out branch, empty when unknown
}

// Acquirer turns a repository location into a local directory.
type Acquirer interface {
	Acquire(ctx context.Context, location string) (*Source, error)
}
