package acquire

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalAcquirer uses an existing directory in place. Nothing is copied.
type LocalAcquirer struct {
	GitPath string // used to read revision metadata when the directory is a repository
}

var _ Acquirer = (*LocalAcquirer)(nil)

// NewLocal creates a LocalAcquirer.
func NewLocal(gitPath string) *LocalAcquirer {
	if gitPath == "" {
		gitPath = "git"
	}
	return &LocalAcquirer{GitPath: gitPath}
}

// Acquire checks that location is a directory and returns it.
func (l *LocalAcquirer) Acquire(ctx context.Context, location string) (*Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir, err := filepath.Abs(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrAcquisitionFailed, location)
	}

	g := &GitAcquirer{GitPath: l.GitPath}
	return &Source{
		Location: location,
		Dir:      dir,
		Revision: g.revision(dir),
		Branch:   g.currentBranch(dir),
	}, nil
}
