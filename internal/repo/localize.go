// Package repo resolves model repository locations to local directories.
package repo

import (
	"path/filepath"

	"modelcore/internal/common/fsutil"
	"modelcore/internal/status"
)

// LocalizedPath is a model directory available on the local filesystem for
// as long as the handle is open.
type LocalizedPath interface {
	Path() string
	Close() error
}

// Localizer makes a model path available locally.
type Localizer interface {
	Localize(path string) (LocalizedPath, error)
}

// LocalLocalizer serves paths that are already local. "~" is expanded.
type LocalLocalizer struct{}

func (LocalLocalizer) Localize(path string) (LocalizedPath, error) {
	p, err := fsutil.ExpandHome(path)
	if err != nil {
		return nil, status.Newf(status.Internal, "failed to localize '%s': %v", path, err)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, status.Newf(status.Internal, "failed to localize '%s': %v", path, err)
	}
	if !fsutil.DirExists(abs) {
		return nil, status.Newf(status.NotFound, "model directory '%s' does not exist", abs)
	}
	return localPath(abs), nil
}

type localPath string

func (p localPath) Path() string { return string(p) }

func (localPath) Close() error { return nil }
