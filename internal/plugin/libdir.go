package plugin

import "sync"

// libDirMu serializes library directory overrides; the search directory
// is process-wide state.
var libDirMu sync.Mutex

// WithLibraryDirectory runs fn with dir added to the dynamic library search
// path so a plugin can load libraries that sit next to it. The previous
// search path is restored before returning, whether fn fails or not.
func WithLibraryDirectory(dir string, fn func() error) error {
	if !libraryDirectoryOverride {
		return fn()
	}
	libDirMu.Lock()
	defer libDirMu.Unlock()
	restore, err := setLibraryDirectory(dir)
	if err != nil {
		return err
	}
	defer restore()
	return fn()
}
