//go:build !windows

package plugin

// The dynamic loader resolves a plugin's dependencies through its RPATH on
// these platforms, so there is nothing to override.
const libraryDirectoryOverride = false

func setLibraryDirectory(string) (func(), error) {
	return func() {}, nil
}
