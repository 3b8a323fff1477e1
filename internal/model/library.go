package model

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"modelcore/internal/common/fsutil"
	"modelcore/internal/status"
)

// LibraryName returns the default library file name of a backend.
func LibraryName(backend string) string {
	if runtime.GOOS == "windows" {
		return "triton_" + backend + ".dll"
	}
	return "libtriton_" + backend + ".so"
}

// SearchPaths returns the directories searched for a backend library, in
// order: the model version directory, the model directory, then the
// backend's own directory.
func SearchPaths(modelPath string, version int64, backendDir, backendName string) []string {
	return []string{
		filepath.Join(modelPath, strconv.FormatInt(version, 10)),
		modelPath,
		filepath.Join(backendDir, backendName),
	}
}

// findLibrary returns the first search path holding lib.
func findLibrary(paths []string, lib string) (dir, path string, ok bool) {
	for _, d := range paths {
		p := filepath.Join(d, lib)
		if fsutil.FileExists(p) {
			return d, p, true
		}
	}
	return "", "", false
}

// ResolveBackendLibrary locates the library serving backend for model.
// runtime is the library named by the model configuration; when empty the
// default name of specialized is used. It returns the directory the
// library was found in, its path and the library name.
func ResolveBackendLibrary(model, backend, specialized, runtimeLib string, paths []string) (dir, path, lib string, err error) {
	if runtimeLib == "" {
		lib = LibraryName(specialized)
		dir, path, ok := findLibrary(paths, lib)
		if !ok {
			return "", "", "", status.Newf(status.InvalidArgument,
				"unable to find backend library '%s' for backend '%s' model '%s', searched: %s, try specifying runtime on the model configuration.",
				lib, backend, model, quoted(paths))
		}
		return dir, path, lib, nil
	}
	lib = runtimeLib
	dir, path, ok := findLibrary(paths, lib)
	if !ok {
		return "", "", "", status.Newf(status.InvalidArgument,
			"unable to find backend library '%s' for backend '%s' model '%s', searched: %s",
			lib, backend, model, quoted(paths))
	}
	if fsutil.EscapesDir(dir, path) {
		return "", "", "", status.Newf(status.InvalidArgument,
			"backend library name '%s' escapes backend directory '%s', for model '%s', check model config runtime field",
			path, dir, model)
	}
	return dir, path, lib, nil
}

func quoted(paths []string) string {
	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "'%s'", p)
	}
	return b.String()
}
