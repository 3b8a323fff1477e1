// Package registry lists the models of a model repository.
package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"modelcore/internal/common/fsutil"
	"modelcore/pkg/modelconfig"
	"modelcore/pkg/types"
)

// DefaultVersion is served by models without version directories.
const DefaultVersion = 1

// LoadDir scans a repository root. Every subdirectory is a model named
// after the directory; its numeric subdirectories are versions and the
// highest one is served. Hidden directories and plain files are skipped.
func LoadDir(dir string) ([]types.RepositoryModel, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.RepositoryModel
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '.' {
			continue
		}
		m, err := scanModel(filepath.Join(abs, e.Name()))
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

// Find returns the model called name in the repository at dir.
func Find(dir, name string) (types.RepositoryModel, bool, error) {
	models, err := LoadDir(dir)
	if err != nil {
		return types.RepositoryModel{}, false, err
	}
	for _, m := range models {
		if m.Name == name {
			return m, true, nil
		}
	}
	return types.RepositoryModel{}, false, nil
}

func scanModel(path string) (types.RepositoryModel, error) {
	m := types.RepositoryModel{Name: filepath.Base(path), Path: path, Latest: DefaultVersion}
	if cf, ok := modelconfig.FindConfigFile(path); ok {
		m.ConfigFile = cf
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return m, fmt.Errorf("read model dir: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		v, err := strconv.ParseInt(e.Name(), 10, 64)
		if err != nil || v < 0 {
			continue
		}
		m.Versions = append(m.Versions, v)
	}
	sort.Slice(m.Versions, func(i, j int) bool { return m.Versions[i] < m.Versions[j] })
	if n := len(m.Versions); n > 0 {
		m.Latest = m.Versions[n-1]
	}
	return m, nil
}
