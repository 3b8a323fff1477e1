// Package plugin loads backend libraries and binds their entrypoints.
package plugin

import (
	"fmt"
	"path/filepath"
	goplugin "plugin"
	"sync"

	"modelcore/internal/status"
)

// Library is an opened backend library.
type Library interface {
	Path() string
	// Lookup returns the exported symbol or an error when it is absent.
	Lookup(symbol string) (any, error)
}

// Opener opens backend libraries by path.
type Opener interface {
	Open(path string) (Library, error)
}

// GoOpener opens libraries built with -buildmode=plugin. Go plugins cannot
// be unloaded, so a Library stays mapped for the life of the process.
type GoOpener struct{}

func (GoOpener) Open(path string) (Library, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, status.Newf(status.NotFound, "unable to load backend library '%s': %v", path, err)
	}
	return &goLibrary{path: path, p: p}, nil
}

type goLibrary struct {
	path string
	p    *goplugin.Plugin
}

func (l *goLibrary) Path() string { return l.path }

func (l *goLibrary) Lookup(symbol string) (any, error) {
	sym, err := l.p.Lookup(symbol)
	if err != nil {
		return nil, err
	}
	return sym, nil
}

// Symbols maps symbol names to exported functions or variables.
type Symbols map[string]any

// StaticOpener serves in-process symbol tables registered against library
// paths. It lets backends linked into the binary, and tests, go through the
// same loading path as shared libraries.
type StaticOpener struct {
	mu    sync.RWMutex
	libs  map[string]Symbols
	opens map[string]int
}

// NewStaticOpener returns an empty StaticOpener.
func NewStaticOpener() *StaticOpener {
	return &StaticOpener{libs: make(map[string]Symbols), opens: make(map[string]int)}
}

// Register makes syms available under path.
func (o *StaticOpener) Register(path string, syms Symbols) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.libs[filepath.Clean(path)] = syms
}

func (o *StaticOpener) Open(path string) (Library, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := filepath.Clean(path)
	syms, ok := o.libs[key]
	if !ok {
		return nil, status.Newf(status.NotFound, "unable to load backend library '%s': not registered", path)
	}
	o.opens[key]++
	return &staticLibrary{path: path, syms: syms}, nil
}

// Opens reports how many times path has been opened.
func (o *StaticOpener) Opens(path string) int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.opens[filepath.Clean(path)]
}

type staticLibrary struct {
	path string
	syms Symbols
}

func (l *staticLibrary) Path() string { return l.path }

func (l *staticLibrary) Lookup(symbol string) (any, error) {
	sym, ok := l.syms[symbol]
	if !ok || sym == nil {
		return nil, fmt.Errorf("symbol %s not found in %s", symbol, l.path)
	}
	return sym, nil
}
