package backend

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"modelcore/internal/config"
	"modelcore/internal/plugin"
	"modelcore/internal/status"
)

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Opener plugin.Opener
	Logger *zerolog.Logger
}

// Registry holds one Backend per library path. Backends are created on
// first use and finalized when their last reference is released.
type Registry struct {
	opener plugin.Opener
	log    zerolog.Logger

	mu       sync.Mutex
	backends map[string]*entry
	creating singleflight.Group
	closed   bool
}

type entry struct {
	b    *Backend
	refs int
}

// Info describes a registered backend.
type Info struct {
	Name                    string `json:"name"`
	Directory               string `json:"directory"`
	LibraryPath             string `json:"library_path"`
	Config                  string `json:"config"`
	State                   string `json:"state"`
	References              int    `json:"references"`
	ExecutionPolicy         string `json:"execution_policy"`
	PreferredGroups         int    `json:"preferred_instance_groups"`
	ParallelInstanceLoading bool   `json:"parallel_instance_loading"`
}

// NewRegistry returns an empty registry. A nil Opener loads Go plugins.
func NewRegistry(opts RegistryOptions) *Registry {
	r := &Registry{opener: opts.Opener, backends: make(map[string]*entry)}
	if r.opener == nil {
		r.opener = plugin.GoOpener{}
	}
	if opts.Logger != nil {
		r.log = *opts.Logger
	} else {
		r.log = zerolog.Nop()
	}
	return r
}

// CreateBackend returns a reference to the backend loaded from libPath,
// loading it first if needed. Concurrent callers for the same path share a
// single load. Asking for a loaded path under another name fails with
// AlreadyExists. Every successful call must be paired with Release.
func (r *Registry) CreateBackend(name, dir, libPath string, settings config.CmdlineConfig) (*Backend, error) {
	for {
		r.mu.Lock()
		if r.closed {
			r.mu.Unlock()
			return nil, status.New(status.Unavailable, "backend registry is closed")
		}
		if e, ok := r.backends[libPath]; ok {
			if e.b.Name() != name {
				r.mu.Unlock()
				return nil, status.Newf(status.AlreadyExists,
					"backend library '%s' is already loaded as backend '%s', cannot load it as '%s'",
					libPath, e.b.Name(), name)
			}
			e.refs++
			r.mu.Unlock()
			return e.b, nil
		}
		r.mu.Unlock()

		_, err, _ := r.creating.Do(libPath, func() (any, error) {
			r.mu.Lock()
			_, exists := r.backends[libPath]
			r.mu.Unlock()
			if exists {
				return nil, nil
			}
			b, err := New(r.opener, name, dir, libPath, settings, r.log)
			if err != nil {
				return nil, err
			}
			r.mu.Lock()
			if r.closed {
				r.mu.Unlock()
				_ = b.Finalize()
				return nil, status.New(status.Unavailable, "backend registry is closed")
			}
			r.backends[libPath] = &entry{b: b}
			r.mu.Unlock()
			r.log.Info().Str("backend", name).Str("library", libPath).Msg("backend loaded")
			return nil, nil
		})
		if err != nil {
			return nil, err
		}
		// Loop to take the reference; the entry may already be gone if
		// another holder released it in between.
	}
}

// Release drops one reference to b. The last release finalizes it.
func (r *Registry) Release(b *Backend) error {
	if b == nil {
		return nil
	}
	r.mu.Lock()
	e, ok := r.backends[b.LibraryPath()]
	if !ok || e.b != b {
		r.mu.Unlock()
		return nil
	}
	e.refs--
	if e.refs > 0 {
		r.mu.Unlock()
		return nil
	}
	delete(r.backends, b.LibraryPath())
	r.mu.Unlock()
	r.log.Info().Str("backend", b.Name()).Str("library", b.LibraryPath()).Msg("backend unloaded")
	return b.Finalize()
}

// SnapshotState returns, per backend name, its library path and
// configuration document.
func (r *Registry) SnapshotState() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string, len(r.backends))
	for _, e := range r.backends {
		out[e.b.Name()] = []string{e.b.LibraryPath(), e.b.Config()}
	}
	return out
}

// List describes every registered backend, sorted by name.
func (r *Registry) List() []Info {
	r.mu.Lock()
	entries := make([]entry, 0, len(r.backends))
	for _, e := range r.backends {
		entries = append(entries, *e)
	}
	r.mu.Unlock()
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		attr := e.b.Attributes()
		out = append(out, Info{
			Name:                    e.b.Name(),
			Directory:               e.b.Directory(),
			LibraryPath:             e.b.LibraryPath(),
			Config:                  e.b.Config(),
			State:                   e.b.LifecycleState().String(),
			References:              e.refs,
			ExecutionPolicy:         attr.ExecutionPolicy.String(),
			PreferredGroups:         len(attr.PreferredInstanceGroups),
			ParallelInstanceLoading: attr.ParallelInstanceLoading,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Close finalizes every backend regardless of outstanding references and
// rejects further creation.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	all := make([]*Backend, 0, len(r.backends))
	for _, e := range r.backends {
		all = append(all, e.b)
	}
	r.backends = make(map[string]*entry)
	r.mu.Unlock()
	var first error
	for _, b := range all {
		if err := b.Finalize(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
