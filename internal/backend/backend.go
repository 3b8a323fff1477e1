// Package backend owns loaded backend libraries: their entrypoints,
// configuration, attributes and lifetime.
package backend

import (
	"sync"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"modelcore/internal/config"
	"modelcore/internal/plugin"
	"modelcore/internal/status"
	"modelcore/pkg/backendapi"
	"modelcore/pkg/modelconfig"
)

// State is the lifecycle state of a Backend.
type State int

const (
	StateUnloaded State = iota
	StateLoaded
	StateInitialized
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateInitialized:
		return "initialized"
	case StateFinalized:
		return "finalized"
	}
	return "unknown"
}

// Backend is a loaded backend library. It satisfies backendapi.Backend.
type Backend struct {
	backendapi.StateBox

	name    string
	dir     string
	libPath string
	config  string
	log     zerolog.Logger

	mu    sync.Mutex
	state State
	ep    *plugin.Entrypoints
	attr  backendapi.Attribute
}

var _ backendapi.Backend = (*Backend)(nil)

// New opens libPath, binds its entrypoints, runs its initializer and reads
// its attributes. Nothing is left loaded when New fails.
func New(opener plugin.Opener, name, dir, libPath string, settings config.CmdlineConfig, log zerolog.Logger) (*Backend, error) {
	doc, err := BuildConfigDocument(settings)
	if err != nil {
		return nil, err
	}
	b := &Backend{
		name:    name,
		dir:     dir,
		libPath: libPath,
		config:  doc,
		log:     log.With().Str("backend", name).Str("library", libPath).Logger(),
	}
	lib, err := opener.Open(libPath)
	if err != nil {
		return nil, err
	}
	ep, err := plugin.Bind(lib)
	if err != nil {
		return nil, err
	}
	b.ep = ep
	b.state = StateLoaded

	if ep.BackendInitialize != nil {
		err := plugin.WithLibraryDirectory(dir, func() error {
			return plugin.TranslateError(ep.BackendInitialize(b))
		})
		if err != nil {
			// The finalizer also runs after a failed initializer.
			if ep.BackendFinalize != nil {
				if ferr := plugin.TranslateError(ep.BackendFinalize(b)); ferr != nil {
					b.log.Warn().Err(ferr).Msg("backend finalize after failed initialize")
				}
			}
			b.clear(StateUnloaded)
			return nil, status.Prefix(err, "backend '"+name+"' failed to initialize: ")
		}
	}
	b.state = StateInitialized

	if err := b.updateAttributes(); err != nil {
		b.log.Warn().Err(err).Msg("backend attributes unavailable, using defaults")
	}
	b.log.Debug().Str("execution_policy", b.attr.ExecutionPolicy.String()).
		Int("preferred_groups", len(b.attr.PreferredInstanceGroups)).
		Bool("parallel_instance_loading", b.attr.ParallelInstanceLoading).
		Msg("backend initialized")
	return b, nil
}

// updateAttributes queries the plugin and merges what it reports: policy
// and parallel loading always win, preferred groups only when non-empty.
func (b *Backend) updateAttributes() error {
	if b.ep.BackendGetAttribute == nil {
		return nil
	}
	latest := backendapi.Attribute{ExecutionPolicy: b.attr.ExecutionPolicy}
	if err := plugin.TranslateError(b.ep.BackendGetAttribute(b, &latest)); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.attr.ExecutionPolicy = latest.ExecutionPolicy
	if len(latest.PreferredInstanceGroups) > 0 {
		b.attr.PreferredInstanceGroups = cloneGroups(latest.PreferredInstanceGroups)
	}
	b.attr.ParallelInstanceLoading = latest.ParallelInstanceLoading
	return nil
}

// Finalize runs the plugin finalizer once and drops the entrypoints.
// Later calls are no-ops.
func (b *Backend) Finalize() error {
	b.mu.Lock()
	if b.state != StateInitialized {
		b.mu.Unlock()
		return nil
	}
	fini := b.ep.BackendFinalize
	b.state = StateFinalized
	b.mu.Unlock()

	var err error
	if fini != nil {
		err = plugin.TranslateError(fini(b))
		if err != nil {
			b.log.Error().Err(err).Msg("backend finalize failed")
		}
	}
	b.clear(StateFinalized)
	b.log.Debug().Msg("backend finalized")
	return err
}

func (b *Backend) clear(s State) {
	b.mu.Lock()
	b.ep = nil
	b.state = s
	b.mu.Unlock()
}

func (b *Backend) Name() string        { return b.name }
func (b *Backend) Directory() string   { return b.dir }
func (b *Backend) LibraryPath() string { return b.libPath }
func (b *Backend) Config() string      { return b.config }

// ConfigValue returns a setting from the configuration document.
func (b *Backend) ConfigValue(key string) (string, bool) {
	var (
		val   string
		found bool
	)
	gjson.Get(b.config, "cmdline").ForEach(func(k, v gjson.Result) bool {
		if k.String() == key {
			val, found = v.String(), true
			return false
		}
		return true
	})
	return val, found
}

// LifecycleState reports where the backend is in its lifecycle.
func (b *Backend) LifecycleState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Attributes returns a copy of the merged attributes.
func (b *Backend) Attributes() backendapi.Attribute {
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.attr
	a.PreferredInstanceGroups = cloneGroups(b.attr.PreferredInstanceGroups)
	return a
}

func (b *Backend) entrypoints() (*plugin.Entrypoints, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != StateInitialized || b.ep == nil {
		return nil, status.Newf(status.Unavailable, "backend '%s' is %s", b.name, b.state)
	}
	return b.ep, nil
}

// ModelInitialize runs the plugin's model initializer, if any, with the
// backend directory on the library search path.
func (b *Backend) ModelInitialize(m backendapi.Model) error {
	ep, err := b.entrypoints()
	if err != nil || ep.ModelInitialize == nil {
		return err
	}
	return plugin.WithLibraryDirectory(b.dir, func() error {
		return plugin.TranslateError(ep.ModelInitialize(m))
	})
}

// ModelFinalize runs the plugin's model finalizer, if any.
func (b *Backend) ModelFinalize(m backendapi.Model) error {
	ep, err := b.entrypoints()
	if err != nil || ep.ModelFinalize == nil {
		return err
	}
	return plugin.TranslateError(ep.ModelFinalize(m))
}

// InstanceInitialize runs the plugin's instance initializer, if any.
func (b *Backend) InstanceInitialize(inst backendapi.Instance) error {
	ep, err := b.entrypoints()
	if err != nil || ep.ModelInstanceInitialize == nil {
		return err
	}
	return plugin.TranslateError(ep.ModelInstanceInitialize(inst))
}

// InstanceFinalize runs the plugin's instance finalizer, if any.
func (b *Backend) InstanceFinalize(inst backendapi.Instance) error {
	ep, err := b.entrypoints()
	if err != nil || ep.ModelInstanceFinalize == nil {
		return err
	}
	return plugin.TranslateError(ep.ModelInstanceFinalize(inst))
}

// Execute hands a batch of requests to an instance.
func (b *Backend) Execute(inst backendapi.Instance, reqs []backendapi.Request) error {
	ep, err := b.entrypoints()
	if err != nil {
		return err
	}
	return plugin.TranslateError(ep.ModelInstanceExecute(inst, reqs))
}

func cloneGroups(in []modelconfig.InstanceGroup) []modelconfig.InstanceGroup {
	if len(in) == 0 {
		return nil
	}
	out := make([]modelconfig.InstanceGroup, len(in))
	for i, g := range in {
		out[i] = g.Clone()
	}
	return out
}
