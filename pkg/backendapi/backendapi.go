// Package backendapi is the contract between the core and backend plugins.
//
// A plugin is a shared library (built with -buildmode=plugin) exporting
// entrypoints under the symbol names below. Only ModelInstanceExecute is
// required. Each entrypoint may be exported either as a function or as a
// variable holding one. Entrypoints receive the core object they act on and
// report failure by returning an *Error.
package backendapi

import (
	"sync"

	"modelcore/pkg/modelconfig"
)

// Entrypoint symbol names.
const (
	SymBackendInitialize       = "BackendInitialize"
	SymBackendFinalize         = "BackendFinalize"
	SymBackendGetAttribute     = "BackendGetAttribute"
	SymModelInitialize         = "ModelInitialize"
	SymModelFinalize           = "ModelFinalize"
	SymModelInstanceInitialize = "ModelInstanceInitialize"
	SymModelInstanceFinalize   = "ModelInstanceFinalize"
	SymModelInstanceExecute    = "ModelInstanceExecute"
)

// Entrypoint signatures.
type (
	BackendInitializeFunc       func(b Backend) error
	BackendFinalizeFunc         func(b Backend) error
	BackendGetAttributeFunc     func(b Backend, attr *Attribute) error
	ModelInitializeFunc         func(m Model) error
	ModelFinalizeFunc           func(m Model) error
	ModelInstanceInitializeFunc func(inst Instance) error
	ModelInstanceFinalizeFunc   func(inst Instance) error
	ModelInstanceExecuteFunc    func(inst Instance, reqs []Request) error
)

// ExecutionPolicy tells the core how instance threads block.
type ExecutionPolicy int

const (
	// ExecutionPolicyBlocking lets every instance thread block independently.
	ExecutionPolicyBlocking ExecutionPolicy = iota
	// ExecutionPolicyDeviceBlocking means execution blocks the whole device.
	ExecutionPolicyDeviceBlocking
)

func (p ExecutionPolicy) String() string {
	if p == ExecutionPolicyDeviceBlocking {
		return "DEVICE_BLOCKING"
	}
	return "BLOCKING"
}

// Attribute is the backend-level information a plugin may report.
// PreferredInstanceGroups left empty keeps the core's current value.
type Attribute struct {
	ExecutionPolicy         ExecutionPolicy             `json:"execution_policy"`
	PreferredInstanceGroups []modelconfig.InstanceGroup `json:"preferred_instance_groups,omitempty"`
	ParallelInstanceLoading bool                        `json:"parallel_instance_loading"`
}

// StateHolder is implemented by every core object handed to a plugin. The
// state slot belongs to the plugin.
type StateHolder interface {
	State() any
	SetState(v any)
}

// Backend is the core's view of a loaded backend.
type Backend interface {
	StateHolder
	Name() string
	Directory() string
	LibraryPath() string
	// Config returns the backend configuration document as JSON.
	Config() string
}

// Model is the core's view of a model bound to a backend.
type Model interface {
	StateHolder
	Name() string
	Version() int64
	RepositoryPath() string
	Config() modelconfig.ModelConfig
	// SetConfig replaces the configuration. Plugins call it from
	// ModelInitialize to complete a partial configuration.
	SetConfig(cfg modelconfig.ModelConfig) error
	// AutoCompleteConfig reports whether the plugin is expected to
	// complete the configuration.
	AutoCompleteConfig() bool
	Backend() Backend
}

// Instance is one execution unit of a model.
type Instance interface {
	StateHolder
	Name() string
	Kind() modelconfig.Kind
	DeviceID() int
	HostPolicy() string
	Passive() bool
	ProfileNames() []string
	SecondaryDevices() []modelconfig.SecondaryDevice
	Model() Model
}

// Request is one unit of work passed to ModelInstanceExecute.
type Request interface {
	ID() string
	BatchSize() uint32
}

// StateAs returns the state of h as T.
func StateAs[T any](h StateHolder) (T, bool) {
	v, ok := h.State().(T)
	return v, ok
}

// StateBox is an embeddable StateHolder.
type StateBox struct {
	mu sync.Mutex
	v  any
}

func (s *StateBox) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.v
}

func (s *StateBox) SetState(v any) {
	s.mu.Lock()
	s.v = v
	s.mu.Unlock()
}
