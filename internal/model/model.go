// Package model binds model configurations to backends: it resolves the
// backend library, normalizes instance groups, creates and warms up
// execution instances and swaps instance sets atomically on reload.
package model

import (
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"modelcore/internal/backend"
	"modelcore/internal/config"
	"modelcore/internal/repo"
	"modelcore/internal/status"
	"modelcore/pkg/backendapi"
	"modelcore/pkg/modelconfig"
)

// InstanceSet is an immutable snapshot of the instances serving a model.
// Readers never observe a partially committed set.
type InstanceSet struct {
	Generation uint64
	Instances  []*Instance
	Passive    []*Instance
}

// All returns the active and passive instances.
func (s *InstanceSet) All() []*Instance {
	out := make([]*Instance, 0, len(s.Instances)+len(s.Passive))
	out = append(out, s.Instances...)
	return append(out, s.Passive...)
}

// Model is a model bound to a backend. It satisfies backendapi.Model.
type Model struct {
	backendapi.StateBox

	version        int64
	localized      repo.LocalizedPath
	backend        *backend.Backend
	registry       *backend.Registry
	cmdline        config.CmdlineConfigMap
	hostPolicies   config.HostPolicyMap
	cpuCounts      map[string]int
	supported      []int
	minCC          float64
	autoComplete   bool
	nice           int
	factory        SchedulerFactory
	log            zerolog.Logger
	deviceBlocking bool

	cfgMu          sync.RWMutex
	cfg            modelconfig.ModelConfig
	configSet      bool
	inputs         map[string]modelconfig.ModelInput
	outputs        map[string]modelconfig.ModelOutput
	requiredInputs int

	// mu guards the staged set, the scheduler and closed. staging counts
	// PrepareInstances calls in progress; it is only added to while closed
	// is false.
	mu        sync.Mutex
	fg        atomic.Pointer[InstanceSet]
	bg        *InstanceSet
	scheduler Scheduler
	work      WorkSource
	closed    bool
	staging   sync.WaitGroup

	deviceLocks sync.Map
}

var _ backendapi.Model = (*Model)(nil)

func (m *Model) Name() string {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg.Name
}

func (m *Model) Version() int64                   { return m.version }
func (m *Model) RepositoryPath() string           { return m.localized.Path() }
func (m *Model) Backend() backendapi.Backend      { return m.backend }
func (m *Model) AutoCompleteConfig() bool         { return m.autoComplete }
func (m *Model) DeviceBlocking() bool             { return m.deviceBlocking }
func (m *Model) MinComputeCapability() float64    { return m.minCC }
func (m *Model) BackendLibrary() *backend.Backend { return m.backend }

// Config returns a copy of the current configuration.
func (m *Model) Config() modelconfig.ModelConfig {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.cfg.Clone()
}

// SetConfig replaces the configuration and marks it as set.
func (m *Model) SetConfig(cfg modelconfig.ModelConfig) error {
	if err := modelconfig.ValidateModelConfig(cfg); err != nil {
		return err
	}
	m.cfgMu.Lock()
	defer m.cfgMu.Unlock()
	if cfg.Name != m.cfg.Name {
		return status.Newf(status.InvalidArgument,
			"unexpected model name '%s' in configuration of model '%s'", cfg.Name, m.cfg.Name)
	}
	m.cfg = cfg.Clone()
	m.configSet = true
	return nil
}

// Init checks the configuration and indexes inputs and outputs.
// isConfigProvided is true when the caller supplied the configuration.
func (m *Model) Init(isConfigProvided bool) error {
	m.cfgMu.Lock()
	defer m.cfgMu.Unlock()
	if !m.configSet && !isConfigProvided {
		return status.Newf(status.NotFound, "model configuration is not provided for model '%s'", m.cfg.Name)
	}
	if err := modelconfig.ValidateModelConfig(m.cfg); err != nil {
		return err
	}
	if err := modelconfig.ValidateModelIOConfig(m.cfg); err != nil {
		return err
	}
	m.inputs = make(map[string]modelconfig.ModelInput, len(m.cfg.Input))
	m.requiredInputs = 0
	for _, in := range m.cfg.Input {
		m.inputs[in.Name] = in
		if !in.Optional {
			m.requiredInputs++
		}
	}
	m.outputs = make(map[string]modelconfig.ModelOutput, len(m.cfg.Output))
	for _, out := range m.cfg.Output {
		m.outputs[out.Name] = out
	}
	return nil
}

// GetInput returns the configuration of input name.
func (m *Model) GetInput(name string) (modelconfig.ModelInput, error) {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	in, ok := m.inputs[name]
	if !ok {
		return modelconfig.ModelInput{}, status.Newf(status.InvalidArgument,
			"unexpected inference input '%s' for model '%s'", name, m.cfg.Name)
	}
	return in, nil
}

// GetOutput returns the configuration of output name.
func (m *Model) GetOutput(name string) (modelconfig.ModelOutput, error) {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	out, ok := m.outputs[name]
	if !ok {
		return modelconfig.ModelOutput{}, status.Newf(status.InvalidArgument,
			"unexpected inference output '%s' for model '%s'", name, m.cfg.Name)
	}
	return out, nil
}

// RequiredInputCount is the number of non-optional inputs.
func (m *Model) RequiredInputCount() int {
	m.cfgMu.RLock()
	defer m.cfgMu.RUnlock()
	return m.requiredInputs
}

// Instances returns the instance set currently in service.
func (m *Model) Instances() *InstanceSet {
	return m.fg.Load()
}

// SetScheduler installs the scheduler. It may be set only once.
func (m *Model) SetScheduler(s Scheduler, work WorkSource) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler != nil {
		return status.New(status.Internal, "Attempt to change scheduler not allowed")
	}
	m.scheduler = s
	m.work = work
	return nil
}

// SetConfiguredScheduler builds the scheduler from the model's factory
// against the instances about to enter service.
func (m *Model) SetConfiguredScheduler(instances []*Instance) error {
	m.mu.Lock()
	set := m.scheduler != nil
	m.mu.Unlock()
	if set {
		return status.New(status.Internal, "Attempt to change scheduler not allowed")
	}
	if m.factory == nil {
		return status.Newf(status.Internal, "no scheduler configured for model '%s'", m.Name())
	}
	s, work, err := m.factory(m, instances)
	if err != nil {
		return err
	}
	return m.SetScheduler(s, work)
}

func (m *Model) workSource() WorkSource {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.work
}

func (m *Model) currentScheduler() (Scheduler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scheduler == nil || m.closed {
		return nil, status.Newf(status.Unavailable, "model '%s' is not serving", m.Name())
	}
	return m.scheduler, nil
}

// Enqueue hands req to the scheduler.
func (m *Model) Enqueue(req backendapi.Request) error {
	s, err := m.currentScheduler()
	if err != nil {
		return err
	}
	return s.Enqueue(req)
}

// InflightInferenceCount returns the requests queued or executing.
func (m *Model) InflightInferenceCount() int {
	s, err := m.currentScheduler()
	if err != nil {
		return 0
	}
	return s.InflightInferenceCount()
}

// Stop stops the scheduler. Queued requests are rejected.
func (m *Model) Stop() {
	m.mu.Lock()
	s := m.scheduler
	m.mu.Unlock()
	if s != nil {
		s.Stop()
	}
}

// deviceLock returns the lock shared by instances on one device when the
// backend blocks the whole device, nil otherwise.
func (m *Model) deviceLock(kind modelconfig.Kind, deviceID int) *sync.Mutex {
	if !m.deviceBlocking {
		return nil
	}
	l, _ := m.deviceLocks.LoadOrStore(string(kind)+"/"+strconv.Itoa(deviceID), &sync.Mutex{})
	return l.(*sync.Mutex)
}

// Close stops the scheduler and every instance, finalizes the model in the
// backend, releases the backend and the localized path.
func (m *Model) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	// Staging in progress stops what it created once it sees closed.
	m.staging.Wait()

	m.mu.Lock()
	s := m.scheduler
	var stop []*Instance
	if cur := m.fg.Load(); cur != nil {
		stop = append(stop, cur.All()...)
		m.fg.Store(&InstanceSet{Generation: cur.Generation + 1})
	}
	if m.bg != nil {
		stop = append(stop, m.bg.All()...)
		m.bg = nil
	}
	m.mu.Unlock()

	if s != nil {
		s.Stop()
	}
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	for _, inst := range stop {
		keep(inst.Stop())
	}
	keep(m.backend.ModelFinalize(m))
	keep(m.registry.Release(m.backend))
	keep(m.localized.Close())
	m.log.Info().Msg("model unloaded")
	return first
}
