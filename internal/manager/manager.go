package manager

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"modelcore/internal/backend"
	"modelcore/internal/config"
	"modelcore/internal/platform"
	"modelcore/internal/repo"
	"modelcore/pkg/types"
)

// Manager loads, reloads and unloads the models of one repository and
// routes requests to them.
type Manager struct {
	repository    string
	cmdline       config.CmdlineConfigMap
	hostPolicies  config.HostPolicyMap
	topology      platform.Topology
	localizer     repo.Localizer
	cpuCounts     map[string]int
	nice          *int
	maxQueueDepth int
	drainTimeout  time.Duration

	registry  *backend.Registry
	publisher EventPublisher
	metrics   *Metrics
	log       zerolog.Logger
	startTime time.Time

	mu      sync.RWMutex
	models  map[string]*entry
	locks   map[string]*sync.Mutex
	ops     map[string]*types.OperationStatus
	opOrder []string
	lastErr string
	closed  bool

	loadsTotal   atomic.Uint64
	reloadsTotal atomic.Uint64
	unloadsTotal atomic.Uint64
}

// SetEventPublisher replaces the event publisher. Nil drops events.
func (m *Manager) SetEventPublisher(p EventPublisher) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p == nil {
		p = noopPublisher{}
	}
	m.publisher = p
}

func (m *Manager) publish(e Event) {
	m.mu.RLock()
	p := m.publisher
	m.mu.RUnlock()
	if e.At.IsZero() {
		e.At = time.Now()
	}
	p.Publish(e)
}

// Repository returns the model repository directory.
func (m *Manager) Repository() string { return m.repository }

// Ready reports whether the manager is serving and no model is loading,
// draining or failed.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return false
	}
	for _, e := range m.models {
		if e.state != StateReady {
			return false
		}
	}
	return true
}

// lockModel serializes lifecycle operations on one model name.
func (m *Manager) lockModel(name string) func() {
	m.mu.Lock()
	l, ok := m.locks[name]
	if !ok {
		l = &sync.Mutex{}
		m.locks[name] = l
	}
	m.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (m *Manager) isClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

func (m *Manager) lookup(name string) (entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.models[name]
	if !ok {
		return entry{}, false
	}
	return *e, true
}

func (m *Manager) recordError(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err.Error()
	if e, ok := m.models[name]; ok {
		e.err = err.Error()
	}
}
