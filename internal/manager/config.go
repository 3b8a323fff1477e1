package manager

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelcore/internal/backend"
	"modelcore/internal/config"
	"modelcore/internal/platform"
	"modelcore/internal/plugin"
	"modelcore/internal/repo"
	"modelcore/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultDrainTimeout  = 30 * time.Second
)

// Config encapsulates all tunables for Manager construction.
type Config struct {
	// ModelRepository is the directory holding one directory per model.
	ModelRepository string
	CmdlineConfig   config.CmdlineConfigMap
	HostPolicies    config.HostPolicyMap
	// Topology defaults to a CPU-only host.
	Topology platform.Topology
	// Opener loads backend libraries; nil loads Go plugins.
	Opener    plugin.Opener
	Localizer repo.Localizer
	// CPUInstanceCounts overrides the default CPU instance count per
	// backend.
	CPUInstanceCounts map[string]int
	Nice              *int
	// MaxQueueDepth bounds each model's request queue.
	MaxQueueDepth int
	// DrainTimeout bounds how long Unload and Reload wait for in-flight
	// requests.
	DrainTimeout time.Duration
	Publisher    EventPublisher
	Metrics      *Metrics
	Logger       *zerolog.Logger
}

// New constructs a Manager from Config.
func New(cfg Config) *Manager {
	m := &Manager{
		repository:    cfg.ModelRepository,
		cmdline:       cfg.CmdlineConfig,
		hostPolicies:  cfg.HostPolicies,
		topology:      cfg.Topology,
		localizer:     cfg.Localizer,
		cpuCounts:     cfg.CPUInstanceCounts,
		nice:          cfg.Nice,
		publisher:     cfg.Publisher,
		metrics:       cfg.Metrics,
		models:        make(map[string]*entry),
		locks:         make(map[string]*sync.Mutex),
		ops:           make(map[string]*types.OperationStatus),
		log:           zerolog.Nop(),
		startTime:     time.Now(),
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	}
	if m.cmdline == nil {
		m.cmdline = config.CmdlineConfigMap{}
	}
	// Apply defaults if unset
	if cfg.MaxQueueDepth <= 0 {
		m.maxQueueDepth = defaultMaxQueueDepth
	} else {
		m.maxQueueDepth = cfg.MaxQueueDepth
	}
	if cfg.DrainTimeout <= 0 {
		m.drainTimeout = defaultDrainTimeout
	} else {
		m.drainTimeout = cfg.DrainTimeout
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.metrics == nil {
		m.metrics = NewMetrics(nil)
	}
	reglog := m.log.With().Str("component", "backends").Logger()
	m.registry = backend.NewRegistry(backend.RegistryOptions{Opener: cfg.Opener, Logger: &reglog})
	return m
}
