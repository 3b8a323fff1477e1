package model

import (
	"context"

	"github.com/rs/zerolog"

	"modelcore/internal/backend"
	"modelcore/internal/config"
	"modelcore/internal/platform"
	"modelcore/internal/repo"
	"modelcore/internal/status"
	"modelcore/pkg/backendapi"
	"modelcore/pkg/modelconfig"
)

// DefaultNice is the nice value of instance threads.
const DefaultNice = 5

// Options are the collaborators shared by every model of a server.
type Options struct {
	Registry         *backend.Registry
	Localizer        repo.Localizer
	Topology         platform.Topology
	SchedulerFactory SchedulerFactory
	// CPUInstanceCounts overrides the default instance count of CPU
	// groups per backend. Nil uses config.DefaultCPUInstanceCounts.
	CPUInstanceCounts map[string]int
	// Nice is the nice value of instance threads; nil means DefaultNice.
	Nice   *int
	Logger *zerolog.Logger
}

// CreateParams describe one model to create.
type CreateParams struct {
	ModelPath        string
	Version          int64
	Config           modelconfig.ModelConfig
	IsConfigProvided bool
	CmdlineConfig    config.CmdlineConfigMap
	HostPolicies     config.HostPolicyMap
}

// Create binds p.Config to its backend and brings the model into service:
// it resolves and loads the backend library, normalizes and validates the
// instance groups, initializes the model, creates its instances, installs
// the scheduler and commits the instance set. Nothing stays loaded when it
// fails.
func Create(ctx context.Context, opts Options, p CreateParams) (_ *Model, err error) {
	cfg := p.Config.Clone()
	if cfg.Backend == "" {
		return nil, status.Newf(status.InvalidArgument, "must specify 'backend' for '%s'", cfg.Name)
	}
	if opts.Registry == nil {
		return nil, status.New(status.Internal, "model creation requires a backend registry")
	}
	localizer := opts.Localizer
	if localizer == nil {
		localizer = repo.LocalLocalizer{}
	}
	topo := opts.Topology
	if topo == nil {
		topo = platform.CPUOnly
	}
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}
	log = log.With().Str("model", cfg.Name).Int64("version", p.Version).Logger()

	localized, err := localizer.Localize(p.ModelPath)
	if err != nil {
		return nil, err
	}
	var cleanup []func()
	defer func() {
		if err != nil {
			for i := len(cleanup) - 1; i >= 0; i-- {
				cleanup[i]()
			}
		}
	}()
	cleanup = append(cleanup, func() { _ = localized.Close() })

	backendDir := config.GlobalBackendsDirectory(p.CmdlineConfig)
	autoComplete, err := config.AutoCompleteConfig(p.CmdlineConfig)
	if err != nil {
		return nil, status.Newf(status.InvalidArgument, "%v", err)
	}
	minCC, err := config.MinComputeCapability(p.CmdlineConfig)
	if err != nil {
		return nil, status.Newf(status.InvalidArgument, "%v", err)
	}
	specialized, err := config.SpecializeBackendName(p.CmdlineConfig, cfg.Backend)
	if err != nil {
		return nil, status.Newf(status.InvalidArgument, "%v", err)
	}

	paths := SearchPaths(localized.Path(), p.Version, backendDir, specialized)
	libDir, libPath, lib, err := ResolveBackendLibrary(cfg.Name, cfg.Backend, specialized, cfg.Runtime, paths)
	if err != nil {
		return nil, err
	}
	cfg.Runtime = lib

	settings := config.SetBackendConfigDefaults(config.ResolveBackendConfigs(p.CmdlineConfig, cfg.Backend))
	be, err := opts.Registry.CreateBackend(cfg.Backend, libDir, libPath, settings)
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, func() { _ = opts.Registry.Release(be) })

	supported, err := topo.SupportedDevices(minCC)
	if err != nil {
		return nil, status.Newf(status.Internal, "failed to query devices: %v", err)
	}
	cpuCounts := opts.CPUInstanceCounts
	if cpuCounts == nil {
		cpuCounts = config.DefaultCPUInstanceCounts()
	}
	modelconfig.NormalizeInstanceGroup(&cfg, be.Attributes().PreferredInstanceGroups, supported, cpuCounts)
	if err := modelconfig.ValidateInstanceGroup(cfg, supported, minCC); err != nil {
		return nil, err
	}

	nice := DefaultNice
	if opts.Nice != nil {
		nice = *opts.Nice
	}
	m := &Model{
		version:        p.Version,
		localized:      localized,
		backend:        be,
		registry:       opts.Registry,
		cmdline:        p.CmdlineConfig,
		hostPolicies:   p.HostPolicies,
		cpuCounts:      cpuCounts,
		supported:      supported,
		minCC:          minCC,
		autoComplete:   autoComplete,
		nice:           nice,
		factory:        opts.SchedulerFactory,
		log:            log,
		cfg:            cfg,
		deviceBlocking: be.Attributes().ExecutionPolicy == backendapi.ExecutionPolicyDeviceBlocking,
	}

	if err := be.ModelInitialize(m); err != nil {
		return nil, status.Prefix(err, "failed to initialize model '"+cfg.Name+"': ")
	}
	cleanup = append(cleanup, func() { _ = be.ModelFinalize(m) })

	if m.configSet {
		// The backend completed the configuration; its groups need the
		// same treatment as the ones read from disk.
		m.cfgMu.Lock()
		modelconfig.NormalizeInstanceGroup(&m.cfg, be.Attributes().PreferredInstanceGroups, supported, cpuCounts)
		if m.cfg.Runtime == "" {
			m.cfg.Runtime = lib
		}
		err = modelconfig.ValidateInstanceGroup(m.cfg, supported, minCC)
		m.cfgMu.Unlock()
		if err != nil {
			return nil, err
		}
	}
	if err := m.Init(p.IsConfigProvided); err != nil {
		return nil, err
	}

	if err := m.checkGPULoadLimits(m.Config()); err != nil {
		return nil, err
	}
	added, _, err := m.PrepareInstances(ctx, m.Config())
	if err != nil {
		return nil, err
	}
	cleanup = append(cleanup, func() {
		m.mu.Lock()
		staged := m.bg
		m.bg = nil
		m.mu.Unlock()
		if staged != nil {
			for _, inst := range staged.All() {
				_ = inst.Stop()
			}
		}
	})
	if err := m.SetConfiguredScheduler(added); err != nil {
		return nil, err
	}
	if err := m.CommitInstances(); err != nil {
		return nil, err
	}

	set := m.Instances()
	log.Info().Str("backend", be.Name()).Str("library", libPath).
		Int("instances", len(set.Instances)).Int("passive", len(set.Passive)).
		Bool("device_blocking", m.deviceBlocking).Msg("model loaded")
	return m, nil
}
