package manager

import (
	"context"
	"time"

	"modelcore/internal/model"
	"modelcore/internal/registry"
	"modelcore/internal/scheduler"
	"modelcore/internal/status"
	"modelcore/pkg/modelconfig"
	"modelcore/pkg/types"
)

// Load brings the latest version of model name into service. Loading a
// model that is already ready does nothing.
func (m *Manager) Load(ctx context.Context, name string) error {
	if name == "" {
		return errNameRequired()
	}
	if m.isClosed() {
		return errClosed()
	}
	unlock := m.lockModel(name)
	defer unlock()
	if e, ok := m.lookup(name); ok && e.state == StateReady {
		return nil
	}
	return m.loadLocked(ctx, name)
}

// loadLocked loads name. The caller holds the model's lifecycle lock.
func (m *Manager) loadLocked(ctx context.Context, name string) error {
	start := time.Now()
	m.publish(Event{Name: EventLoadStart, Model: name})
	m.setEntry(name, &entry{state: StateLoading})

	rm, cfg, err := m.readConfig(name)
	var mdl *model.Model
	if err == nil {
		mdl, err = m.createModel(ctx, rm, cfg)
	}
	if err != nil {
		if rm.Path == "" {
			// Not in the repository: nothing to report per model.
			m.deleteEntry(name)
		} else {
			m.setEntry(name, &entry{state: StateError, repo: rm, err: err.Error()})
		}
		m.recordError(name, err)
		m.metrics.observeLoad(opLoad, err)
		m.log.Error().Err(err).Str("model", name).Msg("model load failed")
		m.publish(Event{Name: EventLoadFailed, Model: name, Fields: map[string]any{"error": err.Error()}})
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = mdl.Close()
		return errClosed()
	}
	m.models[name] = &entry{state: StateReady, model: mdl, repo: rm, loadedAt: time.Now()}
	m.mu.Unlock()

	m.loadsTotal.Add(1)
	m.metrics.observeLoad(opLoad, nil)
	m.refreshMetrics()
	m.publish(Event{Name: EventLoadDone, Model: name, Fields: map[string]any{
		"version":     mdl.Version(),
		"duration_ms": time.Since(start).Milliseconds(),
	}})
	return nil
}

// readConfig locates name in the repository and reads its configuration
// file. A configuration without a name takes the directory's name.
func (m *Manager) readConfig(name string) (types.RepositoryModel, modelconfig.ModelConfig, error) {
	rm, ok, err := registry.Find(m.repository, name)
	if err != nil {
		return rm, modelconfig.ModelConfig{}, status.Newf(status.Internal,
			"failed to read model repository '%s': %v", m.repository, err)
	}
	if !ok {
		return rm, modelconfig.ModelConfig{}, errNotInRepository(name, m.repository)
	}
	if rm.ConfigFile == "" {
		return rm, modelconfig.ModelConfig{}, errNoConfigFile(name)
	}
	cfg, err := modelconfig.LoadFile(rm.ConfigFile)
	if err != nil {
		return rm, cfg, status.Prefix(err, "model '"+name+"': ")
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	if cfg.Name != name {
		return rm, cfg, status.Newf(status.InvalidArgument,
			"configuration of model '%s' is named '%s'", name, cfg.Name)
	}
	return rm, cfg, nil
}

func (m *Manager) createModel(ctx context.Context, rm types.RepositoryModel, cfg modelconfig.ModelConfig) (*model.Model, error) {
	log := m.log.With().Str("component", "model").Logger()
	return model.Create(ctx, model.Options{
		Registry:          m.registry,
		Localizer:         m.localizer,
		Topology:          m.topology,
		SchedulerFactory:  scheduler.Factory(m.maxQueueDepth, &log),
		CPUInstanceCounts: m.cpuCounts,
		Nice:              m.nice,
		Logger:            &log,
	}, model.CreateParams{
		ModelPath:        rm.Path,
		Version:          rm.Latest,
		Config:           cfg,
		IsConfigProvided: true,
		CmdlineConfig:    m.cmdline,
		HostPolicies:     m.hostPolicies,
	})
}

func (m *Manager) setEntry(name string, e *entry) {
	m.mu.Lock()
	m.models[name] = e
	m.mu.Unlock()
}

func (m *Manager) deleteEntry(name string) {
	m.mu.Lock()
	delete(m.models, name)
	m.mu.Unlock()
}
