package manager

import (
	"context"
	"time"

	"modelcore/internal/model"
)

// Reload modes reported on reload events.
const (
	reloadInstanceGroup = "instance_group"
	reloadFull          = "full"
)

// Reload re-reads the configuration of name and applies it. When only the
// instance groups changed and the served version is the same, the running
// model moves to the new groups in place, reusing matching instances.
// Otherwise a new model is created and swapped in, and the previous one is
// drained and closed. A model that is not loaded is loaded. On failure the
// previous model keeps serving.
func (m *Manager) Reload(ctx context.Context, name string) error {
	if name == "" {
		return errNameRequired()
	}
	if m.isClosed() {
		return errClosed()
	}
	unlock := m.lockModel(name)
	defer unlock()
	e, ok := m.lookup(name)
	if !ok || e.model == nil {
		return m.loadLocked(ctx, name)
	}

	start := time.Now()
	m.publish(Event{Name: EventReloadStart, Model: name})
	mode, err := m.reload(ctx, name, e.model)
	if err != nil {
		m.recordError(name, err)
		m.metrics.observeLoad(opReload, err)
		m.log.Error().Err(err).Str("model", name).Str("mode", mode).Msg("model reload failed")
		m.publish(Event{Name: EventReloadFailed, Model: name, Fields: map[string]any{"mode": mode, "error": err.Error()}})
		return err
	}
	m.mu.Lock()
	if cur := m.models[name]; cur != nil {
		cur.err = ""
	}
	m.mu.Unlock()
	m.reloadsTotal.Add(1)
	m.metrics.observeLoad(opReload, nil)
	m.refreshMetrics()
	m.publish(Event{Name: EventReloadDone, Model: name, Fields: map[string]any{
		"mode":        mode,
		"duration_ms": time.Since(start).Milliseconds(),
	}})
	return nil
}

func (m *Manager) reload(ctx context.Context, name string, cur *model.Model) (string, error) {
	rm, cfg, err := m.readConfig(name)
	if err != nil {
		return reloadFull, err
	}
	if rm.Latest == cur.Version() && cur.IsInstanceGroupOnlyChange(cfg) {
		return reloadInstanceGroup, cur.UpdateInstanceGroup(ctx, cfg)
	}

	next, err := m.createModel(ctx, rm, cfg)
	if err != nil {
		return reloadFull, err
	}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		_ = next.Close()
		return reloadFull, errClosed()
	}
	m.models[name] = &entry{state: StateReady, model: next, repo: rm, loadedAt: time.Now()}
	m.mu.Unlock()

	if !m.drain(name, cur) {
		m.log.Warn().Str("model", name).Msg("previous model did not drain in time")
	}
	if err := cur.Close(); err != nil {
		m.log.Warn().Err(err).Str("model", name).Msg("closing previous model")
	}
	return reloadFull, nil
}
