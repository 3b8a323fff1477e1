package manager

import "modelcore/pkg/backendapi"

// Enqueue hands req to the scheduler of model name. Requests implementing
// scheduler.Completer learn their outcome once an instance executed them.
func (m *Manager) Enqueue(name string, req backendapi.Request) error {
	if name == "" {
		return errNameRequired()
	}
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return errClosed()
	}
	e := m.models[name]
	if e == nil || e.model == nil {
		m.mu.RUnlock()
		return errNotLoaded(name)
	}
	if e.state == StateDraining {
		m.mu.RUnlock()
		return errUnloading(name)
	}
	mdl := e.model
	m.mu.RUnlock()
	return mdl.Enqueue(req)
}
