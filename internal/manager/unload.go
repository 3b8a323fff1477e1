package manager

import (
	"errors"
	"time"

	"modelcore/internal/model"
)

// Unload initiates a graceful drain of a model and removes it.
//   - Sets the model state to draining to reject new requests.
//   - Waits up to drainTimeout for queued and executing requests to finish.
//   - Closes the model, releasing its instances and backend reference.
func (m *Manager) Unload(name string) error {
	if name == "" {
		return errNameRequired()
	}
	unlock := m.lockModel(name)
	defer unlock()

	m.mu.Lock()
	e := m.models[name]
	if e == nil {
		m.mu.Unlock()
		return errNotLoaded(name)
	}
	mdl := e.model
	if mdl == nil {
		// A failed load leaves only its error behind.
		delete(m.models, name)
		m.mu.Unlock()
		return nil
	}
	e.state = StateDraining
	m.mu.Unlock()
	m.publish(Event{Name: EventUnloadStart, Model: name})

	m.drain(name, mdl)
	err := mdl.Close()

	m.mu.Lock()
	delete(m.models, name)
	m.mu.Unlock()
	m.unloadsTotal.Add(1)
	m.refreshMetrics()
	m.publish(Event{Name: EventUnloadDone, Model: name})
	return err
}

// drain waits until mdl has no queued or executing requests. It reports
// false when drainTimeout passed first.
func (m *Manager) drain(name string, mdl *model.Model) bool {
	deadline := time.Now().Add(m.drainTimeout)
	for {
		inflight := mdl.InflightInferenceCount()
		if inflight == 0 {
			return true
		}
		if time.Now().After(deadline) {
			m.publish(Event{Name: EventUnloadTimeout, Model: name, Fields: map[string]any{"inflight": inflight}})
			return false
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Close unloads every model without draining and finalizes the backends.
// Queued requests fail with Unavailable. Later calls do nothing.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	var models []*model.Model
	for name, e := range m.models {
		if e.model != nil {
			models = append(models, e.model)
		}
		delete(m.models, name)
	}
	m.mu.Unlock()

	var errs []error
	for _, mdl := range models {
		errs = append(errs, mdl.Close())
	}
	errs = append(errs, m.registry.Close())
	m.refreshMetrics()
	m.log.Info().Int("models", len(models)).Msg("model manager closed")
	return errors.Join(errs...)
}
