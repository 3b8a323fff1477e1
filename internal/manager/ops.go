package manager

import (
	"context"

	"github.com/google/uuid"

	"modelcore/pkg/types"
)

// Operation states.
const (
	OpPending = "pending"
	OpRunning = "running"
	OpDone    = "done"
	OpFailed  = "failed"
)

// maxOperations bounds the finished operations kept for polling.
const maxOperations = 256

// ReloadAsync starts Reload in the background and returns an operation ID.
// Callers poll Operation to observe state transitions. The reload runs on a
// detached context so it survives the caller's request.
func (m *Manager) ReloadAsync(name string) (string, error) {
	if name == "" {
		return "", errNameRequired()
	}
	if m.isClosed() {
		return "", errClosed()
	}
	id := uuid.NewString()
	m.mu.Lock()
	m.ops[id] = &types.OperationStatus{ID: id, Model: name, State: OpPending}
	m.opOrder = append(m.opOrder, id)
	m.pruneOpsLocked()
	m.mu.Unlock()

	go func() {
		m.setOp(id, OpRunning, nil)
		err := m.Reload(context.Background(), name)
		if err != nil {
			m.setOp(id, OpFailed, err)
			return
		}
		m.setOp(id, OpDone, nil)
	}()
	return id, nil
}

// Operation returns the state of an operation started by ReloadAsync.
func (m *Manager) Operation(id string) (types.OperationStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	op, ok := m.ops[id]
	if !ok {
		return types.OperationStatus{}, false
	}
	return *op, true
}

func (m *Manager) setOp(id, state string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	op, ok := m.ops[id]
	if !ok {
		return
	}
	op.State = state
	if err != nil {
		op.Error = err.Error()
	}
}

// pruneOpsLocked drops the oldest finished operations beyond maxOperations.
func (m *Manager) pruneOpsLocked() {
	for len(m.opOrder) > maxOperations {
		dropped := false
		for i, id := range m.opOrder {
			if s := m.ops[id].State; s == OpDone || s == OpFailed {
				delete(m.ops, id)
				m.opOrder = append(m.opOrder[:i], m.opOrder[i+1:]...)
				dropped = true
				break
			}
		}
		if !dropped {
			return
		}
	}
}
