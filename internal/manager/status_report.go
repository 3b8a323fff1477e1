package manager

import (
	"sort"
	"time"

	"modelcore/internal/registry"
	"modelcore/internal/status"
	"modelcore/pkg/types"
)

// Status builds a summary of the whole server for /status.
func (m *Manager) Status() types.StatusResponse {
	m.mu.RLock()
	resp := types.StatusResponse{
		UptimeSeconds:  int64(time.Since(m.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
		LastError:      m.lastErr,
	}
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	resp.LoadsTotal = m.loadsTotal.Load()
	resp.ReloadsTotal = m.reloadsTotal.Load()
	resp.UnloadsTotal = m.unloadsTotal.Load()
	resp.Models = make([]types.ModelStatus, 0, len(snap))
	for name, e := range snap {
		ms := modelStatus(name, e)
		if ms.State == string(StateReady) {
			resp.LoadedCount++
		}
		resp.Models = append(resp.Models, ms)
	}
	sortModels(resp.Models)
	return resp
}

// Models lists every model of the repository merged with the models the
// manager knows about, sorted by name.
func (m *Manager) Models() ([]types.ModelStatus, error) {
	repoModels, err := registry.LoadDir(m.repository)
	if err != nil {
		return nil, status.Newf(status.Internal, "failed to read model repository '%s': %v", m.repository, err)
	}
	m.mu.RLock()
	snap := m.snapshotLocked()
	m.mu.RUnlock()

	out := make([]types.ModelStatus, 0, len(repoModels)+len(snap))
	for _, rm := range repoModels {
		if e, ok := snap[rm.Name]; ok {
			out = append(out, modelStatus(rm.Name, e))
			delete(snap, rm.Name)
			continue
		}
		out = append(out, types.ModelStatus{Name: rm.Name, State: string(StateUnavailable), Version: rm.Latest})
	}
	// Models removed from disk while loaded stay listed.
	for name, e := range snap {
		out = append(out, modelStatus(name, e))
	}
	sortModels(out)
	return out, nil
}

// ModelStatus describes model name, loaded or not.
func (m *Manager) ModelStatus(name string) (types.ModelStatus, error) {
	if name == "" {
		return types.ModelStatus{}, errNameRequired()
	}
	if e, ok := m.lookup(name); ok {
		return modelStatus(name, e), nil
	}
	rm, ok, err := registry.Find(m.repository, name)
	if err != nil {
		return types.ModelStatus{}, status.Newf(status.Internal,
			"failed to read model repository '%s': %v", m.repository, err)
	}
	if !ok {
		return types.ModelStatus{}, errNotInRepository(name, m.repository)
	}
	return types.ModelStatus{Name: name, State: string(StateUnavailable), Version: rm.Latest}, nil
}

// Backends describes the loaded backend libraries.
func (m *Manager) Backends() []types.BackendStatus {
	infos := m.registry.List()
	out := make([]types.BackendStatus, 0, len(infos))
	for _, b := range infos {
		out = append(out, types.BackendStatus{
			Name:                    b.Name,
			Directory:               b.Directory,
			LibraryPath:             b.LibraryPath,
			Config:                  b.Config,
			State:                   b.State,
			References:              b.References,
			ExecutionPolicy:         b.ExecutionPolicy,
			PreferredInstanceGroups: b.PreferredGroups,
			ParallelInstanceLoading: b.ParallelInstanceLoading,
		})
	}
	return out
}

func (m *Manager) snapshotLocked() map[string]entry {
	snap := make(map[string]entry, len(m.models))
	for name, e := range m.models {
		snap[name] = *e
	}
	return snap
}

func modelStatus(name string, e entry) types.ModelStatus {
	ms := types.ModelStatus{Name: name, State: string(e.state), Error: e.err}
	if e.model == nil {
		return ms
	}
	cfg := e.model.Config()
	ms.Version = e.model.Version()
	ms.Backend = cfg.Backend
	ms.Library = e.model.BackendLibrary().LibraryPath()
	ms.Inflight = e.model.InflightInferenceCount()
	ms.LoadedAt = e.loadedAt.Unix()
	if set := e.model.Instances(); set != nil {
		ms.Generation = set.Generation
		for _, inst := range set.All() {
			ms.Instances = append(ms.Instances, types.InstanceStatus{
				Name:       inst.Name(),
				Group:      inst.Group(),
				Kind:       string(inst.Kind()),
				DeviceID:   inst.DeviceID(),
				HostPolicy: inst.HostPolicy(),
				Passive:    inst.Passive(),
				State:      inst.LifecycleState().String(),
			})
		}
	}
	return ms
}

func sortModels(ms []types.ModelStatus) {
	sort.Slice(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
}
