package model

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"modelcore/internal/config"
	"modelcore/internal/status"
	"modelcore/pkg/modelconfig"
)

// planInstances lists the instances cfg asks for, in group order.
func (m *Model) planInstances(cfg modelconfig.ModelConfig) []instanceSpec {
	var specs []instanceSpec
	for _, g := range cfg.InstanceGroup {
		devices := []int{0}
		if g.Kind == modelconfig.KindGPU {
			devices = devices[:0]
			for _, id := range g.GPUs {
				devices = append(devices, int(id))
			}
		}
		for c := 0; c < int(g.Count); c++ {
			for _, dev := range devices {
				name := g.Name + "_" + strconv.Itoa(c)
				policy := "cpu"
				if g.Kind == modelconfig.KindGPU {
					name += "_gpu" + strconv.Itoa(dev)
					policy = "gpu_" + strconv.Itoa(dev)
				}
				if g.HostPolicy != "" {
					policy = g.HostPolicy
				}
				specs = append(specs, instanceSpec{
					name:           name,
					sig:            NewSignature(g, dev),
					kind:           g.Kind,
					deviceID:       dev,
					hostPolicyName: policy,
					hostPolicy:     m.hostPolicies[policy],
					group:          g.Clone(),
				})
			}
		}
	}
	return specs
}

// checkGPULoadLimits applies the model-load-gpu-limit-<id> settings to
// the GPUs cfg places instances on. A limit must be a fraction in [0, 1];
// a limit of 0 closes the device to model loads.
func (m *Model) checkGPULoadLimits(cfg modelconfig.ModelConfig) error {
	seen := map[int32]bool{}
	for _, g := range cfg.InstanceGroup {
		if g.Kind != modelconfig.KindGPU {
			continue
		}
		for _, id := range g.GPUs {
			if seen[id] {
				continue
			}
			seen[id] = true
			limit, ok, err := config.ModelLoadGPUFraction(m.cmdline, int(id))
			if err != nil || (ok && (limit < 0 || limit > 1)) {
				return status.Newf(status.InvalidArgument,
					"invalid model load limit for GPU %d, expected a fraction between 0 and 1", id)
			}
			if !ok {
				continue
			}
			if limit == 0 {
				return status.Newf(status.Unavailable,
					"model '%s' cannot load on GPU %d, its model load limit is 0", cfg.Name, id)
			}
			m.log.Debug().Int32("device", id).Float64("limit", limit).Msg("gpu model load limit")
		}
	}
	return nil
}

// PrepareInstances stages the instance set described by cfg without
// touching the set in service. Instances whose signature matches one in
// service are reused; the rest are created, in parallel when the backend
// allows it. It returns the newly created instances and the instances in
// service that the staged set no longer uses.
func (m *Model) PrepareInstances(ctx context.Context, cfg modelconfig.ModelConfig) (added, removed []*Instance, err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, nil, status.Newf(status.Unavailable, "model '%s' is closed", cfg.Name)
	}
	// Close waits for staging to finish before it finalizes the model.
	m.staging.Add(1)
	defer m.staging.Done()
	cur := m.fg.Load()
	m.mu.Unlock()

	existing := map[uint64][]*Instance{}
	if cur != nil {
		for _, inst := range cur.All() {
			h := inst.Signature().Hash()
			existing[h] = append(existing[h], inst)
		}
	}

	specs := m.planInstances(cfg)
	slots := make([]*Instance, len(specs))
	var create []int
	for i, spec := range specs {
		if inst := takeMatching(existing, spec.sig); inst != nil {
			slots[i] = inst
			continue
		}
		create = append(create, i)
	}

	if err := m.createInstances(ctx, specs, create, slots); err != nil {
		return nil, nil, err
	}

	staged := &InstanceSet{}
	for i, inst := range slots {
		if specs[i].group.Passive {
			staged.Passive = append(staged.Passive, inst)
		} else {
			staged.Instances = append(staged.Instances, inst)
		}
	}
	for _, i := range create {
		added = append(added, slots[i])
	}
	for _, bucket := range existing {
		removed = append(removed, bucket...)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		for _, inst := range added {
			_ = inst.Stop()
		}
		return nil, nil, status.Newf(status.Unavailable, "model '%s' was closed while its instances were created", cfg.Name)
	}
	prev := m.bg
	m.bg = staged
	m.mu.Unlock()
	if prev != nil {
		stopUnshared(prev, staged, cur)
	}
	m.log.Debug().Int("created", len(added)).Int("reused", len(specs)-len(create)).
		Int("retired", len(removed)).Msg("instances prepared")
	return added, removed, nil
}

// takeMatching removes and returns an instance equal to sig, if any.
func takeMatching(existing map[uint64][]*Instance, sig Signature) *Instance {
	bucket := existing[sig.Hash()]
	for j, inst := range bucket {
		if inst.Signature().Equal(sig) {
			existing[sig.Hash()] = append(bucket[:j], bucket[j+1:]...)
			return inst
		}
	}
	return nil
}

// createInstances fills slots[i] for every i in idx. On failure every
// instance it created is stopped.
func (m *Model) createInstances(ctx context.Context, specs []instanceSpec, idx []int, slots []*Instance) error {
	cleanup := func() {
		for _, i := range idx {
			if slots[i] != nil {
				_ = slots[i].Stop()
				slots[i] = nil
			}
		}
	}
	if m.backend.Attributes().ParallelInstanceLoading && len(idx) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		for _, i := range idx {
			i := i
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				inst, err := m.newInstance(specs[i])
				if err != nil {
					return err
				}
				slots[i] = inst
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			cleanup()
			return err
		}
		return nil
	}
	for _, i := range idx {
		if err := ctx.Err(); err != nil {
			cleanup()
			return status.Newf(status.Cancelled, "loading model '%s' cancelled: %v", m.Name(), err)
		}
		inst, err := m.newInstance(specs[i])
		if err != nil {
			cleanup()
			return err
		}
		slots[i] = inst
	}
	return nil
}

// CommitInstances puts the staged set in service in one swap and stops
// the instances it no longer contains. Without a staged set it does
// nothing. It fails with Unavailable once the model is closed.
func (m *Model) CommitInstances() error {
	name := m.Name()
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return status.Newf(status.Unavailable, "model '%s' is closed", name)
	}
	staged := m.bg
	if staged == nil {
		m.mu.Unlock()
		return nil
	}
	m.bg = nil
	old := m.fg.Load()
	var gen uint64
	if old != nil {
		gen = old.Generation
	}
	staged.Generation = gen + 1
	m.fg.Store(staged)
	m.mu.Unlock()

	for _, inst := range staged.Instances {
		inst.activate()
	}
	if old != nil {
		stopUnshared(old, staged, nil)
	}
	m.log.Info().Uint64("generation", staged.Generation).Int("instances", len(staged.Instances)).
		Int("passive", len(staged.Passive)).Msg("instances committed")
	return nil
}

// stopUnshared stops the instances of from that neither a nor b contains.
func stopUnshared(from, a, b *InstanceSet) {
	keep := map[*Instance]bool{}
	for _, s := range []*InstanceSet{a, b} {
		if s == nil {
			continue
		}
		for _, inst := range s.All() {
			keep[inst] = true
		}
	}
	for _, inst := range from.All() {
		if !keep[inst] {
			_ = inst.Stop()
		}
	}
}

// IsInstanceGroupOnlyChange reports whether cfg differs from the current
// configuration in its instance groups at most.
func (m *Model) IsInstanceGroupOnlyChange(cfg modelconfig.ModelConfig) bool {
	cur := m.Config()
	return modelconfig.EquivalentInNonInstanceGroupConfig(cur, m.completeConfig(cfg))
}

// completeConfig fills in what Create derived for the current
// configuration so a fresh configuration file compares equal to it.
func (m *Model) completeConfig(cfg modelconfig.ModelConfig) modelconfig.ModelConfig {
	cfg = cfg.Clone()
	if cfg.Runtime == "" {
		cfg.Runtime = m.Config().Runtime
	}
	return cfg
}

// UpdateInstanceGroup moves the model to the instance groups of cfg.
// Anything else in cfg must match the current configuration.
func (m *Model) UpdateInstanceGroup(ctx context.Context, cfg modelconfig.ModelConfig) error {
	cur := m.Config()
	cfg = m.completeConfig(cfg)
	if !modelconfig.EquivalentInNonInstanceGroupConfig(cur, cfg) {
		return status.Newf(status.InvalidArgument,
			"model '%s' configuration changed outside its instance groups, a full reload is required:\n%s",
			cur.Name, modelconfig.NonInstanceGroupDiff(cur, cfg))
	}
	modelconfig.NormalizeInstanceGroup(&cfg, m.backend.Attributes().PreferredInstanceGroups, m.supported, m.cpuCounts)
	if err := modelconfig.ValidateInstanceGroup(cfg, m.supported, m.minCC); err != nil {
		return err
	}
	if err := m.checkGPULoadLimits(cfg); err != nil {
		return err
	}
	if _, _, err := m.PrepareInstances(ctx, cfg); err != nil {
		return err
	}
	if err := m.CommitInstances(); err != nil {
		return err
	}
	m.cfgMu.Lock()
	m.cfg.InstanceGroup = cfg.Clone().InstanceGroup
	m.cfgMu.Unlock()
	return nil
}
