package modelconfig

import (
	"slices"
	"strconv"
)

// DefaultInstanceCount returns the count given to a group that names none.
// CPU groups of backends listed in cpuCounts get that count, everything
// else gets one instance.
func DefaultInstanceCount(kind Kind, backend string, cpuCounts map[string]int) int32 {
	if kind == KindCPU {
		if n, ok := cpuCounts[backend]; ok && n > 0 {
			return int32(n)
		}
	}
	return 1
}

// NormalizeInstanceGroup fills in the name, kind, count and device ids of
// every instance group in cfg. When cfg has no groups a single group named
// after the model is synthesized from the first usable preferred group.
// supported is the sorted set of usable device ids. Ensemble
// configurations are left untouched.
func NormalizeInstanceGroup(cfg *ModelConfig, preferred []InstanceGroup, supported []int, cpuCounts map[string]int) {
	if cfg.EnsembleScheduling != nil {
		return
	}
	if len(cfg.InstanceGroup) == 0 {
		cfg.InstanceGroup = []InstanceGroup{synthesizeGroup(cfg.Name, preferred, supported)}
	}
	for i := range cfg.InstanceGroup {
		g := &cfg.InstanceGroup[i]
		if g.Name == "" {
			g.Name = cfg.Name + "_" + strconv.Itoa(i)
		}
		if g.Kind.Resolved() == KindAuto {
			g.Kind = resolveAutoKind(g.GPUs, supported)
		}
		for _, pg := range preferred {
			if pg.Kind.Resolved() != g.Kind {
				continue
			}
			if g.Kind == KindGPU && len(g.GPUs) == 0 && len(pg.GPUs) > 0 {
				g.GPUs = intersectSupported(pg.GPUs, supported)
				if len(g.GPUs) == 0 {
					continue
				}
			}
			if g.Count < 1 && pg.Count > 0 {
				g.Count = pg.Count
			}
		}
		if g.Count < 1 {
			g.Count = DefaultInstanceCount(g.Kind, cfg.Backend, cpuCounts)
		}
		if g.Kind == KindGPU && len(g.GPUs) == 0 {
			for _, id := range supported {
				g.GPUs = append(g.GPUs, int32(id))
			}
		}
	}
}

func synthesizeGroup(name string, preferred []InstanceGroup, supported []int) InstanceGroup {
	g := InstanceGroup{Name: name}
	for _, pg := range preferred {
		switch pg.Kind.Resolved() {
		case KindGPU:
			if len(supported) == 0 {
				continue
			}
			g.GPUs = intersectSupported(pg.GPUs, supported)
		case KindAuto:
			g.GPUs = append([]int32(nil), pg.GPUs...)
		}
		g.Kind = pg.Kind
		g.Count = pg.Count
		break
	}
	return g
}

// resolveAutoKind picks CPU when no devices are usable or when any listed
// id is not usable, GPU otherwise.
func resolveAutoKind(gpus []int32, supported []int) Kind {
	if len(supported) == 0 {
		return KindCPU
	}
	for _, id := range gpus {
		if !slices.Contains(supported, int(id)) {
			return KindCPU
		}
	}
	return KindGPU
}

func intersectSupported(ids []int32, supported []int) []int32 {
	var out []int32
	for _, id := range ids {
		if slices.Contains(supported, int(id)) {
			out = append(out, id)
		}
	}
	return out
}
