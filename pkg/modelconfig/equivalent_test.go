package modelconfig

import "testing"

func sampleGroup() InstanceGroup {
	return InstanceGroup{
		Name:             "g",
		Kind:             KindGPU,
		Count:            2,
		GPUs:             []int32{0, 1},
		SecondaryDevices: []SecondaryDevice{{Kind: "KIND_NVDLA", DeviceID: 1}},
		Profile:          []string{"p"},
		HostPolicy:       "numa0",
		RateLimiter:      &RateLimiter{Resources: []RateLimiterResource{{Name: "r", Count: 1}}, Priority: 2},
	}
}

func TestEquivalentInInstanceConfig(t *testing.T) {
	g := sampleGroup()
	if !EquivalentInInstanceConfig(g, g) {
		t.Fatalf("group should be equivalent to itself")
	}
	other := g.Clone()
	other.Name = "renamed"
	other.Count = 9
	if !EquivalentInInstanceConfig(g, other) {
		t.Fatalf("name and count should be ignored")
	}
	other.GPUs = []int32{0}
	if EquivalentInInstanceConfig(g, other) {
		t.Fatalf("device list change should not be equivalent")
	}
	other = g.Clone()
	other.RateLimiter.Priority = 3
	if EquivalentInInstanceConfig(g, other) {
		t.Fatalf("rate limiter change should not be equivalent")
	}
}

func TestInstanceConfigSignature(t *testing.T) {
	g := sampleGroup()
	other := g.Clone()
	other.Name, other.Count = "x", 5
	if InstanceConfigSignature(g) != InstanceConfigSignature(other) {
		t.Fatalf("signature should ignore name and count")
	}
	other.HostPolicy = "numa1"
	if InstanceConfigSignature(g) == InstanceConfigSignature(other) {
		t.Fatalf("signature should change with host policy")
	}
}

func TestEquivalentInNonInstanceGroupConfig(t *testing.T) {
	a := ModelConfig{
		Name:          "m",
		Backend:       "x",
		MaxBatchSize:  8,
		Input:         []ModelInput{{Name: "i", DataType: TypeFP32, Dims: []int64{3}}},
		InstanceGroup: []InstanceGroup{{Kind: KindCPU, Count: 1}},
	}
	b := a.Clone()
	b.InstanceGroup = []InstanceGroup{{Kind: KindGPU, Count: 4, GPUs: []int32{0}}}
	if !EquivalentInNonInstanceGroupConfig(a, b) {
		t.Fatalf("instance group only change should be equivalent: %s", NonInstanceGroupDiff(a, b))
	}
	b.MaxBatchSize = 16
	if EquivalentInNonInstanceGroupConfig(a, b) {
		t.Fatalf("max batch size change should not be equivalent")
	}
	if NonInstanceGroupDiff(a, b) == "" {
		t.Fatalf("expected a diff")
	}
}
