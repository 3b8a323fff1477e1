package platform

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestStaticTopologyFiltersByCapability(t *testing.T) {
	topo, err := NewStaticTopology(Device{ID: 2, ComputeCapability: 8.0}, Device{ID: 0, ComputeCapability: 6.0}, Device{ID: 1, ComputeCapability: 7.5})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	cases := []struct {
		min  float64
		want []int
	}{
		{0, []int{0, 1, 2}},
		{7.0, []int{1, 2}},
		{9.0, nil},
	}
	for _, c := range cases {
		got, err := topo.SupportedDevices(c.min)
		if err != nil {
			t.Fatalf("min %v: %v", c.min, err)
		}
		if diff := cmp.Diff(c.want, got); diff != "" {
			t.Fatalf("min %v (-want +got):\n%s", c.min, diff)
		}
	}
}

func TestStaticTopologyRejectsBadDevices(t *testing.T) {
	if _, err := NewStaticTopology(Device{ID: 0}, Device{ID: 0}); err == nil {
		t.Fatalf("expected duplicate error")
	}
	if _, err := NewStaticTopology(Device{ID: -1}); err == nil {
		t.Fatalf("expected negative id error")
	}
	ids, _ := CPUOnly.SupportedDevices(0)
	if len(ids) != 0 {
		t.Fatalf("cpu only topology has devices: %v", ids)
	}
}
