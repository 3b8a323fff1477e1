// Package platform answers which compute devices the server may place
// instances on.
package platform

import (
	"fmt"
	"sort"
)

// Device is one accelerator and its compute capability.
type Device struct {
	ID                int
	ComputeCapability float64
}

// Topology reports the devices usable at a given compute capability floor.
type Topology interface {
	SupportedDevices(minComputeCapability float64) ([]int, error)
}

// StaticTopology is a fixed device list, usually taken from configuration.
type StaticTopology struct {
	devices []Device
}

// NewStaticTopology returns a topology over devs. Duplicate ids are
// rejected.
func NewStaticTopology(devs ...Device) (*StaticTopology, error) {
	seen := map[int]bool{}
	for _, d := range devs {
		if d.ID < 0 {
			return nil, fmt.Errorf("device id %d must not be negative", d.ID)
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("device id %d listed twice", d.ID)
		}
		seen[d.ID] = true
	}
	return &StaticTopology{devices: append([]Device(nil), devs...)}, nil
}

// CPUOnly is a topology with no accelerators.
var CPUOnly Topology = &StaticTopology{}

// SupportedDevices returns the sorted ids of devices whose compute
// capability is at least minComputeCapability.
func (s *StaticTopology) SupportedDevices(minComputeCapability float64) ([]int, error) {
	var ids []int
	for _, d := range s.devices {
		if d.ComputeCapability >= minComputeCapability {
			ids = append(ids, d.ID)
		}
	}
	sort.Ints(ids)
	return ids, nil
}

// Devices returns every configured device.
func (s *StaticTopology) Devices() []Device {
	return append([]Device(nil), s.devices...)
}
