package modelconfig

import (
	"encoding/json"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const normalizedGroupName = "[Normalized]"

var (
	kindComparer = cmp.Comparer(func(a, b Kind) bool { return a.Resolved() == b.Resolved() })

	nonInstanceGroupOpts = cmp.Options{
		cmpopts.IgnoreFields(ModelConfig{}, "InstanceGroup"),
		cmpopts.EquateEmpty(),
		kindComparer,
	}
	instanceConfigOpts = cmp.Options{
		cmpopts.IgnoreFields(InstanceGroup{}, "Name", "Count"),
		cmpopts.EquateEmpty(),
		kindComparer,
	}
)

// EquivalentInNonInstanceGroupConfig reports whether two configurations
// differ at most in their instance groups.
func EquivalentInNonInstanceGroupConfig(a, b ModelConfig) bool {
	return cmp.Equal(a, b, nonInstanceGroupOpts)
}

// EquivalentInInstanceConfig reports whether two instance groups are equal
// ignoring their name and count.
func EquivalentInInstanceConfig(a, b InstanceGroup) bool {
	return cmp.Equal(a, b, instanceConfigOpts)
}

// NonInstanceGroupDiff returns a human-readable diff of everything but the
// instance groups, empty when equivalent.
func NonInstanceGroupDiff(a, b ModelConfig) string {
	return cmp.Diff(a, b, nonInstanceGroupOpts)
}

// InstanceConfigSignature serializes g with its name and count replaced by
// fixed values, so groups that are equivalent serialize identically.
func InstanceConfigSignature(g InstanceGroup) string {
	n := g.Clone()
	n.Name = normalizedGroupName
	n.Count = 1
	n.Kind = n.Kind.Resolved()
	b, _ := json.Marshal(n)
	return string(b)
}
