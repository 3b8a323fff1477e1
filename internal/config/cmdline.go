package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Setting keys understood by the core.
const (
	KeyBackendDirectory     = "backend-directory"
	KeyMinComputeCapability = "min-compute-capability"
	KeyAutoCompleteConfig   = "auto-complete-config"
	KeyDefaultMaxBatchSize  = "default-max-batch-size"
	KeyVersion              = "version"

	DefaultBackendDirectory  = "/opt/modelcore/backends"
	DefaultTensorFlowVersion = 2
)

// Setting is one key/value pair passed to a backend.
type Setting struct {
	Key   string `json:"key" yaml:"key" toml:"key"`
	Value string `json:"value" yaml:"value" toml:"value"`
}

// CmdlineConfig is an ordered list of settings for one backend.
type CmdlineConfig []Setting

// CmdlineConfigMap holds settings per backend name. The empty name holds
// global settings applied to every backend before its own.
type CmdlineConfigMap map[string]CmdlineConfig

// HostPolicyMap holds settings per host policy name.
type HostPolicyMap map[string]map[string]string

var backendConfigDefaults = CmdlineConfig{{Key: KeyDefaultMaxBatchSize, Value: "4"}}

// Lookup returns the last value set for key.
func (c CmdlineConfig) Lookup(key string) (string, bool) {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Key == key {
			return c[i].Value, true
		}
	}
	return "", false
}

// Add appends a setting for backend.
func (m CmdlineConfigMap) Add(backend, key, value string) {
	m[backend] = append(m[backend], Setting{Key: key, Value: value})
}

// Global returns a global setting.
func (m CmdlineConfigMap) Global(key string) (string, bool) {
	return m[""].Lookup(key)
}

// ParseBool accepts the spellings backends use on the command line.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "on", "1", "yes":
		return true, nil
	case "false", "off", "0", "no":
		return false, nil
	}
	return false, fmt.Errorf("failed to convert '%s' to boolean value", s)
}

// ParseFloat parses a numeric setting.
func ParseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to convert '%s' to floating-point value", s)
	}
	return v, nil
}

// GlobalBackendsDirectory returns the directory holding backend libraries.
func GlobalBackendsDirectory(m CmdlineConfigMap) string {
	if v, ok := m.Global(KeyBackendDirectory); ok && v != "" {
		return v
	}
	return DefaultBackendDirectory
}

// MinComputeCapability returns the compute capability floor for devices.
func MinComputeCapability(m CmdlineConfigMap) (float64, error) {
	v, ok := m.Global(KeyMinComputeCapability)
	if !ok {
		return 0, nil
	}
	return ParseFloat(v)
}

// AutoCompleteConfig reports whether model configurations should be
// completed by their backend.
func AutoCompleteConfig(m CmdlineConfigMap) (bool, error) {
	v, ok := m.Global(KeyAutoCompleteConfig)
	if !ok {
		return false, nil
	}
	return ParseBool(v)
}

// SpecializeBackendName maps a generic backend name to the name of the
// library that serves it, e.g. "tensorflow" to "tensorflow2".
func SpecializeBackendName(m CmdlineConfigMap, backend string) (string, error) {
	if backend != "tensorflow" {
		return backend, nil
	}
	version := DefaultTensorFlowVersion
	if v, ok := m[backend].Lookup(KeyVersion); ok {
		n, err := strconv.Atoi(v)
		if err != nil || (n != 1 && n != 2) {
			return "", fmt.Errorf("unexpected tensorflow version '%s', expected 1 or 2", v)
		}
		version = n
	}
	return backend + strconv.Itoa(version), nil
}

// ResolveBackendConfigs merges the global settings with the settings of
// backend. Backend settings win on collision; the result is sorted by key.
func ResolveBackendConfigs(m CmdlineConfigMap, backend string) CmdlineConfig {
	merged := map[string]string{}
	for _, s := range m[""] {
		merged[s.Key] = s.Value
	}
	if backend != "" {
		for _, s := range m[backend] {
			merged[s.Key] = s.Value
		}
	}
	out := make(CmdlineConfig, 0, len(merged))
	for k, v := range merged {
		out = append(out, Setting{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SetBackendConfigDefaults appends every default setting c does not
// already define.
func SetBackendConfigDefaults(c CmdlineConfig) CmdlineConfig {
	for _, d := range backendConfigDefaults {
		if _, ok := c.Lookup(d.Key); !ok {
			c = append(c, d)
		}
	}
	return c
}

// ParseSetting splits "backend,key=value". The backend part is optional;
// "key=value" is a global setting.
func ParseSetting(s string) (backend, key, value string, err error) {
	head, value, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", "", fmt.Errorf("setting %q must have the form [backend,]key=value", s)
	}
	if b, k, found := strings.Cut(head, ","); found {
		backend, key = b, k
	} else {
		key = head
	}
	if key == "" {
		return "", "", "", fmt.Errorf("setting %q has an empty key", s)
	}
	return backend, key, value, nil
}

// DefaultCPUInstanceCounts returns the default instance count for CPU
// groups of backends that run best with several instances.
func DefaultCPUInstanceCounts() map[string]int {
	return map[string]int{"tensorflow": 2, "onnxruntime": 2}
}

// ModelLoadGPUFraction returns the fraction of device memory a model load
// may use on deviceID. ok is false when no limit is configured.
func ModelLoadGPUFraction(m CmdlineConfigMap, deviceID int) (fraction float64, ok bool, err error) {
	v, found := m.Global("model-load-gpu-limit-" + strconv.Itoa(deviceID))
	if !found {
		return 0, false, nil
	}
	f, err := ParseFloat(v)
	if err != nil {
		return 0, false, err
	}
	return f, true, nil
}
