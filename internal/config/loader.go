package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Device describes one compute device visible to the server.
type Device struct {
	ID                int     `json:"id" yaml:"id" toml:"id"`
	ComputeCapability float64 `json:"compute_capability" yaml:"compute_capability" toml:"compute_capability"`
}

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and will be replaced by defaults in main.
type Config struct {
	Addr              string         `json:"addr" yaml:"addr" toml:"addr"`
	ModelRepository   string         `json:"model_repository" yaml:"model_repository" toml:"model_repository"`
	BackendDirectory  string         `json:"backend_directory" yaml:"backend_directory" toml:"backend_directory"`
	BackendConfig     []string       `json:"backend_config" yaml:"backend_config" toml:"backend_config"`
	HostPolicy        []string       `json:"host_policy" yaml:"host_policy" toml:"host_policy"`
	Devices           []Device       `json:"devices" yaml:"devices" toml:"devices"`
	CPUInstanceCounts map[string]int `json:"cpu_instance_counts" yaml:"cpu_instance_counts" toml:"cpu_instance_counts"`
	Nice              *int           `json:"nice" yaml:"nice" toml:"nice"`
	LoadModels        []string       `json:"load_models" yaml:"load_models" toml:"load_models"`
	LogLevel          string         `json:"log_level" yaml:"log_level" toml:"log_level"`

	CORSEnabled        bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`

	MaxQueueDepth       int   `json:"max_queue_depth" yaml:"max_queue_depth" toml:"max_queue_depth"`
	DrainTimeoutSeconds int64 `json:"drain_timeout_seconds" yaml:"drain_timeout_seconds" toml:"drain_timeout_seconds"`
	LoadTimeoutSeconds  int64 `json:"load_timeout_seconds" yaml:"load_timeout_seconds" toml:"load_timeout_seconds"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// CmdlineConfigMap builds the backend settings map from the file's
// backend_config entries, with backend_directory applied as the global
// backend-directory setting.
func (c Config) CmdlineConfigMap() (CmdlineConfigMap, error) {
	m := CmdlineConfigMap{}
	if c.BackendDirectory != "" {
		m.Add("", KeyBackendDirectory, c.BackendDirectory)
	}
	for _, s := range c.BackendConfig {
		backend, key, value, err := ParseSetting(s)
		if err != nil {
			return nil, err
		}
		m.Add(backend, key, value)
	}
	return m, nil
}

// HostPolicyMap builds the host policy map from the file's host_policy
// entries ("policy,key=value").
func (c Config) HostPolicyMap() (HostPolicyMap, error) {
	m := HostPolicyMap{}
	for _, s := range c.HostPolicy {
		policy, key, value, err := ParseSetting(s)
		if err != nil {
			return nil, err
		}
		if policy == "" {
			return nil, fmt.Errorf("host policy setting %q must name a policy", s)
		}
		if m[policy] == nil {
			m[policy] = map[string]string{}
		}
		m[policy][key] = value
	}
	return m, nil
}
