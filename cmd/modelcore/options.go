package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelcore/internal/config"
	"modelcore/internal/manager"
	"modelcore/internal/platform"
)

// serverOptions are the flags that describe the model repository and the
// backends. Flags override values read from --config.
type serverOptions struct {
	configPath       string
	addr             string
	modelRepository  string
	backendDirectory string
	backendConfig    []string
	hostPolicy       []string
	load             string
	nice             int
}

func (o *serverOptions) bind(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.configPath, "config", "", "Service config file (.yaml, .yml, .json, .toml)")
	f.StringVar(&o.modelRepository, "model-repository", "", "Model repository directory")
	f.StringVar(&o.backendDirectory, "backend-directory", "", "Directory holding one directory per backend")
	f.StringArrayVar(&o.backendConfig, "backend-config", nil, "Backend setting as backend,key=value (repeatable; empty backend is global)")
	f.StringArrayVar(&o.hostPolicy, "host-policy", nil, "Host policy setting as policy,key=value (repeatable)")
	f.StringVar(&o.load, "load", "", "Comma-separated models to load at startup")
	f.IntVar(&o.nice, "nice", 0, "Nice value of instance threads (default 5)")
}

// resolve merges the config file with the flags set on cmd.
func (o *serverOptions) resolve(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if o.configPath != "" {
		c, err := config.Load(o.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
		cfg = c
	}
	f := cmd.Flags()
	if f.Changed("addr") {
		cfg.Addr = o.addr
	}
	if cfg.Addr == "" {
		cfg.Addr = o.addr
	}
	if f.Changed("model-repository") {
		cfg.ModelRepository = o.modelRepository
	}
	if f.Changed("backend-directory") {
		cfg.BackendDirectory = o.backendDirectory
	}
	cfg.BackendConfig = append(cfg.BackendConfig, o.backendConfig...)
	cfg.HostPolicy = append(cfg.HostPolicy, o.hostPolicy...)
	if f.Changed("load") {
		cfg.LoadModels = splitCSV(o.load)
	}
	if f.Changed("nice") {
		n := o.nice
		cfg.Nice = &n
	}
	if cfg.ModelRepository == "" {
		return cfg, fmt.Errorf("a model repository is required (--model-repository or model_repository)")
	}
	return cfg, nil
}

// topology builds the device topology declared in cfg.
func topology(cfg config.Config) (platform.Topology, error) {
	if len(cfg.Devices) == 0 {
		return platform.CPUOnly, nil
	}
	devs := make([]platform.Device, 0, len(cfg.Devices))
	for _, d := range cfg.Devices {
		devs = append(devs, platform.Device{ID: d.ID, ComputeCapability: d.ComputeCapability})
	}
	return platform.NewStaticTopology(devs...)
}

// managerConfig translates the service config into a manager.Config.
func managerConfig(cfg config.Config, log zerolog.Logger) (manager.Config, error) {
	cmdline, err := cfg.CmdlineConfigMap()
	if err != nil {
		return manager.Config{}, err
	}
	policies, err := cfg.HostPolicyMap()
	if err != nil {
		return manager.Config{}, err
	}
	topo, err := topology(cfg)
	if err != nil {
		return manager.Config{}, err
	}
	return manager.Config{
		ModelRepository:   cfg.ModelRepository,
		CmdlineConfig:     cmdline,
		HostPolicies:      policies,
		Topology:          topo,
		CPUInstanceCounts: cfg.CPUInstanceCounts,
		Nice:              cfg.Nice,
		MaxQueueDepth:     cfg.MaxQueueDepth,
		DrainTimeout:      time.Duration(cfg.DrainTimeoutSeconds) * time.Second,
		Logger:            &log,
	}, nil
}
