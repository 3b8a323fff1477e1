package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"modelcore/internal/config"
	"modelcore/pkg/modelconfig"
)

func newValidateCmd(ro *rootOptions) *cobra.Command {
	var configPath string
	var backendConfig []string
	cmd := &cobra.Command{
		Use:     "validate <model-dir>",
		Short:   "Normalize and validate a model configuration and print it",
		Example: "  modelcore validate ./models/resnet50 --config modelcore.yaml",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var cfg config.Config
			if configPath != "" {
				c, err := config.Load(configPath)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				cfg = c
			}
			cfg.BackendConfig = append(cfg.BackendConfig, backendConfig...)
			mc, err := validateModelDir(args[0], cfg)
			if err != nil {
				return err
			}
			out, err := yaml.Marshal(mc)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "Service config file providing devices and CPU instance counts")
	cmd.Flags().StringArrayVar(&backendConfig, "backend-config", nil, "Backend setting as backend,key=value (repeatable)")
	return cmd
}

// validateModelDir reads the configuration of the model in dir and checks
// it the way a load would, without loading a backend.
func validateModelDir(dir string, cfg config.Config) (modelconfig.ModelConfig, error) {
	path, ok := modelconfig.FindConfigFile(dir)
	if !ok {
		return modelconfig.ModelConfig{}, fmt.Errorf("no model configuration in %s", dir)
	}
	mc, err := modelconfig.LoadFile(path)
	if err != nil {
		return mc, err
	}
	if mc.Name == "" {
		mc.Name = filepath.Base(filepath.Clean(dir))
	}
	cmdline, err := cfg.CmdlineConfigMap()
	if err != nil {
		return mc, err
	}
	minCC, err := config.MinComputeCapability(cmdline)
	if err != nil {
		return mc, err
	}
	topo, err := topology(cfg)
	if err != nil {
		return mc, err
	}
	supported, err := topo.SupportedDevices(minCC)
	if err != nil {
		return mc, err
	}
	counts := cfg.CPUInstanceCounts
	if counts == nil {
		counts = config.DefaultCPUInstanceCounts()
	}
	if err := modelconfig.ValidateModelConfig(mc); err != nil {
		return mc, err
	}
	modelconfig.NormalizeInstanceGroup(&mc, nil, supported, counts)
	if err := modelconfig.ValidateInstanceGroup(mc, supported, minCC); err != nil {
		return mc, err
	}
	if err := modelconfig.ValidateModelIOConfig(mc); err != nil {
		return mc, err
	}
	return mc, nil
}
