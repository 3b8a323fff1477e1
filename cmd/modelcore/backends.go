package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"modelcore/internal/manager"
	"modelcore/pkg/types"
)

func newBackendsCmd(ro *rootOptions) *cobra.Command {
	o := &serverOptions{}
	cmd := &cobra.Command{
		Use:     "backends",
		Short:   "Load models and print the backends serving them",
		Example: "  modelcore backends --model-repository ./models --load resnet50,bert",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := ro.logger()
			if err != nil {
				return err
			}
			cfg, err := o.resolve(cmd)
			if err != nil {
				return err
			}
			if len(cfg.LoadModels) == 0 {
				return fmt.Errorf("no models to load (--load or load_models)")
			}
			mcfg, err := managerConfig(cfg, log)
			if err != nil {
				return err
			}
			mgr := manager.New(mcfg)
			defer func() { _ = mgr.Close() }()
			for _, name := range cfg.LoadModels {
				if err := mgr.Load(context.Background(), name); err != nil {
					return err
				}
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(types.BackendsResponse{Backends: mgr.Backends()})
		},
	}
	o.bind(cmd)
	return cmd
}
