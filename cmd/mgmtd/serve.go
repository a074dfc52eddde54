package main

import (
	"context"

	"github.com/danmuck/mgmtd/internal/feature"
	"github.com/danmuck/mgmtd/internal/observability"
	"github.com/danmuck/mgmtd/internal/startup"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		adminAddr   string
		loadOnStart bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon until SIGINT or SIGTERM",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("admin-addr") {
				cfg.AdminAddr = adminAddr
			}
			if cmd.Flags().Changed("load") {
				cfg.LoadOnStart = loadOnStart
			}

			observability.InitLogger("mgmtd")
			svc, err := newService(cfg)
			if err != nil {
				return err
			}
			log.Info().
				Str("service", cfg.ID).
				Str("admin_addr", cfg.AdminAddr).
				Strs("loaders", cfg.BuiltinLoaderIDs).
				Bool("load_on_start", cfg.LoadOnStart).
				Msg("mgmtd serve")

			return svc.Run(contextOr(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&adminAddr, "admin-addr", "", "override admin_addr")
	cmd.Flags().BoolVar(&loadOnStart, "load", false, "override load_on_start")
	return cmd
}

func newService(cfg startup.Config) (*startup.Service, error) {
	reg, err := startup.BuildBuiltinRegistry(cfg.BuiltinLoaderIDs, cfg.Settings())
	if err != nil {
		return nil, err
	}
	return startup.NewService(cfg, startup.Deps{
		Features: feature.Default(),
		Loaders:  reg,
	}), nil
}

// contextOr falls back to Background for commands executed without one.
func contextOr(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
