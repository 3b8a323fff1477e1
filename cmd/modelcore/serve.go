package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"modelcore/internal/httpapi"
	"modelcore/internal/manager"
)

func newServeCmd(ro *rootOptions) *cobra.Command {
	return serveCmd(ro, &serverOptions{})
}

func serveCmd(ro *rootOptions, o *serverOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the model repository and the admin HTTP API",
		Example: "  modelcore serve --model-repository ./models --backend-directory /opt/modelcore/backends --load resnet50",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, ro, o)
		},
	}
	o.bind(cmd)
	cmd.Flags().StringVar(&o.addr, "addr", envOr("MODELCORE_ADDR", ":8080"), "HTTP listen address, e.g. :8080")
	return cmd
}

func runServe(cmd *cobra.Command, ro *rootOptions, o *serverOptions) error {
	log, err := ro.logger()
	if err != nil {
		return err
	}
	cfg, err := o.resolve(cmd)
	if err != nil {
		return err
	}
	mcfg, err := managerConfig(cfg, log)
	if err != nil {
		return err
	}
	mcfg.Metrics = manager.NewMetrics(prometheus.DefaultRegisterer)
	mcfg.Publisher = manager.LogPublisher{Logger: log.With().Str("component", "events").Logger()}
	mgr := manager.New(mcfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSAllowedOrigins, cfg.CORSAllowedMethods, cfg.CORSAllowedHeaders)
	httpapi.SetLoadTimeout(time.Duration(cfg.LoadTimeoutSeconds) * time.Second)

	for _, name := range cfg.LoadModels {
		if err := mgr.Load(ctx, name); err != nil {
			log.Error().Err(err).Str("model", name).Msg("startup load failed")
		}
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(mgr), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("repository", cfg.ModelRepository).Msg("modelcore listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn().Err(err).Msg("systemd notify failed")
	} else if ok {
		log.Debug().Msg("notified systemd readiness")
	}

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	// Graceful shutdown (Ctrl+C / SIGTERM)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	if err := mgr.Close(); err != nil {
		log.Warn().Err(err).Msg("closing models")
	}
	return serveErr
}
