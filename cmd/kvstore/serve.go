package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/kvstore"
	"github.com/unkn0wn-root/kvstore/auth"
	asynchook "github.com/unkn0wn-root/kvstore/hooks/async"
	"github.com/unkn0wn-root/kvstore/hooks/prom"
	"github.com/unkn0wn-root/kvstore/internal/server"
	"github.com/unkn0wn-root/kvstore/sloghooks"
)

func serveCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx)
		},
	}
}

func (c *cli) serve(ctx context.Context) error {
	log := c.logs.Logger

	logHooks := asynchook.New(sloghooks.New(c.logs.Slog, sloghooks.Options{DecodeFailedEvery: 10, AppendedEvery: 100}), 1, 1000)
	defer logHooks.Close()
	hooks := kvstore.MultiHooks{logHooks}

	var metrics http.Handler
	if c.cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		ph, err := prom.New(reg, c.cfg.Metrics.Namespace)
		if err != nil {
			return err
		}
		hooks = append(hooks, ph)
		metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	st, be, err := openStorage(ctx, c.cfg.Store, log, hooks)
	if err != nil {
		return err
	}
	defer be.Close(context.Background())

	opts := server.Options{
		Addr:            c.cfg.Server.Addr,
		ReadTimeout:     c.cfg.Server.ReadTimeout,
		WriteTimeout:    c.cfg.Server.WriteTimeout,
		ShutdownTimeout: c.cfg.Server.ShutdownTimeout,
		Storage:         st,
		Durable:         be.Traits().Durable,
		Metrics:         metrics,
		Logger:          log,
	}
	if c.cfg.Auth.Enabled {
		opts.Verifier = auth.Ed25519{}
	} else {
		log.Warn("signature gate disabled", nil)
	}
	srv, err := server.New(opts)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
