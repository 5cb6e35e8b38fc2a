package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowkit/flow"
	"github.com/kbukum/flowkit/logger"
	"github.com/kbukum/flowkit/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		dirs  []string
		port  int
		watch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the flows found in the flow directories over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := root.setup(ctx)
			if err != nil {
				return err
			}
			defer a.close(context.WithoutCancel(ctx))

			if len(dirs) > 0 {
				a.cfg.Flows.Dirs = dirs
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			srv, catalog, rec, err := a.server()
			if err != nil {
				return err
			}
			if watch {
				w, err := flow.NewWatcher(flow.NewFileLoader(a.cfg.Flows.Dirs...), a.reloader(catalog, rec), 0, a.log)
				if err != nil {
					return err
				}
				go func() { _ = w.Run(ctx) }()
			}
			if err := srv.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			a.log.Info("shutdown signal received")
			return srv.Stop(context.WithoutCancel(ctx))
		},
	}
	cmd.Flags().StringSliceVarP(&dirs, "dir", "d", nil, "flow definition directories (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload flows when definition files change")
	return cmd
}

// server loads every definition in the configured directories and mounts
// the run API.
func (a *app) server() (*server.Server, *server.Catalog, *flow.Recorder, error) {
	defs, err := flow.NewFileLoader(a.cfg.Flows.Dirs...).LoadAll()
	if err != nil {
		return nil, nil, nil, err
	}

	rec := flow.NewRecorder()
	catalog, err := a.catalog(defs, rec)
	if err != nil {
		return nil, nil, nil, err
	}

	srv := server.New(a.cfg.Server, a.log)
	api := server.NewAPI(a.cfg.Name, catalog, server.NewMemoryStore(a.cfg.Server.MaxRuns), rec, a.log)
	api.Register(srv.Engine())
	return srv, catalog, rec, nil
}

// catalog builds defs into a fresh catalog whose flows report to rec.
func (a *app) catalog(defs []*flow.Definition, rec *flow.Recorder) (*server.Catalog, error) {
	catalog := server.NewCatalog()
	for _, def := range defs {
		f, err := a.build(def, flow.WithObserver(rec))
		if err != nil {
			return nil, err
		}
		if err := catalog.Add(f, def.Description); err != nil {
			return nil, err
		}
		a.log.Info("flow loaded", logger.Fields(logger.FieldFlow, f.Name()))
	}
	return catalog, nil
}

// reloader rebuilds the catalog from reloaded definitions. A set that fails
// to build leaves the served catalog untouched.
func (a *app) reloader(catalog *server.Catalog, rec *flow.Recorder) flow.ReloadFunc {
	return func(defs []*flow.Definition) {
		next, err := a.catalog(defs, rec)
		if err != nil {
			a.log.Warn("reload rejected", logger.Fields("error", err.Error()))
			return
		}
		catalog.Replace(next)
	}
}
