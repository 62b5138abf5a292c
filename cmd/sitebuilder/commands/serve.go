package commands

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/sitebuilder/internal/build"
	"git.home.luguber.info/inful/sitebuilder/internal/logfields"
	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
	"git.home.luguber.info/inful/sitebuilder/internal/server"
	"git.home.luguber.info/inful/sitebuilder/internal/watch"
)

// ServeCmd builds the site once, then serves it and rebuilds on change.
type ServeCmd struct {
	Port int `short:"p" help:"Port to listen on (default: settings port, 4000)"`
}

// Run executes the serve command.
func (c *ServeCmd) Run(root *CLI) error {
	s, err := root.openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	port := s.cfg.Port
	if c.Port > 0 {
		port = c.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A failed first build still serves whatever was produced; the watcher
	// picks up the fix.
	if err := s.tasks.Run(ctx, build.TaskDefault); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		slog.Warn("Initial build failed; serving anyway", logfields.Error(err))
	}

	hub := server.NewLiveReloadHub(s.recorder, slog.Default())
	srv := server.New(server.Options{
		DestDir:    s.cfg.DestPath(),
		Port:       port,
		LiveReload: hub,
		Metrics:    metrics.HTTPHandler(s.promReg),
		Logger:     slog.Default(),
	})

	groups, err := watch.DefaultGroups(s.cfg)
	if err != nil {
		return err
	}
	w, err := watch.New(watch.Options{
		Root:      s.cfg.Root,
		Ignore:    []string{s.cfg.DestPath()},
		Groups:    groups,
		Run:       s.tasks.Run,
		OnSuccess: func(g watch.Group) { hub.Reload(g.Name) },
		Recorder:  s.recorder,
		Logger:    slog.Default(),
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx) })
	g.Go(func() error { return w.Run(gctx) })
	err = g.Wait()
	slog.Info("Shutting down", logfields.Port(port))
	return err
}
