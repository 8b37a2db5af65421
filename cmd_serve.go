package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"site-cms/pkg/config"
	"site-cms/pkg/logger"
	"site-cms/pkg/render"
	"site-cms/pkg/seo"
	"site-cms/pkg/server"
	"site-cms/pkg/services"
)

var watchDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the website and its API",
	Long: `Serve the public website, the admin sign-in and the JSON API.

With --watch the given content directory is imported on start and
imported again whenever a file in it changes.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&watchDir, "watch", "", "content directory to import and watch for changes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.close(context.Background()); err != nil {
			a.log.Warn("close store failed", logger.Error(err))
		}
	}()

	if config.PayloadSecret == "" {
		return fmt.Errorf("PAYLOAD_SECRET is not set, run %q first", "site-cms setup")
	}

	site, err := config.LoadSite(config.SiteConfigPath)
	if err != nil {
		return err
	}
	renderer, err := render.New(a.log)
	if err != nil {
		return err
	}

	srv := server.New(":"+config.Port, server.Deps{
		Store:            a.store,
		Content:          a.content,
		Forms:            a.forms,
		Auth:             a.auth,
		Media:            a.media,
		Revalidator:      a.revalidator,
		Renderer:         renderer,
		SEO:              seo.NewGenerator(*site, config.ServerSideURL()),
		Metrics:          a.metrics,
		OAuth:            config.OauthConf,
		Log:              a.log,
		Secret:           config.PayloadSecret,
		ServerURL:        config.ServerSideURL(),
		ContactRateLimit: config.ContactRateLimit,
	})

	g, ctx := errgroup.WithContext(ctx)
	if watchDir != "" {
		seeder := a.seeder()
		report, err := seeder.Seed(ctx, watchDir)
		if err != nil {
			srv.Close()
			return err
		}
		a.log.Info("content imported", logger.Any("report", report))

		watcher, err := services.NewWatcher(watchDir, seeder, a.log)
		if err != nil {
			srv.Close()
			return err
		}
		g.Go(func() error { return watcher.Run(ctx) })
	}
	g.Go(func() error { return srv.Run(ctx) })
	return g.Wait()
}
