package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"fairytaleparty.co.uk/web/internal/httpserver"
	"fairytaleparty.co.uk/web/internal/platform/config"
	"fairytaleparty.co.uk/web/internal/platform/observability"
	"fairytaleparty.co.uk/web/internal/reload"
	"fairytaleparty.co.uk/web/internal/views"
	"fairytaleparty.co.uk/web/public"
	"fairytaleparty.co.uk/web/resources"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Runs the HTTP server until SIGINT or SIGTERM.

Touching the restart sentinel (FPARTY_RESTART_FILE, default tmp/restart.txt)
reloads templates and content without dropping connections.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), opts)
		},
	}
}

func serve(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(config.WithEnvFile(opts.envFile))
	if err != nil {
		return err
	}

	baseLogger, err := observability.NewLogger(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("initialise logger: %w", err)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web").With(zap.String("env", cfg.Environment))

	templates, content, err := sources(cfg.Paths)
	if err != nil {
		return err
	}
	renderer, err := views.New(templates, content,
		views.WithSite(views.Site{
			Name:         cfg.Site.Name,
			URL:          cfg.Site.URL,
			ContactEmail: cfg.Site.ContactEmail,
		}),
		views.WithDevMode(cfg.Dev),
	)
	if err != nil {
		return err
	}

	static, err := public.StaticFS()
	if err != nil {
		return fmt.Errorf("embed static: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	watchOpts := []reload.Option{reload.WithLogger(logger.Named("reload"))}
	if cfg.Dev {
		watchOpts = append(watchOpts, reload.WithDirs(cfg.Paths.TemplatesDir, cfg.Paths.ContentDir))
	}
	watcher, err := reload.New(cfg.Paths.RestartFile, renderer.Reload, watchOpts...)
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("restart sentinel not watched", zap.String("path", cfg.Paths.RestartFile), zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	server := httpserver.New(httpserver.Config{
		Address:           cfg.Server.Addr(),
		Renderer:          renderer,
		Static:            static,
		Logger:            logger.Named("http"),
		Dev:               cfg.Dev,
		H2C:               cfg.Server.H2C,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	})

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serverLogger.Info("fairytale party web listening", zap.Bool("dev", cfg.Dev), zap.Bool("h2c", cfg.Server.H2C))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
			return err
		}
		return nil
	})
	return g.Wait()
}

// sources returns on-disk template/content directories when configured, the embedded
// copies otherwise.
func sources(paths config.PathConfig) (templates, content fs.FS, err error) {
	if paths.TemplatesDir != "" {
		templates = os.DirFS(paths.TemplatesDir)
	} else if templates, err = resources.Templates(); err != nil {
		return nil, nil, err
	}
	if paths.ContentDir != "" {
		content = os.DirFS(paths.ContentDir)
	} else if content, err = resources.Content(); err != nil {
		return nil, nil, err
	}
	return templates, content, nil
}
