package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/blog-porter/app/api"
	"github.com/lysyi3m/blog-porter/app/cfg"
	"github.com/lysyi3m/blog-porter/app/client"
	"github.com/lysyi3m/blog-porter/app/database"
	"github.com/lysyi3m/blog-porter/app/feed"
	"github.com/lysyi3m/blog-porter/app/importer"
	"github.com/lysyi3m/blog-porter/app/media"
	"github.com/lysyi3m/blog-porter/app/resources"
	"github.com/lysyi3m/blog-porter/app/store"
	"github.com/lysyi3m/blog-porter/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	if err := run(appCfg); err != nil {
		slog.Error("Blog Porter failed", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *cfg.Cfg) error {
	slog.Info("Starting Blog Porter", "version", appCfg.Version, "output", appCfg.OutputDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fileStore := store.NewFileStore(appCfg.OutputDir)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	documentRepo := database.NewDocumentRepository(db)
	mediaRepo := database.NewMediaRepository(db)

	planLoader := feed.NewPlanLoader(appCfg.PlanFile)
	if err := planLoader.Run(); err != nil {
		return err
	}
	plan := planLoader.GetPlan()

	if !appCfg.NoImport {
		if err := runImport(ctx, appCfg, plan, planLoader.GetEnabledConfigs(), fileStore, documentRepo, mediaRepo); err != nil {
			return err
		}
	}

	if !appCfg.Serve || ctx.Err() != nil {
		return nil
	}

	handler := api.NewHandler(documentRepo, mediaRepo, documentRepo, fileStore, api.SiteInfo{
		Title:   appCfg.Site,
		Link:    appCfg.BaseUrl,
		BaseURL: appCfg.BaseUrl,
		Version: appCfg.Version,
	})

	return serve(ctx, appCfg, api.NewServer(handler, appCfg.APIAccessKey))
}

func runImport(ctx context.Context, appCfg *cfg.Cfg, plan *feed.Plan, feedConfigs []*feed.Config,
	fileStore *store.FileStore, documentRepo *database.DocumentRepo, mediaRepo *database.MediaRepo) error {
	embedStyle, err := importer.ParseEmbedStyle(cmp.Or(appCfg.EmbedStyle, plan.EmbedStyle))
	if err != nil {
		return err
	}

	var st store.Store = fileStore
	if appCfg.DryRun {
		st = store.DryRunStore{}
	} else if err := fileStore.EnsureSite(); err != nil {
		return err
	}

	timeout := time.Duration(appCfg.Timeout) * time.Second
	httpClient := &http.Client{Timeout: timeout}
	registry := resources.DefaultRegistry()

	var blog importer.BlogSource
	if plan.Includes("posts") || plan.Includes("pages") || plan.Includes("theme") {
		if appCfg.Username == "" || appCfg.Password == "" {
			return errors.New("username and password are required to import from the blog API")
		}
		apiClient := client.New(client.Options{
			BaseURL:   appCfg.APIURL,
			Username:  appCfg.Username,
			Password:  appCfg.Password,
			User:      appCfg.User,
			Site:      appCfg.Site,
			UserAgent: appCfg.UserAgent,
			Timeout:   timeout,
			RateLimit: appCfg.RateLimit,
			MaxPages:  appCfg.MaxPages,
		}, httpClient, registry)

		user, err := apiClient.CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("failed to verify blog credentials: %w", err)
		}
		slog.Info("Authenticated with blog API",
			"user", cmp.Or(user.Record().String("nickname"), user.Record().String("id")),
			"site", apiClient.Site())
		blog = apiClient
	}

	feedSource := feed.NewSource(httpClient, feed.NewParser(), feed.NewFilterer(), appCfg.UserAgent)

	tempDir, err := os.MkdirTemp("", "blog-porter-")
	if err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}
	defer os.RemoveAll(tempDir)

	// Downloads carry their own timeout.
	downloader := media.NewHTTPDownloader(&http.Client{}, appCfg.UserAgent, timeout, tempDir)

	pool := tasks.NewPool(appCfg.WorkerCount, appCfg.WorkerCount*16)
	pool.SetTaskTimeout(time.Duration(appCfg.TaskTimeout) * time.Second)
	pool.Start()
	defer pool.Stop()

	imp := importer.New(st, downloader, pool, registry, importer.Options{
		EmbedStyle:     embedStyle,
		StripSelectors: plan.StripSelectors,
		Force:          appCfg.Force,
	}).WithLedger(documentRepo, mediaRepo).
		WithContentExtractor(httpClient, feed.NewContentExtractor(), appCfg.UserAgent)

	slog.Info("Import started",
		"include", plan.Include,
		"feeds", len(feedConfigs),
		"embed_style", embedStyle,
		"workers", appCfg.WorkerCount,
		"dry_run", appCfg.DryRun)

	summary, err := imp.Run(ctx, plan, blog, feedSource, feedConfigs)
	if err != nil {
		return fmt.Errorf("import aborted: %w", err)
	}

	for step, msg := range summary.ListingErrors {
		slog.Warn("Listing failed", "step", step, "error", msg)
	}
	for _, result := range summary.Results {
		if result.Status == database.StatusFailed {
			slog.Warn("Document failed", "kind", result.Kind, "source_id", result.SourceID, "error", result.Error)
		}
	}

	return nil
}

func serve(ctx context.Context, appCfg *cfg.Cfg, handler http.Handler) error {
	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		slog.Info("Endpoints available",
			"feed", "/feed.xml",
			"health", "/health",
			"stats", "/stats",
			"api_enabled", appCfg.APIAccessKey != "")

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case serveErr = <-serverErrChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	return serveErr
}
