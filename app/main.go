package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/news-comb/app/api"
	"github.com/lysyi3m/news-comb/app/cfg"
	"github.com/lysyi3m/news-comb/app/database"
	"github.com/lysyi3m/news-comb/app/feed"
	"github.com/lysyi3m/news-comb/app/mail"
	"github.com/lysyi3m/news-comb/app/normalize"
	"github.com/lysyi3m/news-comb/app/tasks"
)

func main() {
	appCfg, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		return
	}

	setupLogger(appCfg.Debug)

	if err := run(appCfg); err != nil {
		slog.Error("News Comb stopped with error", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func run(appCfg *cfg.Cfg) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	itemRepo := database.NewItemRepository(db)

	if appCfg.Mode == cfg.ModeInfo {
		info, err := renderInfo(ctx, itemRepo)
		if err != nil {
			return err
		}
		fmt.Println(info)
		return nil
	}

	configCache := feed.NewConfigCache(appCfg.SourcesFile)
	if err := configCache.Run(); err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	metrics := tasks.NewMetrics(nil)
	fetcher := feed.NewFetcher(&http.Client{}, feed.NewParser(), appCfg.UserAgent)

	cycles := []tasks.Cycle{
		tasks.NewFeedCycle(configCache, fetcher, itemRepo, metrics, appCfg.FeedTimeout, appCfg.FeedPause),
	}
	if mailCycle := newMailCycle(ctx, appCfg, configCache, itemRepo, metrics); mailCycle != nil {
		cycles = append(cycles, mailCycle)
	}

	runner := tasks.NewRunner(ctx, cycles...)
	defer runner.Wait()

	if appCfg.Mode == cfg.ModeOnce {
		return runOnce(ctx, appCfg, runner, itemRepo)
	}

	return runDaemon(ctx, stop, appCfg, runner, itemRepo, configCache)
}

func newMailCycle(ctx context.Context, appCfg *cfg.Cfg, settings tasks.MailSettingsProvider, itemRepo tasks.ItemWriter, metrics *tasks.Metrics) *tasks.MailCycle {
	if appCfg.NoEmail {
		slog.Info("Mail ingestion disabled")
		return nil
	}

	client, err := mail.NewOAuthClient(ctx, appCfg.GmailCredentials, appCfg.GmailToken)
	if err != nil {
		if errors.Is(err, mail.ErrNotAuthorized) {
			slog.Warn("Gmail not authorized, mail ingestion disabled", "credentials", appCfg.GmailCredentials, "token", appCfg.GmailToken, "error", err)
		} else {
			slog.Error("Failed to set up Gmail client, mail ingestion disabled", "error", err)
		}
		return nil
	}

	mailbox, err := mail.NewGmailMailbox(ctx, client)
	if err != nil {
		slog.Error("Failed to set up Gmail mailbox, mail ingestion disabled", "error", err)
		return nil
	}

	return tasks.NewMailCycle(settings, mailbox, itemRepo, normalize.NewNormalizer(), metrics)
}

func runOnce(ctx context.Context, appCfg *cfg.Cfg, runner *tasks.Runner, itemRepo database.ItemRepository) error {
	var errs []error

	for _, kind := range runner.Kinds() {
		summary, _, err := runner.Trigger(ctx, kind)
		if summary != nil {
			fmt.Println(renderSummary(summary))
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s cycle: %w", kind, err))
		}
	}

	if appCfg.ExportFile != "" {
		channel := feed.NewChannel(appCfg.BaseUrl, appCfg.Version)
		if err := writeExport(ctx, appCfg.ExportFile, itemRepo, channel, appCfg.ExportItems); err != nil {
			errs = append(errs, err)
		} else {
			slog.Info("RSS export written", "path", appCfg.ExportFile)
		}
	}

	return errors.Join(errs...)
}

func runDaemon(ctx context.Context, stop context.CancelFunc, appCfg *cfg.Cfg, runner *tasks.Runner,
	itemRepo database.ItemRepository, configCache *feed.ConfigCache) error {
	slog.Info("Starting News Comb", "version", appCfg.Version, "feeds", len(configCache.Feeds()))

	scheduler := tasks.NewScheduler(ctx)

	intervals := map[tasks.Kind]time.Duration{
		tasks.KindFeed: appCfg.FeedInterval,
		tasks.KindMail: appCfg.MailInterval,
	}
	for _, kind := range runner.Kinds() {
		if err := scheduler.Schedule(kind, intervals[kind], func(ctx context.Context) error {
			summary, joined, err := runner.Trigger(ctx, kind)
			if joined && summary != nil {
				slog.Debug("Scheduled cycle joined a running one", "kind", string(kind), "run_id", summary.RunID)
			}
			return err
		}); err != nil {
			scheduler.Close()
			return fmt.Errorf("failed to schedule %s cycle: %w", kind, err)
		}
	}

	apiHandler := api.NewHandler(itemRepo, runner, configCache, api.Options{
		BaseUrl:      appCfg.BaseUrl,
		Version:      appCfg.Version,
		ExportItems:  appCfg.ExportItems,
		MaxPageItems: appCfg.MaxPageItems,
	})
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	case runErr = <-serverErrChan:
		slog.Error("Server error", "error", runErr)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Close()
	slog.Info("Scheduler stopped")

	return runErr
}
