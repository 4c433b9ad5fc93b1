package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cadence/internal/calls"
	"cadence/internal/chatstore"
	"cadence/internal/config"
	"cadence/internal/logging"
	"cadence/internal/notifications"
	"cadence/internal/playlist"
	"cadence/internal/services/callengine"
	"cadence/internal/services/ytdlp"
)

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the cadence daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configFlag)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg)
		},
	}
}

func runDaemon(cmdCtx context.Context, cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("ensure directories: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.DataDir, "cadence.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire instance lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another cadence instance is already running")
	}
	defer func() { _ = lock.Unlock() }()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	sessionID := uuid.NewString()
	logger = logger.With(logging.String("session_id", sessionID))

	chats, err := chatstore.Open(cfg)
	if err != nil {
		return fmt.Errorf("open chat store: %w", err)
	}
	defer chats.Close()

	engine := callengine.NewClient(cfg)
	resolver := ytdlp.NewResolver(cfg)
	notifier := notifications.NewService(cfg)

	coordinator, err := calls.NewCoordinator(calls.Deps{
		Store:    playlist.NewStore(),
		Chats:    chats,
		Resolver: resolver,
		Engine:   engine,
		Promoter: engine,
		Notifier: notifier,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("build coordinator: %w", err)
	}

	dispatcher := calls.NewDispatcher(coordinator, logger)
	events := callengine.NewEventStream(cfg, dispatcher, logger)

	logger.Info("cadence daemon started",
		logging.String("engine_url", cfg.Engine.BaseURL))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		events.Run(ctx)
	}()

	<-ctx.Done()
	wg.Wait()

	logger.Info("cadence daemon stopped")
	return nil
}
