package cmd

import (
	"context"
	"fmt"
	"time"

	"stickybot/bot"
	"stickybot/config"
	"stickybot/database"
	"stickybot/domain/interfaces"
	"stickybot/domain/services"
	"stickybot/events"
	"stickybot/infrastructure"
	"stickybot/infrastructure/observability"
	"stickybot/repository"
	"stickybot/storage"

	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Info("Starting stickybot...")

	cfg := config.Get()

	if err := observability.InitializeGlobalMetrics(ctx, cfg); err != nil {
		log.WithError(err).Warn("Failed to initialize metrics, continuing without them")
	}
	metrics := observability.GetMetrics()

	store, closeStore, err := openStore(ctx, cfg, storage.WithObserver(metrics))
	if err != nil {
		return err
	}
	defer closeStore()

	repo, err := repository.NewChannelSettingsRepository(ctx, store)
	if err != nil {
		return fmt.Errorf("failed to initialize sticky repository: %w", err)
	}

	eventBus := events.NewBus()
	natsClient, err := connectEvents(ctx, cfg, eventBus, metrics)
	if err != nil {
		return err
	}

	session, err := bot.NewSession(bot.Config{Token: cfg.DiscordToken})
	if err != nil {
		return err
	}
	gateway := infrastructure.NewDiscordGateway(session, cfg.SendRatePerSec)

	engine := services.NewRepostEngine(repo, gateway, eventBus,
		services.WithMetrics(metrics),
		services.WithWebhookIdentity(cfg.WebhookName, cfg.WebhookAvatar),
	)
	stickyService := services.NewStickyService(repo, gateway, engine, eventBus)

	discordBot := bot.New(session, engine, stickyService)
	if err := discordBot.Open(ctx); err != nil {
		return fmt.Errorf("failed to connect Discord bot: %w", err)
	}

	log.WithFields(log.Fields{
		"environment": cfg.Environment,
		"storage":     cfg.StorageBackend,
	}).Info("Bot is running")
	<-ctx.Done()

	log.Info("Shutting down bot...")
	if err := discordBot.Close(); err != nil {
		log.WithError(err).Error("Error closing Discord bot")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Let in-flight event handlers finish before the publisher goes away
	waitDone := make(chan struct{})
	go func() {
		eventBus.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout exceeded waiting for event handlers")
	}

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}
	if err := observability.ShutdownGlobalMetrics(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down metrics")
	}

	log.Info("Shutdown completed")
	return nil
}

// openStore opens the configured storage backend. The returned func releases it.
func openStore(ctx context.Context, cfg *config.Config, opts ...storage.Option) (*storage.Store, func(), error) {
	if !cfg.UsesPostgres() {
		log.WithField("dir", cfg.DataDir).Info("Using file storage")
		return storage.NewStore(storage.NewFileBackend(cfg.DataDir), opts...), func() {}, nil
	}

	databaseURL := cfg.GetDatabaseURL()
	if err := database.MigrateUp(databaseURL); err != nil {
		return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return storage.NewStore(storage.NewPostgresBackend(db), opts...), db.Close, nil
}

// connectEvents forwards bus events to NATS when servers are configured
func connectEvents(ctx context.Context, cfg *config.Config, bus *events.Bus, metrics *observability.MetricsProvider) (*infrastructure.NATSClient, error) {
	var publisher interfaces.EventPublisher = infrastructure.NewNoopEventPublisher()
	var client *infrastructure.NATSClient

	if cfg.NATSServers != "" {
		client = infrastructure.NewNATSClient(cfg.NATSServers)

		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Connect(connectCtx); err != nil {
			return nil, err
		}

		natsPublisher := infrastructure.NewNATSEventPublisher(client, infrastructure.NewEventSubjectMapper(), metrics)
		if err := natsPublisher.EnsureStickyEventStream(client); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to ensure sticky event stream: %w", err)
		}
		publisher = natsPublisher
	} else {
		log.Info("NATS_SERVERS not set, sticky events stay in process")
	}

	bus.SubscribeAll(func(ctx context.Context, event events.Event) {
		if err := publisher.Publish(event); err != nil {
			log.WithFields(log.Fields{
				"eventType": event.Type(),
				"error":     err,
			}).Error("Failed to forward sticky event")
		}
	})
	return client, nil
}
