package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"blog-publisher/domain/model"
	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/cache"
	"blog-publisher/infrastructure/clients/blogger"
	"blog-publisher/infrastructure/clients/oauth"
	"blog-publisher/infrastructure/clients/platform"
	"blog-publisher/infrastructure/clients/tistory"
	"blog-publisher/infrastructure/clients/wordpress"
	"blog-publisher/infrastructure/configuration"
	"blog-publisher/infrastructure/crypto"
	"blog-publisher/infrastructure/logger"
	"blog-publisher/infrastructure/metrics"
	"blog-publisher/infrastructure/notification"
	"blog-publisher/infrastructure/persistence"
	"blog-publisher/infrastructure/pubsub"
	"blog-publisher/infrastructure/realtime"
	"blog-publisher/infrastructure/servicebus"
	"blog-publisher/usecase"
)

// application holds every wired dependency shared by the serve and sweep
// commands.
type application struct {
	db       *sql.DB
	hub      *realtime.Hub
	notifier *notification.Async
	closers  []func()

	posts       usecase.IPostUsecase
	connections usecase.IConnectionUsecase
	sweep       usecase.ISweepUsecase
}

func newApplication(ctx context.Context, cfg configuration.Config) (*application, error) {
	app := &application{}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	db, dialect, err := persistence.OpenDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := persistence.EnsureSchema(db, dialect); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	gdb, err := persistence.NewGormDB(db, dialect)
	if err != nil {
		return nil, fmt.Errorf("open gorm: %w", err)
	}
	if err := persistence.EnsureQuotaSchema(gdb); err != nil {
		return nil, fmt.Errorf("ensure quota schema: %w", err)
	}

	cipher, err := crypto.NewTokenCipher(cfg.Security.EncryptionKey, "blog-connection-tokens")
	if err != nil {
		return nil, fmt.Errorf("credential cipher: %w", err)
	}

	var (
		sweepLock repository.ISweepLock
		states    repository.IOAuthState
	)
	redisClient, err := cache.NewCache(ctx,
		fmt.Sprintf("%s:%s", cfg.RedisClient.Host, cfg.RedisClient.Port),
		cfg.RedisClient.Username,
		cfg.RedisClient.Password,
	)
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("Redis not available - sweeps run unlocked and OAuth connect is disabled")
	} else {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
		sweepLock = cache.NewSweepLock(redisClient)
		states = cache.NewOAuthStateStore(redisClient)
	}

	audit := newAuditRepository(ctx, app, cfg)
	app.hub = realtime.NewPublishHub()
	app.notifier = notification.NewAsync(newSinks(ctx, app, cfg), cfg.Publisher.HTTPTimeout())

	timeout := cfg.Publisher.HTTPTimeout()
	runner := newRunnerFactory(cfg.Publisher)
	tistoryClient := tistory.NewClient(cfg.Platforms.Tistory.BaseURL, timeout, runner(model.PlatformTistory))
	bloggerClient := blogger.NewClient(cfg.Platforms.Blogger.BaseURL, timeout, runner(model.PlatformBlogger))
	wordpressClient := wordpress.NewClient(timeout, runner(model.PlatformWordPress))
	registry := platform.NewRegistry(tistoryClient, bloggerClient, wordpressClient)
	google := oauth.NewGoogle(cfg.Platforms.Blogger, timeout)
	if !google.Configured() {
		logger.GetLogger().Warn("Blogger OAuth client not configured - Blogger connect and token refresh are disabled")
	}

	connectionRepository := persistence.NewConnectionRepository(db, dialect)
	postRepository := persistence.NewPostRepository(db, dialect)
	quotaRepository := persistence.NewUsageQuotaRepository(gdb, cfg.Publisher.DefaultMonthlyLimit)

	creds := usecase.NewCredentialStore(cipher)
	tokens := usecase.NewTokenUsecase(connectionRepository, creds, map[string]repository.ITokenRefresher{
		model.PlatformBlogger: google,
	})
	engine := usecase.NewPublishUsecase(connectionRepository, tokens, creds, registry)

	app.posts = usecase.NewPostUsecase(postRepository, connectionRepository, quotaRepository, engine, app.notifier, audit,
		usecase.PostUsecaseConfig{
			MaxRetries:     cfg.Publisher.MaxRetries,
			QuotaThreshold: cfg.Publisher.QuotaThreshold,
		})
	app.sweep = usecase.NewSweepUsecase(postRepository, app.posts, sweepLock, usecase.SweepConfig{
		BatchSize:   cfg.Publisher.BatchSize,
		MaxRetries:  cfg.Publisher.MaxRetries,
		Concurrency: cfg.Publisher.SweepConcurrency,
		LockTTL:     time.Duration(cfg.Publisher.SweepLockTTLSec) * time.Second,
	})
	app.connections = usecase.NewConnectionUsecase(connectionRepository, creds, states, google, bloggerClient, wordpressClient)

	logger.GetLogger().WithFields(map[string]interface{}{
		"vendor":    string(dialect),
		"platforms": registry.Platforms(),
		"locked":    sweepLock != nil,
	}).Info("Application wired")
	ok = true
	return app, nil
}

// newRunnerFactory builds per-platform retry runners, each with its own
// circuit breaker when enabled.
func newRunnerFactory(p configuration.Publisher) func(tag string) *platform.Runner {
	return func(tag string) *platform.Runner {
		var opts []platform.Option
		if p.CircuitBreaker.Enabled {
			opts = append(opts, platform.WithBreaker(platform.NewBreaker(tag, platform.BreakerConfig{
				FailureThreshold: p.CircuitBreaker.FailureThreshold,
				MinRequests:      p.CircuitBreaker.MinRequests,
				OpenFor:          time.Duration(p.CircuitBreaker.OpenSeconds) * time.Second,
				OnStateChange:    metrics.BreakerStateChanged,
			})))
		}
		return platform.NewRunner(tag, p.RetryConfig(), opts...)
	}
}

func newAuditRepository(ctx context.Context, app *application, cfg configuration.Config) repository.IPublishAudit {
	client, err := persistence.NewMongoDb(cfg.Database.Mongo)
	if err == nil {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx, nil)
		cancel()
		if err != nil {
			_ = client.Disconnect(context.Background())
		}
	}
	if err != nil {
		logger.GetLogger().WithField("error", err).Warn("MongoDB not available - publish history is disabled")
		return persistence.NewPublishAuditRepository(nil, "", "")
	}
	app.closers = append(app.closers, func() { _ = client.Disconnect(context.Background()) })
	logger.GetLogger().Info("MongoDB connected successfully")
	return persistence.NewPublishAuditRepository(client, cfg.Notification.Audit.Database, cfg.Notification.Audit.Collection)
}

// newSinks registers every configured notification channel. Unconfigured or
// unreachable channels are skipped.
func newSinks(ctx context.Context, app *application, cfg configuration.Config) *notification.Fanout {
	n := cfg.Notification
	fanout := notification.NewFanout().Add("stream", app.hub)

	if n.Webhook.URL != "" {
		fanout.Add("webhook", notification.NewWebhook(n.Webhook.URL, n.Webhook.Secret, cfg.Publisher.HTTPTimeout()))
	}
	if cfg.Pubsub.ProjectID != "" && n.Pubsub.Topic != "" {
		client, err := pubsub.NewPubSub(ctx, cfg.Pubsub.ProjectID)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("PubSub not available - skipping sink")
		} else {
			publisher := pubsub.NewEventPublisher(client, n.Pubsub.Topic)
			app.closers = append(app.closers, func() {
				publisher.Stop()
				_ = client.Close()
			})
			fanout.Add("pubsub", publisher)
		}
	}
	if cfg.ServiceBus.Namespace != "" && n.ServiceBus.Topic != "" {
		client, err := servicebus.NewServiceBus(ctx, cfg.ServiceBus.Namespace)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("Azure Service Bus not available - skipping sink")
		} else {
			app.closers = append(app.closers, func() { _ = client.Close(context.Background()) })
			fanout.Add("servicebus", servicebus.NewEventSender(client, n.ServiceBus.Topic))
		}
	}
	if n.SQS.QueueURL != "" {
		sqsSink, err := notification.NewSQS(ctx, n.SQS.Region, n.SQS.QueueURL)
		if err != nil {
			logger.GetLogger().WithField("error", err).Warn("SQS not available - skipping sink")
		} else {
			fanout.Add("sqs", sqsSink)
		}
	}
	if len(n.Kafka.Brokers) > 0 && n.Kafka.Topic != "" {
		kafkaSink := notification.NewKafka(n.Kafka.Brokers, n.Kafka.Topic)
		app.closers = append(app.closers, func() { _ = kafkaSink.Close() })
		fanout.Add("kafka", kafkaSink)
	}

	logger.GetLogger().WithField("sinks", fanout.Size()).Info("Notification sinks configured")
	return fanout
}

// Close waits for in-flight notifications, then releases clients in reverse
// order of creation.
func (a *application) Close() {
	if a.notifier != nil {
		a.notifier.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
