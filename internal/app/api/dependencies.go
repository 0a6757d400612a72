package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	temporalotel "go.temporal.io/sdk/contrib/opentelemetry"
	workerlog "go.temporal.io/sdk/log"

	adoptionkafka "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/messaging/kafka"
	adoptionrabbitmq "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/messaging/rabbitmq"
	adoptionmemory "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/memory"
	adoptionobs "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/observability"
	adoptionpostgres "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/persistence/postgres"
	adoptionworkflows "github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/adapters/workflows"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/application"
	"github.com/Apurer/go-gin-adoption-server/internal/domains/adoption/ports"
	platformkafka "github.com/Apurer/go-gin-adoption-server/internal/platform/kafka"
	"github.com/Apurer/go-gin-adoption-server/internal/platform/migrations"
	platformobservability "github.com/Apurer/go-gin-adoption-server/internal/platform/observability"
	platformpostgres "github.com/Apurer/go-gin-adoption-server/internal/platform/postgres"
	platformrabbitmq "github.com/Apurer/go-gin-adoption-server/internal/platform/rabbitmq"
)

const instrumentationName = "internal.adoption.application"

// Core is the coordinator with its storage and side-effect adapters wired.
type Core struct {
	// Service is the observed coordinator port handed to transports and activities.
	Service ports.Service
	Feed    *application.Feed
	Repos   ports.Repositories
}

// BuildCore wires storage, brokers and observability around the coordinator.
// Missing or unreachable infrastructure degrades to in-memory storage and log-only side effects.
// The returned cleanup releases every connection that was opened.
func BuildCore(ctx context.Context, cfg Config, instruments *platformobservability.Instruments) (*Core, func(), error) {
	logger := effectiveLogger(instruments)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	opts := cfg.ServiceOptions()
	opts = append(opts, application.WithLogger(logger))

	var (
		repos ports.Repositories
		dedup ports.DedupCache
	)
	db, closeDB := platformpostgres.ConnectDSN(ctx, cfg.PostgresDSN, logger)
	cleanups = append(cleanups, closeDB)
	if db != nil {
		if err := migrations.Run(db); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate adoption schema: %w", err)
		}
		repos = adoptionpostgres.NewRepositories(db,
			adoptionpostgres.WithPollInterval(cfg.WatchPollInterval),
			adoptionpostgres.WithLogger(logger),
		)
		dedup = adoptionpostgres.NewDedupStore(db, adoptionpostgres.WithTTL(cfg.DedupTTL))
		opts = append(opts, application.WithTxManager(adoptionpostgres.NewTxManager(db)))
		logger.Info("adoption repositories configured with postgres")
	} else {
		store := adoptionmemory.NewStore()
		repos = store.Repositories()
		dedup = adoptionmemory.NewDedupCache()
	}

	sink := adoptionobs.NewLogSink(logger)
	var (
		notifier  ports.Notifier       = sink
		mailer    ports.Mailer         = sink
		publisher ports.EventPublisher = sink
	)
	if cfg.RabbitMQURL != "" {
		if mq, err := dialRabbitMQ(cfg.RabbitMQURL); err != nil {
			logger.Warn("rabbitmq unavailable, notifications go to the log", slog.String("error", err.Error()))
		} else {
			cleanups = append(cleanups, func() { _ = mq.Close() })
			notifier = adoptionrabbitmq.NewNotifier(mq)
			mailer = adoptionrabbitmq.NewMailer(mq)
			logger.Info("notifications published to rabbitmq")
		}
	}
	if cfg.KafkaBrokers != "" {
		if producer, err := platformkafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic); err != nil {
			logger.Warn("kafka unavailable, domain events go to the log", slog.String("error", err.Error()))
		} else {
			cleanups = append(cleanups, func() { _ = producer.Close() })
			publisher = adoptionkafka.NewEventPublisher(producer)
			logger.Info("domain events published to kafka", slog.String("topic", cfg.KafkaTopic))
		}
	}
	opts = append(opts,
		application.WithNotifier(notifier),
		application.WithMailer(mailer),
		application.WithEventPublisher(publisher),
	)

	core := application.NewService(repos, opts...)
	service := adoptionobs.New(
		core,
		adoptionobs.WithLogger(logger),
		adoptionobs.WithTracer(instruments.Tracer(instrumentationName)),
		adoptionobs.WithMeter(instruments.Meter(instrumentationName)),
	)
	return &Core{
		Service: service,
		Feed:    application.NewFeed(repos.Requests, dedup, logger),
		Repos:   repos,
	}, cleanup, nil
}

func dialRabbitMQ(url string) (*platformrabbitmq.Client, error) {
	mq, err := platformrabbitmq.Dial(url)
	if err != nil {
		return nil, err
	}
	if err := mq.DeclareQueues(adoptionrabbitmq.NotificationsQueue, adoptionrabbitmq.EmailsQueue); err != nil {
		_ = mq.Close()
		return nil, err
	}
	return mq, nil
}

// BuildWorkflows picks the Temporal orchestrator when a cluster is reachable and the inline one otherwise.
func BuildWorkflows(cfg Config, instruments *platformobservability.Instruments, service ports.Service) (ports.WorkflowOrchestrator, func()) {
	logger := effectiveLogger(instruments)
	temporalClient, err := ConnectTemporalClient(cfg, instruments)
	if err != nil {
		logger.Warn("Temporal workflows unavailable, running adoption cascades inline", slog.String("error", err.Error()))
		return adoptionworkflows.NewInlineAdoptionWorkflows(service), func() {}
	}
	logger.Info("Temporal workflows enabled", slog.String("namespace", cfg.TemporalNamespace))
	return adoptionworkflows.NewTemporalAdoptionWorkflows(temporalClient), temporalClient.Close
}

// ConnectTemporalClient dials Temporal with tracing and structured logging.
func ConnectTemporalClient(cfg Config, instruments *platformobservability.Instruments) (client.Client, error) {
	if cfg.TemporalDisabled {
		return nil, errors.New("temporal disabled via TEMPORAL_DISABLED env")
	}
	tracerOptions := temporalotel.TracerOptions{}
	if instruments != nil {
		tracerOptions.Tracer = instruments.Tracer("temporal-client")
	}
	tracingInterceptor, err := temporalotel.NewTracingInterceptor(tracerOptions)
	if err != nil {
		return nil, err
	}
	options := client.Options{
		HostPort:  cfg.TemporalAddress,
		Namespace: cfg.TemporalNamespace,
		Logger:    workerlog.NewStructuredLogger(effectiveLogger(instruments)),
	}
	options.Interceptors = append(options.Interceptors, tracingInterceptor)
	return client.Dial(options)
}
