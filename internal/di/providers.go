package di

import (
    "context"
    "fmt"
    "time"

    "GridPulse/internal/domain/repository"
    domsvc "GridPulse/internal/domain/service"
    "GridPulse/internal/handler/api"
    mid "GridPulse/internal/middleware"
    internalrepo "GridPulse/internal/repository"
    icache "GridPulse/internal/service/cache"
    "GridPulse/internal/service/headend"
    "GridPulse/internal/services/advisor"
    "GridPulse/internal/services/derive"
    "GridPulse/internal/services/notify"
    "GridPulse/internal/usecase"
    pkgch "GridPulse/pkg/clickhouse"
    "GridPulse/pkg/config"
    xhttp "GridPulse/pkg/http"
    pkgkafka "GridPulse/pkg/kafka"
    applogger "GridPulse/pkg/logger"
    "GridPulse/pkg/metrics"
    "GridPulse/pkg/queue"
    "GridPulse/pkg/server"

    "github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	format := "json"
	if cfg.Environment == "development" {
		format = "console"
	}
	l, err := applogger.New(&applogger.Config{Level: "info", Format: format, Output: "stdout"})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideClickHouseClient creates a ClickHouse client.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	// Schema init is skipped on the in-memory backend where ClickHouse
	// may not be reachable at all
	if cfg.Backend.Type != "memory" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := client.InitSchema(ctx, internalrepo.SchemaStatements(cfg.ClickHouse.Database)); err != nil {
			_ = client.Close() // cannot log here (DI layer no logger); propagate error
			return nil, fmt.Errorf("clickhouse schema: %w", err)
		}
	}

	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer. Nil unless the kafka
// backend is active.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideReadingStore selects the storage backend for meter records.
func ProvideReadingStore(chClient *pkgch.Client, l *applogger.Logger, cfg *config.Config) repository.ReadingStore {
	if cfg.Backend.Type == "memory" {
		return internalrepo.NewMemoryReadingStore()
	}
	store := internalrepo.NewClickHouseReadingStore(chClient, cfg.ClickHouse.Database)
	store.SetLogger(l)
	return store
}

// ProvideReadingPublisher creates the Kafka publisher repository.
func ProvideReadingPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideKafkaConsumer creates a Kafka consumer configured from YAML. The
// consumer drains the readings topic into ClickHouse, so it only exists
// on the kafka backend.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Backend.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaReadingsHandler registers the handler for the readings topic.
func ProvideKafkaReadingsHandler(store repository.ReadingStore, metrics repository.Metrics, cfg *config.Config) *usecase.KafkaReadingsHandler {
	return usecase.NewKafkaReadingsHandler(cfg.Kafka.Topic, store, metrics)
}

// ProvideMeterStream creates the head-end WebSocket stream.
func ProvideMeterStream(cfg *config.Config) repository.MeterStream {
	return headend.New(
		cfg.Headend.APIKey,
		cfg.Headend.WebSocketURL,
		cfg.Headend.Meters,
		cfg.Headend.ReconnectDelay,
		cfg.Headend.PingInterval,
	)
}

// ProvideValidator creates the reading validator.
func ProvideValidator() domsvc.ReadingValidator {
	return derive.NewValidator()
}

// ProvideDeriver creates the tariff deriver from the configured plan.
func ProvideDeriver(cfg *config.Config) domsvc.Deriver {
	return derive.NewTariffDeriver(derive.Tariff{
		FlatRate:       cfg.Tariff.FlatRate,
		SpikeThreshold: cfg.Tariff.SpikeThreshold,
	})
}

// ProvideAdvisor creates the rule-based usage advisor.
func ProvideAdvisor(cfg *config.Config) domsvc.Advisor {
	p := advisor.DefaultPolicy()
	if cfg.Advisor.ActiveThreshold > 0 {
		p.ActiveThreshold = cfg.Advisor.ActiveThreshold
	}
	if cfg.Advisor.StandbyThreshold > 0 {
		p.StandbyThreshold = cfg.Advisor.StandbyThreshold
	}
	if cfg.Advisor.MinRunLength > 0 {
		p.MinRunLength = cfg.Advisor.MinRunLength
	}
	if cfg.Advisor.PeakEndHour > cfg.Advisor.PeakStartHour {
		p.PeakStartHour = cfg.Advisor.PeakStartHour
		p.PeakEndHour = cfg.Advisor.PeakEndHour
	}
	if cfg.Advisor.PeakShare > 0 {
		p.PeakShare = cfg.Advisor.PeakShare
	}
	return advisor.New(p, advisor.DefaultRules())
}

// ProvideAnomalyNotifier creates the queue-backed anomaly notifier. Nil
// when notifications are disabled; the processor treats nil as no-op.
func ProvideAnomalyNotifier(cfg *config.Config, l *applogger.Logger) usecase.AnomalyNotifier {
	if !cfg.Notify.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	q := queue.NewRedisPublisher(l, client)

	// Aggregate repeated error logs onto the same queue
	l.AddCollector(&applogger.CollectionConfig{
		TimeInterval:   30 * time.Second,
		CountThreshold: 100,
		Topic:          "logs.aggregated",
		Publisher:      q,
	})

	return notify.NewQueueNotifier(q)
}

// ProvideNotifyConsumer creates the queue consumer that delivers anomaly
// webhooks. Nil when notifications are disabled.
func ProvideNotifyConsumer(cfg *config.Config, l *applogger.Logger) *queue.RedisQueue {
	if !cfg.Notify.Enabled {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})
	job := notify.NewWebhookJob(cfg.Notify.WebhookURL, cfg.Notify.Timeout, l)
	return queue.NewRedisConsumer(l, &queue.QueueConfig{
		Workers:    2,
		RetryLimit: 3,
		RetryDelay: 30 * time.Second,
	}, client, []queue.Job{job})
}

// ProvideReadingProcessor creates the reading processor use case.
func ProvideReadingProcessor(
	validator domsvc.ReadingValidator,
	deriver domsvc.Deriver,
	pub repository.Publisher,
	store repository.ReadingStore,
	notifier usecase.AnomalyNotifier,
	metrics repository.Metrics,
	cfg *config.Config,
) *usecase.ReadingProcessor {
	return usecase.NewReadingProcessor(
		validator,
		deriver,
		pub,
		store,
		notifier,
		metrics,
		cfg.Backend.Type,
		cfg.Backend.BatchSize,
		cfg.Backend.BatchTimeout,
	)
}

// ProvideMeterCollector creates the meter collector use case.
func ProvideMeterCollector(
    stream repository.MeterStream,
    processor *usecase.ReadingProcessor,
    metrics repository.Metrics,
) *usecase.MeterCollector {
    // Build middleware pipeline between WebSocket and the backend
    pipe := mid.NewIngestPipeline(processor, metrics,
        mid.WithMaxRPS(50),
        mid.WithBufferSize(2000),
    )
    return usecase.NewMeterCollector(stream, processor, metrics, pipe)
}

// ProvideUsageAggregator creates the usage aggregator.
func ProvideUsageAggregator(store repository.ReadingStore) *usecase.UsageAggregator {
	return usecase.NewUsageAggregator(store)
}

// ProvideBillingCalculator creates the billing calculator.
func ProvideBillingCalculator(store repository.ReadingStore, agg *usecase.UsageAggregator, cfg *config.Config) *usecase.BillingCalculator {
	return usecase.NewBillingCalculator(store, agg, cfg.Tariff.GraceDays)
}

// ProvideAdvisorUseCase creates the advisor report use case.
func ProvideAdvisorUseCase(store repository.ReadingStore, adv domsvc.Advisor) *usecase.AdvisorUseCase {
	return usecase.NewAdvisorUseCase(store, adv)
}

// ProvideResponseCache creates the HTTP response cache. An unreachable
// Redis degrades to the in-process TTL cache instead of failing startup.
func ProvideResponseCache(cfg *config.Config, l *applogger.Logger) icache.BytesCache {
	if cfg.Cache.Redis.Enabled {
		c, err := icache.NewRedisCache(icache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		if err != nil {
			l.Warn("redis response cache unavailable", applogger.Error(err))
			return icache.NewTTLCache()
		}
		return c
	}
	return icache.NewTTLCache()
}

// ProvideHTTPHandler creates the Echo HTTP handler with all routes.
func ProvideHTTPHandler(
	l *applogger.Logger,
	proc *usecase.ReadingProcessor,
	agg *usecase.UsageAggregator,
	billing *usecase.BillingCalculator,
	advisorUC *usecase.AdvisorUseCase,
	store repository.ReadingStore,
	cache icache.BytesCache,
	cfg *config.Config,
) xhttp.Handler {
	h := api.NewMeterEchoHandler(l, proc, agg, billing, advisorUC, store, cfg.Ingest.APIKey, api.CacheTTLs{
		Latest:    cfg.Cache.TTL.Latest,
		Analytics: cfg.Cache.TTL.Analytics,
		Billing:   cfg.Cache.TTL.Billing,
	})
	h.SetCache(cache)
	return h
}

// ProvideApp creates the application server.
func ProvideApp(
    cfg *config.Config,
    l *applogger.Logger,
    collector *usecase.MeterCollector,
    consumer *pkgkafka.Consumer,
    kh *usecase.KafkaReadingsHandler,
    chClient *pkgch.Client,
    notifyQ *queue.RedisQueue,
    handler xhttp.Handler,
    proc *usecase.ReadingProcessor,
) *server.App {
    if consumer != nil {
        consumer.WithConsumerHook(pkgkafka.NoopHook{})
    }
    app := server.New(cfg, l, collector, consumer, kh, chClient, notifyQ)
    app.SetHTTPHandler(handler)
    app.Proc = proc
    return app
}
