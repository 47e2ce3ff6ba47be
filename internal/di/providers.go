package di

import (
	"context"
	"fmt"
	"time"

	"AstroAI/internal/astro"
	"AstroAI/internal/domain/repository"
	"AstroAI/internal/handler/api"
	"AstroAI/internal/handler/ws"
	internalrepo "AstroAI/internal/repository"
	apimetrics "AstroAI/internal/service/metrics"
	"AstroAI/internal/service/ratelimit"
	"AstroAI/internal/services/interpretation"
	"AstroAI/internal/services/retrieval"
	"AstroAI/internal/usecase"
	"AstroAI/pkg/cache"
	pkgch "AstroAI/pkg/clickhouse"
	"AstroAI/pkg/config"
	xhttp "AstroAI/pkg/http"
	pkgkafka "AstroAI/pkg/kafka"
	applogger "AstroAI/pkg/logger"
	"AstroAI/pkg/metrics"
	"AstroAI/pkg/server"

	"github.com/dgraph-io/badger/v4"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&cfg.Log.Config)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder and registers the API vectors.
func ProvideMetrics() repository.Metrics {
	apimetrics.Register()
	return metrics.New()
}

// ProvideEngine opens the ephemeris files and builds the chart engine.
func ProvideEngine(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *astro.Engine {
	return astro.Open(astro.Config{
		EphemerisPath:      cfg.Ephemeris.Path,
		DefaultHouseSystem: cfg.Ephemeris.DefaultHouseSystem,
		Nutation:           cfg.Ephemeris.Nutation,
	}, l.With(applogger.String("component", "astro")), m)
}

// ProvideCache creates the chart cache selected by cache.type.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	switch cfg.Cache.Type {
	case "none":
		return cache.NoopCache{}, nil
	case "memory", "":
		return cache.NewMemoryCache(
			cache.WithMemoryMaxSize(cfg.Cache.MaxSize),
			cache.WithMemoryDefaultTTL(cfg.Cache.TTL),
		), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rc, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Cache.Redis.Addr),
		cache.WithRedisAuth(cfg.Cache.Redis.Password, cfg.Cache.Redis.DB),
		cache.WithRedisPoolSize(cfg.Cache.Redis.PoolSize),
		cache.WithRedisPrefix(cfg.Cache.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	if cfg.Cache.Type == "layered" {
		return cache.NewLayeredCache(rc, cfg.Cache.MaxSize), nil
	}
	return rc, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithProducerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	// child loggers share the collector only if it is attached before they are derived
	if cfg.Log.Collector.Enabled {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.Collector.Interval,
			CountThreshold: cfg.Log.Collector.Threshold,
			Topic:          cfg.Log.Collector.Topic,
			Publisher:      producer,
		})
	}
	return producer, nil
}

// ProvideChartPublisher publishes chart events when a producer exists.
func ProvideChartPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ChartPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaChartPublisher(producer, cfg.Kafka.ChartTopic)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithCreateDatabase(true),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideChartStore creates the ClickHouse chart archive and ensures its tables.
func ProvideChartStore(client *pkgch.Client) (repository.ChartStore, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseChartStore(client.DB())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideBadger opens the retrieval index database.
func ProvideBadger(cfg *config.Config, l *applogger.Logger) (*badger.DB, error) {
	return internalrepo.OpenBadger(cfg.Retrieval.IndexPath, l.With(applogger.String("component", "badger")))
}

func ProvideChunkStore(db *badger.DB) repository.ChunkStore {
	return internalrepo.NewBadgerChunkStore(db)
}

func ProvideRetriever(store repository.ChunkStore, cfg *config.Config, l *applogger.Logger) *retrieval.Retriever {
	return retrieval.NewRetriever(store, cfg.Retrieval.CorpusDir,
		retrieval.WithIndexConfig(retrieval.IndexConfig{
			ChunkSize:    cfg.Retrieval.ChunkSize,
			ChunkOverlap: cfg.Retrieval.ChunkOverlap,
			MinChars:     cfg.Retrieval.MinChars,
		}),
		retrieval.WithLogger(l.With(applogger.String("component", "retrieval"))),
	)
}

func ProvidePlacementFinder(cfg *config.Config) *retrieval.PlacementFinder {
	return retrieval.NewPlacementFinder(cfg.Retrieval.CorpusDir)
}

// ProvideInterpreter creates the LLM backed interpreter with its template fallback.
func ProvideInterpreter(cfg *config.Config, m repository.Metrics, l *applogger.Logger) *interpretation.Service {
	llm := interpretation.NewOpenAIClient(interpretation.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxPassages: cfg.LLM.MaxPassages,
		Timeout:     cfg.LLM.Timeout,
		Retries:     cfg.LLM.Retries,
	})
	return interpretation.NewService(llm,
		interpretation.WithMetrics(m),
		interpretation.WithLogger(l.With(applogger.String("component", "interpretation"))),
	)
}

// ProvideChartService creates the chart use case.
func ProvideChartService(
	engine *astro.Engine,
	c cache.Service,
	store repository.ChartStore,
	pub repository.ChartPublisher,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ChartService {
	return usecase.NewChartService(engine,
		usecase.WithChartCache(c, cfg.Cache.TTL),
		usecase.WithChartArchive(store, pub),
		usecase.WithChartMetrics(m),
		usecase.WithChartLogger(l.With(applogger.String("component", "charts"))),
		usecase.WithDefaultHouseSystem(cfg.Ephemeris.DefaultHouseSystem),
		usecase.WithDefaultTZOffset(cfg.Ephemeris.DefaultTZOffset),
	)
}

// ProvideInterpretService creates the interpretation use case.
func ProvideInterpretService(
	charts *usecase.ChartService,
	retriever *retrieval.Retriever,
	placements *retrieval.PlacementFinder,
	interp *interpretation.Service,
	c cache.Service,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.InterpretService {
	return usecase.NewInterpretService(charts, retriever, placements, interp,
		usecase.WithTopK(cfg.Retrieval.TopK),
		usecase.WithRetrievalCache(c, cfg.Cache.TTL),
		usecase.WithInterpretLogger(l.With(applogger.String("component", "interpret"))),
	)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(float64(cfg.RateLimit.InterpretCapacity), cfg.RateLimit.InterpretRefill, ratelimit.WithMaxKeys(10000))
}

// ProvideHTTPHandler registers the REST API and the chart websocket.
func ProvideHTTPHandler(
	l *applogger.Logger,
	charts *usecase.ChartService,
	interp *usecase.InterpretService,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
) xhttp.Handler {
	return xhttp.Handlers{
		api.NewChartEchoHandler(l, charts, interp, limiter),
		ws.NewChartStream(l, charts, ws.WithAllowedOrigins(cfg.Server.CORSOrigins)),
	}
}

// ProvideKafkaConsumer creates the chart request consumer, or nil when it is disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || !cfg.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerLogger(l.With(applogger.String("component", "consumer"))),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TraceHook(), pkgkafka.LoggingHook(l)))
	return consumer, nil
}

// ProvideChartRequestsHandler handles batch chart requests from Kafka.
func ProvideChartRequestsHandler(
	cfg *config.Config,
	charts *usecase.ChartService,
	m repository.Metrics,
	l *applogger.Logger,
) *usecase.KafkaChartRequestsHandler {
	return usecase.NewKafkaChartRequestsHandler(cfg.Kafka.RequestTopic, charts, m, l)
}

// ProvideApp creates the application server and hands it every resource it must close.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaChartRequestsHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
	chunks repository.ChunkStore,
	c cache.Service,
) *server.App {
	app := server.New(cfg, l, handler, producer)
	if consumer != nil {
		app.SetConsumer(consumer, kh)
	}
	app.AddCloser("cache", c)
	app.AddCloser("retrieval index", chunks)
	if chClient != nil {
		app.AddCloser("clickhouse", chClient)
	}
	return app
}
