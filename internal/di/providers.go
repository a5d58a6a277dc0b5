package di

import (
	"context"
	"fmt"
	"io"
	"time"

	domrepo "RiskPulse/internal/domain/repository"
	"RiskPulse/internal/domain/service"
	"RiskPulse/internal/handler/api"
	"RiskPulse/internal/realtime"
	internalrepo "RiskPulse/internal/repository"
	"RiskPulse/internal/scheduler"
	"RiskPulse/internal/service/feargreed"
	"RiskPulse/internal/service/ratelimit"
	"RiskPulse/internal/services/sentiment"
	"RiskPulse/internal/usecase"
	"RiskPulse/pkg/cache"
	pkgch "RiskPulse/pkg/clickhouse"
	"RiskPulse/pkg/config"
	"RiskPulse/pkg/errtrack"
	xhttp "RiskPulse/pkg/http"
	pkgkafka "RiskPulse/pkg/kafka"
	applogger "RiskPulse/pkg/logger"
	"RiskPulse/pkg/metrics"
	"RiskPulse/pkg/postgres"
	"RiskPulse/pkg/server"

	"github.com/segmentio/kafka-go"
)

// ProvideLogger creates the application logger. With the collector enabled,
// repeated entries are aggregated and shipped to the logs topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Output:  "stdout",
		Service: "riskpulse",
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.FlushInterval,
			CountThreshold: cfg.Logging.Collector.BatchSize,
			Topic:          cfg.Kafka.Topics.Logs,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideTracker creates the Sentry tracker; without a DSN it is a no-op.
func ProvideTracker(cfg *config.Config) (errtrack.Tracker, error) {
	env := cfg.Sentry.Environment
	if env == "" {
		env = cfg.Environment
	}
	return errtrack.New(errtrack.Config{
		DSN:              cfg.Sentry.DSN,
		Environment:      env,
		Release:          cfg.Sentry.Release,
		Debug:            cfg.Sentry.Debug,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and applies the schema.
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
	if !cfg.ClickHouse.InitSchema {
		return client, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.Schema(cfg.ClickHouse.Database)); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
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

// ProvideRedis connects to Redis, or returns nil when it is disabled.
func ProvideRedis(cfg *config.Config) (*cache.RedisCache, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.PoolTimeout),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return rc, nil
}

// ProvideCache layers memory over Redis when Redis is available. A single
// instance without Redis falls back to the in-process cache.
func ProvideCache(rc *cache.RedisCache) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(10000))
	}
	return cache.NewLayeredCache(rc, cache.WithLayeredMemoryTTL(30*time.Second))
}

// ProvidePostgres connects only when the lexicon lives in Postgres.
func ProvidePostgres(cfg *config.Config) (*postgres.Client, error) {
	if cfg.Sentiment.Lexicon.Source != "postgres" {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return postgres.NewClient(ctx, postgres.Config{
		DSN:             cfg.PostgresDSN(),
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
}

// ProvideMarketData creates the ClickHouse feed repository.
func ProvideMarketData(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHMarketData {
	return internalrepo.NewCHMarketData(ch, cfg.ClickHouse.Database, l)
}

// ProvideSnapshots creates the ClickHouse snapshot and alert repository.
func ProvideSnapshots(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) *internalrepo.CHSnapshots {
	return internalrepo.NewCHSnapshots(ch, cfg.ClickHouse.Database, l)
}

func ProvideHub(l *applogger.Logger) *realtime.Hub {
	return realtime.NewHub(l)
}

// ProvideAlertSink fans alerts out to Kafka, ClickHouse and websocket clients.
func ProvideAlertSink(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	snaps *internalrepo.CHSnapshots,
	hub *realtime.Hub,
	l *applogger.Logger,
) domrepo.AlertSink {
	sinks := []internalrepo.NamedSink{
		{Name: "clickhouse", Sink: snaps},
		{Name: "websocket", Sink: hub},
	}
	if producer != nil {
		sinks = append(sinks, internalrepo.NamedSink{
			Name: "kafka",
			Sink: internalrepo.NewKafkaAlertPublisher(producer, cfg.Kafka.Topics.Alerts),
		})
	}
	return internalrepo.NewMultiAlertSink(l, sinks...)
}

func ProvideAlertEmitter(c cache.Service, sink domrepo.AlertSink, m *metrics.Recorder, l *applogger.Logger) *usecase.AlertEmitter {
	return usecase.NewAlertEmitter(internalrepo.NewCacheDedup(c), sink, m, l)
}

// ProvideLexiconSource picks where the keyword lexicon is loaded from.
func ProvideLexiconSource(cfg *config.Config, pg *postgres.Client) (domrepo.LexiconSource, error) {
	switch cfg.Sentiment.Lexicon.Source {
	case "file":
		return internalrepo.FileLexicon{Path: cfg.Sentiment.Lexicon.Path}, nil
	case "postgres":
		if pg == nil {
			return nil, fmt.Errorf("lexicon source postgres: no connection")
		}
		return internalrepo.NewPGLexicon(pg.DB()), nil
	default:
		return internalrepo.BuiltinLexicon{}, nil
	}
}

// ProvideLexiconHolder starts from the builtin table; the first sentiment
// cycle swaps in the configured source.
func ProvideLexiconHolder() *sentiment.LexiconHolder {
	return sentiment.NewLexiconHolder(sentiment.DefaultLexicon())
}

func ProvideScorer(cfg *config.Config) (*sentiment.Scorer, error) {
	m, err := sentiment.NewMatcher(cfg.Sentiment.Matcher)
	if err != nil {
		return nil, fmt.Errorf("sentiment matcher: %w", err)
	}
	return sentiment.NewScorer(m), nil
}

// ProvideFearGreed returns nil when the external index is disabled.
func ProvideFearGreed(cfg *config.Config) service.FearGreedSource {
	fg := cfg.Sentiment.FearGreed
	if !fg.Enabled {
		return nil
	}
	return feargreed.New(feargreed.Config{URL: fg.URL, Timeout: fg.Timeout, Attempts: fg.Attempts})
}

// ProvideRiskConfig maps the YAML risk section onto the assessor settings.
func ProvideRiskConfig(cfg *config.Config) usecase.RiskConfig {
	r := cfg.Risk
	return usecase.RiskConfig{
		VolatilityDays:    r.Windows.VolatilityDays,
		VaRDays:           r.Windows.VaRDays,
		LiquidityDays:     r.Windows.LiquidityDays,
		ConcentrationDays: r.Windows.ConcentrationDays,
		VaRMinDays:        r.VaRMinDays,
		Workers:           r.Workers,
		AssetScore:        r.Thresholds.AssetScore,
		AssetRatio:        r.Thresholds.AssetRatio,
		AssetTrailing:     r.Thresholds.AssetTrailing,
		PortfolioVaRRatio: r.Thresholds.PortfolioVaRRatio,
		MarketIndex:       r.Thresholds.MarketIndex,
		MarketRatio:       r.Thresholds.MarketRatio,
		MarketTrailing:    r.Thresholds.MarketTrailing,
	}
}

func ProvideRiskAssessor(data *internalrepo.CHMarketData, rc usecase.RiskConfig) *usecase.RiskAssessor {
	return usecase.NewRiskAssessor(data, rc)
}

func ProvideRiskCycle(
	cfg *config.Config,
	assessor *usecase.RiskAssessor,
	data *internalrepo.CHMarketData,
	snaps *internalrepo.CHSnapshots,
	alerts *usecase.AlertEmitter,
	m *metrics.Recorder,
	tracker errtrack.Tracker,
	l *applogger.Logger,
) *usecase.RiskCycle {
	base := scheduler.NewBaseJob(usecase.RiskJobName, cfg.Risk.Interval, cfg.Risk.MaxCycleDuration, cfg.Risk.Enabled)
	return usecase.NewRiskCycle(base, usecase.RiskCycleDeps{
		Assessor: assessor,
		Data:     data,
		Sink:     snaps,
		History:  snaps,
		Alerts:   alerts,
		Metrics:  m,
		Tracker:  tracker,
		Logger:   l,
	})
}

func ProvideSentimentCycle(
	cfg *config.Config,
	data *internalrepo.CHMarketData,
	lexicons domrepo.LexiconSource,
	holder *sentiment.LexiconHolder,
	scorer *sentiment.Scorer,
	snaps *internalrepo.CHSnapshots,
	alerts *usecase.AlertEmitter,
	fg service.FearGreedSource,
	m *metrics.Recorder,
	tracker errtrack.Tracker,
	l *applogger.Logger,
) *usecase.SentimentCycle {
	s := cfg.Sentiment
	base := scheduler.NewBaseJob(usecase.SentimentJobName, s.Interval, s.MaxCycleDuration, s.Enabled)
	return usecase.NewSentimentCycle(base, usecase.SentimentCycleDeps{
		Config: usecase.SentimentConfig{
			Window:        s.Window,
			ItemLimit:     s.ItemLimit,
			Workers:       s.Workers,
			AlertMinItems: s.AlertMinItems,
		},
		Texts:     data,
		Lexicons:  lexicons,
		Holder:    holder,
		Scorer:    scorer,
		Sink:      snaps,
		Alerts:    alerts,
		FearGreed: fg,
		Metrics:   m,
		Tracker:   tracker,
		Logger:    l,
	})
}

// ProvideScheduler registers both periodic jobs.
func ProvideScheduler(
	rc *usecase.RiskCycle,
	sc *usecase.SentimentCycle,
	m *metrics.Recorder,
	tracker errtrack.Tracker,
	l *applogger.Logger,
) *scheduler.Scheduler {
	s := scheduler.New(
		scheduler.WithLogger(l),
		scheduler.WithTracker(tracker),
		scheduler.WithRecorder(m),
	)
	s.Register(rc)
	s.Register(sc)
	return s
}

// ProvideKafkaConsumer creates the feed consumer with one handler per topic,
// or nil when Kafka is disabled.
func ProvideKafkaConsumer(
	cfg *config.Config,
	data *internalrepo.CHMarketData,
	m *metrics.Recorder,
	tracker errtrack.Tracker,
	l *applogger.Logger,
) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	kc := cfg.Kafka.Consumer
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(kc.GroupID),
		pkgkafka.WithConsumerWorkers(kc.Workers),
		pkgkafka.WithConsumerBufferSize(kc.BufferSize),
		pkgkafka.WithConsumerRetry(kc.RetryMax, kc.BackoffMin, kc.BackoffMax),
		pkgkafka.WithConsumerDLQ(kc.DLQTopic),
		pkgkafka.WithConsumerFetch(kc.MinBytes, kc.MaxBytes),
		pkgkafka.WithConsumerLogger(l),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}

	consumer.WithConsumerHook(pkgkafka.NewHookChain(
		pkgkafka.TracingHook(),
		pkgkafka.HookFuncs{
			Err: func(ctx context.Context, topic string, km kafka.Message, _ []byte, err error) {
				tracker.CaptureError(ctx, err, map[string]string{
					"topic":    topic,
					"trace_id": pkgkafka.TraceID(ctx),
					"offset":   fmt.Sprint(km.Offset),
				})
			},
		},
	))

	t := cfg.Kafka.Topics
	consumer.RegisterHandler(usecase.NewPriceHandler(t.Prices, data, m))
	consumer.RegisterHandler(usecase.NewTradeHandler(t.Trades, data, m))
	consumer.RegisterHandler(usecase.NewTextHandler(t.Texts, data, m))
	return consumer, nil
}

func ProvideRiskQuery(assessor *usecase.RiskAssessor, c cache.Service, cfg *config.Config, l *applogger.Logger) *usecase.RiskQuery {
	return usecase.NewRiskQuery(assessor, c, cfg.API.CacheTTL, l)
}

func ProvideSentimentQuery(
	data *internalrepo.CHMarketData,
	holder *sentiment.LexiconHolder,
	scorer *sentiment.Scorer,
	sc *usecase.SentimentCycle,
) *usecase.SentimentQuery {
	return usecase.NewSentimentQuery(data, holder, scorer, sc)
}

// ProvideHTTPHandler assembles every route group, health probes included.
func ProvideHTTPHandler(
	cfg *config.Config,
	rq *usecase.RiskQuery,
	sq *usecase.SentimentQuery,
	snaps *internalrepo.CHSnapshots,
	hub *realtime.Hub,
	sched *scheduler.Scheduler,
	ch *pkgch.Client,
	rc *cache.RedisCache,
	pg *postgres.Client,
	l *applogger.Logger,
) xhttp.Handler {
	var rl *ratelimit.Limiter
	if cfg.API.RateLimit.Enabled {
		rl = ratelimit.New(cfg.API.RateLimit.Capacity, cfg.API.RateLimit.RefillPerSec)
	}

	checks := []api.HealthCheck{{Name: "clickhouse", Check: ch.Health}}
	if rc != nil {
		checks = append(checks, api.HealthCheck{Name: "redis", Check: rc.Ping})
	}
	if pg != nil {
		checks = append(checks, api.HealthCheck{Name: "postgres", Check: pg.Health})
	}

	return xhttp.Handlers{
		api.NewHealthHandler(sched.Health, checks...),
		api.NewRiskHandler(rq, l),
		api.NewSentimentHandler(sq, rl, cfg.Sentiment.Window, l),
		api.NewAlertsHandler(snaps, hub, l),
	}
}

func ProvideHTTPServer(h xhttp.Handler, cfg *config.Config, l *applogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h, l,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	tracker errtrack.Tracker,
	httpServer *xhttp.Server,
	sched *scheduler.Scheduler,
	consumer *pkgkafka.Consumer,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	c cache.Service,
	pg *postgres.Client,
	hub *realtime.Hub,
) *server.App {
	comps := server.Components{
		Logger:     l,
		Tracker:    tracker,
		HTTP:       httpServer,
		Scheduler:  sched,
		Consumer:   consumer,
		Producer:   producer,
		ClickHouse: ch,
		Postgres:   pg,
		Hub:        hub,
	}
	if closer, ok := c.(io.Closer); ok {
		comps.Cache = closer
	}
	return server.New(cfg, comps)
}
