package main

import (
	"time"

	"bankops/internal/collaborators/credentials"
	"bankops/internal/collaborators/devices"
	"bankops/internal/collaborators/screening"
	leaserepo "bankops/internal/leases/repository"
	leases "bankops/internal/leases/service"
	ledgerrepo "bankops/internal/ledger/repository"
	ledger "bankops/internal/ledger/service"
	orchestratorhandler "bankops/internal/orchestrator/handler"
	"bankops/internal/orchestrator/repository"
	orchestrator "bankops/internal/orchestrator/service"
	"bankops/internal/orchestrator/validator"
	"bankops/internal/orchestrator/worker"
	reviewhandler "bankops/internal/review/handler"
	review "bankops/internal/review/service"
	"bankops/pkg/app"
	"bankops/pkg/auth"
	"bankops/pkg/config"
	"bankops/pkg/kafka"
	kafka_config "bankops/pkg/kafka/config"
	kafka_middleware "bankops/pkg/kafka/middleware"
	"bankops/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const (
	ServiceName    = "orchestrator"
	reasonCacheTTL = 10 * time.Minute
)

func main() {
	cfg := config.Load(ServiceName)
	connect(cfg)
	defer cfg.GracefulShutdown()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewPrometheusCollector("bankops")
	if err := collector.Register(registry); err != nil {
		cfg.Log.Fatal("Failed to register metrics", "error", err)
	}

	producer := initProducer(cfg, collector)
	if producer != nil {
		defer func() {
			if err := producer.Close(); err != nil {
				cfg.Log.Error("Failed to close Kafka producer", "error", err)
			}
		}()
	}

	ledgerService := initLedger(cfg, producer, collector)
	orchestratorService := initOrchestrator(cfg, ledgerService, collector)
	reviewService := review.NewReviewService(ledgerService, initReasonCache(cfg), cfg.Log)

	requestValidator := validator.NewRequestValidator(cfg.Log)
	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(auth.NewAuthenticator(cfg.JWTSecret), registry,
		orchestratorhandler.NewSessionHandler(orchestratorService, requestValidator, collector, cfg.Log),
		reviewhandler.NewReviewHandler(reviewService, requestValidator, collector, cfg.Log),
	)
	serverApp.AddWorker(worker.NewSweeper(orchestratorService, cfg.SweepInterval, cfg.Log))

	cfg.Log.Info("Starting orchestrator service")
	serverApp.Run()
}

func connect(cfg *config.Config) {
	if cfg.UsesMongo() {
		cfg.SetMongo()
	}
	if cfg.LeaseBackend == config.BackendRedis {
		cfg.SetRedis()
	}
	if cfg.PostgresDSN != "" {
		cfg.SetPostgres()
	}
}

func initProducer(cfg *config.Config, collector metrics.Collector) *kafka.Producer {
	if !cfg.KafkaEnabled {
		cfg.Log.Info("Kafka disabled, ledger events are not published")
		return nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaLedgerTopic, cfg.KafkaLedgerDLQ, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.MetricsProducerMiddleware(collector))
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	return producer
}

func initLedger(cfg *config.Config, producer *kafka.Producer, collector metrics.Collector) ledger.LedgerService {
	var repo ledgerrepo.LedgerRepository
	if cfg.StoreBackend == config.BackendMongo {
		repo = ledgerrepo.NewMongoLedgerRepository(cfg)
	} else {
		repo = ledgerrepo.NewMemoryLedgerRepository()
	}

	var events ledger.EventPublisher = ledger.NopEventPublisher{}
	if producer != nil {
		events = ledger.NewKafkaEventPublisher(producer)
	}

	cfg.Log.Info("Ledger initialized", "backend", cfg.StoreBackend, "events", producer != nil)
	return ledger.NewLedgerService(repo, events, collector, cfg.Log)
}

func initOrchestrator(cfg *config.Config, ledgerService ledger.LedgerService, collector metrics.Collector) orchestrator.OrchestratorService {
	var sessions repository.SessionRepository
	if cfg.StoreBackend == config.BackendMongo {
		sessions = repository.NewMongoSessionRepository(cfg)
	} else {
		sessions = repository.NewMemorySessionRepository()
	}

	var leaseStore leaserepo.LeaseStore
	switch cfg.LeaseBackend {
	case config.BackendMongo:
		leaseStore = leaserepo.NewMongoLeaseStore(cfg)
	case config.BackendRedis:
		leaseStore = leaserepo.NewRedisLeaseStore(cfg.Client.Redis)
	default:
		leaseStore = leaserepo.NewMemoryLeaseStore()
	}

	var cardStore credentials.Store
	var deviceRegistry devices.Registry
	if cfg.Client.Postgres != nil {
		cardStore = credentials.NewPostgresStore(cfg.Client.Postgres)
		deviceRegistry = devices.NewPostgresRegistry(cfg.Client.Postgres)
	} else {
		cfg.Log.Warn("POSTGRES_DSN not set, cards and devices are kept in memory")
		cardStore = credentials.NewMemoryStore()
		deviceRegistry = devices.NewMemoryRegistry()
	}

	svc := orchestrator.NewOrchestratorService(orchestrator.Dependencies{
		Sessions:    sessions,
		Leases:      leases.NewLeaseManager(leaseStore, collector, cfg.Log),
		Ledger:      ledgerService,
		Credentials: cardStore,
		Devices:     deviceRegistry,
		Screener:    initScreener(cfg),
		Collector:   collector,
		Log:         cfg.Log,
	}, orchestrator.Settings{
		DeviceLeaseTTL:     cfg.DeviceLeaseTTL,
		AccountLeaseTTL:    cfg.AccountLeaseTTL,
		SessionIdleTimeout: cfg.SessionIdleTimeout,
		PinRetryBudget:     cfg.PinRetryBudget,
		ATMDenomination:    cfg.ATMDenomination,
	})

	cfg.Log.Info("Orchestrator initialized",
		"store_backend", cfg.StoreBackend,
		"lease_backend", cfg.LeaseBackend,
		"postgres", cfg.Client.Postgres != nil,
	)
	return svc
}

// initScreener always applies the amount threshold and consults the remote
// evaluator when one is configured.
func initScreener(cfg *config.Config) screening.Screener {
	chain := screening.Chain{screening.NewThreshold(cfg.AMLReviewThreshold)}
	if cfg.AMLScreeningURL == "" {
		return chain
	}

	remote, err := screening.NewRemote(screening.RemoteConfig{
		BaseURL: cfg.AMLScreeningURL,
		Timeout: cfg.AMLScreeningTimeout,
	}, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Invalid AML screening configuration", "error", err)
	}
	return append(chain, remote)
}

func initReasonCache(cfg *config.Config) review.ReasonCache {
	if cfg.Client.Redis != nil {
		return review.NewRedisReasonCache(cfg.Client.Redis, reasonCacheTTL)
	}
	return review.NewMemoryReasonCache()
}
