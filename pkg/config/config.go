package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"bankops/pkg/client"
	"bankops/pkg/logger"
	"bankops/pkg/model"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	StoreBackend string
	LeaseBackend string

	Port string

	JWTSecret string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	DeviceLeaseTTL     time.Duration
	AccountLeaseTTL    time.Duration
	SessionIdleTimeout time.Duration
	SweepInterval      time.Duration
	PinRetryBudget     int

	AMLReviewThreshold  model.Amount
	AMLScreeningURL     string
	AMLScreeningTimeout time.Duration
	ATMDenomination     model.Amount

	KafkaEnabled     bool
	KafkaLedgerTopic string
	KafkaLedgerDLQ   string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	envFileErr := loadEnvFile()

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		PostgresDSN: getEnvStr(EnvPostgresDSN, ""),

		RedisAddr:     getEnvStr(EnvRedisAddr, DefaultRedisAddr),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		StoreBackend: getEnvStr(EnvStoreBackend, DefaultStoreBackend),
		LeaseBackend: getEnvStr(EnvLeaseBackend, DefaultLeaseBackend),

		Port: getEnvStr(EnvPort, DefaultPort),

		JWTSecret: getEnvStr(EnvJWTSecret, ""),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		DeviceLeaseTTL:     getEnvDuration(EnvDeviceLeaseTTL, DefaultDeviceLeaseTTL),
		AccountLeaseTTL:    getEnvDuration(EnvAccountLeaseTTL, DefaultAccountLeaseTTL),
		SessionIdleTimeout: getEnvDuration(EnvSessionIdleTimeout, DefaultSessionIdleTimeout),
		SweepInterval:      getEnvDuration(EnvSweepInterval, DefaultSweepInterval),
		PinRetryBudget:     getEnvNum(EnvPinRetryBudget, DefaultPinRetryBudget),

		AMLReviewThreshold:  model.Amount(getEnvInt64(EnvAMLReviewThresholdMinor, DefaultAMLReviewThresholdMinor)),
		AMLScreeningURL:     getEnvStr(EnvAMLScreeningURL, ""),
		AMLScreeningTimeout: getEnvDuration(EnvAMLScreeningTimeout, DefaultAMLScreeningTimeout),
		ATMDenomination:     model.Amount(getEnvInt64(EnvATMDenominationMinor, DefaultATMDenominationMinor)),

		KafkaEnabled:     getEnvBool(EnvKafkaEnabled, DefaultKafkaEnabled),
		KafkaLedgerTopic: getEnvStr(EnvKafkaLedgerTopic, DefaultKafkaLedgerTopic),
		KafkaLedgerDLQ:   getEnvStr(EnvKafkaLedgerDLQ, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, logger.INFO),
			Format:    logger.JSON,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envFileErr != nil {
		cfg.Log.Warn("No .env file loaded, using process environment", "error", envFileErr)
	}

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func loadEnvFile() error {
	path := getEnvStr(EnvEnvFile, ".env")
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return godotenv.Load(path)
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

func (cfg *Config) SetRedis() {
	cfg.Client.SetRedis(cfg.Log, client.RedisOptions{
		Addr:        cfg.RedisAddr,
		Password:    cfg.RedisPassword,
		DB:          cfg.RedisDB,
		PoolSize:    20,
		DialTimeout: cfg.MongoConnTimeout,
	})
}

func (cfg *Config) SetPostgres() {
	cfg.Client.SetPostgres(cfg.Log, cfg.PostgresDSN, cfg.MongoConnTimeout)
}

// UsesMongo reports whether any configured backend needs the Mongo client.
func (cfg *Config) UsesMongo() bool {
	return cfg.StoreBackend == BackendMongo || cfg.LeaseBackend == BackendMongo
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	switch cfg.StoreBackend {
	case BackendMongo, BackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("StoreBackend must be one of [mongo, memory], got: %s", cfg.StoreBackend))
	}
	switch cfg.LeaseBackend {
	case BackendMongo, BackendRedis, BackendMemory:
	default:
		errors = append(errors, fmt.Sprintf("LeaseBackend must be one of [mongo, redis, memory], got: %s", cfg.LeaseBackend))
	}

	if cfg.UsesMongo() {
		if cfg.MongoURI == "" {
			errors = append(errors, "MongoURI cannot be empty")
		} else if !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
			errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
		}
		if cfg.MongoDatabaseName == "" {
			errors = append(errors, "MongoDatabaseName cannot be empty")
		}
	}
	if cfg.LeaseBackend == BackendRedis && cfg.RedisAddr == "" {
		errors = append(errors, "RedisAddr cannot be empty when LeaseBackend is redis")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	if len(cfg.JWTSecret) < 16 {
		errors = append(errors, "JWTSecret must be at least 16 characters")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"DeviceLeaseTTL", cfg.DeviceLeaseTTL},
		{"AccountLeaseTTL", cfg.AccountLeaseTTL},
		{"SessionIdleTimeout", cfg.SessionIdleTimeout},
		{"SweepInterval", cfg.SweepInterval},
		{"AMLScreeningTimeout", cfg.AMLScreeningTimeout},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.PinRetryBudget <= 0 {
		errors = append(errors, fmt.Sprintf("PinRetryBudget must be positive, got: %d", cfg.PinRetryBudget))
	}
	if !cfg.AMLReviewThreshold.IsPositive() {
		errors = append(errors, fmt.Sprintf("AMLReviewThreshold must be positive, got: %d", cfg.AMLReviewThreshold))
	}
	if !cfg.ATMDenomination.IsPositive() {
		errors = append(errors, fmt.Sprintf("ATMDenomination must be positive, got: %d", cfg.ATMDenomination))
	}
	if cfg.SessionIdleTimeout > 0 && cfg.SessionIdleTimeout < cfg.SweepInterval {
		errors = append(errors, fmt.Sprintf("SessionIdleTimeout (%s) must be >= SweepInterval (%s)", cfg.SessionIdleTimeout, cfg.SweepInterval))
	}
	if cfg.KafkaEnabled && cfg.KafkaLedgerTopic == "" {
		errors = append(errors, "KafkaLedgerTopic cannot be empty when Kafka is enabled")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"postgres_configured", cfg.PostgresDSN != "",
		"redis_addr", cfg.RedisAddr,
		"redis_db", cfg.RedisDB,
		"store_backend", cfg.StoreBackend,
		"lease_backend", cfg.LeaseBackend,
		"port", cfg.Port,
		"jwt_secret_set", cfg.JWTSecret != "",
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"device_lease_ttl", cfg.DeviceLeaseTTL,
		"account_lease_ttl", cfg.AccountLeaseTTL,
		"session_idle_timeout", cfg.SessionIdleTimeout,
		"sweep_interval", cfg.SweepInterval,
		"pin_retry_budget", cfg.PinRetryBudget,
		"aml_review_threshold", cfg.AMLReviewThreshold.String(),
		"aml_screening_url", cfg.AMLScreeningURL,
		"atm_denomination", cfg.ATMDenomination.String(),
		"kafka_enabled", cfg.KafkaEnabled,
		"kafka_ledger_topic", cfg.KafkaLedgerTopic,
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		limit = 10
	} else if limit > DefaultPaginationLimit {
		limit = DefaultPaginationLimit
	}
	return limit
}

func NormalizeOffset(offset int64) int64 {
	return max(0, offset)
}
