package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPostgresDSN = "POSTGRES_DSN"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvStoreBackend = "STORE_BACKEND"
	EnvLeaseBackend = "LEASE_BACKEND"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"
	EnvEnvFile  = "ENV_FILE"

	EnvJWTSecret = "JWT_SECRET"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvDeviceLeaseTTL     = "DEVICE_LEASE_TTL"
	EnvAccountLeaseTTL    = "ACCOUNT_LEASE_TTL"
	EnvSessionIdleTimeout = "SESSION_IDLE_TIMEOUT"
	EnvSweepInterval      = "SWEEP_INTERVAL"
	EnvPinRetryBudget     = "PIN_RETRY_BUDGET"

	EnvAMLReviewThresholdMinor = "AML_REVIEW_THRESHOLD_MINOR"
	EnvAMLScreeningURL         = "AML_SCREENING_URL"
	EnvAMLScreeningTimeout     = "AML_SCREENING_TIMEOUT"
	EnvATMDenominationMinor    = "ATM_DENOMINATION_MINOR"

	EnvKafkaEnabled     = "KAFKA_ENABLED"
	EnvKafkaLedgerTopic = "KAFKA_LEDGER_TOPIC"
	EnvKafkaLedgerDLQ   = "KAFKA_LEDGER_DLQ_TOPIC"
)
