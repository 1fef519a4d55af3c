package config

import "time"

const (
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "bankops"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisAddr = "localhost:6379"
	DefaultRedisDB   = 0

	DefaultStoreBackend = BackendMongo
	DefaultLeaseBackend = BackendMongo

	DefaultPort = "8080"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultDeviceLeaseTTL     = 2 * time.Minute
	DefaultAccountLeaseTTL    = 2 * time.Minute
	DefaultSessionIdleTimeout = 3 * time.Minute
	DefaultSweepInterval      = 15 * time.Second
	DefaultPinRetryBudget     = 3

	DefaultAMLReviewThresholdMinor = 2_000_000 // 20000.00
	DefaultAMLScreeningTimeout     = 3 * time.Second
	DefaultATMDenominationMinor    = 1_000 // 10.00

	DefaultKafkaEnabled     = false
	DefaultKafkaLedgerTopic = "ledger.transactions"

	DefaultPaginationLimit = 100
)
