package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"boatbet/database"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// HTTP server
	HTTPAddr   string
	CronSecret string

	// Session cart store
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CartTTL       time.Duration

	// Event forwarding, disabled when NATSURL is empty
	NATSURL           string
	NATSSubjectPrefix string

	// Race feed
	FeedBaseURL string
	FeedTimeout time.Duration

	// Scheduled jobs (cron expressions with seconds)
	ScheduleSyncCron      string
	SettlementCron        string
	SettlementConcurrency int

	// Ledger
	StartingPoints int64

	// Users allowed to submit results and trigger race settlement
	AdminUserIDs []string

	// Logging
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// GetDatabaseURL returns the database URL with the database name applied
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// IsAdmin reports whether the user may run admin operations
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// load loads configuration from environment variables
func load() (*Config, error) {
	// A missing .env file is fine; real deployments use the environment
	_ = godotenv.Load()

	config := &Config{
		// Database
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		// HTTP
		HTTPAddr:   getEnvWithDefault("HTTP_ADDR", ":8080"),
		CronSecret: os.Getenv("CRON_SECRET"),

		// Redis
		RedisAddr:     getEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		CartTTL:       24 * time.Hour,

		// NATS
		NATSURL:           os.Getenv("NATS_URL"),
		NATSSubjectPrefix: getEnvWithDefault("NATS_SUBJECT_PREFIX", "boatbet"),

		// Feed
		FeedBaseURL: getEnvWithDefault("FEED_BASE_URL", "https://boatraceopenapi.github.io"),
		FeedTimeout: 15 * time.Second,

		// Jobs
		ScheduleSyncCron:      getEnvWithDefault("SCHEDULE_SYNC_CRON", "0 0 6 * * *"),
		SettlementCron:        getEnvWithDefault("SETTLEMENT_CRON", "0 */5 * * * *"),
		SettlementConcurrency: 4,

		// Ledger defaults
		StartingPoints: 1000,

		// Logging
		LogLevel:      getEnvWithDefault("LOG_LEVEL", "info"),
		LogFile:       os.Getenv("LOG_FILE"),
		LogMaxSizeMB:  100,
		LogMaxBackups: 5,
		LogMaxAgeDays: 30,

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if points := os.Getenv("STARTING_POINTS"); points != "" {
		if parsed, err := strconv.ParseInt(points, 10, 64); err == nil {
			config.StartingPoints = parsed
		}
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if parsed, err := strconv.Atoi(db); err == nil {
			config.RedisDB = parsed
		}
	}
	if ttl := os.Getenv("CART_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			config.CartTTL = parsed
		}
	}
	if timeout := os.Getenv("FEED_TIMEOUT"); timeout != "" {
		if parsed, err := time.ParseDuration(timeout); err == nil {
			config.FeedTimeout = parsed
		}
	}
	if concurrency := os.Getenv("SETTLEMENT_CONCURRENCY"); concurrency != "" {
		if parsed, err := strconv.Atoi(concurrency); err == nil && parsed > 0 {
			config.SettlementConcurrency = parsed
		}
	}
	config.LogMaxSizeMB = getIntWithDefault("LOG_MAX_SIZE_MB", config.LogMaxSizeMB)
	config.LogMaxBackups = getIntWithDefault("LOG_MAX_BACKUPS", config.LogMaxBackups)
	config.LogMaxAgeDays = getIntWithDefault("LOG_MAX_AGE_DAYS", config.LogMaxAgeDays)

	// Parse admin user IDs
	if adminIDs := os.Getenv("ADMIN_USER_IDS"); adminIDs != "" {
		for _, id := range strings.Split(adminIDs, ",") {
			id = strings.TrimSpace(id)
			if id != "" {
				config.AdminUserIDs = append(config.AdminUserIDs, id)
			}
		}
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// SetTestConfig sets a test configuration instance
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig returns a config with test defaults
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		HTTPAddr:              ":0",
		CronSecret:            "test-cron-secret",
		CartTTL:               time.Hour,
		NATSSubjectPrefix:     "boatbet",
		FeedTimeout:           time.Second,
		SettlementConcurrency: 2,
		StartingPoints:        1000,
		AdminUserIDs:          []string{"admin-1"},
		LogLevel:              "debug",
	}
}
