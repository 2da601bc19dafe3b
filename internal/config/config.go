package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Log       LogConfig
	Price     PriceConfig
	Broker    BrokerConfig
	Security  SecurityConfig
	Scheduler SchedulerConfig
	API       APIConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Pretty bool
}

// PriceConfig configures the CoinGecko client and the price cache.
type PriceConfig struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// BrokerConfig configures outbound broker API clients.
type BrokerConfig struct {
	CoinbaseBaseURL  string
	RobinhoodBaseURL string
	Timeout          time.Duration
}

// SecurityConfig holds the fernet key used to encrypt stored broker credentials.
// An empty key disables stored connections.
type SecurityConfig struct {
	EncryptionKey string
}

// SchedulerConfig holds cron schedules for background jobs (seconds field included).
type SchedulerConfig struct {
	Enabled              bool
	PriceRefreshSchedule string
	AutoImportSchedule   string
}

// APIConfig holds request defaults.
type APIConfig struct {
	DefaultUserID string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	priceTimeout, err := getDuration("PRICE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := getDuration("PRICE_CACHE_TTL", 60*time.Second)
	if err != nil {
		return nil, err
	}
	brokerTimeout, err := getDuration("BROKER_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	pretty, err := getBool("LOG_PRETTY", false)
	if err != nil {
		return nil, err
	}
	schedulerEnabled, err := getBool("SCHEDULER_ENABLED", true)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8085"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/crypto_ledger.db"),
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ORIGINS",
				"http://localhost:3000,http://localhost:3001,http://127.0.0.1:3000,http://127.0.0.1:3001")),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: pretty,
		},
		Price: PriceConfig{
			BaseURL:  getEnv("COINGECKO_API_URL", "https://api.coingecko.com/api/v3"),
			APIKey:   getEnv("COINGECKO_API_KEY", ""),
			Timeout:  priceTimeout,
			CacheTTL: cacheTTL,
		},
		Broker: BrokerConfig{
			CoinbaseBaseURL:  getEnv("COINBASE_API_URL", "https://api.coinbase.com"),
			RobinhoodBaseURL: getEnv("ROBINHOOD_API_URL", "https://api.robinhood.com"),
			Timeout:          brokerTimeout,
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		},
		Scheduler: SchedulerConfig{
			Enabled:              schedulerEnabled,
			PriceRefreshSchedule: getEnv("PRICE_REFRESH_SCHEDULE", "0 */5 * * * *"),
			AutoImportSchedule:   getEnv("AUTO_IMPORT_SCHEDULE", "0 0 */6 * * *"),
		},
		API: APIConfig{
			DefaultUserID: getEnv("DEFAULT_USER_ID", "default"),
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
