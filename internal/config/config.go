package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/duskpool/dp-indexer/internal/domain"
)

// BaseConfig holds base configuration
type BaseConfig struct {
	Debug     bool   `mapstructure:"debug"`
	SentryDSN string `mapstructure:"sentry_dsn"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadHost        string        `mapstructure:"read_host"`
	ReadPort        int           `mapstructure:"read_port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`     // Maximum number of open connections to the database
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`     // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`  // Maximum amount of time a connection may be reused (e.g., "5m", "1h")
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"` // Maximum amount of time a connection may be idle (e.g., "10m", "30m")
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL            string        `mapstructure:"url"`
	StreamName     string        `mapstructure:"stream_name"`
	ConsumerName   string        `mapstructure:"consumer_name"`
	MaxReconnects  int           `mapstructure:"max_reconnects"`
	ReconnectWait  time.Duration `mapstructure:"reconnect_wait"`
	ConnectionName string        `mapstructure:"connection_name"`
	AckWait        time.Duration `mapstructure:"ack_wait"`
	MaxDeliver     int           `mapstructure:"max_deliver"`
}

// EthereumConfig holds EVM chain configuration for the darkpool contract
type EthereumConfig struct {
	WebSocketURL         string        `mapstructure:"websocket_url"`
	RPCURL               string        `mapstructure:"rpc_url"`
	ChainID              domain.Chain  `mapstructure:"chain_id"`
	ContractAddress      string        `mapstructure:"contract_address"`
	StartBlock           uint64        `mapstructure:"start_block"`
	Confirmations        uint64        `mapstructure:"confirmations"` // blocks behind head before a block is treated as final
	BlockHeadTTL         time.Duration `mapstructure:"block_head_ttl"`
	BlockHeadStaleWindow time.Duration `mapstructure:"block_head_stale_window"`
}

// TemporalConfig holds Temporal configuration
type TemporalConfig struct {
	HostPort                           string  `mapstructure:"host_port"`
	Namespace                          string  `mapstructure:"namespace"`
	BackfillTaskQueue                  string  `mapstructure:"backfill_task_queue"`
	MaxConcurrentActivityExecutionSize int     `mapstructure:"max_concurrent_activity_execution_size"`
	WorkerActivitiesPerSecond          float64 `mapstructure:"worker_activities_per_second"`
	MaxConcurrentActivityTaskPollers   int     `mapstructure:"max_concurrent_activity_task_pollers"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // in seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // in seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // in seconds
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTPublicKey string   `mapstructure:"jwt_public_key"`
	APIKeys      []string `mapstructure:"api_keys"`
}

// WorkerConfig holds pool sizing for internal worker pools
type WorkerConfig struct {
	WorkerPoolSize  int `mapstructure:"pool_size"`
	WorkerQueueSize int `mapstructure:"queue_size"`
}

// RateLimitConfig holds the per-provider rate limit settings for the RPC gate
type RateLimitConfig struct {
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxQueueTime      time.Duration `mapstructure:"max_queue_time"`
}

// RateLimiterConfig holds the configuration for the distributed RPC rate limit gate
type RateLimiterConfig struct {
	RedisAddr               string                     `mapstructure:"redis_addr"`
	RedisPassword           string                     `mapstructure:"redis_password"`
	RedisDB                 int                        `mapstructure:"redis_db"`
	RedisKeyPrefix          string                     `mapstructure:"redis_key_prefix"`
	MaxWorkers              int                        `mapstructure:"max_workers"`
	MaxQueueSize            int                        `mapstructure:"max_queue_size"`
	EnableLocalFallback     bool                       `mapstructure:"enable_local_fallback"`
	LocalFallbackMultiplier float64                    `mapstructure:"local_fallback_multiplier"`
	Providers               map[string]RateLimitConfig `mapstructure:"providers"`
}

// AuditConfig holds configuration for the invariant auditor
type AuditConfig struct {
	Interval             time.Duration  `mapstructure:"interval"`
	ExpectationTTL       time.Duration  `mapstructure:"expectation_ttl"`
	CheckpointStallAfter time.Duration  `mapstructure:"checkpoint_stall_after"`
	Chains               []domain.Chain `mapstructure:"chains"`
	Worker               WorkerConfig   `mapstructure:"worker"`
}

// EmitterConfig holds configuration for darkpool-event-emitter
type EmitterConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
}

// IndexerConfig holds configuration for event-indexer
type IndexerConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	NATS       NATSConfig     `mapstructure:"nats"`
	Chains     []domain.Chain `mapstructure:"chains"`
}

// APIConfig holds configuration for the API server
type APIConfig struct {
	BaseConfig `mapstructure:",squash"`
	Server     ServerConfig   `mapstructure:"server"`
	Database   DatabaseConfig `mapstructure:"database"`
	Temporal   TemporalConfig `mapstructure:"temporal"`
	Auth       AuthConfig     `mapstructure:"auth"`
	Chains     []domain.Chain `mapstructure:"chains"`
}

// BackfillWorkerConfig holds configuration for the backfill worker
type BackfillWorkerConfig struct {
	BaseConfig  `mapstructure:",squash"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Temporal    TemporalConfig    `mapstructure:"temporal"`
	Ethereum    EthereumConfig    `mapstructure:"ethereum"`
	RateLimiter RateLimiterConfig `mapstructure:"rate_limiter"`
}

// SweeperConfig holds configuration for the sweeper program
type SweeperConfig struct {
	BaseConfig `mapstructure:",squash"`
	Database   DatabaseConfig `mapstructure:"database"`
	Temporal   TemporalConfig `mapstructure:"temporal"`
	Audit      AuditConfig    `mapstructure:"audit"`
}

// LoadEmitterConfig loads configuration for darkpool-event-emitter
func LoadEmitterConfig(configFile string, envPath string) (*EmitterConfig, error) {
	v := configureViper("darkpool-event-emitter", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "DARKPOOL_EVENTS")
	v.SetDefault("ethereum.chain_id", "eip155:42161")
	v.SetDefault("ethereum.confirmations", 12)
	v.SetDefault("ethereum.block_head_ttl", "12s")
	v.SetDefault("ethereum.block_head_stale_window", "60s")
	v.SetDefault("rate_limiter.enable_local_fallback", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config EmitterConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadIndexerConfig loads configuration for event-indexer
func LoadIndexerConfig(configFile string, envPath string) (*IndexerConfig, error) {
	v := configureViper("event-indexer", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.max_reconnects", 10)
	v.SetDefault("nats.reconnect_wait", "2s")
	v.SetDefault("nats.stream_name", "DARKPOOL_EVENTS")
	v.SetDefault("nats.consumer_name", "event-indexer")
	v.SetDefault("nats.ack_wait", "60s")
	v.SetDefault("nats.max_deliver", -1)
	v.SetDefault("chains", []string{"eip155:42161"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config IndexerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadAPIConfig loads configuration for the API server
func LoadAPIConfig(configFile string, envPath string) (*APIConfig, error) {
	v := configureViper("api", configFile, envPath)

	// Set defaults
	v.SetDefault("debug", false)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 120)
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.backfill_task_queue", "darkpool-backfill")
	v.SetDefault("chains", []string{"eip155:42161"})

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config APIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadBackfillWorkerConfig loads configuration for the backfill worker
func LoadBackfillWorkerConfig(configFile string, envPath string) (*BackfillWorkerConfig, error) {
	v := configureViper("worker", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.backfill_task_queue", "darkpool-backfill")
	v.SetDefault("temporal.max_concurrent_activity_execution_size", 20)
	v.SetDefault("temporal.worker_activities_per_second", 20)
	v.SetDefault("temporal.max_concurrent_activity_task_pollers", 5)
	v.SetDefault("ethereum.chain_id", "eip155:42161")
	v.SetDefault("rate_limiter.enable_local_fallback", true)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config BackfillWorkerConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

// LoadSweeperConfig loads configuration for the sweeper program
func LoadSweeperConfig(configFile string, envPath string) (*SweeperConfig, error) {
	v := configureViper("sweeper", configFile, envPath)

	// Set defaults
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 5)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "1h")
	v.SetDefault("database.conn_max_idle_time", "10m")
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.backfill_task_queue", "darkpool-backfill")
	v.SetDefault("audit.interval", "5m")
	v.SetDefault("audit.expectation_ttl", "72h")
	v.SetDefault("audit.checkpoint_stall_after", "15m")
	v.SetDefault("audit.chains", []string{"eip155:42161"})
	v.SetDefault("audit.worker.pool_size", 10)
	v.SetDefault("audit.worker.queue_size", 100)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			// Config file not found, use environment variables
		} else {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg SweeperConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if cfg.Database.Host == "" {
		return nil, errors.New("database.host is required")
	}
	if cfg.Database.DBName == "" {
		return nil, errors.New("database.dbname is required")
	}

	return &cfg, nil
}

// configureViper returns a viper instance with the config file and environment variables set
func configureViper(service string, configFile string, envPath string) *viper.Viper {
	v := viper.New()

	// Load environment variables
	loadEnv(envPath, service)

	// Set config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// Search for config.yaml in multiple locations:
		// 1. Current directory
		v.AddConfigPath(".")
		// 2. Service-specific directory (e.g., cmd/sweeper/, cmd/api/)
		v.AddConfigPath(fmt.Sprintf("cmd/%s/", service))
		// 3. Config directory
		v.AddConfigPath("config/")
	}

	// Set environment variables
	v.SetEnvPrefix("DP_INDEXER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Explicitly bind all environment variables
	bindAllEnvVars(v)
	return v
}

// bindAllEnvVars explicitly binds all possible environment variables
// This is required for viper to map env vars to config struct fields when no config file exists
func bindAllEnvVars(v *viper.Viper) {
	// Common config keys
	commonKeys := []string{
		"debug",
		"sentry_dsn",
		// Database
		"database.host",
		"database.port",
		"database.read_host",
		"database.read_port",
		"database.user",
		"database.password",
		"database.dbname",
		"database.sslmode",
		"database.max_open_conns",
		"database.max_idle_conns",
		"database.conn_max_lifetime",
		"database.conn_max_idle_time",
		// NATS
		"nats.url",
		"nats.stream_name",
		"nats.consumer_name",
		"nats.max_reconnects",
		"nats.reconnect_wait",
		"nats.connection_name",
		"nats.ack_wait",
		"nats.max_deliver",
		// Ethereum
		"ethereum.websocket_url",
		"ethereum.rpc_url",
		"ethereum.chain_id",
		"ethereum.contract_address",
		"ethereum.start_block",
		"ethereum.confirmations",
		"ethereum.block_head_ttl",
		"ethereum.block_head_stale_window",
		// Temporal
		"temporal.host_port",
		"temporal.namespace",
		"temporal.backfill_task_queue",
		"temporal.max_concurrent_activity_execution_size",
		"temporal.worker_activities_per_second",
		"temporal.max_concurrent_activity_task_pollers",
		// Server
		"server.host",
		"server.port",
		"server.read_timeout",
		"server.write_timeout",
		"server.idle_timeout",
		// Auth
		"auth.jwt_public_key",
		"auth.api_keys",
		// Indexer
		"chains",
		// Rate limiter
		"rate_limiter.redis_addr",
		"rate_limiter.redis_password",
		"rate_limiter.redis_db",
		"rate_limiter.redis_key_prefix",
		"rate_limiter.max_workers",
		"rate_limiter.max_queue_size",
		"rate_limiter.enable_local_fallback",
		"rate_limiter.local_fallback_multiplier",
		// Audit
		"audit.interval",
		"audit.expectation_ttl",
		"audit.checkpoint_stall_after",
		"audit.worker.pool_size",
		"audit.worker.queue_size",
	}

	for _, key := range commonKeys {
		_ = v.BindEnv(key)
	}
}

// loadEnv loads environment variables from the config directory
func loadEnv(envPath string, service string) {
	// Always try shared base first, then local, then optional per-service local.
	envFiles := []string{".env", ".env.local"}
	if service != "" {
		envFiles = append(envFiles, ".env."+service+".local")
	}

	// Default to config directory
	if envPath == "" {
		envPath = "config/"
	}

	// Create candidates list
	for _, envFile := range envFiles {
		candidate := filepath.Join(envPath, envFile)
		_ = godotenv.Overload(candidate) // Overload lets later files override earlier ones
	}
}

// ChdirRepoRoot changes the current working directory to the repository root
func ChdirRepoRoot() {
	cwd, _ := os.Getwd()
	for range 5 {
		if _, err := os.Stat(filepath.Join(cwd, "config")); err == nil {
			_ = os.Chdir(cwd)
			return
		}
		cwd = filepath.Dir(cwd)
	}
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// ReadDSN returns the read-replica database connection string.
// If ReadPort is not configured, it falls back to Port.
func (c *DatabaseConfig) ReadDSN() string {
	port := c.ReadPort
	if port == 0 {
		port = c.Port
	}

	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.ReadHost, port, c.User, c.Password, c.DBName, c.SSLMode)
}
