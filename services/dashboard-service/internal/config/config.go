package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. DBTEST_API_URL
const EnvPrefix = "DBTEST"

// Config holds all configuration for the dashboard tooling
type Config struct {
	API     APIConfig
	Server  ServerConfig
	Kafka   KafkaConfig
	Watch   WatchConfig
	Metrics MetricsConfig
	Storage StorageConfig
	Redis   RedisConfig
	Logging LoggingConfig
}

// APIConfig holds the backend connection settings shared by every call
type APIConfig struct {
	URL          string
	Timeout      time.Duration
	TokenSecret  string
	TokenSubject string
	TokenTTL     time.Duration
}

// ServerConfig holds mock backend specific configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// StepInterval is how often the simulated checker advances
	StepInterval time.Duration
}

// KafkaConfig holds Kafka specific configuration. No events are published
// when Brokers is empty.
type KafkaConfig struct {
	Brokers  []string
	ClientID string
	Topics   TopicsConfig
}

// TopicsConfig names the topics events are published to
type TopicsConfig struct {
	RunProgress string
}

// WatchConfig controls how the run in progress is polled
type WatchConfig struct {
	Interval    time.Duration
	MaxInterval time.Duration
	MaxElapsed  time.Duration
	LogTail     int
}

// MetricsConfig holds prometheus settings
type MetricsConfig struct {
	Namespace string
	Addr      string
}

// StorageConfig selects where downloaded artifacts are saved
type StorageConfig struct {
	Type  string // "local" or "s3"
	Local LocalStorageConfig
	S3    S3StorageConfig
}

// LocalStorageConfig holds local filesystem storage configuration
type LocalStorageConfig struct {
	BasePath    string
	Permissions string
}

// S3StorageConfig holds S3 storage configuration
type S3StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// RedisConfig enables rate limiting on the mock backend when URL is set
type RedisConfig struct {
	URL               string
	RequestsPerMinute int
}

// LoggingConfig holds logging specific configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// LoadConfig loads the configuration from an optional file and environment
// variables. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate rejects configurations no client can be built from
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.URL) == "" {
		return errors.New("api.url must not be empty")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive, got %s", c.API.Timeout)
	}
	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be positive, got %s", c.Watch.Interval)
	}
	return nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.url", "http://localhost:8000/")
	v.SetDefault("api.timeout", "300000ms")
	v.SetDefault("api.tokenSecret", "")
	v.SetDefault("api.tokenSubject", "dashctl")
	v.SetDefault("api.tokenTTL", "1h")

	// Mock backend defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.readTimeout", "10s")
	v.SetDefault("server.writeTimeout", "60s")
	v.SetDefault("server.idleTimeout", "120s")
	v.SetDefault("server.stepInterval", "1s")

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.clientID", "dbtest-dashboard")
	v.SetDefault("kafka.topics.runProgress", "run-progress")

	// Watch defaults
	v.SetDefault("watch.interval", "2s")
	v.SetDefault("watch.maxInterval", "30s")
	v.SetDefault("watch.maxElapsed", "10m")
	v.SetDefault("watch.logTail", 20)

	// Metrics defaults
	v.SetDefault("metrics.namespace", "dbtest_dashboard")
	v.SetDefault("metrics.addr", "")

	// Storage defaults
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.local.basePath", ".")
	v.SetDefault("storage.local.permissions", "0644")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.accessKey", "")
	v.SetDefault("storage.s3.secretKey", "")
	v.SetDefault("storage.s3.prefix", "")

	// Redis defaults
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.requestsPerMinute", 600)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
