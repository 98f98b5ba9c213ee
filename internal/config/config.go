package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	API      APIConfig      `mapstructure:"api"`
	Database DatabaseConfig `mapstructure:"database"`
	Email    EmailConfig    `mapstructure:"email"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig holds application-wide settings.
type AppConfig struct {
	// BaseURL is the externally reachable URL used in confirmation links.
	BaseURL string `mapstructure:"base_url"`
}

// APIConfig holds HTTP API server configuration.
type APIConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL     string `mapstructure:"url"`
	PoolMin int32  `mapstructure:"pool_min"`
	PoolMax int32  `mapstructure:"pool_max"`
	// MaxConnLifetime recycles connections so the pool picks up
	// server-side changes such as failovers and certificate rotation.
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
}

// EmailConfig holds outbound email delivery configuration.
type EmailConfig struct {
	// Provider selects the mail client: "postmark" or "stdout".
	Provider string `mapstructure:"provider"`
	// BaseURL is the mail API endpoint.
	BaseURL string `mapstructure:"base_url"`
	// ServerToken authenticates against the mail API.
	ServerToken string `mapstructure:"server_token"`
	// Sender is the From address for all outgoing mail.
	Sender string `mapstructure:"sender"`
	// SendTimeout bounds a single send call.
	SendTimeout time.Duration `mapstructure:"send_timeout"`
}

// DeliveryConfig holds delivery worker configuration. The retry schedule
// and liveness timeout are deliberately configuration, not constants.
type DeliveryConfig struct {
	Workers         int           `mapstructure:"workers"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	MaxRetries      int           `mapstructure:"max_retries"`
	ProcessTimeout  time.Duration `mapstructure:"process_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	ReaperInterval  time.Duration `mapstructure:"reaper_interval"`
	// LivenessTimeout is how long a task may stay in-flight before the
	// reaper presumes its worker crashed and reverts it to pending.
	LivenessTimeout time.Duration `mapstructure:"liveness_timeout"`
	// IdempotencyTTL controls periodic cleanup of old idempotency records.
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"`
}

// AuthConfig holds admin authentication configuration.
type AuthConfig struct {
	SigningKey  string        `mapstructure:"signing_key"`
	TokenExpiry time.Duration `mapstructure:"token_expiry"`
	Issuer      string        `mapstructure:"issuer"`
	Audience    string        `mapstructure:"audience"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level     string `mapstructure:"level"`
	Output    string `mapstructure:"output"` // stdout (default) or file
	FilePath  string `mapstructure:"file_path"`
	MaxSizeMB int    `mapstructure:"max_size_mb"`
	MaxFiles  int    `mapstructure:"max_files"`
}

// Load reads configuration from the given config directory path.
// It looks for a file named "config.yaml" in that directory.
// Environment variables with prefix LETTERPRESS_ override file values.
// For example, LETTERPRESS_DATABASE_URL overrides database.url.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)

	v.SetEnvPrefix("LETTERPRESS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers fallback values for settings that are safe to
// default. Credentials and endpoints have no defaults on purpose.
func setDefaults(v *viper.Viper) {
	v.SetDefault("api.read_timeout", 10*time.Second)
	v.SetDefault("api.write_timeout", 10*time.Second)
	v.SetDefault("database.pool_min", 2)
	v.SetDefault("database.pool_max", 10)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
	v.SetDefault("database.health_check_period", 1*time.Minute)
	v.SetDefault("database.connect_timeout", 10*time.Second)
	v.SetDefault("email.provider", "stdout")
	v.SetDefault("email.send_timeout", 10*time.Second)
	v.SetDefault("delivery.workers", 4)
	v.SetDefault("delivery.poll_interval", 1*time.Second)
	v.SetDefault("delivery.max_retries", 5)
	v.SetDefault("delivery.process_timeout", 30*time.Second)
	v.SetDefault("delivery.shutdown_timeout", 30*time.Second)
	v.SetDefault("delivery.reaper_interval", 1*time.Minute)
	v.SetDefault("delivery.liveness_timeout", 5*time.Minute)
	v.SetDefault("delivery.idempotency_ttl", 48*time.Hour)
	v.SetDefault("auth.token_expiry", 1*time.Hour)
	v.SetDefault("auth.issuer", "letterpress")
	v.SetDefault("auth.audience", "letterpress-admin")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.output", "stdout")
}
