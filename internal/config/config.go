package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultJWTSecret = "default-secret-key-change-in-production"

// AppConfig represents the main application configuration
type AppConfig struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Upload    UploadConfig    `mapstructure:"upload"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	Admin     AdminConfig     `mapstructure:"admin"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	BodyLimit    int           `mapstructure:"body_limit"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

// CORSConfig represents the cross-origin policy for the browser client
type CORSConfig struct {
	AllowOrigins     []string `mapstructure:"allow_origins"`
	AllowMethods     []string `mapstructure:"allow_methods"`
	AllowHeaders     []string `mapstructure:"allow_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

// JWTConfig represents JWT configuration
type JWTConfig struct {
	Secret       string        `mapstructure:"secret"`
	AccessExpiry time.Duration `mapstructure:"access_expiry"`
}

// StorageConfig controls where uploads are staged before they reach the database
type StorageConfig struct {
	StagingDir       string        `mapstructure:"staging_dir"`
	StagingTTL       time.Duration `mapstructure:"staging_ttl"`
	SweepSchedule    string        `mapstructure:"sweep_schedule"`
	DiskWarnPercent  float64       `mapstructure:"disk_warn_percent"`
	DiskAlertPercent float64       `mapstructure:"disk_alert_percent"`
}

// UploadConfig bounds attachment sizes and batch parallelism
type UploadConfig struct {
	MaxImageBytes int64 `mapstructure:"max_image_bytes"`
	MaxAudioBytes int64 `mapstructure:"max_audio_bytes"`
	BatchWorkers  int   `mapstructure:"batch_workers"`
}

// RateLimitConfig holds request budgets per window
type RateLimitConfig struct {
	GeneralLimit  int           `mapstructure:"general_limit"`
	GeneralWindow time.Duration `mapstructure:"general_window"`
	AuthLimit     int           `mapstructure:"auth_limit"`
	AuthWindow    time.Duration `mapstructure:"auth_window"`
	UploadLimit   int           `mapstructure:"upload_limit"`
	UploadWindow  time.Duration `mapstructure:"upload_window"`
}

// LoggingConfig selects log level and output format
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig toggles the OpenTelemetry tracer
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}

// AdminConfig optionally bootstraps an administrator account at startup
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// ConfigLoader wraps a dedicated viper instance
type ConfigLoader struct {
	viper *viper.Viper
}

// NewConfigLoader creates a loader with search paths and defaults applied
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("TUNEBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	return &ConfigLoader{viper: v}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.body_limit", 64*1024*1024)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.cors.allow_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors.allow_headers", []string{"Origin", "Content-Type", "Accept", "Authorization"})
	v.SetDefault("server.cors.allow_credentials", false)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "tunebox")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "tunebox.db")
	v.SetDefault("database.max_open_conns", DefaultMaxOpenConns)
	v.SetDefault("database.max_idle_conns", DefaultMaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", DefaultConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", DefaultConnMaxIdleTime)

	v.SetDefault("jwt.secret", defaultJWTSecret)
	v.SetDefault("jwt.access_expiry", time.Hour)

	v.SetDefault("storage.staging_dir", "uploads")
	v.SetDefault("storage.staging_ttl", time.Hour)
	v.SetDefault("storage.sweep_schedule", "@every 15m")
	v.SetDefault("storage.disk_warn_percent", 80.0)
	v.SetDefault("storage.disk_alert_percent", 90.0)

	v.SetDefault("upload.max_image_bytes", 10*1024*1024)
	v.SetDefault("upload.max_audio_bytes", 50*1024*1024)
	v.SetDefault("upload.batch_workers", 4)

	v.SetDefault("rate_limit.general_limit", 300)
	v.SetDefault("rate_limit.general_window", time.Minute)
	v.SetDefault("rate_limit.auth_limit", 20)
	v.SetDefault("rate_limit.auth_window", time.Minute)
	v.SetDefault("rate_limit.upload_limit", 30)
	v.SetDefault("rate_limit.upload_window", time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "tunebox")
}

// Load reads the config file (if any), applies environment overrides and validates the result
func (l *ConfigLoader) Load() (*AppConfig, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config AppConfig
	if err := l.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validateConfig validates the configuration values
func validateConfig(config *AppConfig) error {
	if config.JWT.Secret == defaultJWTSecret {
		return fmt.Errorf("JWT secret is using default value - please change in production")
	}

	if config.JWT.Secret == "" {
		return fmt.Errorf("JWT secret cannot be empty")
	}

	if config.JWT.AccessExpiry <= 0 {
		return fmt.Errorf("JWT access expiry must be positive")
	}

	switch config.Database.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported database driver %q", config.Database.Driver)
	}

	if config.Storage.StagingDir == "" {
		return fmt.Errorf("staging directory cannot be empty")
	}

	if config.Storage.DiskWarnPercent <= 0 || config.Storage.DiskAlertPercent > 100 ||
		config.Storage.DiskWarnPercent >= config.Storage.DiskAlertPercent {
		return fmt.Errorf("staging disk thresholds must satisfy 0 < warn < alert <= 100")
	}

	if config.Upload.BatchWorkers < 1 {
		return fmt.Errorf("upload batch workers must be at least 1")
	}

	return nil
}
