// Package config provides configuration management for the sentiment dashboard.
// Configuration can be loaded from YAML files and environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Session   SessionConfig   `mapstructure:"session"`
	Directory DirectoryConfig `mapstructure:"directory"`
	Model     ModelConfig     `mapstructure:"model"`
	Report    ReportConfig    `mapstructure:"report"`
	S3        S3Config        `mapstructure:"s3"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxUploadSize   int64         `mapstructure:"max_upload_size"`
}

// Addr returns the listen address in host:port format.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds user store connection settings.
// Supports MongoDB, PostgreSQL and SQLite backends.
type DatabaseConfig struct {
	// Driver specifies the backend: "mongo", "postgres" or "sqlite".
	Driver string `mapstructure:"driver"`

	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

// MongoConfig holds MongoDB settings (used when Driver is "mongo").
type MongoConfig struct {
	URI        string        `mapstructure:"uri"`
	Database   string        `mapstructure:"database"`
	Collection string        `mapstructure:"collection"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PostgresConfig holds PostgreSQL settings (used when Driver is "postgres").
type PostgresConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the PostgreSQL connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// SQLiteConfig holds SQLite settings (used when Driver is "sqlite").
type SQLiteConfig struct {
	Path            string `mapstructure:"path"`             // Path to SQLite database file
	JournalMode     string `mapstructure:"journal_mode"`     // WAL, DELETE, TRUNCATE, etc.
	BusyTimeout     int    `mapstructure:"busy_timeout"`     // Milliseconds to wait for locks
	CacheSize       int    `mapstructure:"cache_size"`       // Page cache size (negative = KB)
	SynchronousMode string `mapstructure:"synchronous_mode"` // NORMAL, FULL, OFF
}

// IsEmbedded returns true if using an embedded database (SQLite).
func (c DatabaseConfig) IsEmbedded() bool {
	return c.Driver == "sqlite"
}

// RedisConfig holds Redis connection settings.
// When disabled, sessions, locks and cache invalidation stay in-process.
type RedisConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	PoolSize    int           `mapstructure:"pool_size"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
	Enabled     bool          `mapstructure:"enabled"`
}

// Addr returns the Redis address in host:port format.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig holds login session settings.
type SessionConfig struct {
	// TTL is how long an idle session stays valid.
	TTL time.Duration `mapstructure:"ttl"`

	// CookieName is the name of the session cookie.
	CookieName string `mapstructure:"cookie_name"`

	// SecureCookie forces the Secure attribute even without TLS termination here.
	SecureCookie bool `mapstructure:"secure_cookie"`
}

// DirectoryConfig holds cached directory settings.
type DirectoryConfig struct {
	// Channel is the Redis pub/sub channel used to broadcast invalidations.
	Channel string `mapstructure:"channel"`
}

// ModelConfig holds the classifier artifact location.
type ModelConfig struct {
	// Location is a local path or s3://bucket/key of the exported model.
	Location string `mapstructure:"location"`

	// SHA256 optionally pins the artifact content.
	SHA256 string `mapstructure:"sha256"`
}

// ReportConfig holds the about/report screen settings.
type ReportConfig struct {
	Dataset     string           `mapstructure:"dataset"`
	Title       string           `mapstructure:"title"`
	Description string           `mapstructure:"description"`
	PreviewRows int              `mapstructure:"preview_rows"`
	TopWords    int              `mapstructure:"top_words"`
	Evaluation  EvaluationConfig `mapstructure:"evaluation"`
}

// EvaluationConfig holds the offline evaluation scores shown on the report.
type EvaluationConfig struct {
	Method    string  `mapstructure:"method"`
	Accuracy  float64 `mapstructure:"accuracy"`
	Precision float64 `mapstructure:"precision"`
	Recall    float64 `mapstructure:"recall"`
	F1        float64 `mapstructure:"f1"`
}

// S3Config holds settings for loading artifacts from S3-compatible storage.
type S3Config struct {
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	// Enabled determines if metrics collection is active.
	Enabled bool `mapstructure:"enabled"`

	// Port is the port for the metrics HTTP server.
	Port int `mapstructure:"port"`

	// Path is the URL path for the metrics endpoint.
	Path string `mapstructure:"path"`
}

// Load reads configuration from the specified file and environment variables.
// Environment variables take precedence over file values.
// Environment variables are prefixed with SENTIMEN_ and use _ as separator.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Environment variable configuration
	v.SetEnvPrefix("SENTIMEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	// Config file configuration
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/sentimen")
	}

	// Read config file (optional - environment variables can be used instead)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// bindLegacyEnv keeps the variable names used by existing deployments
// (the .env of the dashboard) working next to the SENTIMEN_ ones.
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"database.mongo.uri":        {"SENTIMEN_DATABASE_MONGO_URI", "MONGO_CONNECTION_STRING"},
		"database.mongo.database":   {"SENTIMEN_DATABASE_MONGO_DATABASE", "MONGO_DATABASE_NAME"},
		"database.mongo.collection": {"SENTIMEN_DATABASE_MONGO_COLLECTION", "MONGO_COLLECTION_NAME"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("error binding env for %s: %w", key, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8501)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_upload_size", 20*1024*1024) // 20MB

	// Database defaults
	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.mongo.uri", "")
	v.SetDefault("database.mongo.database", "sentimen")
	v.SetDefault("database.mongo.collection", "users")
	v.SetDefault("database.mongo.timeout", 10*time.Second)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "sentimen")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.database", "sentimen")
	v.SetDefault("database.postgres.ssl_mode", "prefer")
	v.SetDefault("database.postgres.max_open_conns", 10)
	v.SetDefault("database.postgres.max_idle_conns", 2)
	v.SetDefault("database.postgres.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.postgres.conn_max_idle_time", 5*time.Minute)
	v.SetDefault("database.sqlite.path", "./data/sentimen.db")
	v.SetDefault("database.sqlite.journal_mode", "WAL")
	v.SetDefault("database.sqlite.busy_timeout", 5000)
	v.SetDefault("database.sqlite.cache_size", -2000)
	v.SetDefault("database.sqlite.synchronous_mode", "NORMAL")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.enabled", false)

	// Session defaults
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.cookie_name", "sentimen_session")
	v.SetDefault("session.secure_cookie", false)

	// Directory defaults
	v.SetDefault("directory.channel", "sentimen:directory:invalidate")

	// Model and report defaults
	v.SetDefault("model.location", "./data/sentiment_analysis_model.json")
	v.SetDefault("model.sha256", "")
	v.SetDefault("report.dataset", "./data/hasil_labeling.xlsx")
	v.SetDefault("report.title", "Analisis Sentimen Komentar Youtube Honda Menggunakan Metode Naive Bayes")
	v.SetDefault("report.description", "Halaman ini menyajikan hasil analisis sentimen komentar pada kanal YouTube 'Welove Honda Indonesia' pada video 'Klarifikasi Kemunculan Warna Kuning Pada Rangka Honda'. Pelabelan dilakukan otomatis dengan metode Lexicon Based menjadi dua kelas, Positif dan Negatif.")
	v.SetDefault("report.preview_rows", 50)
	v.SetDefault("report.top_words", 10)
	v.SetDefault("report.evaluation.method", "Complement Naive Bayes")
	v.SetDefault("report.evaluation.accuracy", 84.82)
	v.SetDefault("report.evaluation.precision", 84.91)
	v.SetDefault("report.evaluation.recall", 84.82)
	v.SetDefault("report.evaluation.f1", 84.69)

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.use_path_style", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9091)
	v.SetDefault("metrics.path", "/metrics")
}

// Validate checks the configuration for required values and valid ranges.
func (c *Config) Validate() error {
	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Server.MaxUploadSize <= 0 {
		return fmt.Errorf("server.max_upload_size must be positive")
	}

	// Validate database configuration
	switch c.Database.Driver {
	case "mongo":
		if c.Database.Mongo.URI == "" {
			return fmt.Errorf("database.mongo.uri is required for mongo driver")
		}
		if c.Database.Mongo.Database == "" {
			return fmt.Errorf("database.mongo.database is required for mongo driver")
		}
		if c.Database.Mongo.Collection == "" {
			return fmt.Errorf("database.mongo.collection is required for mongo driver")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required for postgres driver")
		}
		if c.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required for postgres driver")
		}
		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required for postgres driver")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required for sqlite driver")
		}
	default:
		return fmt.Errorf("database.driver must be 'mongo', 'postgres' or 'sqlite'")
	}

	// Validate session configuration
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session.ttl must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}

	if c.Redis.Enabled && c.Directory.Channel == "" {
		return fmt.Errorf("directory.channel is required when redis is enabled")
	}

	if c.Model.SHA256 != "" && len(c.Model.SHA256) != 64 {
		return fmt.Errorf("model.sha256 must be 64 hex characters")
	}

	if c.Report.PreviewRows < 0 {
		return fmt.Errorf("report.preview_rows must not be negative")
	}
	if c.Report.TopWords <= 0 {
		return fmt.Errorf("report.top_words must be positive")
	}

	// Validate logging configuration
	validLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be one of: trace, debug, info, warn, error, fatal, panic")
	}

	return nil
}

// MustLoad loads configuration or panics on error.
// Useful for main function initialization.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
