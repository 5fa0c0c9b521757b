// Package config loads the service configuration. Values start from built-in defaults, are
// overlaid by an optional TOML file named by CONFIG_FILE and finally by environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/docker/go-units"
	"github.com/pelletier/go-toml/v2"
)

// EnvConfigFile names the environment variable holding the optional TOML file path.
const EnvConfigFile = "CONFIG_FILE"

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Supported file store backends.
const (
	BackendDisk  = "disk"
	BackendMinIO = "minio"
)

// Config contains the service configuration parameters.
type Config struct {
	LogLevel  int      `toml:"log_level"  env:"LOG_LEVEL"`
	LogFormat string   `toml:"log_format" env:"LOG_FORMAT"`
	HTTP      HTTP     `toml:"http"`
	Database  Database `toml:"database"`
	Storage   Storage  `toml:"storage"`
	CORS      CORS     `toml:"cors"     envPrefix:"CORS_"`
}

// HTTP contains the HTTP server parameters.
type HTTP struct {
	Port            string `toml:"port"             env:"PORT"`
	GinLogging      string `toml:"gin_logging"      env:"GIN_LOGGING"`
	ReadTimeout     string `toml:"read_timeout"     env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    string `toml:"write_timeout"    env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout string `toml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT"`

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
}

// Database contains the database connection parameters. DSN, when set, is used verbatim and
// takes precedence over the individual host/user/password/name values.
type Database struct {
	Driver          string `toml:"driver"            env:"DBDRIVER"`
	Host            string `toml:"host"              env:"DBHOST"`
	User            string `toml:"user"              env:"DBUSER"`
	Password        string `toml:"password"          env:"DBPWD"`
	Name            string `toml:"name"              env:"DBNAME"`
	DSN             string `toml:"dsn"               env:"DBDSN"`
	MaxOpenConns    int    `toml:"max_open_conns"    env:"DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `toml:"max_idle_conns"    env:"DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime string `toml:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME"`

	connMaxLifetime time.Duration
}

// Storage contains the file store parameters.
type Storage struct {
	Backend          string `toml:"backend"            env:"STORAGE_BACKEND"`
	UploadsDir       string `toml:"uploads_dir"        env:"UPLOADS_DIR"`
	MaxUploadSize    string `toml:"max_upload_size"    env:"MAX_UPLOAD_SIZE"`
	CleanupOnFailure bool   `toml:"cleanup_on_failure" env:"CLEANUP_ON_FAILURE"`
	MinIO            MinIO  `toml:"minio"              envPrefix:"MINIO_"`

	maxUploadBytes int64
}

// MinIO contains object storage parameters, used when Storage.Backend is "minio".
type MinIO struct {
	Endpoint  string `toml:"endpoint"   env:"ENDPOINT"`
	AccessKey string `toml:"access_key" env:"ACCESS_KEY"`
	SecretKey string `toml:"secret_key" env:"SECRET_KEY"`
	Bucket    string `toml:"bucket"     env:"BUCKET_NAME"`
	UseSSL    bool   `toml:"use_ssl"    env:"USE_SSL"`
}

// CORS contains Cross-Origin Resource Sharing parameters.
type CORS struct {
	Enabled        bool     `toml:"enabled"         env:"ENABLED"`
	Origins        []string `toml:"origins"         env:"ORIGINS"         envSeparator:","`
	AllowedMethods []string `toml:"allowed_methods" env:"ALLOWED_METHODS" envSeparator:","`
	AllowedHeaders []string `toml:"allowed_headers" env:"ALLOWED_HEADERS" envSeparator:","`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:  0,
		LogFormat: "text",
		HTTP: HTTP{
			Port:            "3001",
			ReadTimeout:     "15s",
			WriteTimeout:    "60s",
			ShutdownTimeout: "10s",
		},
		Database: Database{
			Driver:          DriverMySQL,
			Host:            "localhost:3306",
			Name:            "contact_db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: "5m",
		},
		Storage: Storage{
			Backend:       BackendDisk,
			UploadsDir:    "uploads",
			MaxUploadSize: "32MB",
			MinIO: MinIO{
				Endpoint: "localhost:9000",
				Bucket:   "contact-uploads",
			},
		},
		CORS: CORS{
			Enabled:        true,
			Origins:        []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
		},
	}
}

// NewConfig loads the configuration from defaults, the optional TOML file and the environment,
// then finalizes it.
func NewConfig() (*Config, error) {
	cfg := Default()
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// Finalize validates the configuration and derives sizes and durations.
func (c *Config) Finalize() error {
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if err := c.HTTP.finalize(); err != nil {
		return fmt.Errorf("http: %w", err)
	}
	if err := c.Database.finalize(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.finalize(); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	return nil
}

// RequestLogging reports whether HTTP request logging is on. GIN_LOGGING=off turns it off.
func (h *HTTP) RequestLogging() bool {
	return !strings.EqualFold(h.GinLogging, "off")
}

// ReadTimeoutDuration returns the parsed read timeout.
func (h *HTTP) ReadTimeoutDuration() time.Duration { return h.readTimeout }

// WriteTimeoutDuration returns the parsed write timeout.
func (h *HTTP) WriteTimeoutDuration() time.Duration { return h.writeTimeout }

// ShutdownTimeoutDuration returns the parsed shutdown timeout.
func (h *HTTP) ShutdownTimeoutDuration() time.Duration { return h.shutdownTimeout }

func (h *HTTP) finalize() error {
	var err error
	if h.Port == "" {
		return fmt.Errorf("port required")
	}
	if h.readTimeout, err = time.ParseDuration(h.ReadTimeout); err != nil {
		return fmt.Errorf("invalid read_timeout: %w", err)
	}
	if h.writeTimeout, err = time.ParseDuration(h.WriteTimeout); err != nil {
		return fmt.Errorf("invalid write_timeout: %w", err)
	}
	if h.shutdownTimeout, err = time.ParseDuration(h.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

// ConnMaxLifetimeDuration returns the parsed connection lifetime.
func (d *Database) ConnMaxLifetimeDuration() time.Duration { return d.connMaxLifetime }

func (d *Database) finalize() error {
	switch d.Driver {
	case DriverMySQL, DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unsupported driver %q", d.Driver)
	}
	if d.Driver == DriverSQLite && d.DSN == "" && d.Name == "" {
		return fmt.Errorf("sqlite requires dsn or name")
	}
	lifetime, err := time.ParseDuration(d.ConnMaxLifetime)
	if err != nil {
		return fmt.Errorf("invalid conn_max_lifetime: %w", err)
	}
	d.connMaxLifetime = lifetime
	return nil
}

// MaxUploadBytes returns the parsed maximum request body size for uploads.
func (s *Storage) MaxUploadBytes() int64 { return s.maxUploadBytes }

func (s *Storage) finalize() error {
	switch s.Backend {
	case BackendDisk:
		if s.UploadsDir == "" {
			return fmt.Errorf("uploads_dir required")
		}
	case BackendMinIO:
		if s.MinIO.Endpoint == "" || s.MinIO.Bucket == "" {
			return fmt.Errorf("minio endpoint and bucket required")
		}
	default:
		return fmt.Errorf("unsupported backend %q", s.Backend)
	}
	size, err := units.FromHumanSize(s.MaxUploadSize)
	if err != nil {
		return fmt.Errorf("invalid max_upload_size: %w", err)
	}
	if size <= 0 {
		return fmt.Errorf("max_upload_size must be positive")
	}
	s.maxUploadBytes = size
	return nil
}
