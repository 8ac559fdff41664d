// Package config provides configuration management for the citation service.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the citation service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings for the citation store.
	Database DatabaseConfig `mapstructure:"database"`
	// GraphStore contains the embedded citation graph store settings.
	GraphStore GraphStoreConfig `mapstructure:"graph_store"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Kafka contains event listener and publisher settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// DocumentStore contains document store client settings.
	DocumentStore DocumentStoreConfig `mapstructure:"document_store"`
	// Grobid contains the structural reference extractor settings.
	Grobid GrobidConfig `mapstructure:"grobid"`
	// Enrichers contains scholarly-graph enricher configurations.
	Enrichers EnrichersConfig `mapstructure:"enrichers"`
	// Extraction contains extraction pipeline tuning.
	Extraction ExtractionConfig `mapstructure:"extraction"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password (use environment variable in production).
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	// Default is "require" for production security. Use "disable" only for local development.
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 50).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 10).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath is the path to migration files (relative or absolute).
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
	// StatementCacheCapacity is the size of the prepared statement cache.
	StatementCacheCapacity int `mapstructure:"statement_cache_capacity"`
}

// GraphStoreConfig holds the embedded citation graph store settings.
type GraphStoreConfig struct {
	// Path is the SQLite database file path for the citation graph.
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr, file path).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
}

// KafkaConfig holds Kafka listener and publisher settings.
type KafkaConfig struct {
	// Enabled controls whether the Kafka listener and publisher are active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// DocumentIndexedTopic is the topic carrying document-indexed events.
	DocumentIndexedTopic string `mapstructure:"document_indexed_topic"`
	// GroupID is the consumer group ID for the document listener.
	GroupID string `mapstructure:"group_id"`
	// CitationsExtractedTopic is the topic for citations-extracted events.
	CitationsExtractedTopic string `mapstructure:"citations_extracted_topic"`
}

// DocumentStoreConfig holds document store client settings.
type DocumentStoreConfig struct {
	// BaseURL is the document store HTTP base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for document fetches.
	Timeout time.Duration `mapstructure:"timeout"`
	// MaxSizeBytes is the maximum document size accepted from the store.
	MaxSizeBytes int64 `mapstructure:"max_size_bytes"`
}

// GrobidConfig holds the structural reference extractor settings.
type GrobidConfig struct {
	// Enabled controls whether structural extraction is attempted.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the GROBID server base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for reference processing calls.
	Timeout time.Duration `mapstructure:"timeout"`
}

// EnrichersConfig holds configuration for all scholarly-graph enrichers.
type EnrichersConfig struct {
	// SemanticScholar contains Semantic Scholar API settings.
	SemanticScholar EnricherConfig `mapstructure:"semantic_scholar"`
	// OpenAlex contains OpenAlex API settings.
	OpenAlex EnricherConfig `mapstructure:"openalex"`
}

// EnricherConfig holds configuration for a single enricher API.
type EnricherConfig struct {
	// Enabled controls whether this enricher is used.
	Enabled bool `mapstructure:"enabled"`
	// APIKey is the API key (loaded from environment variable, e.g. CHIVE_CITATIONS_ENRICHERS_SEMANTIC_SCHOLAR_API_KEY).
	APIKey string `mapstructure:"-"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Email is the contact email sent with requests. OpenAlex uses it to
	// route the service into the polite pool; unused by Semantic Scholar.
	Email string `mapstructure:"email"`
}

// ExtractionConfig holds extraction pipeline tuning.
type ExtractionConfig struct {
	// TitleMatchConfidence is the confidence assigned to title-based corpus
	// matches. Must be strictly between 0 and 1; DOI matches are always 1.0.
	TitleMatchConfidence float64 `mapstructure:"title_match_confidence"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}
	if c.StatementCacheCapacity > 0 {
		params.Set("statement_cache_capacity", fmt.Sprintf("%d", c.StatementCacheCapacity))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("CHIVE_CITATIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file if present
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/citation-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Load secrets exclusively from environment variables.
	// These fields use mapstructure:"-" to prevent loading from config files.
	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Enrichers.SemanticScholar.APIKey = os.Getenv("CHIVE_CITATIONS_ENRICHERS_SEMANTIC_SCHOLAR_API_KEY")
	cfg.Enrichers.OpenAlex.APIKey = os.Getenv("CHIVE_CITATIONS_ENRICHERS_OPENALEX_API_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "citations")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "citation_service")
	// Default to "require" for production security. Use CHIVE_CITATIONS_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 10)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)
	v.SetDefault("database.statement_cache_capacity", 512)

	// Graph store defaults
	v.SetDefault("graph_store.path", "data/citation_graph.db")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// Kafka defaults
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.document_indexed_topic", "events.documents.indexed")
	v.SetDefault("kafka.group_id", "citation-service")
	v.SetDefault("kafka.citations_extracted_topic", "events.citations.extracted")

	// Document store defaults
	v.SetDefault("document_store.base_url", "http://localhost:8081")
	v.SetDefault("document_store.timeout", "60s")
	v.SetDefault("document_store.max_size_bytes", 50<<20)

	// GROBID defaults
	v.SetDefault("grobid.enabled", true)
	v.SetDefault("grobid.base_url", "http://localhost:8070")
	v.SetDefault("grobid.timeout", "120s")

	// Enricher defaults - Semantic Scholar
	// API keys are loaded exclusively from environment variables (see loadSecrets).
	v.SetDefault("enrichers.semantic_scholar.enabled", true)
	v.SetDefault("enrichers.semantic_scholar.base_url", "https://api.semanticscholar.org/graph/v1")
	v.SetDefault("enrichers.semantic_scholar.timeout", "30s")
	v.SetDefault("enrichers.semantic_scholar.rate_limit", 1.0)

	// Enricher defaults - OpenAlex
	v.SetDefault("enrichers.openalex.enabled", true)
	v.SetDefault("enrichers.openalex.base_url", "https://api.openalex.org")
	v.SetDefault("enrichers.openalex.timeout", "30s")
	v.SetDefault("enrichers.openalex.rate_limit", 10.0)
	v.SetDefault("enrichers.openalex.email", "")

	// Extraction defaults
	v.SetDefault("extraction.title_match_confidence", 0.7)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate graph store config
	if c.GraphStore.Path == "" {
		return fmt.Errorf("graph store path is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate Kafka config
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("kafka brokers are required when kafka is enabled")
		}
		if c.Kafka.DocumentIndexedTopic == "" {
			return fmt.Errorf("kafka document_indexed_topic is required when kafka is enabled")
		}
		if c.Kafka.GroupID == "" {
			return fmt.Errorf("kafka group_id is required when kafka is enabled")
		}
	}

	// Validate GROBID config
	if c.Grobid.Enabled && c.Grobid.BaseURL == "" {
		return fmt.Errorf("grobid base_url is required when grobid is enabled")
	}

	// Validate extraction tuning. DOI matches are pinned to 1.0; title matches
	// must stay strictly below that and above zero.
	if c.Extraction.TitleMatchConfidence <= 0 || c.Extraction.TitleMatchConfidence >= 1 {
		return fmt.Errorf("extraction title_match_confidence must be strictly between 0 and 1")
	}

	return nil
}
