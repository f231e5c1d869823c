// Package config provides configuration management for the paper enrichment service.
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

// Database SSL modes.
const (
	// SSLModeDisable turns SSL off, for local development only.
	SSLModeDisable = "disable"
	// SSLModeRequire demands SSL without certificate verification.
	SSLModeRequire = "require"
)

// Config holds all configuration for the paper enrichment service.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database holds the PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging holds structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics holds Prometheus exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// LLM contains analysis engine settings.
	LLM LLMConfig `mapstructure:"llm"`
	// Search contains Elasticsearch settings for the paper index.
	Search SearchConfig `mapstructure:"search"`
	// Graph contains Neo4j settings for the co-authorship graph.
	Graph GraphConfig `mapstructure:"graph"`
	// Storage contains object storage settings for uploaded PDFs.
	Storage StorageConfig `mapstructure:"storage"`
	// Kafka contains job queue broker settings.
	Kafka KafkaConfig `mapstructure:"kafka"`
	// PaperSources contains bibliographic source API configurations.
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the bind address, 0.0.0.0 by default.
	Host string `mapstructure:"host"`
	// HTTPPort is the API listener port, 8080 by default.
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the Prometheus listener port, 9091 by default.
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout bounds reading an incoming request.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout bounds writing a response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown on exit.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// MaxUploadBytes is the maximum accepted size for PDF uploads.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
}

// DatabaseConfig holds PostgreSQL pool settings.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port, 5432 by default.
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password; set it through the environment in production.
	Password string `mapstructure:"password"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool.
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open.
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime retires connections older than this.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime closes connections idle longer than this.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is how often idle connections are checked.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout bounds establishing a new connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath points at the schema migration files.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun applies pending migrations at startup when true.
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum level that gets logged.
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource annotates entries with file and line.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled turns the metrics listener on.
	Enabled bool `mapstructure:"enabled"`
	// Path is where the metrics handler is mounted.
	Path string `mapstructure:"path"`
}

// LLMConfig holds analysis engine configuration.
type LLMConfig struct {
	// APIKey is the OpenAI API key (loaded from SCIPAPER_LLM_API_KEY).
	APIKey string `mapstructure:"-"`
	// Model is the model identifier.
	Model string `mapstructure:"model"`
	// BaseURL is the API base URL (for custom endpoints).
	BaseURL string `mapstructure:"base_url"`
	// Temperature is the sampling temperature. Kept low to favor
	// deterministic extraction.
	Temperature float64 `mapstructure:"temperature"`
	// Timeout is the timeout for analysis calls. Generation over full
	// paper text is slow; this is minutes, not seconds.
	Timeout time.Duration `mapstructure:"timeout"`
}

// SearchConfig holds Elasticsearch settings.
type SearchConfig struct {
	// URL is the Elasticsearch endpoint. Empty disables the search backend.
	URL string `mapstructure:"url"`
	// APIKey is the Elasticsearch API key (loaded from SCIPAPER_SEARCH_API_KEY).
	APIKey string `mapstructure:"-"`
	// Index is the name of the paper index.
	Index string `mapstructure:"index"`
}

// GraphConfig holds Neo4j settings.
type GraphConfig struct {
	// URI is the Neo4j connection URI (e.g. neo4j://localhost:7687).
	// Empty disables the graph backend.
	URI string `mapstructure:"uri"`
	// Username is the Neo4j username.
	Username string `mapstructure:"username"`
	// Password is the Neo4j password (loaded from SCIPAPER_GRAPH_PASSWORD).
	Password string `mapstructure:"-"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	// Endpoint is the S3-compatible endpoint host:port. Empty disables
	// object storage; the worker refuses to start without it.
	Endpoint string `mapstructure:"endpoint"`
	// AccessKey is the access key (loaded from SCIPAPER_STORAGE_ACCESS_KEY).
	AccessKey string `mapstructure:"-"`
	// SecretKey is the secret key (loaded from SCIPAPER_STORAGE_SECRET_KEY).
	SecretKey string `mapstructure:"-"`
	// Bucket is the bucket holding uploaded paper files.
	Bucket string `mapstructure:"bucket"`
	// UseSSL enables TLS for the storage connection.
	UseSSL bool `mapstructure:"use_ssl"`
}

// KafkaConfig holds job queue broker settings.
type KafkaConfig struct {
	// Brokers lists the Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the topic carrying analysis jobs.
	Topic string `mapstructure:"topic"`
	// GroupID is the worker consumer group.
	GroupID string `mapstructure:"group_id"`
	// BatchTimeout is the maximum time the producer waits for a batch to fill.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
}

// PaperSourcesConfig holds configuration for all bibliographic source APIs.
type PaperSourcesConfig struct {
	// PubMed contains PubMed E-utilities settings.
	PubMed PaperSourceConfig `mapstructure:"pubmed"`
	// ArXiv contains arXiv API settings.
	ArXiv PaperSourceConfig `mapstructure:"arxiv"`
}

// PaperSourceConfig holds configuration for a single bibliographic source API.
type PaperSourceConfig struct {
	// Enabled switches the source on.
	Enabled bool `mapstructure:"enabled"`
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit caps requests per second against the source API.
	RateLimit float64 `mapstructure:"rate_limit"`
	// MaxResults caps results fetched per query.
	MaxResults int `mapstructure:"max_results"`
}

// DSN renders the PostgreSQL connection URL.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
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

	setDefaults(v)

	v.SetEnvPrefix("SCIPAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-enrichment-service")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine; env vars and defaults cover everything.
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
func loadSecrets(cfg *Config) {
	cfg.LLM.APIKey = os.Getenv("SCIPAPER_LLM_API_KEY")
	cfg.Search.APIKey = os.Getenv("SCIPAPER_SEARCH_API_KEY")
	cfg.Graph.Password = os.Getenv("SCIPAPER_GRAPH_PASSWORD")
	cfg.Storage.AccessKey = os.Getenv("SCIPAPER_STORAGE_ACCESS_KEY")
	cfg.Storage.SecretKey = os.Getenv("SCIPAPER_STORAGE_SECRET_KEY")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	// The analyze endpoint runs an LLM call synchronously, so the write
	// timeout must outlast llm.timeout or a slow analysis persists its
	// row and then fails to write the response.
	v.SetDefault("server.write_timeout", "6m")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.max_upload_bytes", 50*1024*1024)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "scipaper")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "paper_enrichment_service")
	// Default to "require" for production security. Use
	// SCIPAPER_DATABASE_SSL_MODE=disable for local development.
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 50)
	v.SetDefault("database.min_conns", 10)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "30s")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "migrations")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	// LLM defaults. The API key is loaded exclusively from environment
	// variables (see loadSecrets).
	v.SetDefault("llm.model", "gpt-4")
	v.SetDefault("llm.base_url", "https://api.openai.com/v1")
	v.SetDefault("llm.temperature", 0.2)
	v.SetDefault("llm.timeout", "5m")

	// Search defaults
	v.SetDefault("search.url", "http://localhost:9200")
	v.SetDefault("search.index", "scipaper-papers")

	// Graph defaults
	v.SetDefault("graph.uri", "neo4j://localhost:7687")
	v.SetDefault("graph.username", "neo4j")

	// Storage defaults
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.bucket", "paper-files")
	v.SetDefault("storage.use_ssl", false)

	// Kafka defaults
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "jobs.analysis.paper_enrichment_service")
	v.SetDefault("kafka.group_id", "paper-enrichment-workers")
	v.SetDefault("kafka.batch_timeout", "10ms")

	// Paper sources defaults - PubMed
	v.SetDefault("paper_sources.pubmed.enabled", true)
	v.SetDefault("paper_sources.pubmed.base_url", "https://eutils.ncbi.nlm.nih.gov/entrez/eutils")
	v.SetDefault("paper_sources.pubmed.timeout", "30s")
	v.SetDefault("paper_sources.pubmed.rate_limit", 3.0) // NCBI recommends max 3 req/sec without API key
	v.SetDefault("paper_sources.pubmed.max_results", 100)

	// Paper sources defaults - arXiv
	v.SetDefault("paper_sources.arxiv.enabled", true)
	v.SetDefault("paper_sources.arxiv.base_url", "https://export.arxiv.org/api")
	v.SetDefault("paper_sources.arxiv.timeout", "30s")
	v.SetDefault("paper_sources.arxiv.rate_limit", 3.0) // arXiv recommends max 3 req/sec
	v.SetDefault("paper_sources.arxiv.max_results", 100)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

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

	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature must be between 0 and 2")
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("llm timeout must be positive")
	}

	// Search, graph, and storage are optional backends. An empty URL,
	// URI, or endpoint disables the backend and its endpoints answer
	// 503; only the settings of a configured backend are checked.
	if c.Search.URL != "" && c.Search.Index == "" {
		return fmt.Errorf("search index is required when search url is set")
	}
	if c.Storage.Endpoint != "" && c.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required when storage endpoint is set")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker is required")
	}
	if c.Kafka.Topic == "" {
		return fmt.Errorf("kafka topic is required")
	}

	return nil
}
