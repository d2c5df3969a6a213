package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Storage   StorageConfig   `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Snowflake SnowflakeConfig `yaml:"snowflake"`
	Redis     RedisConfig     `yaml:"redis"`
	Report    ReportConfig    `yaml:"report"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadMB    int      `yaml:"max_upload_mb"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// Redact reports whether PII redaction is on. Defaults to true.
func (c LogConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// AnalyticsConfig holds pipeline defaults: column names, seeds and model parameters.
type AnalyticsConfig struct {
	TextColumn        string  `yaml:"text_column"`
	RatingColumn      string  `yaml:"rating_column"`
	PositiveThreshold int     `yaml:"positive_threshold"`
	TestSize          float64 `yaml:"test_size"`
	MaxIter           int     `yaml:"max_iter"`
	RandomState       int64   `yaml:"random_state"`

	CustomerColumn string `yaml:"customer_column"`
	DateColumn     string `yaml:"date_column"`
	AmountColumn   string `yaml:"amount_column"`
	Clusters       int    `yaml:"clusters"`
	KMeansInit     int    `yaml:"kmeans_n_init"`

	// MaxModels caps the trained sentiment models kept for prediction.
	MaxModels int `yaml:"max_models"`
}

// StorageConfig holds storage configuration for run summaries and artifacts
type StorageConfig struct {
	Type          string `yaml:"type"` // "local" or "aws"
	LocalPath     string `yaml:"local_path"`
	S3Bucket      string `yaml:"s3_bucket"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// PostgresConfig holds the transactional database used as a data source
type PostgresConfig struct {
	Enabled     bool   `yaml:"enabled"`
	DatabaseURL string `yaml:"database_url"`
	MaxOpen     int    `yaml:"max_open_conns"`
}

// SnowflakeConfig holds Snowflake warehouse configuration
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Enabled   bool   `yaml:"enabled"`
}

// RedisConfig holds the cache used for clustering results and run locks
type RedisConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	CacheTTLMinutes int    `yaml:"cache_ttl_minutes"`
	LockTTLSeconds  int    `yaml:"lock_ttl_seconds"`
}

// CacheTTL returns the cache entry lifetime
func (c RedisConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMinutes) * time.Minute
}

// LockTTL returns the run lock lifetime
func (c RedisConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// ReportConfig holds SES settings for emailing analysis summaries
type ReportConfig struct {
	Enabled     bool     `yaml:"enabled"`
	FromAddress string   `yaml:"from_address"`
	Recipients  []string `yaml:"recipients"`
	Region      string   `yaml:"region"`
	AccessKey   string   `yaml:"access_key"`
	SecretKey   string   `yaml:"secret_key"`

	// NarrativeModel is a Bedrock model id. When set, reports end with a
	// generated commentary.
	NarrativeModel string `yaml:"narrative_model"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := preset()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a configuration with every default applied, for callers
// that run without a config file.
func Default() *Config {
	cfg := preset()
	applyDefaults(&cfg)
	return &cfg
}

// preset holds the defaults of fields for which zero is a valid setting.
// They are set before the file is decoded so that an explicit 0 survives.
func preset() Config {
	return Config{Analytics: AnalyticsConfig{PositiveThreshold: 4, RandomState: 42}}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 64
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	a := &cfg.Analytics
	if a.TextColumn == "" {
		a.TextColumn = "ReviewText"
	}
	if a.RatingColumn == "" {
		a.RatingColumn = "Rating"
	}
	if a.TestSize == 0 {
		a.TestSize = 0.2
	}
	if a.MaxIter == 0 {
		a.MaxIter = 1000
	}
	if a.CustomerColumn == "" {
		a.CustomerColumn = "CustomerID"
	}
	if a.DateColumn == "" {
		a.DateColumn = "InvoiceDate"
	}
	if a.AmountColumn == "" {
		a.AmountColumn = "Amount"
	}
	if a.Clusters == 0 {
		a.Clusters = 4
	}
	if a.KMeansInit == 0 {
		a.KMeansInit = 1
	}
	if a.MaxModels == 0 {
		a.MaxModels = 32
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "local"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.Postgres.MaxOpen == 0 {
		cfg.Postgres.MaxOpen = 10
	}
	// Snowflake defaults
	if cfg.Snowflake.Database == "" {
		cfg.Snowflake.Database = "MARKETING"
	}
	if cfg.Snowflake.Schema == "" {
		cfg.Snowflake.Schema = "PUBLIC"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.CacheTTLMinutes == 0 {
		cfg.Redis.CacheTTLMinutes = 60
	}
	if cfg.Redis.LockTTLSeconds == 0 {
		cfg.Redis.LockTTLSeconds = 300
	}
	if cfg.Report.Region == "" {
		cfg.Report.Region = cfg.Storage.AWSRegion
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
// An empty path starts from Default().
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		var err error
		if cfg, err = Load(path); err != nil {
			return nil, err
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ANALYTICS_RANDOM_STATE"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Analytics.RandomState = n
		}
	}

	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Postgres.DatabaseURL = dbURL
		cfg.Postgres.Enabled = true
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("ANALYTICS_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.Report.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.Report.SecretKey = v
	}
	if v := os.Getenv("REPORT_NARRATIVE_MODEL"); v != "" {
		cfg.Report.NarrativeModel = v
	}

	return cfg, nil
}
