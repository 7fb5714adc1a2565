package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	APIs         APIsConfig              `mapstructure:"apis"`
	Report       ReportConfig            `mapstructure:"report"`
	Server       ServerConfig            `mapstructure:"server"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Registry     RegistryConfig          `mapstructure:"registry"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	// BPMN files deployed at startup
	DeployResources []string `mapstructure:"deploy_resources"`
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Username    string   `mapstructure:"username"`
	Password    string   `mapstructure:"password"`
	URL         string   `mapstructure:"url"`
	ReportIndex string   `mapstructure:"report_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// APIsConfig holds settings for the hosted model and the optional analysis service.
type APIsConfig struct {
	Anthropic struct {
		APIKey              string  `mapstructure:"api_key"`
		BaseURL             string  `mapstructure:"base_url"`
		Model               string  `mapstructure:"model"`
		MaxTokens           int     `mapstructure:"max_tokens"`
		Temperature         float64 `mapstructure:"temperature"`
		AnalysisMaxTokens   int     `mapstructure:"analysis_max_tokens"`
		AnalysisTemperature float64 `mapstructure:"analysis_temperature"`
		Timeout             int     `mapstructure:"timeout"` // milliseconds
		MaxRetries          int     `mapstructure:"max_retries"`
	} `mapstructure:"anthropic"`

	AnalysisService struct {
		Enabled         bool   `mapstructure:"enabled"`
		BaseURL         string `mapstructure:"base_url"`
		Timeout         int    `mapstructure:"timeout"` // milliseconds
		FallbackOnError bool   `mapstructure:"fallback_on_error"`
	} `mapstructure:"analysis_service"`
}

// ReportConfig holds the report layout and caching settings.
type ReportConfig struct {
	Brand       string  `mapstructure:"brand"`
	Attribution string  `mapstructure:"attribution"`
	PageWidth   float64 `mapstructure:"page_width"`  // mm
	PageHeight  float64 `mapstructure:"page_height"` // mm
	Margin      float64 `mapstructure:"margin"`      // mm
	ChartWidth  int     `mapstructure:"chart_width"` // px
	ChartHeight int     `mapstructure:"chart_height"`
	CacheTTL    int     `mapstructure:"cache_ttl"` // seconds
	Bucket      string  `mapstructure:"bucket"`
	KeyPrefix   string  `mapstructure:"key_prefix"`
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Address            string   `mapstructure:"address"`
	AllowedOrigins     []string `mapstructure:"allowed_origins"`
	RateLimitPerMinute int      `mapstructure:"rate_limit_per_minute"`
	SessionIdleTimeout int      `mapstructure:"session_idle_timeout"` // seconds
	MaxBodyBytes       int64    `mapstructure:"max_body_bytes"`
}

// IntegrationConfig holds the AWS settings used for report storage and delivery.
type IntegrationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
		S3 struct {
			Enabled  bool   `mapstructure:"enabled"`
			Endpoint string `mapstructure:"endpoint"`
		} `mapstructure:"s3"`
	} `mapstructure:"aws"`
}

// RegistryConfig points at the activity registry describing worker contracts.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
