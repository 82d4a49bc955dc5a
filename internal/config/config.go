// Package config loads and validates harvester configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Browser BrowserConfig `mapstructure:"browser"`
	Sources SourcesConfig `mapstructure:"sources"`
	Storage StorageConfig `mapstructure:"storage"`
	Query   QueryConfig   `mapstructure:"query"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	RunLog  RunLogConfig  `mapstructure:"runlog"`
	Report  ReportConfig  `mapstructure:"report"`
	Rules   RulesConfig   `mapstructure:"rules"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the status HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// BrowserConfig governs the headless browser session used for the registry
// source.
type BrowserConfig struct {
	Headless          bool   `mapstructure:"headless"`
	UserAgent         string `mapstructure:"user_agent"`
	NavTimeoutSeconds int    `mapstructure:"nav_timeout_seconds"`
}

// SourcesConfig holds the date-templated base URLs for both sources.
type SourcesConfig struct {
	RegistryBaseURL string `mapstructure:"registry_base_url"`
	GazetteBaseURL  string `mapstructure:"gazette_base_url"`
}

// StorageConfig selects and parameterizes the partitioned object store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	Prefix    string `mapstructure:"prefix"`
	LocalDir  string `mapstructure:"local_dir"`
}

// QueryConfig configures the analytic query engine client.
type QueryConfig struct {
	CompaniesSchema string `mapstructure:"companies_schema"`
	CompaniesTable  string `mapstructure:"companies_table"`
	StaffSchema     string `mapstructure:"staff_schema"`
	StaffTable      string `mapstructure:"staff_table"`
	PollIntervalMs  int    `mapstructure:"poll_interval_ms"`
	MaxWaitSeconds  int    `mapstructure:"max_wait_seconds"`
}

// PubSubConfig holds metadata for run completion events.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// RunLogConfig controls the Postgres run ledger.
type RunLogConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// ReportConfig describes report delivery.
type ReportConfig struct {
	Recipients []string `mapstructure:"recipients"`
	Subject    string   `mapstructure:"subject"`
	Body       string   `mapstructure:"body"`
	FileName   string   `mapstructure:"file_name"`
}

// RulesConfig parameterizes the per-tier rule chains.
type RulesConfig struct {
	ActionTypeBlocklist []string `mapstructure:"action_type_blocklist"`
	DeliveryColumns     []string `mapstructure:"delivery_columns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HARVESTER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.user_agent", "registry-harvester/1.0")
	v.SetDefault("browser.nav_timeout_seconds", 25)
	v.SetDefault("storage.provider", "gcs")
	v.SetDefault("storage.prefix", "scraper/registry")
	v.SetDefault("query.companies_schema", "bd_in_tablas_generales")
	v.SetDefault("query.companies_table", "tbl_maestro_empresas")
	v.SetDefault("query.staff_schema", "bd_dlk_bcc_tablas_generales")
	v.SetDefault("query.staff_table", "tbl_base_funcionarios")
	v.SetDefault("query.poll_interval_ms", 2000)
	v.SetDefault("query.max_wait_seconds", 300)
	v.SetDefault("runlog.table", "harvest_runs")
	v.SetDefault("rules.delivery_columns", []string{
		"source", "identifier", "identifier_check_digit", "display_name",
		"action_type", "verification_code", "document_url", "event_date",
		"ingestion_date", "segment", "platform", "staff_name", "staff_email",
		"staff_unit",
	})
	v.SetDefault("report.subject", "Registro de empresas: reporte diario")
	v.SetDefault("report.file_name", "reporte_registro")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Browser.NavTimeoutSeconds <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	switch c.Storage.Provider {
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set when storage.provider is gcs")
		}
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage.local_dir must be set when storage.provider is local")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	if c.Query.PollIntervalMs <= 0 {
		return fmt.Errorf("query.poll_interval_ms must be > 0")
	}
	if c.Query.MaxWaitSeconds <= 0 {
		return fmt.Errorf("query.max_wait_seconds must be > 0")
	}
	return nil
}

// NavTimeout converts the browser navigation timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}

// PollInterval converts the query poll interval into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Query.PollIntervalMs) * time.Millisecond
}

// QueryBudget converts the query wait ceiling into a duration.
func (c Config) QueryBudget() time.Duration {
	return time.Duration(c.Query.MaxWaitSeconds) * time.Second
}
