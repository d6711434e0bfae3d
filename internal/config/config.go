package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// MaxStorePageSize is the hard per-call row cap of the record store.
const MaxStorePageSize = 1000

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Finance     FinanceConfig   `mapstructure:"finance"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
	Security    SecurityConfig  `mapstructure:"security"`
	MCP         MCPConfig       `mapstructure:"mcp"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxConns        int32  `mapstructure:"max_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
}

// DSN returns DatabaseURL when set, otherwise a key/value connection string.
func (c DatabaseConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// FinanceConfig holds the time-aware aggregation settings.
type FinanceConfig struct {
	BusinessTimezone string `mapstructure:"business_timezone"`
	PageSize         int    `mapstructure:"page_size"`
	CoreSource       string `mapstructure:"core_source"`
	LiveSource       string `mapstructure:"live_source"`
	SettingsTable    string `mapstructure:"settings_table"`
	AuditTable       string `mapstructure:"audit_table"`
	CoreCacheTTL     string `mapstructure:"core_cache_ttl"`
	LiveCacheTTL     string `mapstructure:"live_cache_ttl"`
	EpochCacheTTL    string `mapstructure:"epoch_cache_ttl"`
	EpochLockTTL     string `mapstructure:"epoch_lock_ttl"`
	TrendPeriod      int    `mapstructure:"trend_period"`
}

// Location loads the business timezone.
func (c FinanceConfig) Location() (*time.Location, error) {
	if strings.TrimSpace(c.BusinessTimezone) == "" {
		return nil, errors.New("finance.business_timezone is required")
	}
	loc, err := time.LoadLocation(c.BusinessTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid business timezone %q: %w", c.BusinessTimezone, err)
	}
	return loc, nil
}

// CoreTTL returns the Core reader cache lifetime.
func (c FinanceConfig) CoreTTL() time.Duration { return mustDuration(c.CoreCacheTTL) }

// LiveTTL returns the Live reader cache lifetime.
func (c FinanceConfig) LiveTTL() time.Duration { return mustDuration(c.LiveCacheTTL) }

// EpochTTL returns the epoch cache lifetime.
func (c FinanceConfig) EpochTTL() time.Duration { return mustDuration(c.EpochCacheTTL) }

// LockTTL returns how long an epoch update lock is held at most.
func (c FinanceConfig) LockTTL() time.Duration { return mustDuration(c.EpochLockTTL) }

type TelemetryConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	Exporter       string  `mapstructure:"exporter"`
	OTLPEndpoint   string  `mapstructure:"otlp_endpoint"`
	OTLPLogs       bool    `mapstructure:"otlp_logs"`
	ServiceName    string  `mapstructure:"service_name"`
	ServiceVersion string  `mapstructure:"service_version"`
	SampleRate     float64 `mapstructure:"sample_rate"`
}

type SecurityConfig struct {
	JWTSecret   string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	AdminAPIKey string `mapstructure:"admin_api_key" json:"-" yaml:"-"`
}

type MCPConfig struct {
	Transport string `mapstructure:"transport"`
	Port      int    `mapstructure:"port"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}
	if err := viper.BindEnv("security.admin_api_key", "ADMIN_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind ADMIN_API_KEY environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks settings that have no safe fallback.
func (c *Config) Validate() error {
	if c.Environment != "development" && c.Security.JWTSecret == "" {
		return errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	if _, err := c.Finance.Location(); err != nil {
		return err
	}

	if c.Finance.PageSize < 1 || c.Finance.PageSize > MaxStorePageSize {
		return fmt.Errorf("finance.page_size must be between 1 and %d, got %d", MaxStorePageSize, c.Finance.PageSize)
	}

	for name, value := range map[string]string{
		"finance.core_cache_ttl":  c.Finance.CoreCacheTTL,
		"finance.live_cache_ttl":  c.Finance.LiveCacheTTL,
		"finance.epoch_cache_ttl": c.Finance.EpochCacheTTL,
		"finance.epoch_lock_ttl":  c.Finance.EpochLockTTL,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s duration: %w", name, err)
		}
	}

	if c.Finance.TrendPeriod < 1 {
		return fmt.Errorf("finance.trend_period must be positive, got %d", c.Finance.TrendPeriod)
	}

	switch c.Telemetry.Exporter {
	case "otlp", "stdout":
	default:
		return fmt.Errorf("unknown telemetry exporter %q", c.Telemetry.Exporter)
	}

	switch c.MCP.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("unknown mcp transport %q", c.MCP.Transport)
	}

	return nil
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func setDefaults() {
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "funnel_finance")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_conns", 10)
	viper.SetDefault("database.conn_max_lifetime", "300s")

	// Redis
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Finance
	viper.SetDefault("finance.business_timezone", "America/Sao_Paulo")
	viper.SetDefault("finance.page_size", MaxStorePageSize)
	viper.SetDefault("finance.core_source", "financial_core_daily")
	viper.SetDefault("finance.live_source", "financial_live_today")
	viper.SetDefault("finance.settings_table", "project_financial_settings")
	viper.SetDefault("finance.audit_table", "financial_access_audit")
	viper.SetDefault("finance.core_cache_ttl", "5m")
	viper.SetDefault("finance.live_cache_ttl", "30s")
	viper.SetDefault("finance.epoch_cache_ttl", "10m")
	viper.SetDefault("finance.epoch_lock_ttl", "10s")
	viper.SetDefault("finance.trend_period", 7)

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.exporter", "otlp")
	viper.SetDefault("telemetry.otlp_endpoint", "localhost:4318")
	viper.SetDefault("telemetry.otlp_logs", false)
	viper.SetDefault("telemetry.service_name", "funnel-finance-go")
	viper.SetDefault("telemetry.service_version", "1.0.0")
	viper.SetDefault("telemetry.sample_rate", 1.0)

	// Security
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.admin_api_key", "")

	// MCP
	viper.SetDefault("mcp.transport", "stdio")
	viper.SetDefault("mcp.port", 8090)
}
