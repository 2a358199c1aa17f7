package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/pixelmuse/pixelmuse/internal/shared/config"
)

type Config struct {
	Server   sharedConfig.ServerConfig          `mapstructure:"server"`
	Database sharedConfig.DatabaseConfig        `mapstructure:"database"`
	Logger   sharedConfig.LoggerConfig          `mapstructure:"logger"`
	Auth     sharedConfig.AuthConfig            `mapstructure:"auth"`
	Email    sharedConfig.EmailConfig           `mapstructure:"email"`
	Redis    sharedConfig.RedisConfig           `mapstructure:"redis"`
	Gateway  sharedConfig.GatewayConfig         `mapstructure:"gateway"`
	Billing  sharedConfig.BillingConfig         `mapstructure:"billing"`
	Plans    map[string]sharedConfig.PlanConfig `mapstructure:"plans"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load loads configuration from file and environment variables
func Load(env string) (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../configs")
	viper.AddConfigPath("../../configs")

	viper.SetEnvPrefix("PIXELMUSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Allow env parameter to override server mode if provided
	if env != "" && env != "default" {
		viper.Set("server.mode", env)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the loaded configuration
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func validate(cfg *Config) error {
	if len(cfg.Plans) == 0 {
		return fmt.Errorf("plan catalog is empty")
	}
	if _, ok := cfg.Plans["free"]; !ok {
		return fmt.Errorf("plan catalog must define the free tier")
	}
	if cfg.Billing.PendingExpiryHours <= 0 {
		return fmt.Errorf("billing.pending_expiry_hours must be positive")
	}
	if cfg.Billing.UsageRetentionDays <= 0 {
		return fmt.Errorf("billing.usage_retention_days must be positive")
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "debug")

	// Database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 3306)
	viper.SetDefault("database.username", "root")
	viper.SetDefault("database.password", "password")
	viper.SetDefault("database.database", "pixelmuse_dev")
	viper.SetDefault("database.max_idle_conns", 10)
	viper.SetDefault("database.max_open_conns", 100)
	viper.SetDefault("database.conn_max_lifetime", 60)

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("logger.output_path", "stdout")

	// Auth defaults
	viper.SetDefault("auth.jwt.secret", "change-me-in-production")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	// Email defaults
	viper.SetDefault("email.smtp_host", "")
	viper.SetDefault("email.smtp_port", 587)
	viper.SetDefault("email.from_name", "PixelMuse")

	// Gateway defaults
	viper.SetDefault("gateway.base_url", "https://api.payflow.example.com")
	viper.SetDefault("gateway.timeout_seconds", 15)

	// Billing defaults
	viper.SetDefault("billing.timezone", "UTC")
	viper.SetDefault("billing.pending_expiry_hours", 24)
	viper.SetDefault("billing.usage_retention_days", 90)
	viper.SetDefault("billing.renewal_interval_hours", 1)
	viper.SetDefault("billing.ledger_interval_minutes", 15)
	viper.SetDefault("billing.usage_purge_interval_hours", 24)
	viper.SetDefault("billing.webhook_rate_per_minute", 120)

	// Plan catalog defaults
	viper.SetDefault("plans.free.daily_generation_limit", 10)
	viper.SetDefault("plans.free.monthly_generation_limit", 100)
	viper.SetDefault("plans.free.monthly_price_cents", 0)
	viper.SetDefault("plans.free.yearly_price_cents", 0)
	viper.SetDefault("plans.free.watermark", true)
	viper.SetDefault("plans.free.priority_queue", false)

	viper.SetDefault("plans.basic.daily_generation_limit", 100)
	viper.SetDefault("plans.basic.monthly_generation_limit", 1500)
	viper.SetDefault("plans.basic.monthly_price_cents", 999)
	viper.SetDefault("plans.basic.yearly_price_cents", 9990)
	viper.SetDefault("plans.basic.watermark", false)
	viper.SetDefault("plans.basic.priority_queue", false)

	viper.SetDefault("plans.premium.daily_generation_limit", -1)
	viper.SetDefault("plans.premium.monthly_generation_limit", 10000)
	viper.SetDefault("plans.premium.monthly_price_cents", 2999)
	viper.SetDefault("plans.premium.yearly_price_cents", 29990)
	viper.SetDefault("plans.premium.watermark", false)
	viper.SetDefault("plans.premium.priority_queue", true)
}
