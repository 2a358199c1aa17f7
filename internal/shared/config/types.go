package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (c *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (c *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type AuthConfig struct {
	JWT JWTConfig `mapstructure:"jwt"`
}

type JWTConfig struct {
	Secret string `mapstructure:"secret"`
}

type EmailConfig struct {
	SMTPHost    string `mapstructure:"smtp_host"`
	SMTPPort    int    `mapstructure:"smtp_port"`
	SMTPUser    string `mapstructure:"smtp_user"`
	SMTPPass    string `mapstructure:"smtp_password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
	BaseURL     string `mapstructure:"base_url"`
}

// GatewayConfig configures the PayFlow payment gateway client.
type GatewayConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	APIKey         string `mapstructure:"api_key"`
	SigningSecret  string `mapstructure:"signing_secret"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ReturnURL      string `mapstructure:"return_url"`
	WebhookURL     string `mapstructure:"webhook_url"`
}

// BillingConfig groups the billing-engine tunables: how long a checkout may
// stay pending, how long usage rows are retained, and how often the
// background schedulers tick.
type BillingConfig struct {
	Timezone                string `mapstructure:"timezone"`
	PendingExpiryHours      int    `mapstructure:"pending_expiry_hours"`
	UsageRetentionDays      int    `mapstructure:"usage_retention_days"`
	RenewalIntervalHours    int    `mapstructure:"renewal_interval_hours"`
	LedgerIntervalMinutes   int    `mapstructure:"ledger_interval_minutes"`
	UsagePurgeIntervalHours int    `mapstructure:"usage_purge_interval_hours"`
	WebhookRatePerMinute    int    `mapstructure:"webhook_rate_per_minute"`
}

// PendingTTL returns how long a checkout may stay pending before the
// ledger sweep expires it.
func (c *BillingConfig) PendingTTL() time.Duration {
	return time.Duration(c.PendingExpiryHours) * time.Hour
}

func (c *BillingConfig) RenewalInterval() time.Duration {
	return time.Duration(c.RenewalIntervalHours) * time.Hour
}

func (c *BillingConfig) LedgerInterval() time.Duration {
	return time.Duration(c.LedgerIntervalMinutes) * time.Minute
}

func (c *BillingConfig) UsagePurgeInterval() time.Duration {
	return time.Duration(c.UsagePurgeIntervalHours) * time.Hour
}

// PlanConfig describes one tier of the static plan catalog. Plans are
// read-only reference data; changes only affect future renewals.
type PlanConfig struct {
	DailyGenerationLimit   int   `mapstructure:"daily_generation_limit"`
	MonthlyGenerationLimit int   `mapstructure:"monthly_generation_limit"`
	MonthlyPriceCents      int64 `mapstructure:"monthly_price_cents"`
	YearlyPriceCents       int64 `mapstructure:"yearly_price_cents"`
	Watermark              bool  `mapstructure:"watermark"`
	PriorityQueue          bool  `mapstructure:"priority_queue"`
}
