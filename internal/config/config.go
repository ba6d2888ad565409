// Package config loads service settings from the environment, optionally
// layered over a dotenv file named by CONFIG_FILE.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Port            string        `mapstructure:"PORT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`

	OrderAPIURL       string        `mapstructure:"ORDER_API_URL"`
	HTTPClientTimeout time.Duration `mapstructure:"HTTP_CLIENT_TIMEOUT"`
	BreakerFailures   uint32        `mapstructure:"ORDER_API_BREAKER_FAILURES"`
	BreakerTimeout    time.Duration `mapstructure:"ORDER_API_BREAKER_TIMEOUT"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	PostgresURL      string `mapstructure:"POSTGRES_URL"`
	PostgresMaxConns int    `mapstructure:"POSTGRES_MAX_CONNS"`

	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	EmailServiceURL string `mapstructure:"EMAIL_SERVICE_URL"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	// ShippingFeeDefault and ShippingFees are in the base currency.
	// ShippingFees holds per-country overrides as "country=fee" pairs
	// separated by commas.
	ShippingFeeDefault string `mapstructure:"SHIPPING_FEE_DEFAULT"`
	ShippingFees       string `mapstructure:"SHIPPING_FEES"`

	shipping map[string]decimal.Decimal
	fallback decimal.Decimal
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"SHUTDOWN_TIMEOUT":            "10s",
	"ORDER_API_URL":               "",
	"HTTP_CLIENT_TIMEOUT":         "10s",
	"ORDER_API_BREAKER_FAILURES":  5,
	"ORDER_API_BREAKER_TIMEOUT":   "30s",
	"REDIS_ADDR":                  "localhost:6379",
	"REDIS_PASSWORD":              "",
	"REDIS_DB":                    0,
	"POSTGRES_URL":                "",
	"POSTGRES_MAX_CONNS":          10,
	"KAFKA_BROKERS":               "",
	"EMAIL_SERVICE_URL":           "",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "localhost:4317",
	"SHIPPING_FEE_DEFAULT":        "2",
	"SHIPPING_FEES":               "",
}

// Load reads the configuration from the process environment.
func Load() (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.parseShipping(); err != nil {
		return nil, err
	}
	if cfg.HTTPClientTimeout <= 0 {
		return nil, fmt.Errorf("HTTP_CLIENT_TIMEOUT must be positive, got %s", cfg.HTTPClientTimeout)
	}
	return cfg, nil
}

// Require fails when any of the named settings is empty.
func (c *Config) Require(keys ...string) error {
	values := map[string]string{
		"ORDER_API_URL":     c.OrderAPIURL,
		"REDIS_ADDR":        c.RedisAddr,
		"POSTGRES_URL":      c.PostgresURL,
		"KAFKA_BROKERS":     c.KafkaBrokers,
		"EMAIL_SERVICE_URL": c.EmailServiceURL,
	}

	var errs []error
	for _, k := range keys {
		val, known := values[k]
		if !known {
			errs = append(errs, fmt.Errorf("%s is not a known setting", k))
			continue
		}
		if strings.TrimSpace(val) == "" {
			errs = append(errs, fmt.Errorf("%s environment variable is required", k))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) Brokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaBrokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ShippingFee returns the configured fee for country, falling back to the
// default fee.
func (c *Config) ShippingFee(country string) decimal.Decimal {
	if fee, ok := c.shipping[strings.TrimSpace(country)]; ok {
		return fee
	}
	return c.fallback
}

func (c *Config) parseShipping() error {
	fallback, err := parseFee(c.ShippingFeeDefault)
	if err != nil {
		return fmt.Errorf("SHIPPING_FEE_DEFAULT: %w", err)
	}
	c.fallback = fallback
	c.shipping = make(map[string]decimal.Decimal)

	for _, pair := range strings.Split(c.ShippingFees, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		country, raw, ok := strings.Cut(pair, "=")
		country = strings.TrimSpace(country)
		if !ok || country == "" {
			return fmt.Errorf("SHIPPING_FEES: malformed entry %q", pair)
		}
		fee, err := parseFee(raw)
		if err != nil {
			return fmt.Errorf("SHIPPING_FEES %s: %w", country, err)
		}
		c.shipping[country] = fee
	}
	return nil
}

func parseFee(raw string) (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid fee %q: %w", raw, err)
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative fee %s", fee)
	}
	return fee, nil
}
