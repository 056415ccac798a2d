package config

import (
	"os"
	"strconv"
	"time"
)

// Config is an immutable snapshot of everything a pipeline run needs.
// It is built once (Load) and passed by parameter; reloading produces a
// new value instead of mutating shared state.
type Config struct {
	Port string
	Env  string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string

	WooURL            string
	WooConsumerKey    string
	WooConsumerSecret string

	StripeSecretKey     string
	StripeWebhookSecret string

	// Idempotency lookback window for the WooCommerce order scan.
	LookbackWindow time.Duration

	// Fixed page sizes for the paginated list endpoints.
	OrderPageSize    int
	ProductPageSize  int
	LineItemPageSize int
	// Hard cap on pages fetched per listing, so scans terminate even if
	// a remote API keeps returning results.
	MaxPages int

	RequestTimeout time.Duration

	// Redis-backed product listing cache, disabled when RedisAddr is empty.
	RedisAddr       string
	RedisPassword   string
	ProductCacheTTL time.Duration

	KafkaBrokers string
	KafkaTopic   string
	SNSTopicARN  string
}

// Setting keys recognised by WithSettings. Same keys the admin surface
// writes to the settings table.
const (
	SettingWooURL            = "woocommerce_url"
	SettingWooConsumerKey    = "woocommerce_consumer_key"
	SettingWooConsumerSecret = "woocommerce_consumer_secret"
	SettingStripeAPIKey      = "stripe_api_key"
	SettingStripeWebhookKey  = "stripe_webhook_secret"
)

// Load builds a configuration snapshot from the environment.
func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("APP_ENV", "development"),

		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:       os.Getenv("POSTGRES_DB"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		WooURL:            os.Getenv("WOOCOMMERCE_URL"),
		WooConsumerKey:    os.Getenv("WOOCOMMERCE_CONSUMER_KEY"),
		WooConsumerSecret: os.Getenv("WOOCOMMERCE_CONSUMER_SECRET"),

		StripeSecretKey:     os.Getenv("STRIPE_API_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		LookbackWindow:   time.Duration(getEnvInt("LOOKBACK_DAYS", 7)) * 24 * time.Hour,
		OrderPageSize:    getEnvInt("ORDER_PAGE_SIZE", 100),
		ProductPageSize:  getEnvInt("PRODUCT_PAGE_SIZE", 100),
		LineItemPageSize: getEnvInt("LINE_ITEM_PAGE_SIZE", 5),
		MaxPages:         getEnvInt("MAX_PAGES", 50),

		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 30)) * time.Second,

		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		ProductCacheTTL: time.Duration(getEnvInt("PRODUCT_CACHE_TTL_SECONDS", 300)) * time.Second,

		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "order-reconciled-events"),
		SNSTopicARN:  os.Getenv("RECONCILE_SNS_TOPIC_ARN"),
	}
}

// WithSettings returns a new snapshot with admin-stored credentials
// overlaid. Empty values leave the environment-derived ones in place.
func (c Config) WithSettings(settings map[string]string) *Config {
	if v := settings[SettingWooURL]; v != "" {
		c.WooURL = v
	}
	if v := settings[SettingWooConsumerKey]; v != "" {
		c.WooConsumerKey = v
	}
	if v := settings[SettingWooConsumerSecret]; v != "" {
		c.WooConsumerSecret = v
	}
	if v := settings[SettingStripeAPIKey]; v != "" {
		c.StripeSecretKey = v
	}
	if v := settings[SettingStripeWebhookKey]; v != "" {
		c.StripeWebhookSecret = v
	}
	return &c
}

// StripeConfigured reports whether Stripe credentials are present.
func (c *Config) StripeConfigured() bool {
	return c.StripeSecretKey != "" && c.StripeWebhookSecret != ""
}

// WooConfigured reports whether WooCommerce credentials are present.
func (c *Config) WooConfigured() bool {
	return c.WooURL != "" && c.WooConsumerKey != "" && c.WooConsumerSecret != ""
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
