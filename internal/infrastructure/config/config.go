package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Checkout providers
const (
	CheckoutProviderStripe = "stripe"
	CheckoutProviderFake   = "fake"
)

// Config is the whole runtime configuration. Keys are snake_case paths such as
// database.max_open_conns, overridable from the environment as GF_DATABASE_MAX_OPEN_CONNS.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Orders    OrdersConfig    `mapstructure:"orders"`
	Events    EventsConfig    `mapstructure:"events"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Log       LogConfig       `mapstructure:"log"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Bootstrap BootstrapConfig `mapstructure:"bootstrap"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

func (a AppConfig) IsProduction() bool {
	return a.Env == "production"
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
	AutoMigrate     bool   `mapstructure:"auto_migrate"`       // apply embedded migrations at startup
}

// RedisConfig backs webhook deduplication. Disabled, deduplication stays in memory.
type RedisConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	Password      string `mapstructure:"password"`
	DB            int    `mapstructure:"db"`
	AllowFallback bool   `mapstructure:"allow_fallback"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AuthConfig verifies bearer tokens. The RSA key wins when both keys are set.
type AuthConfig struct {
	Issuer          string        `mapstructure:"issuer"`
	Audience        string        `mapstructure:"audience"`
	HMACSecret      string        `mapstructure:"hmac_secret"`
	RSAPublicKeyPEM string        `mapstructure:"rsa_public_key_pem"`
	ClockSkew       time.Duration `mapstructure:"clock_skew"`
}

type CheckoutConfig struct {
	Provider      string        `mapstructure:"provider"` // stripe, fake
	SecretKey     string        `mapstructure:"secret_key"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	TestMode      bool          `mapstructure:"test_mode"`
	Currency      string        `mapstructure:"currency"`
	SuccessURL    string        `mapstructure:"success_url"`
	CancelURL     string        `mapstructure:"cancel_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// OrdersConfig is order lifecycle policy.
type OrdersConfig struct {
	RestoreStockOnReject bool          `mapstructure:"restore_stock_on_reject"`
	PhotoUploadTTL       time.Duration `mapstructure:"photo_upload_ttl"`
}

// EventsConfig drives the outbox relay. No brokers means events are only logged.
type EventsConfig struct {
	RelayEnabled     bool          `mapstructure:"relay_enabled"`
	BatchSize        int           `mapstructure:"batch_size"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	MaxRetries       int           `mapstructure:"max_retries"`
	CleanupEnabled   bool          `mapstructure:"cleanup_enabled"`
	CleanupRetention time.Duration `mapstructure:"cleanup_retention"`
	KafkaBrokers     []string      `mapstructure:"kafka_brokers"`
	Topic            string        `mapstructure:"topic"`
}

// StorageConfig points at the bucket holding tracking photos.
type StorageConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Endpoint          string        `mapstructure:"endpoint"`
	Region            string        `mapstructure:"region"`
	Bucket            string        `mapstructure:"bucket"`
	AccessKeyID       string        `mapstructure:"access_key_id"`
	SecretAccessKey   string        `mapstructure:"secret_access_key"`
	UsePathStyle      bool          `mapstructure:"use_path_style"`
	PresignExpiration time.Duration `mapstructure:"presign_expiration"`
}

type HTTPConfig struct {
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	MaxHeaderBytes   int           `mapstructure:"max_header_bytes"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	RateLimit        int           `mapstructure:"rate_limit"` // per RateWindow per client ip on the webhook route
	RateWindow       time.Duration `mapstructure:"rate_window"`
	CORSAllowOrigins []string      `mapstructure:"cors_allow_origins"` // empty allows no cross-origin caller
	CORSAllowMethods []string      `mapstructure:"cors_allow_methods"`
	CORSAllowHeaders []string      `mapstructure:"cors_allow_headers"`
	TrustedProxies   []string      `mapstructure:"trusted_proxies"`
}

type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// TelemetryConfig drives OTLP export. ServiceName defaults to the app name.
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"`
	Insecure          bool          `mapstructure:"insecure"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	ServiceName       string        `mapstructure:"service_name"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"`
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// BootstrapConfig names the administrator account ensured at startup.
type BootstrapConfig struct {
	AdminUID   string `mapstructure:"admin_uid"`
	AdminEmail string `mapstructure:"admin_email"`
	AdminName  string `mapstructure:"admin_name"`
}

// defaults registers every key. Viper only maps environment variables onto keys it knows.
var defaults = map[string]any{
	"app.name": "garmentflow",
	"app.env":  "development",
	"app.port": "8080",

	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "garmentflow",
	"database.sslmode":            "disable",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,
	"database.auto_migrate":       false,

	"redis.enabled":        false,
	"redis.host":           "localhost",
	"redis.port":           6379,
	"redis.password":       "",
	"redis.db":             0,
	"redis.allow_fallback": true,

	"auth.issuer":             "garmentflow-auth",
	"auth.audience":           "",
	"auth.hmac_secret":        "",
	"auth.rsa_public_key_pem": "",
	"auth.clock_skew":         30 * time.Second,

	"checkout.provider":       CheckoutProviderFake,
	"checkout.secret_key":     "",
	"checkout.webhook_secret": "",
	"checkout.test_mode":      true,
	"checkout.currency":       "usd",
	"checkout.success_url":    "http://localhost:5173/payment-success?session_id={CHECKOUT_SESSION_ID}",
	"checkout.cancel_url":     "http://localhost:5173/payment-cancelled",
	"checkout.timeout":        10 * time.Second,

	"orders.restore_stock_on_reject": false,
	"orders.photo_upload_ttl":        15 * time.Minute,

	"events.relay_enabled":     true,
	"events.batch_size":        100,
	"events.poll_interval":     5 * time.Second,
	"events.max_retries":       5,
	"events.cleanup_enabled":   true,
	"events.cleanup_retention": 7 * 24 * time.Hour,
	"events.kafka_brokers":     []string{},
	"events.topic":             "garmentflow.orders",

	"storage.enabled":            false,
	"storage.endpoint":           "",
	"storage.region":             "us-east-1",
	"storage.bucket":             "",
	"storage.access_key_id":      "",
	"storage.secret_access_key":  "",
	"storage.use_path_style":     false,
	"storage.presign_expiration": 15 * time.Minute,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":       15 * time.Second,
	"http.write_timeout":      15 * time.Second,
	"http.idle_timeout":       time.Minute,
	"http.shutdown_timeout":   30 * time.Second,
	"http.request_timeout":    20 * time.Second,
	"http.max_header_bytes":   1 << 20,
	"http.max_body_size":      1 << 20,
	"http.rate_limit":         60,
	"http.rate_window":        time.Minute,
	"http.cors_allow_origins": []string{},
	"http.cors_allow_methods": []string{"GET", "POST", "PATCH", "OPTIONS"},
	"http.cors_allow_headers": []string{"Content-Type", "Authorization", "X-Request-ID"},
	"http.trusted_proxies":    []string{},

	"metrics.enabled":   true,
	"metrics.path":      "/metrics",
	"metrics.namespace": "garmentflow",

	"telemetry.enabled":                 false,
	"telemetry.logs_enabled":            false,
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.insecure":                false,
	"telemetry.sampling_ratio":          1.0,
	"telemetry.service_name":            "",
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,

	"bootstrap.admin_uid":   "",
	"bootstrap.admin_email": "",
	"bootstrap.admin_name":  "Administrator",
}

// Load reads config.yaml from ., ./config or /etc/garmentflow when present, then
// lets GF_ environment variables override it. Unset keys keep their defaults.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/garmentflow")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("GF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate reports every problem found, not just the first.
func (c *Config) validate() error {
	var errs []error
	fail := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	db := c.Database
	switch {
	case db.MaxOpenConns <= 0:
		fail("database.max_open_conns must be positive")
	case db.MaxIdleConns < 0:
		fail("database.max_idle_conns cannot be negative")
	case db.MaxIdleConns > db.MaxOpenConns:
		fail("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)", db.MaxIdleConns, db.MaxOpenConns)
	}

	switch c.Checkout.Provider {
	case CheckoutProviderFake:
	case CheckoutProviderStripe:
		if c.Checkout.SecretKey == "" {
			fail("checkout.secret_key is required for the stripe provider")
		}
		if c.Checkout.WebhookSecret == "" {
			fail("checkout.webhook_secret is required for the stripe provider")
		}
	default:
		fail("checkout.provider must be %q or %q, got %q", CheckoutProviderStripe, CheckoutProviderFake, c.Checkout.Provider)
	}
	if !strings.Contains(c.Checkout.SuccessURL, "{CHECKOUT_SESSION_ID}") {
		fail("checkout.success_url must contain the {CHECKOUT_SESSION_ID} placeholder")
	}
	if c.Events.BatchSize <= 0 {
		fail("events.batch_size must be positive")
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		fail("storage.bucket is required when storage is enabled")
	}
	if (c.Bootstrap.AdminUID == "") != (c.Bootstrap.AdminEmail == "") {
		fail("bootstrap.admin_uid and bootstrap.admin_email must be set together")
	}
	if r := c.Telemetry.SamplingRatio; r < 0 || r > 1 {
		fail("telemetry.sampling_ratio must be within [0, 1], got %g", r)
	}

	if c.App.IsProduction() {
		errs = append(errs, c.productionProblems()...)
	}
	return errors.Join(errs...)
}

// productionProblems lists development conveniences that must be off in production.
func (c *Config) productionProblems() []error {
	var errs []error
	fail := func(msg string) { errs = append(errs, errors.New(msg)) }

	switch {
	case c.Auth.HMACSecret == "" && c.Auth.RSAPublicKeyPEM == "":
		fail("auth.hmac_secret or auth.rsa_public_key_pem is required in production")
	case c.Auth.RSAPublicKeyPEM == "" && len(c.Auth.HMACSecret) < 32:
		fail("auth.hmac_secret must be at least 32 characters in production")
	}
	if c.Database.Password == "" {
		fail("database.password is required in production")
	}
	if c.Database.SSLMode == "disable" {
		fail("database.sslmode cannot be 'disable' in production")
	}
	if c.Checkout.Provider == CheckoutProviderFake {
		fail("checkout.provider cannot be 'fake' in production")
	}
	if c.Checkout.TestMode {
		fail("checkout.test_mode must be false in production")
	}
	if slices.Contains(c.HTTP.CORSAllowOrigins, "*") {
		fail("http.cors_allow_origins cannot contain '*' in production")
	}
	if c.Telemetry.DBLogFullSQL {
		fail("telemetry.db_log_full_sql must be false in production")
	}
	return errs
}

// DSN renders a postgres URL with user info and options escaped.
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     d.DBName,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String()
}
