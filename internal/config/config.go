package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName          string
	AppVersion       string
	Environment      string
	SiteURL          string
	AuthCookieSecure bool
	HTTPAddr         string

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Email       EmailConfig
	RateLimit   RateLimitConfig
	Uploads     UploadConfig
	Reminder    ReminderConfig
	MetricsPush MetricsPushConfig
	Bootstrap   BootstrapConfig
}

type EmailConfig struct {
	Provider          string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
	SMTPFrom          string
	SMTPSkipTLSVerify bool
	SendGridAPIKey    string
}

type RateLimitConfig struct {
	Enabled         bool
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	SecretLinkRate  float64
	SecretLinkBurst int
}

type UploadConfig struct {
	Dir string
}

type ReminderConfig struct {
	Enabled         bool
	IntervalMinutes int
	LockTTLSeconds  int
}

type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

type BootstrapConfig struct {
	AdminEmail    string
	AdminPassword string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")
	authCookieSecure := environment == "production"
	if !authCookieSecure {
		authCookieSecure = getenvBool("AUTH_COOKIE_SECURE", false)
	}

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "humesociety"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       environment,
		SiteURL:           strings.TrimRight(getenv("SITE_URL", "http://localhost:8080"), "/"),
		AuthCookieSecure:  authCookieSecure,
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint:      getenv("OTLP_ENDPOINT", "localhost:4317"),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "humesociety"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		Email: EmailConfig{
			Provider:          strings.ToLower(getenv("EMAIL_PROVIDER", "noop")),
			SMTPHost:          strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:          getenvInt("SMTP_PORT", 587),
			SMTPUsername:      getenv("SMTP_USER", ""),
			SMTPPassword:      getenv("SMTP_PASS", ""),
			SMTPFrom:          getenv("SMTP_FROM", "Hume Society <web@humesociety.org>"),
			SMTPSkipTLSVerify: getenvBool("SMTP_SKIP_TLS_VERIFY", false),
			SendGridAPIKey:    strings.TrimSpace(getenv("SENDGRID_API_KEY", "")),
		},
		RateLimit: RateLimitConfig{
			Enabled:         getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:       strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			RedisPassword:   getenv("REDIS_PASSWORD", ""),
			RedisDB:         getenvInt("REDIS_DB", 0),
			SecretLinkRate:  getenvFloat("SECRET_LINK_RATE", 0.5),
			SecretLinkBurst: getenvInt("SECRET_LINK_BURST", 10),
		},
		Uploads: UploadConfig{
			Dir: getenv("UPLOAD_DIR", "./uploads"),
		},
		Reminder: ReminderConfig{
			Enabled:         getenvBool("REMINDER_SWEEP_ENABLED", false),
			IntervalMinutes: getenvInt("REMINDER_SWEEP_INTERVAL_MINUTES", 60),
			LockTTLSeconds:  getenvInt("REMINDER_SWEEP_LOCK_TTL_SECONDS", 300),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
		},
		Bootstrap: BootstrapConfig{
			AdminEmail:    strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
			AdminPassword: getenv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
