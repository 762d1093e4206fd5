package observability

import (
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/humesociety/humesociety-sub000/internal/config"
)

// envPrefix lets a deployment that shares its environment with other services
// override any observability setting for the society site alone.
const envPrefix = "HUME_"

// Config holds observability configuration for the society site.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	SiteHost    string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "humesociety"
	}
	environment := strings.TrimSpace(lookup("DEPLOYMENT_ENV", cfg.Environment))
	dev := isDevEnv(environment)

	defaultFormat, defaultRatio := "json", 0.1
	if dev {
		defaultFormat, defaultRatio = "console", 1
	}

	protocol := lookup("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", lookup("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))

	return Config{
		ServiceName:          serviceName,
		Environment:          environment,
		Version:              strings.TrimSpace(lookup("SERVICE_VERSION", cfg.AppVersion)),
		SiteHost:             siteHost(cfg.SiteURL),
		LogLevel:             strings.ToLower(lookup("LOG_LEVEL", "info")),
		LogFormat:            logFormat(lookup("LOG_FORMAT", defaultFormat)),
		OtelEnabled:          lookupBool("OTEL_ENABLED", false),
		OtelExporterEndpoint: lookup("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.ToLower(protocol),
		OtelSamplingRatio:    clampRatio(lookupFloat("OTEL_SAMPLING_RATIO", defaultRatio)),
	}
}

func (c Config) Debug() bool {
	if strings.EqualFold(strings.TrimSpace(c.LogLevel), "debug") {
		return true
	}
	return isDevEnv(c.Environment)
}

func isDevEnv(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func siteHost(siteURL string) string {
	u, err := url.Parse(strings.TrimSpace(siteURL))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

func logFormat(v string) string {
	switch v = strings.ToLower(v); v {
	case "json", "console":
		return v
	default:
		return "json"
	}
}

func clampRatio(r float64) float64 {
	switch {
	case r < 0:
		return 0
	case r > 1:
		return 1
	default:
		return r
	}
}

// lookup prefers the HUME_ prefixed variable over the shared one.
func lookup(key, def string) string {
	for _, k := range []string{envPrefix + key, key} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(def)
}

func lookupBool(key string, def bool) bool {
	switch strings.ToLower(lookup(key, "")) {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func lookupFloat(key string, def float64) float64 {
	parsed, err := strconv.ParseFloat(lookup(key, ""), 64)
	if err != nil {
		return def
	}
	return parsed
}
