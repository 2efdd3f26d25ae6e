// Package config loads service settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
)

type GenAI struct {
	BaseURL         string
	APIKey          string
	Model           string
	Timeout         time.Duration
	MaxRetries      int
	BreakerFailures int
	BreakerOpenFor  time.Duration
}

type Cache struct {
	Driver   string // redis | memcached | none
	Addrs    []string
	Password string
	DB       int
	TTL      time.Duration
}

type MQTT struct {
	Enabled       bool
	Host          string
	Port          int
	User          string
	Password      string
	ClientID      string
	SnapshotTopic string
	DecisionTopic string
	DecidedTopic  string
}

type Kafka struct {
	Brokers []string
	Topic   string
}

type Influx struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

func (i Influx) Enabled() bool { return i.URL != "" && i.Token != "" }

type Config struct {
	ServiceName string
	HTTPPort    string
	GRPCPort    string

	TickInterval time.Duration
	SeedPath     string
	RandomSeed   int64 // 0: seeded from the clock
	TempMin      float64
	TempMax      float64
	TempBounded  bool

	RefreshTimeout     time.Duration // per zone
	RefreshConcurrency int
	RefreshOnStartup   bool

	HistoryBucket time.Duration
	HistoryKeep   int

	OTLPEndpoint string

	GenAI  GenAI
	Cache  Cache
	MQTT   MQTT
	Kafka  Kafka
	Influx Influx
}

// Load reads envFile (if present, without overriding the real environment)
// and then the environment.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	cfg := Config{
		ServiceName: getenv("SERVICE_NAME", "hydroponics"),
		HTTPPort:    getenv("PORT", "8080"),
		GRPCPort:    getenv("GRPC_PORT", "50051"),

		TickInterval: getenvDuration("TICK_INTERVAL", 5*time.Second),
		SeedPath:     getenv("ZONES_CONFIG_PATH", ""),
		RandomSeed:   getenvInt64("RANDOM_SEED", 0),
		TempMin:      getenvFloat("DRIFT_TEMP_MIN", 10),
		TempMax:      getenvFloat("DRIFT_TEMP_MAX", 40),
		TempBounded:  getenvBool("DRIFT_TEMP_BOUNDED", true),

		RefreshTimeout:     getenvDuration("REFRESH_TIMEOUT", 30*time.Second),
		RefreshConcurrency: getenvInt("REFRESH_CONCURRENCY", 4),
		RefreshOnStartup:   getenvBool("REFRESH_ON_STARTUP", true),

		HistoryBucket: getenvDuration("HISTORY_BUCKET", time.Hour),
		HistoryKeep:   getenvInt("HISTORY_KEEP", 24),

		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		GenAI: GenAI{
			BaseURL:         getenv("GENAI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			APIKey:          getenv("GENAI_API_KEY", getenv("API_KEY", "")),
			Model:           getenv("GENAI_MODEL", "gemini-3-flash-preview"),
			Timeout:         getenvDuration("GENAI_TIMEOUT", 20*time.Second),
			MaxRetries:      getenvInt("GENAI_MAX_RETRIES", 2),
			BreakerFailures: getenvInt("CB_GENAI_FAILS", 5),
			BreakerOpenFor:  getenvDuration("CB_GENAI_OPEN", 30*time.Second),
		},
		Cache: Cache{
			Driver:   getenv("CACHE_DRIVER", "none"),
			Addrs:    getenvList("CACHE_ADDRS"),
			Password: getenv("CACHE_PASSWORD", ""),
			DB:       getenvInt("CACHE_DB", 0),
			TTL:      getenvDuration("CACHE_TTL", 10*time.Minute),
		},
		MQTT: MQTT{
			Enabled:       getenvBool("MQTT_ENABLED", false),
			Host:          getenv("MQTT_HOST", "rabbitmq"),
			Port:          getenvInt("MQTT_PORT", 1883),
			User:          getenv("MQTT_USER", "guest"),
			Password:      getenv("MQTT_PASSWORD", "guest"),
			ClientID:      getenv("MQTT_CLIENT_ID", "hydroponics"),
			SnapshotTopic: getenv("MQTT_SNAPSHOT_TOPIC", "hydro/zones/{zone}"),
			DecisionTopic: getenv("MQTT_DECISION_TOPIC", "hydro/recommendations/decide"),
			DecidedTopic:  getenv("MQTT_DECIDED_TOPIC", "hydro/recommendations/decided/{zone}"),
		},
		Kafka: Kafka{
			Brokers: getenvList("KAFKA_BROKERS"),
			Topic:   getenv("KAFKA_SNAPSHOT_TOPIC", "hydro.zone-snapshots"),
		},
		Influx: Influx{
			URL:         getenv("INFLUX_URL", ""),
			Token:       getenv("INFLUX_TOKEN", ""),
			Org:         getenv("INFLUX_ORG", "hydro"),
			Bucket:      getenv("INFLUX_BUCKET", "zones"),
			Measurement: getenv("INFLUX_MEASUREMENT", "zone_reading"),
		},
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	if c.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("TICK_INTERVAL must be positive, got %s", c.TickInterval))
	}
	if c.TempBounded && c.TempMin >= c.TempMax {
		errs = append(errs, fmt.Errorf("DRIFT_TEMP_MIN (%v) must be below DRIFT_TEMP_MAX (%v)", c.TempMin, c.TempMax))
	}
	if c.RefreshTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_TIMEOUT must be positive"))
	}
	if c.RefreshConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("REFRESH_CONCURRENCY must be positive"))
	}
	if c.HistoryBucket <= 0 || c.HistoryKeep <= 0 {
		errs = append(errs, fmt.Errorf("HISTORY_BUCKET and HISTORY_KEEP must be positive"))
	}
	switch c.Cache.Driver {
	case "", "none", "noop":
	case "redis", "valkey", "memcached":
		if len(c.Cache.Addrs) == 0 {
			errs = append(errs, fmt.Errorf("CACHE_ADDRS is required for driver %s", c.Cache.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_DRIVER %q", c.Cache.Driver))
	}
	if c.MQTT.Enabled && (c.MQTT.Host == "" || c.MQTT.Port <= 0) {
		errs = append(errs, fmt.Errorf("MQTT_HOST and MQTT_PORT are required when MQTT is enabled"))
	}
	if c.Influx.URL != "" && c.Influx.Token == "" {
		errs = append(errs, fmt.Errorf("INFLUX_TOKEN is required when INFLUX_URL is set"))
	}
	return errors.Join(errs...)
}

// AIEnabled reports whether analysis calls can be made at all.
func (c Config) AIEnabled() bool { return c.GenAI.APIKey != "" }
