package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type WebServerConfig struct {
	Port            string `mapstructure:"port"`
	IP              string `mapstructure:"ip"`
	ReadTimeout     int    `mapstructure:"read_timeout"`
	WriteTimeout    int    `mapstructure:"write_timeout"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"`
}

type RedisConfig struct {
	Address          string `mapstructure:"address"`
	Password         string `mapstructure:"password"`
	DB               int    `mapstructure:"db"`
	PoolSize         int    `mapstructure:"pool_size"`
	MinIdleConns     int    `mapstructure:"min_idle_conns"`
	OperationTimeout int    `mapstructure:"operation_timeout"`
}

type CacheConfig struct {
	Enabled     bool `mapstructure:"enabled"`
	MaxSizeMB   int  `mapstructure:"max_size_mb"`
	TTLSeconds  int  `mapstructure:"ttl_seconds"`
	CounterSize int  `mapstructure:"counter_size"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// GoogleConfig describes the Admin Reports API collaborator: where the
// activity feed lives and which service account identity reads it.
type GoogleConfig struct {
	CredentialsFile string `mapstructure:"credentials_file"` // service-account key file on disk
	CredentialsJSON string `mapstructure:"credentials_json"` // inline key JSON, takes precedence (container deployments)
	Subject         string `mapstructure:"subject"`          // workspace admin impersonated via domain-wide delegation
	Endpoint        string `mapstructure:"endpoint"`
	EventName       string `mapstructure:"event_name"`
	RequestTimeout  int    `mapstructure:"request_timeout"`
}

// TrackerConfig holds the windowing and aggregation policy shared by all
// tracker instances.
type TrackerConfig struct {
	Epoch             string   `mapstructure:"epoch"`              // fixed anchor, first window start (RFC 3339)
	AvailabilityFloor string   `mapstructure:"availability_floor"` // no data exists before this instant
	WindowDays        int      `mapstructure:"window_days"`
	WeeksBack         int      `mapstructure:"weeks_back"` // 0 = every window since the epoch
	MaxPages          int      `mapstructure:"max_pages"`
	MaxResults        int      `mapstructure:"max_results"`
	WorkspaceApps     []string `mapstructure:"workspace_apps"` // allow-list for the all-apps deep dive
	SingleApp         string   `mapstructure:"single_app"`     // the one app the scorecard tracks
	TopApps           int      `mapstructure:"top_apps"`
	TopActions        int      `mapstructure:"top_actions"`
	IncludeRaw        bool     `mapstructure:"include_raw"` // embed per-window stats in reports
}

type Config struct {
	LogLevel  string          `mapstructure:"log_level"`
	WebServer WebServerConfig `mapstructure:"webserver"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Google    GoogleConfig    `mapstructure:"google"`
	Tracker   TrackerConfig   `mapstructure:"tracker"`
}

func LoadConfig() (Config, error) {
	var config Config

	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Enable environment variable overrides
	viper.SetEnvPrefix("SCORECARD")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults plus env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("Error reading config file: %v", err)
			return config, err
		}
	}

	if err := viper.Unmarshal(&config); err != nil {
		log.Printf("Unable to decode into struct: %v", err)
		return config, err
	}

	return config, nil
}

func MustLoadConfig() Config {
	config, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	return config
}

// EpochTime parses the configured window anchor.
func (t TrackerConfig) EpochTime() (time.Time, error) {
	return time.Parse(time.RFC3339, t.Epoch)
}

// FloorTime parses the configured data-availability floor.
func (t TrackerConfig) FloorTime() (time.Time, error) {
	return time.Parse(time.RFC3339, t.AvailabilityFloor)
}

func setDefaults() {
	viper.SetDefault("log_level", "info")

	// WebServer defaults
	viper.SetDefault("webserver.port", "8080")
	viper.SetDefault("webserver.ip", "127.0.0.1")
	viper.SetDefault("webserver.read_timeout", 15)
	viper.SetDefault("webserver.write_timeout", 120)
	viper.SetDefault("webserver.shutdown_timeout", 30)

	// Redis defaults; an empty address switches the cache store to the
	// in-memory implementation (one-shot runs on boxes without Redis)
	viper.SetDefault("redis.address", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.operation_timeout", 5)

	// In-process report cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.max_size_mb", 50)
	viper.SetDefault("cache.ttl_seconds", 300) // 5 minutes between live refetches
	viper.SetDefault("cache.counter_size", 10000)

	// RateLimit defaults
	viper.SetDefault("ratelimit.requests_per_second", 10.0)
	viper.SetDefault("ratelimit.burst", 20)

	// Google Admin Reports defaults
	viper.SetDefault("google.credentials_file", "service-account.json")
	viper.SetDefault("google.credentials_json", "")
	viper.SetDefault("google.subject", "")
	viper.SetDefault("google.endpoint",
		"https://admin.googleapis.com/admin/reports/v1/activity/users/all/applications/gemini_in_workspace_apps")
	viper.SetDefault("google.event_name", "feature_utilization")
	viper.SetDefault("google.request_timeout", 30)

	// Tracker defaults: assistant rollout anchored Monday 2025-06-16, data
	// available from 2025-06-20
	viper.SetDefault("tracker.epoch", "2025-06-16T00:00:00Z")
	viper.SetDefault("tracker.availability_floor", "2025-06-20T00:00:00Z")
	viper.SetDefault("tracker.window_days", 7)
	viper.SetDefault("tracker.weeks_back", 0)
	viper.SetDefault("tracker.max_pages", 20)
	viper.SetDefault("tracker.max_results", 1000)
	viper.SetDefault("tracker.workspace_apps", []string{
		"gemini_app", "gmail", "docs", "sheets", "slides", "meet", "drive", "chat",
	})
	viper.SetDefault("tracker.single_app", "gemini_app")
	viper.SetDefault("tracker.top_apps", 10)
	viper.SetDefault("tracker.top_actions", 15)
	viper.SetDefault("tracker.include_raw", false)
}
