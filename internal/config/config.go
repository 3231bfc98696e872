package config

import (
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var (
	ServiceName    = "odds-tracker"
	ServiceVersion = "0.1.0"
)

var (
	Env *EnvConfig
)

type EnvConfig struct {
	Env                     string                    `mapstructure:"env"`
	Log                     LogConfig                 `mapstructure:"log"`
	GracefulShutdownTimeout time.Duration             `mapstructure:"graceful_shutdown_timeout"`
	APIKeys                 []APIKeyConfig            `mapstructure:"api_keys"`
	Port                    map[string]string         `mapstructure:"port"`
	Providers               ProvidersConfig           `mapstructure:"providers"`
	Database                map[string]DatabaseConfig `mapstructure:"database"`
	Redis                   map[string]RedisConfig    `mapstructure:"redis"`
	NatsJetstream           NatsJetstreamConfig       `mapstructure:"nats_jetstream"`
	Collector               CollectorConfig           `mapstructure:"collector"`
	LineMovement            LineMovementConfig        `mapstructure:"line_movement"`
}

type ProvidersConfig struct {
	Kambi      KambiConfig      `mapstructure:"kambi"`
	TheOddsAPI TheOddsAPIConfig `mapstructure:"theoddsapi"`
}

type KambiConfig struct {
	Sportsbook string        `mapstructure:"sportsbook"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type TheOddsAPIConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	APIKey     string        `mapstructure:"api_key"`
	Regions    string        `mapstructure:"regions"`
	Markets    string        `mapstructure:"markets"`
	OddsFormat string        `mapstructure:"odds_format"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type CollectorConfig struct {
	Interval time.Duration            `mapstructure:"interval"`
	Store    bool                     `mapstructure:"store"`
	Targets  []CollectionTargetConfig `mapstructure:"targets"`
}

type CollectionTargetConfig struct {
	Provider string `mapstructure:"provider"`
	League   string `mapstructure:"league"`
}

type LineMovementConfig struct {
	PriceThreshold float64       `mapstructure:"price_threshold"`
	PointThreshold float64       `mapstructure:"point_threshold"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

type APIKeyConfig struct {
	Name      string    `mapstructure:"name"`
	Key       string    `mapstructure:"key"`
	Active    bool      `mapstructure:"active"`
	// ExpiredAt is zero when the key never expires. A bare date expires at the
	// end of that day (UTC).
	ExpiredAt time.Time `mapstructure:"expired_at"`
}

type NatsJetstreamConfig struct {
	URL             string                   `mapstructure:"url"`
	MaxRetries      int                      `mapstructure:"max_retries"`
	ReconnectFactor float64                  `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration            `mapstructure:"min_jitter"`
	MaxJitter       time.Duration            `mapstructure:"max_jitter"`
	TimeoutHandler  map[string]time.Duration `mapstructure:"timeout_handler"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	ReconnectFactor float64       `mapstructure:"reconnect_factor"`
	MinJitter       time.Duration `mapstructure:"min_jitter"`
	MaxJitter       time.Duration `mapstructure:"max_jitter"`
	MaxRetry        int           `mapstructure:"max_retry"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxActiveConns  int           `mapstructure:"max_active_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type LogConfig struct {
	ShowCaller bool   `mapstructure:"show_caller"`
	LogLevel   string `mapstructure:"log_level"`
}

type RedisConfig struct {
	CacheDSN string `mapstructure:"cache_dsn"`
}

// LoadConfig reads an optional .env file into the process environment and then
// the yaml config. Environment variables override yaml keys, e.g.
// PROVIDERS_THEODDSAPI_API_KEY overrides providers.theoddsapi.api_key.
func LoadConfig(configPath string) error {
	viper.Reset()

	// .env is optional
	_ = godotenv.Load()

	configPath = strings.TrimSpace(configPath)
	if configPath == "" {
		viper.SetConfigName("config")
		viper.SetConfigType("yml")
		viper.AddConfigPath(".")
	} else {
		ext := strings.ToLower(filepath.Ext(configPath))
		if ext == ".yml" || ext == ".yaml" {
			viper.SetConfigFile(configPath)
		} else {
			viper.SetConfigName(filepath.Base(configPath))
			viper.SetConfigType("yml")
			configDir := filepath.Dir(configPath)
			if configDir == "." || configDir == "" {
				viper.AddConfigPath(".")
			} else {
				viper.AddConfigPath(configDir)
			}
		}
	}

	replacer := strings.NewReplacer(".", "_")
	viper.SetEnvKeyReplacer(replacer)
	viper.AutomaticEnv()

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	err = viper.Unmarshal(&Env, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToExpiryHook,
	)))
	if err != nil {
		return fmt.Errorf("failed to unmarshal config file: %w", err)
	}

	return nil
}

// stringToExpiryHook decodes RFC3339 timestamps and yyyy-mm-dd dates into
// time.Time fields. An empty string decodes to the zero time.
func stringToExpiryHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(time.Time{}) {
		return data, nil
	}

	return parseExpiry(reflect.ValueOf(data).String())
}

func parseExpiry(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}

	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid expiry %q: want RFC3339 or %s", raw, time.DateOnly)
	}

	return day.AddDate(0, 0, 1), nil
}
