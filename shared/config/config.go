package config

import (
	"fmt"
	"log"
	"sync"

	"github.com/spf13/viper"
)

// BoostTariff is one purchasable boost option: a label shown on the inline
// keyboard, the boost duration in seconds and the price in SUI.
type BoostTariff struct {
	Label    string  `mapstructure:"label"`
	Seconds  int64   `mapstructure:"seconds"`
	PriceSUI float64 `mapstructure:"price_sui"`
}

// Config defines the global configuration structure.
type Config struct {
	App struct {
		Environment string `mapstructure:"environment"`
	} `mapstructure:"app"`

	Logging struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"logging"`

	Feed struct {
		Mode                string   `mapstructure:"mode"` // "poll" or "stream"
		PollIntervalSeconds int      `mapstructure:"poll_interval_seconds"`
		StreamEventTypes    []string `mapstructure:"stream_event_types"`
	} `mapstructure:"feed"`

	Trending struct {
		MinBuyUSD float64 `mapstructure:"min_buy_usd"`
	} `mapstructure:"trending"`

	Leaderboard struct {
		IntervalMinutes int `mapstructure:"interval_minutes"`
		WindowMinutes   int `mapstructure:"window_minutes"`
		Size            int `mapstructure:"size"`
	} `mapstructure:"leaderboard"`

	Wizard struct {
		SessionTTLMinutes int `mapstructure:"session_ttl_minutes"`
	} `mapstructure:"wizard"`

	Boost struct {
		Tariffs []BoostTariff `mapstructure:"tariffs"`
	} `mapstructure:"boost"`
}

var (
	globalConfig *Config
	configLock   sync.RWMutex
)

// LoadConfig loads configuration from the specified file path and merges it
// with environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	viper.BindEnv("app.environment", "ENVIRONMENT")
	viper.BindEnv("logging.level", "LOG_LEVEL")
	viper.BindEnv("feed.mode", "FEED_MODE")
	viper.BindEnv("feed.poll_interval_seconds", "FEED_POLL_INTERVAL_SECONDS")
	viper.BindEnv("trending.min_buy_usd", "TRENDING_MIN_BUY_USD")
	viper.BindEnv("leaderboard.interval_minutes", "LEADERBOARD_INTERVAL_MINUTES")

	var cfg Config

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}
	if err := viper.Unmarshal(&cfg); err != nil {
		log.Printf("Error unmarshalling configuration: %v", err)
		return nil, err
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	log.Printf("Loaded configuration from file: %s", path)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Feed.Mode == "" {
		cfg.Feed.Mode = "poll"
	}
	if cfg.Feed.PollIntervalSeconds <= 0 {
		cfg.Feed.PollIntervalSeconds = 30
	}
	if cfg.Trending.MinBuyUSD <= 0 {
		cfg.Trending.MinBuyUSD = 200
	}
	if cfg.Leaderboard.IntervalMinutes <= 0 {
		cfg.Leaderboard.IntervalMinutes = 30
	}
	if cfg.Leaderboard.WindowMinutes <= 0 {
		cfg.Leaderboard.WindowMinutes = 30
	}
	if cfg.Leaderboard.Size <= 0 {
		cfg.Leaderboard.Size = 10
	}
	if cfg.Wizard.SessionTTLMinutes <= 0 {
		cfg.Wizard.SessionTTLMinutes = 30
	}
	if len(cfg.Boost.Tariffs) == 0 {
		cfg.Boost.Tariffs = []BoostTariff{
			{Label: "4h", Seconds: 14400, PriceSUI: 15},
			{Label: "8h", Seconds: 28800, PriceSUI: 20},
			{Label: "12h", Seconds: 43200, PriceSUI: 27},
			{Label: "24h", Seconds: 86400, PriceSUI: 45},
			{Label: "48h", Seconds: 172800, PriceSUI: 80},
			{Label: "72h", Seconds: 259200, PriceSUI: 110},
			{Label: "1week", Seconds: 604800, PriceSUI: 180},
		}
	}
}

func validate(cfg *Config) error {
	if cfg.Feed.Mode != "poll" && cfg.Feed.Mode != "stream" {
		return fmt.Errorf("invalid feed.mode %q: must be \"poll\" or \"stream\"", cfg.Feed.Mode)
	}
	for _, t := range cfg.Boost.Tariffs {
		if t.Label == "" || t.Seconds <= 0 || t.PriceSUI <= 0 {
			return fmt.Errorf("invalid boost tariff %+v", t)
		}
	}
	return nil
}

// SetGlobalConfig sets the loaded configuration globally.
func SetGlobalConfig(cfg *Config) {
	configLock.Lock()
	defer configLock.Unlock()
	globalConfig = cfg
}

// GetGlobalConfig retrieves the globally set configuration.
func GetGlobalConfig() *Config {
	configLock.RLock()
	defer configLock.RUnlock()
	if globalConfig == nil {
		log.Println("GetGlobalConfig: Global configuration is nil.")
	}
	return globalConfig
}

// TariffByLabel returns the boost tariff with the given label.
func (c *Config) TariffByLabel(label string) (BoostTariff, bool) {
	for _, t := range c.Boost.Tariffs {
		if t.Label == label {
			return t, true
		}
	}
	return BoostTariff{}, false
}
