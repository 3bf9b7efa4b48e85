// Package config loads engine configuration from file, .env and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/vsinha/craftsman/pkg/application/services/shared"
	"github.com/vsinha/craftsman/pkg/infrastructure/logging"
)

// EnvPrefix namespaces environment overrides, e.g. CRAFTSMAN_PLANNING_RESERVE_INPUTS
const EnvPrefix = "CRAFTSMAN"

type Config struct {
	Planning PlanningConfig `mapstructure:"planning"`
	Log      logging.Config `mapstructure:"log"`
	Sequence SequenceConfig `mapstructure:"sequence"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Events   EventsConfig   `mapstructure:"events"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type PlanningConfig struct {
	ReserveInputs      bool    `mapstructure:"reserve_inputs"`
	SafetyStockPercent float64 `mapstructure:"safety_stock_percent"`
	HistoricalDays     int     `mapstructure:"historical_days"`
	SameWeekdayOnly    bool    `mapstructure:"same_weekday_only"`
	DefaultStartHour   int     `mapstructure:"default_start_hour"`
	MaxBOMDepth        int     `mapstructure:"max_bom_depth"`
	CodePrefix         string  `mapstructure:"code_prefix"`
	Timezone           string  `mapstructure:"timezone"`
}

type SequenceConfig struct {
	// Backend is one of memory, sqlite, postgres or redis
	Backend string `mapstructure:"backend"`
	DSN     string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type EventsConfig struct {
	Kafka KafkaConfig `mapstructure:"kafka"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	d := shared.DefaultSettings()
	v.SetDefault("planning.reserve_inputs", d.ReserveInputs)
	v.SetDefault("planning.safety_stock_percent", d.SafetyStockPercent.InexactFloat64())
	v.SetDefault("planning.historical_days", d.HistoricalDays)
	v.SetDefault("planning.same_weekday_only", d.SameWeekdayOnly)
	v.SetDefault("planning.default_start_hour", d.DefaultStartHour)
	v.SetDefault("planning.max_bom_depth", d.MaxBOMDepth)
	v.SetDefault("planning.code_prefix", d.CodePrefix)
	v.SetDefault("planning.timezone", "UTC")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("sequence.backend", "memory")
	v.SetDefault("sequence.dsn", "")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("events.kafka.brokers", []string{})
	v.SetDefault("events.kafka.topic", "craftsman.events")
	v.SetDefault("catalog.path", "")
}

// Defaults returns the configuration used when nothing is set
func Defaults() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(err)
	}
	return cfg
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path when given, otherwise looks for craftsman.yaml in the
// working directory and ./configs. A .env file is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("craftsman")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	p := c.Planning
	if p.SafetyStockPercent < 0 {
		return fmt.Errorf("planning.safety_stock_percent cannot be negative, got %v", p.SafetyStockPercent)
	}
	if p.HistoricalDays <= 0 {
		return fmt.Errorf("planning.historical_days must be positive, got %d", p.HistoricalDays)
	}
	if p.DefaultStartHour < 0 || p.DefaultStartHour > 23 {
		return fmt.Errorf("planning.default_start_hour must be between 0 and 23, got %d", p.DefaultStartHour)
	}
	if p.MaxBOMDepth <= 0 {
		return fmt.Errorf("planning.max_bom_depth must be positive, got %d", p.MaxBOMDepth)
	}
	if _, err := time.LoadLocation(p.Timezone); err != nil {
		return fmt.Errorf("planning.timezone: %w", err)
	}
	switch c.Sequence.Backend {
	case "memory", "sqlite", "postgres", "redis":
	default:
		return fmt.Errorf("unknown sequence backend %q", c.Sequence.Backend)
	}
	return nil
}

// Settings maps the planning section to engine settings
func (c *Config) Settings() shared.Settings {
	p := c.Planning
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}
	return shared.Settings{
		ReserveInputs:      p.ReserveInputs,
		SafetyStockPercent: decimal.NewFromFloat(p.SafetyStockPercent),
		HistoricalDays:     p.HistoricalDays,
		SameWeekdayOnly:    p.SameWeekdayOnly,
		DefaultStartHour:   p.DefaultStartHour,
		MaxBOMDepth:        p.MaxBOMDepth,
		CodePrefix:         p.CodePrefix,
		Location:           loc,
	}
}
