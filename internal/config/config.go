package config

import (
	"github.com/spf13/viper"
)

var v *viper.Viper

// Init initializes the viper instance
func Init() {
	v = viper.New()
}

// Viper returns the viper instance
func Viper() *viper.Viper {
	return v
}

// Server configuration
type Server struct {
	HTTP HTTPConfig `mapstructure:"http" yaml:"http"`
	GRPC GRPCConfig `mapstructure:"grpc" yaml:"grpc"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type GRPCConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Log configuration
type Log struct {
	Level string `mapstructure:"level" yaml:"level"`
	Path  string `mapstructure:"path" yaml:"path"`
	Debug bool   `mapstructure:"debug" yaml:"debug"`
}

// Skills configuration
type Skills struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// Engine configuration
type Engine struct {
	// RetryCeiling caps per-step max_retries regardless of what a skill
	// definition asks for.
	RetryCeiling int     `mapstructure:"retry_ceiling" yaml:"retry_ceiling"`
	Tracing      Tracing `mapstructure:"tracing" yaml:"tracing"`
}

// Tracing configuration
type Tracing struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Level   string `mapstructure:"level" yaml:"level"` // minimal, standard, detailed
}

// History configuration for the execution record store
type History struct {
	StoreType string `mapstructure:"store_type" yaml:"store_type"` // memory, file
	Path      string `mapstructure:"path" yaml:"path"`
	// DefaultLimit is applied when a history query gives no limit.
	DefaultLimit int `mapstructure:"default_limit" yaml:"default_limit"`
}

// Config represents the application configuration
type Config struct {
	Server  Server  `mapstructure:"server" yaml:"server"`
	Log     Log     `mapstructure:"log" yaml:"log"`
	Skills  Skills  `mapstructure:"skills" yaml:"skills"`
	Engine  Engine  `mapstructure:"engine" yaml:"engine"`
	History History `mapstructure:"history" yaml:"history"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	cfg := &Config{}

	if err := Viper().Unmarshal(cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.GRPC.Addr == "" {
		cfg.Server.GRPC.Addr = ":8081"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "INFO"
	}
	if cfg.Log.Path == "" {
		cfg.Log.Path = "./log"
	}
	if cfg.Skills.Dir == "" {
		cfg.Skills.Dir = "./skills"
	}
	if cfg.Engine.RetryCeiling <= 0 {
		cfg.Engine.RetryCeiling = 5
	}
	if !Viper().IsSet("engine.tracing.enabled") {
		cfg.Engine.Tracing.Enabled = true
	}
	if cfg.Engine.Tracing.Level == "" {
		cfg.Engine.Tracing.Level = "standard"
	}
	if cfg.History.StoreType == "" {
		cfg.History.StoreType = "memory"
	}
	if cfg.History.Path == "" {
		cfg.History.Path = "./data/executions"
	}
	if cfg.History.DefaultLimit <= 0 {
		cfg.History.DefaultLimit = 20
	}

	return cfg, nil
}
