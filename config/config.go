package config

import (
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type TrackerConfig struct {
	// MaxWorkload is the cap above which a server, even at the global
	// minimum, is not selectable. Zero means unlimited.
	MaxWorkload int `mapstructure:"max_workload"`
}

type DispatchConfig struct {
	TaskCost         int    `mapstructure:"task_cost"`
	FailureThreshold int    `mapstructure:"failure_threshold"`
	ResetTimeout     string `mapstructure:"reset_timeout"`
}

type ServerConfig struct {
	Name     string `mapstructure:"name"`
	Workload int    `mapstructure:"workload"`
}

type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Environment string `mapstructure:"environment"`
}

type Config struct {
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Servers  []ServerConfig `mapstructure:"servers"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("tracker.max_workload", 0)
	viper.SetDefault("dispatch.task_cost", 1)
	viper.SetDefault("dispatch.failure_threshold", 5)
	viper.SetDefault("dispatch.reset_timeout", "30s")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("logging.environment", EnvDev)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Info("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

// ResetTimeout returns the parsed dispatch reset timeout.
// Call after Validate; an invalid duration falls back to 30s.
func (c *Config) ResetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Dispatch.ResetTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Tracker,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TrackerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TrackerConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.MaxWorkload,
						validation.Min(0),
					),
				)
			}),
		),
		validation.Field(&c.Dispatch,
			validation.Required,
			validation.By(func(value interface{}) error {
				dc, ok := value.(DispatchConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a DispatchConfig")
				}
				return validation.ValidateStruct(&dc,
					validation.Field(&dc.TaskCost,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&dc.FailureThreshold,
						validation.Required,
						validation.Min(1),
					),
					validation.Field(&dc.ResetTimeout,
						validation.Required,
						validation.By(validateDuration),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
					validation.Field(&lc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
				)
			}),
		),
		validation.Field(&c.Servers,
			validation.Each(validation.By(validateServerConfig)),
		),
	)
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateServerConfig(value interface{}) error {
	server, ok := value.(ServerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ServerConfig")
	}

	if server.Name == "" {
		return validation.NewError("validation_empty_name", "server name cannot be empty")
	}

	if server.Workload < 0 {
		return validation.NewError("validation_negative_workload", "workload cannot be negative")
	}

	return nil
}
