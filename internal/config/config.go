package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	BackendURL      string `mapstructure:"BACKEND_URL"`
	TriggerAddr     string `mapstructure:"TRIGGER_ADDR"`
	DatabasePath    string `mapstructure:"DATABASE_PATH"`
	HistorySize     int    `mapstructure:"HISTORY_SIZE"`
	StartupRetries  int    `mapstructure:"STARTUP_RETRIES"`
	StartupInterval int    `mapstructure:"STARTUP_INTERVAL_SECONDS"`
	ModelHubPath    string `mapstructure:"MODEL_HUB_PATH"`
	LogLevel        string `mapstructure:"LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
	viper.SetDefault("BACKEND_URL", "http://127.0.0.1:8188")
	viper.SetDefault("TRIGGER_ADDR", "127.0.0.1:6225")
	viper.SetDefault("DATABASE_PATH", "./data/client.db")
	viper.SetDefault("HISTORY_SIZE", 3)
	viper.SetDefault("STARTUP_RETRIES", 10)
	viper.SetDefault("STARTUP_INTERVAL_SECONDS", 5)
	viper.SetDefault("MODEL_HUB_PATH", "./models")
	viper.SetDefault("LOG_LEVEL", "INFO")

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./client")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}
