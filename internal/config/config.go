package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

type Config struct {
	Mode                  string `mapstructure:"mode"`
	Port                  int    `mapstructure:"port"`
	DatabaseDSN           string `mapstructure:"database_dsn"`
	Secret                string `mapstructure:"secret"`
	AccessTokenTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTokenTTLDays   int    `mapstructure:"refresh_ttl_days"`
	RateLimitPerSecond    int    `mapstructure:"rate_limit_per_second"`
	RateLimitBurst        int    `mapstructure:"rate_limit_burst"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("database_dsn", "host=localhost user=postgres password=postgres dbname=banter port=5432 sslmode=disable TimeZone=UTC")
	v.SetDefault("secret", "dev-secret-change-me")
	v.SetDefault("access_ttl_minutes", 15)
	v.SetDefault("refresh_ttl_days", 7)
	v.SetDefault("rate_limit_per_second", 20)
	v.SetDefault("rate_limit_burst", 40)

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("config file not found (%s), using defaults\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
