package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server     Server     `mapstructure:"server"`
	Logger     Logger     `mapstructure:"logger"`
	Storage    Storage    `mapstructure:"storage"`
	MarketData MarketData `mapstructure:"marketdata"`
	FX         FX         `mapstructure:"fx"`
	Cache      Cache      `mapstructure:"cache"`
	Analytics  Analytics  `mapstructure:"analytics"`
}

// Server holds the configuration for the web server.
type Server struct {
	Port int `mapstructure:"port"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Storage holds the configuration for the flat-file data store.
type Storage struct {
	DataDir string `mapstructure:"data_dir"`
}

// MarketData holds the configuration for the quote provider client.
type MarketData struct {
	BaseURL        string  `mapstructure:"base_url"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
}

// FX holds the configuration for the exchange-rate provider client.
type FX struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Cache holds TTLs for the result cache, in minutes.
type Cache struct {
	DefaultTTLMinutes int `mapstructure:"default_ttl_minutes"`
	FXTTLMinutes      int `mapstructure:"fx_ttl_minutes"`
}

// Analytics holds tunables for the performance analytics engine.
type Analytics struct {
	RiskFreeRate float64 `mapstructure:"risk_free_rate"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.format", "console")
	viper.SetDefault("storage.data_dir", "./data")
	viper.SetDefault("marketdata.rate_limit", 10) // requests per second
	viper.SetDefault("marketdata.rate_limit_burst", 5)
	viper.SetDefault("marketdata.timeout_seconds", 10)
	viper.SetDefault("fx.timeout_seconds", 10)
	viper.SetDefault("cache.default_ttl_minutes", 30)
	viper.SetDefault("cache.fx_ttl_minutes", 30)
	viper.SetDefault("analytics.risk_free_rate", 0.045)

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}
