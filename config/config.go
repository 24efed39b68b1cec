package config

import (
	"github.com/gamedjinn/sync/internal/logger"

	"github.com/spf13/viper"
)

// Config holds every environment-driven setting the core recognizes.
type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	LogLevel             string `mapstructure:"LOG_LEVEL"`
	Workers              int    `mapstructure:"WORKERS"`
	MaxConnections       int    `mapstructure:"MAX_CONNECTIONS"`
	CacheTTLSeconds      int    `mapstructure:"CACHE_TTL"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	DatabaseCacheReset   int    `mapstructure:"DB_CACHE_RESET"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	SecretKey            string `mapstructure:"SECRET_KEY"`
	AdminEmail           string `mapstructure:"ADMIN_EMAIL"`
	AdminPassword        string `mapstructure:"ADMIN_PASSWORD"`
	SteamAPIKey          string `mapstructure:"STEAM_API_KEY"`
	MCPAPIKey            string `mapstructure:"MCP_API_KEY"`
	SchedulerEnabled     bool   `mapstructure:"SCHEDULER_ENABLED"`
}

var ConfigInstance Config

// InitConfig loads configuration from the environment, falling back to
// .env/.env.local files when the core env vars haven't been set directly.
func InitConfig() (Config, error) {
	log := logger.New("config").Function("InitConfig")
	log.Info("initializing config")

	viper.AutomaticEnv()

	envVars := []string{
		"GENERAL_VERSION", "ENVIRONMENT", "SERVER_PORT", "LOG_LEVEL", "WORKERS",
		"MAX_CONNECTIONS", "CACHE_TTL",
		"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_PASSWORD",
		"DB_CACHE_ADDRESS", "DB_CACHE_PORT", "DB_CACHE_RESET",
		"CORS_ALLOW_ORIGINS", "SECRET_KEY", "ADMIN_EMAIL", "ADMIN_PASSWORD",
		"STEAM_API_KEY", "MCP_API_KEY", "SCHEDULER_ENABLED",
	}

	for _, env := range envVars {
		if err := viper.BindEnv(env); err != nil {
			log.Warn("failed to bind environment variable", "env", env, "error", err)
		}
	}

	envVarsSet := viper.IsSet("SERVER_PORT") && viper.IsSet("DB_HOST")

	if envVarsSet {
		log.Info("environment variables detected, skipping file loading")
	} else {
		log.Info("environment variables not found, attempting to load from files")

		viper.SetConfigFile(".env")
		viper.SetConfigType("env")

		if err := viper.ReadInConfig(); err != nil {
			log.Warn("could not find .env file", "error", err)
		} else {
			log.Info("loaded .env file")
		}

		viper.SetConfigFile(".env.local")
		if err := viper.MergeInConfig(); err != nil {
			log.Debug("no .env.local file found", "error", err)
		} else {
			log.Info("loaded .env.local overrides")
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return Config{}, log.Err("could not unmarshal config", err)
	}

	if config.DatabaseCacheReset == 0 {
		config.DatabaseCacheReset = -1
	}

	log.Info("successfully initialized config", "environment", config.Environment)
	if err := validateConfig(config, log); err != nil {
		return Config{}, err
	}
	return ConfigInstance, nil
}

func GetConfig() Config {
	return ConfigInstance
}

func validateConfig(config Config, log logger.Logger) error {
	if config.ServerPort <= 0 {
		return log.Error("invalid server port", "port", config.ServerPort)
	}

	if config.Workers <= 0 {
		config.Workers = 4
	}

	if config.MaxConnections <= 0 {
		config.MaxConnections = 50
	}

	if config.CacheTTLSeconds <= 0 {
		config.CacheTTLSeconds = 3600
	}

	ConfigInstance = config
	return nil
}
