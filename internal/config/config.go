package config

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName  string `mapstructure:"APP_NAME"`
	HTTPPort string `mapstructure:"HTTP_PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// BaseURL is the externally visible server root, used to build catalog
	// navigation links.
	BaseURL string `mapstructure:"BASE_URL"`

	// MongoDB (products, carts, users)
	MongoURI string `mapstructure:"MONGO_URI"`
	MongoDB  string `mapstructure:"MONGO_DB"`

	// PostgreSQL (tickets + outbox)
	PGHost           string `mapstructure:"PG_HOST"`
	PGPort           int    `mapstructure:"PG_PORT"`
	PGUser           string `mapstructure:"PG_USER"`
	PGPassword       string `mapstructure:"PG_PASSWORD"`
	PGDBName         string `mapstructure:"PG_DB_NAME"`
	PGMigrationsPath string `mapstructure:"PG_MIGRATIONS_PATH"`

	RedisAddr string `mapstructure:"REDIS_ADDR"`

	// Comma-separated broker list for the outbox publisher.
	KafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
}

func (c Config) Brokers() []string {
	return strings.Split(c.KafkaBrokers, ",")
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("app")
	viper.SetConfigType("env")

	viper.AutomaticEnv()

	viper.SetDefault("APP_NAME", "go-shop")
	viper.SetDefault("HTTP_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("BASE_URL", "http://localhost:8080")

	viper.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	viper.SetDefault("MONGO_DB", "goshop")

	viper.SetDefault("PG_HOST", "localhost")
	viper.SetDefault("PG_PORT", 5432)
	viper.SetDefault("PG_USER", "postgres")
	viper.SetDefault("PG_PASSWORD", "password")
	viper.SetDefault("PG_DB_NAME", "goshop")
	viper.SetDefault("PG_MIGRATIONS_PATH", "internal/ticket/migrations")

	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("KAFKA_BROKERS", "localhost:9092")

	if err = viper.ReadInConfig(); err == nil {
		log.Info().Str("file", viper.ConfigFileUsed()).Msg("Using config file")
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		log.Info().Msg("No config file found, using environment variables and defaults.")
		err = nil
	} else {
		log.Error().Err(err).Msg("Error reading config file")
		return
	}

	err = viper.Unmarshal(&config)
	return
}
