// internal/config/config.go
package config

import (
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Database DatabaseConfig
	Cache    CacheConfig
	Engine   EngineConfig
	LogLevel string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled                  bool
	RedisURL                 string
	RedisHost                string
	RedisPort                string
	RedisPassword            string
	RedisDB                  int
	RecommendationTTLSeconds int
}

// EngineConfig holds the decision engine tunables.
type EngineConfig struct {
	SafetyFactor      float64 // multiplier on the order shortfall, must be > 1
	BandPct           float64 // relative uncertainty of the point forecast
	BandZ             float64 // z-score for the confidence band
	ExpiryHorizonDays int     // default horizon for expiring-soon alerts
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "restock")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_RECOMMENDATION_TTL_SECONDS", 60)
		viper.SetDefault("ENGINE_SAFETY_FACTOR", 1.1)
		viper.SetDefault("ENGINE_BAND_PCT", 0.15)
		viper.SetDefault("ENGINE_BAND_Z", 1.96)
		viper.SetDefault("ENGINE_EXPIRY_HORIZON_DAYS", 3)
		viper.SetDefault("LOG_LEVEL", "info")

		viper.AutomaticEnv()

		instance = &Config{
			Database: DatabaseConfig{
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
			},
			Cache: CacheConfig{
				Enabled:                  viper.GetBool("CACHE_ENABLED"),
				RedisURL:                 viper.GetString("REDIS_URL"),
				RedisHost:                viper.GetString("REDIS_HOST"),
				RedisPort:                viper.GetString("REDIS_PORT"),
				RedisPassword:            viper.GetString("REDIS_PASSWORD"),
				RedisDB:                  viper.GetInt("REDIS_DB"),
				RecommendationTTLSeconds: viper.GetInt("CACHE_RECOMMENDATION_TTL_SECONDS"),
			},
			Engine: EngineConfig{
				SafetyFactor:      viper.GetFloat64("ENGINE_SAFETY_FACTOR"),
				BandPct:           viper.GetFloat64("ENGINE_BAND_PCT"),
				BandZ:             viper.GetFloat64("ENGINE_BAND_Z"),
				ExpiryHorizonDays: viper.GetInt("ENGINE_EXPIRY_HORIZON_DAYS"),
			},
			LogLevel: viper.GetString("LOG_LEVEL"),
		}
	})

	return instance
}
