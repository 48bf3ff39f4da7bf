package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	RunAddress    string `env:"RUN_ADDRESS"`
	DatabaseDSN   string `env:"DATABASE_URI"`
	MigrationsDir string `env:"MIGRATIONS_DIR"`
	JWTUserSecret string `env:"JWT_USER_SECRET"`
	// PublicBaseURL адрес фронтенда, на него процессоры возвращают пользователя после оплаты.
	PublicBaseURL string `env:"PUBLIC_BASE_URL"`

	CardAPIBaseURL    string `env:"CARD_API_URL"          envDefault:"https://api.stripe.com"`
	CardAPIKey        string `env:"CARD_API_KEY"`
	CardWebhookSecret string `env:"CARD_WEBHOOK_SECRET"`

	CryptoAPIBaseURL    string `env:"CRYPTO_API_URL"        envDefault:"https://api.commerce.coinbase.com"`
	CryptoAPIKey        string `env:"CRYPTO_API_KEY"`
	CryptoWebhookSecret string `env:"CRYPTO_WEBHOOK_SECRET"`

	// RedisAddr пустой адрес отключает ограничение частоты запросов.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"`

	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL" envDefault:"1m"`
	ReconcileAfter    time.Duration `env:"RECONCILE_AFTER"    envDefault:"15m"`
}

func LoadConfig() (*Config, error) {
	// .env необязателен.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %s", err.Error())
	}
	return loadConfig(flag.CommandLine, os.Args[1:])
}

func loadConfig(fs *flag.FlagSet, args []string) (*Config, error) {
	var flagsConfig, envConfig Config

	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	if err := loadFlags(fs, args, &flagsConfig); err != nil {
		return nil, fmt.Errorf("parse flags: %s", err.Error())
	}

	conf := mergeConfig(&envConfig, &flagsConfig)
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTUserSecret == "" {
		return nil, errors.New("jwt user secret is not set")
	}
	return conf, nil
}

func MustLoadConfig() *Config {
	config, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadFlags(fs *flag.FlagSet, args []string, flagConfig *Config) error {
	fs.StringVar(&flagConfig.RunAddress, "a", "localhost:8080", "Run address in format host:port")
	fs.StringVar(&flagConfig.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&flagConfig.MigrationsDir, "m", "internal/db/migrations", "Database migrations directory")
	fs.StringVar(&flagConfig.JWTUserSecret, "j", "", "JWT secret for user tokens")
	fs.StringVar(&flagConfig.PublicBaseURL, "b", "http://localhost:3000", "Public frontend base URL")

	return fs.Parse(args)
}

// mergeConfig переменные окружения приоритетнее флагов. Поля без флагов берутся только из окружения.
func mergeConfig(envConfig, flagsConfig *Config) *Config {
	conf := *envConfig
	conf.RunAddress = defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress)
	conf.DatabaseDSN = defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN)
	conf.MigrationsDir = defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir)
	conf.JWTUserSecret = defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret)
	conf.PublicBaseURL = defaultIfBlank(envConfig.PublicBaseURL, flagsConfig.PublicBaseURL)
	return &conf
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
