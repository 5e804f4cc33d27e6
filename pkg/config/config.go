package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	CORS          CORSConfig          `mapstructure:"cors"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Scheduler     SchedulerConfig     `mapstructure:"scheduler"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ServerConfig struct {
	Port    int           `mapstructure:"port"`
	Mode    string        `mapstructure:"mode"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DatabaseConfig describes the store. URL wins over the discrete fields when set.
type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	Timezone        string        `mapstructure:"timezone"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	LogQueries      bool          `mapstructure:"log_queries"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTExpiryHours int    `mapstructure:"jwt_expiry_hours"`
	JWTIssuer      string `mapstructure:"jwt_issuer"`
	// PublicAPIKey is the anonymous key every client sends in the apikey header.
	PublicAPIKey string `mapstructure:"public_api_key"`
}

type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SchedulerConfig struct {
	DeadlineCheckInterval time.Duration `mapstructure:"deadline_check_interval"`
	DeadlineWindow        time.Duration `mapstructure:"deadline_window"`
	SessionCleanup        time.Duration `mapstructure:"session_cleanup"`
}

type NotificationsConfig struct {
	SlackWebhookURL string `mapstructure:"slack_webhook_url"`
	SignalTopicSize int    `mapstructure:"signal_topic_size"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Mode == "production"
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.timeout", 5*time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "UTC")
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("auth.jwt_expiry_hours", 24)
	v.SetDefault("auth.jwt_issuer", "worklog")
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Origin", "apikey"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("scheduler.deadline_check_interval", 15*time.Minute)
	v.SetDefault("scheduler.deadline_window", 24*time.Hour)
	v.SetDefault("scheduler.session_cleanup", 30*time.Minute)
	v.SetDefault("notifications.signal_topic_size", 100)
}

// envVars maps config keys to the environment variables that override them.
var envVars = map[string]string{
	"database.url":                      "STORE_URL",
	"database.host":                     "DB_HOST",
	"database.port":                     "DB_PORT",
	"database.user":                     "DB_USER",
	"database.password":                 "DB_PASSWORD",
	"database.name":                     "DB_NAME",
	"database.sslmode":                  "DB_SSLMODE",
	"database.log_queries":              "DB_LOG_QUERIES",
	"server.port":                       "SERVER_PORT",
	"server.mode":                       "SERVER_MODE",
	"server.timeout":                    "SERVER_TIMEOUT",
	"redis.host":                        "REDIS_HOST",
	"redis.port":                        "REDIS_PORT",
	"redis.password":                    "REDIS_PASSWORD",
	"redis.db":                          "REDIS_DB",
	"auth.jwt_secret":                   "JWT_SECRET",
	"auth.jwt_issuer":                   "JWT_ISSUER",
	"auth.jwt_expiry_hours":             "JWT_EXPIRY_HOURS",
	"auth.public_api_key":               "PUBLIC_API_KEY",
	"logging.level":                     "LOG_LEVEL",
	"logging.format":                    "LOG_FORMAT",
	"scheduler.deadline_check_interval": "DEADLINE_CHECK_INTERVAL",
	"scheduler.deadline_window":         "DEADLINE_WINDOW",
	"notifications.slack_webhook_url":   "SLACK_WEBHOOK_URL",
}

// LoadConfig reads an optional YAML file, then applies environment overrides.
// A missing config file is not an error: the environment alone is enough.
func LoadConfig(configPath string) (*Config, error) {
	var config Config

	// .env is optional
	_ = godotenv.Load()

	if envConfigFile := os.Getenv("CONFIG_FILE"); envConfigFile != "" {
		configPath = envConfigFile
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	if configPath != "" {
		dir := filepath.Dir(configPath)
		file := filepath.Base(configPath)
		ext := filepath.Ext(file)
		name := strings.TrimSuffix(file, ext)

		v.AddConfigPath(dir)
		v.SetConfigName(name)
	} else {
		_, filename, _, _ := runtime.Caller(0)
		pkgConfigDir := filepath.Dir(filename)
		projectRoot := filepath.Join(pkgConfigDir, "..", "..")

		v.AddConfigPath(".")
		v.AddConfigPath(pkgConfigDir)
		v.AddConfigPath(projectRoot)
		v.SetConfigName("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || configPath != "" {
			return nil, fmt.Errorf("error loading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := applyEnv(v); err != nil {
		return nil, err
	}

	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyEnv(v *viper.Viper) error {
	for configKey, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		switch envVar {
		case "DB_PORT", "REDIS_PORT", "REDIS_DB", "SERVER_PORT", "JWT_EXPIRY_HOURS":
			intVal, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", envVar, err)
			}
			v.Set(configKey, intVal)
		case "SERVER_TIMEOUT", "DEADLINE_CHECK_INTERVAL", "DEADLINE_WINDOW":
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", envVar, err)
			}
			v.Set(configKey, d)
		case "DB_LOG_QUERIES":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", envVar, err)
			}
			v.Set(configKey, b)
		default:
			v.Set(configKey, value)
		}
	}
	return nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Database.URL == "" && (c.Database.Host == "" || c.Database.Name == "") {
		return errors.New("config: STORE_URL or database host/name is required")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	if c.Auth.JWTExpiryHours <= 0 {
		return errors.New("config: jwt_expiry_hours must be positive")
	}
	return nil
}
