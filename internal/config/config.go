package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// ConfigFile is the optional YAML file named by CONFIG_FILE.
	// Environment variables override values read from it.
	ConfigFile string

	Driver          string
	DSN             string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	LogSQL          bool

	// ReadOnly opens SQLite datasets with mode=ro. The server always sets it;
	// the schema tool clears it.
	ReadOnly bool

	// RateLimitRPS of 0 disables the limiter.
	RateLimitRPS   float64
	RateLimitBurst int

	// MQTTBroker empty disables the status publisher.
	MQTTBroker   string
	MQTTPort     int
	MQTTTopic    string
	MQTTClientID string
}

// fileConfig mirrors the YAML layout. Scalars are kept as strings so file
// and environment values share one parse path.
type fileConfig struct {
	AppEnv   string `yaml:"app_env"`
	LogLevel string `yaml:"log_level"`
	HTTPAddr string `yaml:"http_addr"`
	DB       struct {
		Driver          string `yaml:"driver"`
		DSN             string `yaml:"dsn"`
		Path            string `yaml:"path"`
		MaxOpenConns    string `yaml:"max_open_conns"`
		MaxIdleConns    string `yaml:"max_idle_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		LogSQL          string `yaml:"log_sql"`
	} `yaml:"db"`
	RateLimit struct {
		RPS   string `yaml:"rps"`
		Burst string `yaml:"burst"`
	} `yaml:"rate_limit"`
	MQTT struct {
		Broker   string `yaml:"broker"`
		Port     string `yaml:"port"`
		Topic    string `yaml:"topic"`
		ClientID string `yaml:"client_id"`
	} `yaml:"mqtt"`
}

// LoadFromEnv builds the configuration from, in increasing precedence:
// built-in defaults, the YAML file named by CONFIG_FILE, and the process
// environment. A dotenv file (ENV_FILE, default .env) is loaded first if it
// exists; it never overrides variables already set.
func LoadFromEnv() (Config, error) {
	envFile := strings.TrimSpace(os.Getenv("ENV_FILE"))
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	configFile := strings.TrimSpace(os.Getenv("CONFIG_FILE"))
	var fc fileConfig
	if configFile != "" {
		var err error
		fc, err = loadFile(configFile)
		if err != nil {
			return Config{}, err
		}
	}

	appEnv := lookup("APP_ENV", fc.AppEnv, "dev")
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(lookup("LOG_LEVEL", fc.LogLevel, "info"))
	if err != nil {
		return Config{}, err
	}

	maxOpenConns, err := lookupInt("DB_MAX_OPEN_CONNS", fc.DB.MaxOpenConns, "4")
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := lookupInt("DB_MAX_IDLE_CONNS", fc.DB.MaxIdleConns, "4")
	if err != nil {
		return Config{}, err
	}

	connMaxLifetimeStr := lookup("DB_CONN_MAX_LIFETIME", fc.DB.ConnMaxLifetime, "0s")
	connMaxLifetime, err := time.ParseDuration(connMaxLifetimeStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME %q: %w", connMaxLifetimeStr, err)
	}

	logSQLStr := lookup("DB_LOG_SQL", fc.DB.LogSQL, "false")
	logSQL, err := strconv.ParseBool(logSQLStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid DB_LOG_SQL %q: %w", logSQLStr, err)
	}

	rpsStr := lookup("RATE_LIMIT_RPS", fc.RateLimit.RPS, "0")
	rps, err := strconv.ParseFloat(rpsStr, 64)
	if err != nil || rps < 0 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPS %q (want a non-negative number)", rpsStr)
	}
	burst, err := lookupInt("RATE_LIMIT_BURST", fc.RateLimit.Burst, "10")
	if err != nil {
		return Config{}, err
	}
	if rps > 0 && burst < 1 {
		return Config{}, fmt.Errorf("invalid RATE_LIMIT_BURST %d (must be >= 1 when RATE_LIMIT_RPS > 0)", burst)
	}

	mqttPort, err := lookupInt("MQTT_PORT", fc.MQTT.Port, "1883")
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:          appEnv,
		LogLevel:        level,
		HTTPAddr:        lookup("HTTP_ADDR", fc.HTTPAddr, ":8080"),
		ConfigFile:      configFile,
		Driver:          lookup("DB_DRIVER", fc.DB.Driver, "sqlite3"),
		DSN:             lookup("DB_DSN", fc.DB.DSN, ""),
		Path:            lookup("SQLITE_PATH", fc.DB.Path, "Resources/hawaii.sqlite"),
		MaxOpenConns:    maxOpenConns,
		MaxIdleConns:    maxIdleConns,
		ConnMaxLifetime: connMaxLifetime,
		LogSQL:          logSQL,
		ReadOnly:        true,
		RateLimitRPS:    rps,
		RateLimitBurst:  burst,
		MQTTBroker:      lookup("MQTT_BROKER", fc.MQTT.Broker, ""),
		MQTTPort:        mqttPort,
		MQTTTopic:       lookup("MQTT_TOPIC", fc.MQTT.Topic, "surfsup/api"),
		MQTTClientID:    lookup("MQTT_CLIENT_ID", fc.MQTT.ClientID, "surfsup-server"),
	}, nil
}

func loadFile(path string) (fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("read config file %s: %w", path, err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fileConfig{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return fc, nil
}

// lookup returns the trimmed environment value for key, else the file value,
// else def.
func lookup(key, fromFile, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(fromFile); v != "" {
		return v
	}
	return def
}

func lookupInt(key, fromFile, def string) (int, error) {
	s := lookup(key, fromFile, def)
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
