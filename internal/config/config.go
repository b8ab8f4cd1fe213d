package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	PubSubRedis  = "redis"
	PubSubMemory = "memory"
)

type Config struct {
	LogLevel          string        `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort          string        `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	SocketPort        string        `yaml:"socket-port" env:"SOCKET_PORT" env-default:"9091"`
	SQLiteStoragePath string        `yaml:"sqlite-storage-path" env:"SQLITE_STORAGE_PATH" env-default:"tictactoe.db"`
	JWTSecretKey      string        `yaml:"jwt-secret-key" env:"JWT_SECRET_KEY"`
	JWTTTL            time.Duration `yaml:"jwt-ttl" env:"JWT_TTL" env-default:"168h"`
	PubSubDriver      string        `yaml:"pubsub-driver" env:"PUBSUB_DRIVER" env-default:"redis"`
	Redis             Redis         `yaml:"redis"`
}

type Redis struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// Load - reads the YAML file at path; environment variables override it.
func Load(path string) (*Config, error) {
	config := &Config{}

	if err := cleanenv.ReadConfig(path, config); err != nil {
		return nil, fmt.Errorf("unable to load config file: %w", err)
	}

	if config.PubSubDriver != PubSubRedis && config.PubSubDriver != PubSubMemory {
		return nil, fmt.Errorf("unknown pubsub driver %q", config.PubSubDriver)
	}

	if _, err := parseLevel(config.LogLevel); err != nil {
		return nil, fmt.Errorf("unknown log level %q", config.LogLevel)
	}

	return config, nil
}

// SlogLevel - LogLevel as a slog level. Load rejects names slog does not know.
func (that *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(that.LogLevel)
	return level
}

func parseLevel(name string) (slog.Level, error) {
	var level slog.Level
	err := level.UnmarshalText([]byte(name))

	return level, err
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}
