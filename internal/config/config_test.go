package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Applies defaults", func(t *testing.T) {
		path := writeConfig(t, "jwt-secret-key: s3cret\n")

		conf, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "info", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "9091", conf.SocketPort)
		assert.Equal(t, 168*time.Hour, conf.JWTTTL)
		assert.Equal(t, PubSubRedis, conf.PubSubDriver)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
	})

	t.Run("Reads every section", func(t *testing.T) {
		path := writeConfig(t, `
log-level: debug
http-port: "8080"
socket-port: "8081"
sqlite-storage-path: /tmp/arena.db
jwt-secret-key: s3cret
jwt-ttl: 1h
pubsub-driver: memory
redis:
  host: cache
  port: "6380"
  password: pw
  db: 2
`)

		conf, err := Load(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "/tmp/arena.db", conf.SQLiteStoragePath)
		assert.Equal(t, time.Hour, conf.JWTTTL)
		assert.Equal(t, PubSubMemory, conf.PubSubDriver)
		assert.Equal(t, "cache:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, 2, conf.Redis.DB)
	})

	t.Run("Rejects an unknown pubsub driver", func(t *testing.T) {
		path := writeConfig(t, "pubsub-driver: kafka\n")

		_, err := Load(path)

		assert.ErrorContains(t, err, "kafka")
	})

	t.Run("Rejects an unknown log level", func(t *testing.T) {
		path := writeConfig(t, "log-level: verbose\n")

		_, err := Load(path)

		assert.ErrorContains(t, err, "verbose")
	})

	t.Run("Missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))

		assert.Error(t, err)
	})
}

func TestConfig_SlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &Config{LogLevel: tt.name}

			assert.Equal(t, tt.level, conf.SlogLevel())
		})
	}
}
