package config

import (
	"os"

	postgres_wrapper "github.com/exchangesim/fixexchange/pkg/infra/postgres"
	redis_wrapper "github.com/exchangesim/fixexchange/pkg/infra/redis"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// SessionConfig carries the FIX acceptor and per-session knobs.
type SessionConfig struct {
	ListenAddr         string `yaml:"listen_addr"`
	SenderCompID       string `yaml:"sender_comp_id"`
	ReadIdleTimeoutMs  int    `yaml:"read_idle_timeout_ms"`
	WriteTimeoutMs     int    `yaml:"write_timeout_ms"`
	CancelOnDisconnect bool   `yaml:"cancel_on_disconnect"`
}

// MetricsConfig carries the Prometheus HTTP exposition settings.
type MetricsConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// EventBusConfig carries the optional Redis mirror settings for the
// event bus. RedisChannel is ignored when Redis is nil below.
type EventBusConfig struct {
	RedisChannel string `yaml:"redis_channel"`
}

type AppConfig struct {
	ServiceName string                           `yaml:"service_name"`
	OmsDB       *postgres_wrapper.PostgresConfig `yaml:"oms_db"`
	Redis       *redis_wrapper.RedisConfig       `yaml:"redis"`
	Session     SessionConfig                    `yaml:"session"`
	Metrics     MetricsConfig                    `yaml:"metrics"`
	EventBus    EventBusConfig                   `yaml:"event_bus"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	configBytes, err := os.ReadFile(filePath)
	if err != nil {
		sugar.Error("Failed to load config file")
		return nil, err
	}
	configBytes = []byte(os.ExpandEnv(string(configBytes)))

	cfg := &AppConfig{}

	err = yaml.Unmarshal(configBytes, cfg)
	if err != nil {
		sugar.Error("Failed to parse config file")
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}
