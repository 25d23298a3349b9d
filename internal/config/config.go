package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode            string        `mapstructure:"mode"`
	Port            int           `mapstructure:"port"`
	Secret          string        `mapstructure:"secret"`
	BufferSize      int           `mapstructure:"buffer_size"`
	ReadLimit       int64         `mapstructure:"read_limit"`
	KeepalivePeriod time.Duration `mapstructure:"keepalive_period"`
	HostFailover    bool          `mapstructure:"host_failover"`
	RoomTTL         time.Duration `mapstructure:"room_ttl"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	IngestLimit     int           `mapstructure:"ingest_limit"`
	IngestWindow    time.Duration `mapstructure:"ingest_window"`
	SlowPolicy      string        `mapstructure:"slow_subscriber_policy"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("buffer_size", 32)
	v.SetDefault("read_limit", 4096)
	v.SetDefault("keepalive_period", "15s")
	v.SetDefault("host_failover", false)
	v.SetDefault("room_ttl", "0s")
	v.SetDefault("sweep_interval", "1m")
	v.SetDefault("ingest_limit", 0)
	v.SetDefault("ingest_window", "1s")
	v.SetDefault("slow_subscriber_policy", "drop")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Failover: %v\n", cfg.Mode, cfg.Port, cfg.HostFailover)
	return &cfg, nil
}
