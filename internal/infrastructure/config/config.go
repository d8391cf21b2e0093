// Package config loads the gamepanel configuration with viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/viper"

	sharedConfig "github.com/orris-inc/gamepanel/internal/shared/config"
)

// EnvPrefix prefixes every environment override, e.g. GAMEPANEL_SERVER_PORT.
const EnvPrefix = "GAMEPANEL"

type Config struct {
	Server   sharedConfig.ServerConfig   `mapstructure:"server"`
	Database sharedConfig.DatabaseConfig `mapstructure:"database"`
	Logger   sharedConfig.LoggerConfig   `mapstructure:"logger"`
	Redis    sharedConfig.RedisConfig    `mapstructure:"redis"`
	AgentHub sharedConfig.AgentHubConfig `mapstructure:"agent_hub"`
	Auth     sharedConfig.AuthConfig     `mapstructure:"auth"`
}

var (
	appConfig   *Config
	appConfigMu sync.RWMutex
)

// Load reads configs/config.yaml (or configPath when set) and environment
// variables. A missing config file is not an error: defaults and environment
// variables still apply.
func Load(env, configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../configs")
		v.AddConfigPath("../../configs")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if env != "" && env != "default" {
		v.Set("server.mode", env)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	appConfigMu.Lock()
	appConfig = &config
	appConfigMu.Unlock()

	return &config, nil
}

// Get returns the last loaded configuration.
func Get() *Config {
	appConfigMu.RLock()
	defer appConfigMu.RUnlock()
	return appConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "gamepanel.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.username", "root")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "gamepanel")
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.max_open_conns", 100)
	v.SetDefault("database.conn_max_lifetime", 60)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.output_path", "stdout")

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	hub := sharedConfig.DefaultAgentHubConfig()
	v.SetDefault("agent_hub.heartbeat_interval", hub.HeartbeatInterval)
	v.SetDefault("agent_hub.heartbeat_timeout", hub.HeartbeatTimeout)
	v.SetDefault("agent_hub.handshake_timeout", hub.HandshakeTimeout)
	v.SetDefault("agent_hub.command_timeout", hub.CommandTimeout)
	v.SetDefault("agent_hub.sweep_interval", hub.SweepInterval)
	v.SetDefault("agent_hub.send_buffer_size", hub.SendBufferSize)
	v.SetDefault("agent_hub.read_limit", hub.ReadLimit)
	v.SetDefault("agent_hub.min_protocol_version", hub.MinProtocolVersion)

	v.SetDefault("auth.token_cache_size", 1024)
	v.SetDefault("auth.token_cache_ttl", "5m")
	v.SetDefault("auth.connect_rate_per_minute", 60)
	v.SetDefault("auth.connect_rate_per_hour", 600)
}
