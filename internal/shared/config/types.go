// Package config holds the configuration section types shared across layers.
package config

import (
	"fmt"
	"time"
)

type ServerConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	// Driver is "sqlite" or "mysql".
	Driver          string `mapstructure:"driver"`
	Path            string `mapstructure:"path"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

// GetDSN returns the MySQL DSN. SQLite uses Path directly.
func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// AgentHubConfig tunes the agent registry and dispatcher.
type AgentHubConfig struct {
	HeartbeatInterval  time.Duration `mapstructure:"heartbeat_interval"`
	HeartbeatTimeout   time.Duration `mapstructure:"heartbeat_timeout"`
	HandshakeTimeout   time.Duration `mapstructure:"handshake_timeout"`
	CommandTimeout     time.Duration `mapstructure:"command_timeout"`
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`
	SendBufferSize     int           `mapstructure:"send_buffer_size"`
	ReadLimit          int64         `mapstructure:"read_limit"`
	MinProtocolVersion string        `mapstructure:"min_protocol_version"`
}

// DefaultAgentHubConfig returns the values used when nothing is configured.
func DefaultAgentHubConfig() AgentHubConfig {
	return AgentHubConfig{
		HeartbeatInterval:  30 * time.Second,
		HeartbeatTimeout:   90 * time.Second,
		HandshakeTimeout:   10 * time.Second,
		CommandTimeout:     30 * time.Second,
		SweepInterval:      15 * time.Second,
		SendBufferSize:     256,
		ReadLimit:          65536,
		MinProtocolVersion: "1.0.0",
	}
}

type AuthConfig struct {
	TokenCacheSize int           `mapstructure:"token_cache_size"`
	TokenCacheTTL  time.Duration `mapstructure:"token_cache_ttl"`

	// Agent connection attempts allowed per client IP. Enforced only when
	// Redis is enabled.
	ConnectRatePerMinute int `mapstructure:"connect_rate_per_minute"`
	ConnectRatePerHour   int `mapstructure:"connect_rate_per_hour"`
}
