// Package config holds server configuration, loaded from the environment
// with defaults for local development.
package config

import (
	"os"
	"strconv"
)

// SocketConfig holds WebSocket transport settings.
type SocketConfig struct {
	ReadBufferSize  int `json:"read_buffer_size"`
	WriteBufferSize int `json:"write_buffer_size"`
	SendBuffer      int `json:"send_buffer"` // per-connection outbound queue
}

// RedisConfig holds connection settings for the Redis pub/sub bridge.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // channel prefix
}

// Config is the full server configuration.
type Config struct {
	ListenAddr  string
	DatabaseURL string
	// AuthMode selects the identity binder: "query" trusts the caller's
	// user_id claim, "token" requires a signed JWT.
	AuthMode  string
	JWTSecret string
	Socket    SocketConfig
	Redis     RedisConfig
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	return &Config{
		ListenAddr:  ":8000",
		DatabaseURL: "postgres://localhost:5432/teachforward",
		AuthMode:    "query",
		JWTSecret:   "devsecret",
		Socket: SocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			SendBuffer:      256,
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "teachforward:ws:",
		},
	}
}

// FromEnv loads configuration from environment variables, falling back to
// defaults for any missing values.
func FromEnv() *Config {
	cfg := Default()

	if addr := os.Getenv("LISTEN_ADDR"); addr != "" {
		cfg.ListenAddr = addr
	}
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.DatabaseURL = url
	}
	if mode := os.Getenv("WS_AUTH"); mode != "" {
		cfg.AuthMode = mode
	}
	if secret := os.Getenv("SECRET_KEY"); secret != "" {
		cfg.JWTSecret = secret
	}
	if n := intEnv("WS_READ_BUFFER"); n > 0 {
		cfg.Socket.ReadBufferSize = n
	}
	if n := intEnv("WS_WRITE_BUFFER"); n > 0 {
		cfg.Socket.WriteBufferSize = n
	}
	if n := intEnv("WS_SEND_BUFFER"); n > 0 {
		cfg.Socket.SendBuffer = n
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if pw := os.Getenv("REDIS_PASSWORD"); pw != "" {
		cfg.Redis.Password = pw
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			cfg.Redis.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_WS_PREFIX"); prefix != "" {
		cfg.Redis.Prefix = prefix
	}
	return cfg
}

func intEnv(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}
