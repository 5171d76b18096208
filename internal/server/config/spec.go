package config

import "time"

// ServerConfig is the root configuration for kvmesh-server.
type ServerConfig struct {
	Server  ServerSection  `koanf:"server"`
	Storage StorageSection `koanf:"storage"`
	Log     LogSection     `koanf:"log"`
}

// ServerSection configures server endpoints.
type ServerSection struct {
	HTTP  HTTPConfig  `koanf:"http"`
	Redis RedisConfig `koanf:"redis"`
}

// HTTPConfig configures the HTTP server.
type HTTPConfig struct {
	Addr        string `koanf:"addr"`
	TLSCertFile string `koanf:"tls_cert_file"`
	TLSKeyFile  string `koanf:"tls_key_file"`

	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`

	RateLimit          RateLimitConfig `koanf:"rate_limit"`
	CORSAllowedOrigins []string        `koanf:"cors_allowed_origins"`
	EnableAudit        bool            `koanf:"enable_audit"`
}

// RedisConfig configures the Redis protocol server.
type RedisConfig struct {
	Enabled     bool            `koanf:"enabled"`
	Addr        string          `koanf:"addr"`
	RateLimit   RateLimitConfig `koanf:"rate_limit"`
	IdleTimeout time.Duration   `koanf:"idle_timeout"`
}

// RateLimitConfig configures per-client-IP token bucket limiting.
type RateLimitConfig struct {
	Enabled bool    `koanf:"enabled"`
	Rate    float64 `koanf:"rate"` // requests per second
	Burst   int     `koanf:"burst"`
}

// Storage backend names.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// StorageSection configures the storage backend.
type StorageSection struct {
	Backend       string `koanf:"backend"`
	ShardCount    int    `koanf:"shard_count"` // 0 picks a default from GOMAXPROCS
	MaxValueBytes int    `koanf:"max_value_bytes"`
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// TLSEnabled reports whether the HTTP server should serve TLS.
func (c HTTPConfig) TLSEnabled() bool {
	return c.TLSCertFile != "" && c.TLSKeyFile != ""
}
