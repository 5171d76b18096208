package config

import "time"

// Default configuration values.
const (
	DefaultHTTPAddr  = "127.0.0.1:8080"
	DefaultRedisAddr = "127.0.0.1:6379"

	DefaultReadTimeout  = 30 * time.Second
	DefaultWriteTimeout = 30 * time.Second
	DefaultIdleTimeout  = 120 * time.Second
	DefaultRedisIdle    = 5 * time.Minute

	DefaultRateLimit = 1000
	DefaultBurst     = 2000

	DefaultBackend       = BackendMemory
	DefaultMaxValueBytes = 1 << 20

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			HTTP: HTTPConfig{
				Addr:         DefaultHTTPAddr,
				ReadTimeout:  DefaultReadTimeout,
				WriteTimeout: DefaultWriteTimeout,
				IdleTimeout:  DefaultIdleTimeout,
				RateLimit: RateLimitConfig{
					Enabled: false,
					Rate:    DefaultRateLimit,
					Burst:   DefaultBurst,
				},
				EnableAudit: true,
			},
			Redis: RedisConfig{
				Enabled:     false,
				Addr:        DefaultRedisAddr,
				IdleTimeout: DefaultRedisIdle,
				RateLimit: RateLimitConfig{
					Enabled: false,
					Rate:    DefaultRateLimit,
					Burst:   DefaultBurst,
				},
			},
		},
		Storage: StorageSection{
			Backend:       DefaultBackend,
			ShardCount:    0,
			MaxValueBytes: DefaultMaxValueBytes,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
