package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
)

// Limits enforced by Verify.
const (
	MaxShardCount    = 4096
	MaxValueBytesCap = 64 << 20
)

// Verify validates the configuration. All problems are reported together.
func Verify(cfg *ServerConfig) error {
	var errs []error
	errs = append(errs, verifyServer(&cfg.Server)...)
	errs = append(errs, verifyStorage(&cfg.Storage)...)
	errs = append(errs, verifyLog(&cfg.Log)...)
	return errors.Join(errs...)
}

func verifyServer(cfg *ServerSection) []error {
	var errs []error

	if err := verifyAddr("server.http.addr", cfg.HTTP.Addr); err != nil {
		errs = append(errs, err)
	}
	if (cfg.HTTP.TLSCertFile == "") != (cfg.HTTP.TLSKeyFile == "") {
		errs = append(errs, errors.New("server.http.tls_cert_file and server.http.tls_key_file must be set together"))
	}
	errs = append(errs, verifyRateLimit("server.http.rate_limit", cfg.HTTP.RateLimit)...)

	if cfg.Redis.Enabled {
		if err := verifyAddr("server.redis.addr", cfg.Redis.Addr); err != nil {
			errs = append(errs, err)
		}
		if cfg.Redis.Addr == cfg.HTTP.Addr {
			errs = append(errs, fmt.Errorf("server.redis.addr conflicts with server.http.addr (%s)", cfg.Redis.Addr))
		}
		errs = append(errs, verifyRateLimit("server.redis.rate_limit", cfg.Redis.RateLimit)...)
	}

	return errs
}

func verifyAddr(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s is required", field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("%s: invalid address %q: %w", field, addr, err)
	}
	return nil
}

func verifyRateLimit(field string, cfg RateLimitConfig) []error {
	if !cfg.Enabled {
		return nil
	}
	var errs []error
	if cfg.Rate <= 0 {
		errs = append(errs, fmt.Errorf("%s.rate must be positive", field))
	}
	if cfg.Burst < 1 {
		errs = append(errs, fmt.Errorf("%s.burst must be at least 1", field))
	}
	return errs
}

func verifyStorage(cfg *StorageSection) []error {
	var errs []error

	switch cfg.Backend {
	case BackendMemory, BackendBadger:
	default:
		errs = append(errs, fmt.Errorf("storage.backend must be %q or %q, got %q", BackendMemory, BackendBadger, cfg.Backend))
	}

	n := cfg.ShardCount
	if n < 0 || n > MaxShardCount || (n > 0 && n&(n-1) != 0) {
		errs = append(errs, fmt.Errorf("storage.shard_count must be 0 or a power of two up to %d, got %d", MaxShardCount, n))
	}

	if cfg.MaxValueBytes <= 0 || cfg.MaxValueBytes > MaxValueBytesCap {
		errs = append(errs, fmt.Errorf("storage.max_value_bytes must be in (0, %d], got %d", MaxValueBytesCap, cfg.MaxValueBytes))
	}

	return errs
}

func verifyLog(cfg *LogSection) []error {
	var errs []error

	if !logger.ValidLevel(cfg.Level) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", cfg.Level))
	}

	switch strings.ToLower(cfg.Format) {
	case "json", "text", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or text, got %q", cfg.Format))
	}

	return errs
}
