package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/yndnr/kvmesh-go/internal/core/service"
	"github.com/yndnr/kvmesh-go/internal/infra/buildinfo"
	"github.com/yndnr/kvmesh-go/internal/infra/confloader"
	"github.com/yndnr/kvmesh-go/internal/infra/shutdown"
	"github.com/yndnr/kvmesh-go/internal/server/config"
	"github.com/yndnr/kvmesh-go/internal/server/httpserver"
	"github.com/yndnr/kvmesh-go/internal/server/redisserver"
	"github.com/yndnr/kvmesh-go/internal/storage"
	"github.com/yndnr/kvmesh-go/internal/storage/memory"
	"github.com/yndnr/kvmesh-go/internal/telemetry/logger"
	"github.com/yndnr/kvmesh-go/internal/telemetry/metric"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configFile  = flag.String("config", "", "Path to configuration file")
		httpAddr    = flag.String("http-addr", "", "Override server.http.addr")
		logLevel    = flag.String("log-level", "", "Override log.level")
		showVersion = flag.Bool("version", false, "Show version information")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("kvmesh-server %s\n", buildinfo.String())
		return nil
	}

	overrides := map[string]any{}
	if *httpAddr != "" {
		overrides["server.http.addr"] = *httpAddr
	}
	if *logLevel != "" {
		overrides["log.level"] = *logLevel
	}

	loader := newLoader(*configFile, overrides)
	cfg, err := loadConfig(loader)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetDefault(log)

	info := buildinfo.Get()
	log.Info("starting kvmesh-server",
		"version", info.Version,
		"commit", info.Commit,
		"config", *configFile,
		"backend", cfg.Storage.Backend)

	backend, err := openBackend(cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	reg := metric.NewRegistry()
	if counter, ok := backend.(storage.Counter); ok {
		if err := reg.RegisterKeyCount(counter.Count); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}

	svc := service.NewKVService(backend,
		service.WithLogger(log),
		service.WithRecorder(reg),
		service.WithMaxValueBytes(cfg.Storage.MaxValueBytes),
	)

	router := httpserver.NewRouter(httpserver.RouterConfigFrom(cfg.Server.HTTP, svc, log, reg))
	httpSrv := httpserver.New(cfg.Server.HTTP, router, log)

	var redisSrv *redisserver.Server
	if cfg.Server.Redis.Enabled {
		redisSrv = redisserver.New(redisserver.ConfigFrom(cfg.Server.Redis), svc, log, reg)
	}

	// Hooks run in reverse registration order: listeners stop before the
	// backend closes.
	sh := shutdown.NewHandler(shutdown.DefaultTimeout, log)
	sh.OnShutdown("storage", func(context.Context) error {
		if c, ok := backend.(io.Closer); ok {
			return c.Close()
		}
		return nil
	})

	if path := loader.FilePath(); path != "" {
		watcher, err := watchConfig(loader, path, log)
		if err != nil {
			log.Warn("configuration hot reload disabled", "error", err)
		} else {
			sh.OnShutdown("config-watcher", func(context.Context) error {
				return watcher.Stop()
			})
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if redisSrv != nil {
		sh.OnShutdown("redis", redisSrv.Shutdown)
		g.Go(func() error {
			if err := redisSrv.ListenAndServe(gctx); err != nil {
				return fmt.Errorf("redis server: %w", err)
			}
			return nil
		})
	}

	sh.OnShutdown("http", httpSrv.Shutdown)
	g.Go(func() error {
		if err := httpSrv.ListenAndServe(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// A listener that fails stops the whole process.
	go func() {
		<-gctx.Done()
		sh.Trigger("server stopped")
	}()

	log.Info("server started, press Ctrl+C to stop")
	shutdownErr := sh.Wait()
	cancel()
	serveErr := g.Wait()

	if err := errors.Join(serveErr, shutdownErr); err != nil {
		log.Error("server stopped with errors", "error", err)
		return err
	}
	log.Info("server stopped gracefully")
	return nil
}

// newLoader builds the loader: flags over env over file over defaults.
func newLoader(configFile string, overrides map[string]any) *confloader.Loader {
	opts := []confloader.Option{
		confloader.WithEnvPrefix(confloader.DefaultEnvPrefix),
		confloader.WithOverrides(overrides),
	}
	if configFile != "" {
		opts = append(opts, confloader.WithConfigFile(configFile))
	}
	return confloader.NewLoader(opts...)
}

// loadConfig layers the file and environment over the defaults.
func loadConfig(loader *confloader.Loader) (*config.ServerConfig, error) {
	cfg := config.Default()
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}
	if err := config.Verify(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openBackend(cfg config.StorageSection, log logger.Logger) (storage.Backend, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		return storage.NewBadgerBackend(storage.DefaultBadgerConfig(), logger.Slog(log))
	default:
		return memory.New(memory.WithShardCount(cfg.ShardCount)), nil
	}
}

// watchConfig applies log level changes from the config file without a
// restart. Other settings need one.
func watchConfig(loader *confloader.Loader, path string, log logger.Logger) (*confloader.Watcher, error) {
	watcher, err := confloader.NewWatcher(confloader.WithWatcherLogger(log))
	if err != nil {
		return nil, err
	}
	if err := watcher.Watch(path); err != nil {
		_ = watcher.Stop()
		return nil, err
	}

	watcher.OnChange(func(string) {
		cfg := config.Default()
		if err := loader.Reload(cfg); err != nil {
			log.Error("configuration reload failed", "error", err)
			return
		}
		if err := config.Verify(cfg); err != nil {
			log.Error("reloaded configuration is invalid", "error", err)
			return
		}
		if cfg.Log.Level != logger.GetLevel() {
			logger.SetLevel(cfg.Log.Level)
			log.Info("log level changed", "level", cfg.Log.Level)
		}
	})
	watcher.StartAsync()
	return watcher, nil
}
