// Command mysqlpoold runs a standalone client-side MySQL connection pool
// with a stats/metrics/dashboard HTTP surface, matching the teacher's
// cmd/dbbouncer wiring conventions (flag-driven config path, slog startup
// logging, signal-driven graceful shutdown).
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dbpool/mysqlpool/internal/config"
	"github.com/dbpool/mysqlpool/internal/eventlog"
	"github.com/dbpool/mysqlpool/internal/metrics"
	"github.com/dbpool/mysqlpool/internal/pool"
	"github.com/dbpool/mysqlpool/internal/statsapi"
)

func main() {
	configPath := flag.String("config", config.DefaultConfigPath, "path to configuration file")
	poolName := flag.String("name", "default", "name this pool reports under in metrics")
	flag.Parse()

	sink := eventlog.Default()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("mysqlpool starting", "config", *configPath)

	cfg, err := config.Load(*configPath)
	if err != nil {
		sink.Error("config load failed", "path", *configPath, "err", err)
		log.Fatalf("failed to load config: %v", err)
	}
	sink.Info("config loaded", "path", *configPath)
	settings := config.NewPoolSettings(cfg)
	statsPort := cfg.GetInt("statsPort", 9090)

	p, err := pool.New(settings, sink)
	if err != nil {
		log.Fatalf("failed to start pool: %v", err)
	}

	mc := metrics.New()
	p.SetMetrics(mc, *poolName)

	statsServer := statsapi.NewServer(p, mc, sink)
	if err := statsServer.Start(statsPort); err != nil {
		log.Fatalf("failed to start stats server: %v", err)
	}

	configWatcher, err := config.NewWatcher(*configPath, sink, func(config.Config) {
		logger.Warn("config file changed; pool tuning is fixed at startup, restart to apply")
	})
	if err != nil {
		logger.Warn("config hot-reload not available", "err", err)
	}

	logger.Info("mysqlpool ready",
		"name", *poolName,
		"stats_port", statsPort,
		"init_size", settings.InitSize,
		"max_size", settings.MaxSize,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig.String())

	if configWatcher != nil {
		configWatcher.Stop()
	}
	if err := statsServer.Stop(); err != nil {
		logger.Warn("stats server shutdown error", "err", err)
	}
	if err := p.Close(); err != nil {
		logger.Warn("pool close error", "err", err)
	}
	mc.Remove(*poolName)

	logger.Info("mysqlpool stopped")
}
