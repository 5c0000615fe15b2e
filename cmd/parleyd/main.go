// Command parleyd is the negotiation engine server: it hosts guard
// interrogations and port haggling sessions over HTTP and WebSocket.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/callistoworks/parley/internal/config"
	"github.com/callistoworks/parley/internal/evaluate"
	"github.com/callistoworks/parley/internal/health"
	"github.com/callistoworks/parley/internal/negotiation"
	"github.com/callistoworks/parley/internal/observe"
	"github.com/callistoworks/parley/internal/prompt"
	"github.com/callistoworks/parley/internal/resilience"
	"github.com/callistoworks/parley/internal/server"
	"github.com/callistoworks/parley/pkg/judge"
	"github.com/callistoworks/parley/pkg/store"
	"github.com/callistoworks/parley/pkg/store/inmem"
	"github.com/callistoworks/parley/pkg/store/postgres"
	goredis "github.com/callistoworks/parley/pkg/store/redis"
	"github.com/callistoworks/parley/pkg/types"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "parleyd: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "parleyd: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("parleyd starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "parley",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	metrics := observe.DefaultMetrics()

	// ── Judge chain ───────────────────────────────────────────────────────────
	chain, err := buildJudgeChain(cfg)
	if err != nil {
		slog.Error("failed to build judge chain", "err", err)
		return 1
	}
	evaluator := evaluate.New(chain, evaluate.Config{Timeout: cfg.Judges.Timeout}, metrics)

	// ── Negotiation engine ────────────────────────────────────────────────────
	orch := negotiation.New(evaluator, prompt.NewStatic(), map[types.Kind]negotiation.Tuning{
		types.KindInterrogation: cfg.Tuning(types.KindInterrogation),
		types.KindHaggling:      cfg.Tuning(types.KindHaggling),
	})

	// ── Session store ─────────────────────────────────────────────────────────
	st, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise session store", "err", err)
		return 1
	}
	defer closeStore()

	sessions := server.NewSessionManager(st, orch, metrics)

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.Empty() {
			slog.Info("config file changed, no hot-reloadable differences")
			return
		}
		if diff.LogLevelChanged {
			logLevel.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		for _, kind := range diff.TuningChanged {
			// Open sessions keep the tuning they started with; only the
			// orchestrator map would need a restart to pick this up.
			slog.Warn("engine tuning changed on disk, restart to apply", "kind", string(kind))
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, evaluator.Providers())

	// ── HTTP server ───────────────────────────────────────────────────────────
	checkers := []health.Checker{
		health.StoreChecker(sessions),
		health.JudgeChecker(evaluator.Providers),
	}
	srv := server.New(server.Config{
		ListenAddr:      cfg.Server.ListenAddr,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, sessions, checkers, metrics)

	slog.Info("server ready — press Ctrl+C to shut down")

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// version is stamped via -ldflags at release build time.
var version = "dev"

// buildJudgeChain instantiates the configured judge providers and wraps them
// in a failover chain with per-provider circuit breakers. A nil chain means no
// LLM judges are configured and the evaluator runs on the heuristic alone.
func buildJudgeChain(cfg *config.Config) (*resilience.JudgeFallback, error) {
	providers, err := config.NewRegistry().BuildJudges(cfg.Judges)
	if err != nil {
		return nil, err
	}
	if len(providers) == 0 {
		slog.Info("no judge providers configured, running offline on the heuristic judge")
		return nil, nil
	}

	fbCfg := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures:  cfg.Judges.Breaker.FailureThreshold,
			ResetTimeout: cfg.Judges.Breaker.RecoveryTimeout,
			HalfOpenMax:  cfg.Judges.Breaker.HalfOpenRequests,
		},
	}
	chain := resilience.NewJudgeFallback(providers[0], fbCfg)
	for _, p := range providers[1:] {
		chain.AddFallback(p)
	}
	logJudges(providers)
	return chain, nil
}

func logJudges(providers []judge.Provider) {
	for i, p := range providers {
		slog.Info("judge provider registered", "priority", i, "name", p.Name())
	}
}

// buildStore selects the session store backend. The returned close function is
// a no-op for the in-memory store.
func buildStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		st, err := postgres.New(ctx, cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("session store connected", "backend", "postgres")
		return st, st.Close, nil

	case config.StoreRedis:
		st, err := goredis.Dial(ctx, cfg.Store.RedisAddr, goredis.Config{TTL: cfg.Store.RedisTTL})
		if err != nil {
			return nil, nil, err
		}
		slog.Info("session store connected", "backend", "redis", "addr", cfg.Store.RedisAddr, "ttl", cfg.Store.RedisTTL)
		return st, func() {
			if err := st.Close(); err != nil {
				slog.Warn("redis close error", "err", err)
			}
		}, nil

	default:
		slog.Info("session store ready", "backend", "inmem")
		return inmem.New(), func() {}, nil
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, judges []string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║          parley — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Listen addr", cfg.Server.ListenAddr)
	printRow("Store", string(storeBackend(cfg)))
	for i, name := range judges {
		printRow(fmt.Sprintf("Judge #%d", i+1), name)
	}
	printRow("Guard turns", fmt.Sprintf("%d", cfg.Tuning(types.KindInterrogation).TurnBudget))
	printRow("Trader turns", fmt.Sprintf("%d", cfg.Tuning(types.KindHaggling).TurnBudget))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(label, value string) {
	if value == "" {
		value = "(default)"
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-15s : %-19s ║\n", label, value)
}

func storeBackend(cfg *config.Config) config.StoreBackend {
	if cfg.Store.Backend == "" {
		return config.StoreInmem
	}
	return cfg.Store.Backend
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
