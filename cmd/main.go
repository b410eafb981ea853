package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/georgeGeorgakakos/optimusddc-sub000/config"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/admin"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/circuitbreaker"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/environ"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/gateway"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/healthcache"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/httpserver"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/metrics"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/prober"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/router"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/topology"
	"github.com/georgeGeorgakakos/optimusddc-sub000/pkg/logger"
)

func main() {
	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()

	configPath := pflag.StringP("config", "c", "", "Path to the config file")
	pflag.String("log-level", "", "Override the configured log level")
	pflag.Parse()

	if err := viper.BindPFlag("logging.level", pflag.Lookup("log-level")); err != nil {
		slog.Error("failed to bind flags", slog.Any("err", err))
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(1024, log)
	collector.Start(ctx)

	cache := initializeCache(ctx, cfg, log)
	if cache != nil {
		defer cache.Close()
	}

	rt, err := initializeRouter(cfg, cache, collector, log)
	if err != nil {
		log.Error("Failed to initialize router", slog.Any("err", err))
		os.Exit(1)
	}

	rt.WarmStart(ctx)

	resetTimeout, err := time.ParseDuration(cfg.Breaker.ResetTimeout)
	if err != nil {
		log.Error("Failed to parse breaker reset timeout", slog.Any("err", err))
		os.Exit(1)
	}

	refreshInterval, err := time.ParseDuration(cfg.Health.RefreshInterval)
	if err != nil {
		log.Error("Failed to parse health refresh interval", slog.Any("err", err))
		os.Exit(1)
	}

	breakers := circuitbreaker.NewRegistry(cfg.Breaker.FailureThreshold, resetTimeout)

	gatewayHandler := gateway.New(log, rt, breakers, collector, cfg.Proxy.Strategy)

	gatewaySrv, err := httpserver.New(cfg.Server.GatewayAddress, setupRouter(gatewayHandler, collector, cfg.Proxy.Strategy))
	if err != nil {
		log.Error("Failed to create gateway server", slog.Any("err", err))
		os.Exit(1)
	}

	adminSrv, err := httpserver.New(cfg.Server.AdminAddress, admin.NewEcho(admin.NewServer(rt, log), log))
	if err != nil {
		log.Error("Failed to create admin server", slog.Any("err", err))
		os.Exit(1)
	}

	go refreshLoop(ctx, rt, breakers, refreshInterval, log)

	srvErrCh := make(chan error, 2)

	go func() {
		srvErrCh <- gatewaySrv.Start()
	}()
	go func() {
		srvErrCh <- adminSrv.Start()
	}()

	log.Info("Gateway started",
		slog.String("gateway", cfg.Server.GatewayAddress),
		slog.String("admin", cfg.Server.AdminAddress),
		slog.String("mode", string(rt.Snapshot().Mode)))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := gatewaySrv.Shutdown(context.Background()); err != nil {
			log.Error("Error during gateway shutdown", slog.Any("err", err))
		}
		if err := adminSrv.Shutdown(context.Background()); err != nil {
			log.Error("Error during admin shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error running server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

// initializeRouter assembles resolver, prober and router from the loaded
// configuration and applies the configured topology override.
func initializeRouter(cfg *config.Config, cache *healthcache.Cache, collector *metrics.Collector, log *slog.Logger) (*router.Router, error) {
	params := topologyParams(cfg)
	if err := params.Validate(); err != nil {
		return nil, err
	}

	probeTimeout, err := time.ParseDuration(cfg.Health.ProbeTimeout)
	if err != nil {
		return nil, err
	}

	override, err := topology.ParseOverride(cfg.Topology.Override)
	if err != nil {
		return nil, err
	}

	resolver := topology.NewResolver(params, locationProvider(cfg), log)

	// A nil *Cache must stay a nil interface inside the prober.
	var resultCache prober.ResultCache
	if cache != nil {
		resultCache = cache
	}
	p := prober.New(&http.Client{}, probeTimeout, resultCache, collector, log)
	rt := router.New(resolver, p, auxServices(cfg), collector, log)

	if override != topology.OverrideAuto {
		rt.Reconfigure(router.OptionsPatch{Override: &override})
	}

	return rt, nil
}

// initializeCache connects the optional probe-result cache. Any failure
// degrades to running without one; only the configuration decides whether a
// cache exists, never its availability.
func initializeCache(ctx context.Context, cfg *config.Config, log *slog.Logger) *healthcache.Cache {
	if cfg.Cache.RedisAddr == "" {
		return nil
	}

	ttl, err := time.ParseDuration(cfg.Cache.TTL)
	if err != nil {
		log.Warn("Invalid cache TTL, continuing without the probe cache", slog.Any("err", err))
		return nil
	}

	cache := healthcache.New(healthcache.NewClient(cfg.Cache.RedisAddr), ttl)
	if err := cache.Ping(ctx); err != nil {
		log.Warn("Probe cache unreachable, continuing without it",
			slog.String("addr", cfg.Cache.RedisAddr),
			slog.Any("err", err))
		cache.Close()
		return nil
	}

	log.Info("Probe cache connected", slog.String("addr", cfg.Cache.RedisAddr))
	return cache
}

// locationProvider pins the frontend location to the configured origin. An
// unset hostname means a local development run on the dev port.
func locationProvider(cfg *config.Config) environ.Provider {
	if cfg.Location.Hostname == "" {
		return environ.NewStatic(environ.Location{
			Scheme:   "http",
			Hostname: "localhost",
			Port:     cfg.Topology.DevPort,
		})
	}

	scheme := cfg.Location.Scheme
	if scheme == "" {
		scheme = "http"
	}

	return environ.NewStatic(environ.Location{
		Scheme:   scheme,
		Hostname: cfg.Location.Hostname,
		Port:     cfg.Location.Port,
	})
}

func topologyParams(cfg *config.Config) topology.Params {
	return topology.Params{
		DevPort:            cfg.Topology.DevPort,
		DirectCount:        cfg.Topology.Direct.NodeCount,
		DirectPortBase:     cfg.Topology.Direct.PortBase,
		PortRoutedCount:    cfg.Topology.PortRouted.NodeCount,
		PortRoutedPortBase: cfg.Topology.PortRouted.PortBase,
		PathRoutedCount:    cfg.Topology.PathRouted.NodeCount,
		ServiceName:        cfg.Topology.ServiceName,
		HealthSuffix:       cfg.Health.Suffix,
	}
}

func auxServices(cfg *config.Config) router.AuxServices {
	return router.AuxServices{
		SearchBaseURL:   cfg.Services.Search.URL,
		MetadataBaseURL: cfg.Services.Metadata.URL,
		SearchPrefix:    cfg.Services.Search.Prefix,
		MetadataPrefix:  cfg.Services.Metadata.Prefix,
	}
}

// refreshLoop keeps the stored healthy set current and drops breaker state
// for nodes that left the topology.
func refreshLoop(ctx context.Context, rt *router.Router, breakers *circuitbreaker.Registry, interval time.Duration, log *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			healthy := rt.RefreshHealth(ctx)
			breakers.Prune(cluster.Names(rt.Snapshot().Nodes))
			log.Debug("Health refresh completed", slog.Int("healthy", len(healthy)))
		}
	}
}
