package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"mercator-hq/ganymede/pkg/cli"
	"mercator-hq/ganymede/pkg/config"
	"mercator-hq/ganymede/pkg/migration"
	"mercator-hq/ganymede/pkg/providerfactory"
	"mercator-hq/ganymede/pkg/providers"
	"mercator-hq/ganymede/pkg/resilience"
	"mercator-hq/ganymede/pkg/resilience/breaker"
	"mercator-hq/ganymede/pkg/resources"
	"mercator-hq/ganymede/pkg/streaming/session"
	"mercator-hq/ganymede/pkg/telemetry/health"
	"mercator-hq/ganymede/pkg/telemetry/logging"
	"mercator-hq/ganymede/pkg/telemetry/metrics"
	"mercator-hq/ganymede/pkg/telemetry/tracing"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
	smoke         bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the Ganymede service",
	Long: `Start the Ganymede service with the specified configuration.

This builds the provider adapters, circuit breakers, feature flag
store, and session coordinator, starts the resource and health
monitors, and serves the metrics endpoint until interrupted.

Examples:
  # Start with default config
  ganymede run

  # Start with custom config
  ganymede run --config /etc/ganymede/config.yaml

  # Override the metrics listen address
  ganymede run --listen 0.0.0.0:9090

  # Validate config and wiring without staying up
  ganymede run --dry-run

  # Run one simulated end-to-end session at startup
  ganymede run --smoke`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override metrics listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting the service")
	runCmd.Flags().BoolVar(&runFlags.smoke, "smoke", false, "run one simulated session after startup")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.listenAddress != "" {
		cfg.Telemetry.Metrics.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose && cfg.Telemetry.Logging.Level != "debug" {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.New(cfg.Telemetry.Logging)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}
	defer logger.Shutdown()
	base := logger.Slog()
	slog.SetDefault(base)

	if runFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	tracer, err := tracing.New(cfg.Telemetry.Tracing)
	if err != nil {
		return cli.NewConfigError("telemetry.tracing", err.Error())
	}
	defer tracer.Shutdown(context.Background())
	if tracer.Enabled() {
		fmt.Printf("✓ Tracing enabled (exporting to %s)\n", cfg.Telemetry.Tracing.Endpoint)
	}

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)

	registry, err := providerfactory.BuildRegistry(ctx, cfg.Providers)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("building providers: %w", err))
	}
	defer registry.Close()
	fmt.Printf("✓ Providers initialized (%d)\n", len(registry.Names()))

	breakers := breaker.NewRegistry(cfg.Resilience.Breaker)
	resolver := resilience.NewManager(cfg.Resilience, breakers, nil, base)

	store, err := migration.NewStore(cfg.Migration, base)
	if err != nil {
		return cli.NewCommandError("run", fmt.Errorf("opening flag store: %w", err))
	}
	defer store.Close()
	fmt.Printf("✓ Feature flags loaded (phase %s, rollout %d%%)\n",
		store.Flags().MigrationPhase, store.Flags().RolloutPercentage)

	if cfg.Migration.WatchSnapshot && cfg.Migration.SnapshotPath != "" {
		watcher, err := migration.NewSnapshotWatcher(store, base)
		if err != nil {
			base.Warn("flag snapshot watcher unavailable", "error", err)
		} else {
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					base.Warn("flag snapshot watcher stopped", "error", err)
				}
			}()
		}
	}

	stats := health.NewStats()
	router := migration.NewRouter(store, fanoutRecorder{stats, collector}, base)

	resourceMonitor := resources.NewMonitor(cfg.Resources, base)
	go resourceMonitor.Run(ctx)

	healthMonitor := health.NewMonitor(cfg.Health, stats, store, collector, base)
	if err := healthMonitor.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	defer healthMonitor.Stop()

	coordinator := session.NewCoordinator(cfg.Streaming, resolver, base)
	defer coordinator.CancelAll()

	srv := startMetricsServer(cfg.Telemetry.Metrics, collector, registry, healthMonitor, coordinator)
	defer shutdownServer(srv)

	fmt.Printf("✓ Metrics endpoint: http://%s%s\n",
		cfg.Telemetry.Metrics.ListenAddress, cfg.Telemetry.Metrics.Path)
	fmt.Println("\nPress Ctrl+C to stop")

	if runFlags.smoke {
		if err := runSmoke(ctx, coordinator, router, registry, resourceMonitor, collector, tracer); err != nil {
			base.Error("smoke session failed", "error", err)
		}
	}

	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")
	return nil
}

// fanoutRecorder delivers each routing outcome to every recorder.
type fanoutRecorder []migration.Recorder

func (f fanoutRecorder) RecordRoute(o migration.Outcome) {
	for _, r := range f {
		r.RecordRoute(o)
	}
}

func startMetricsServer(cfg config.MetricsConfig, collector *metrics.Collector, registry *providers.Registry, monitor *health.Monitor, coordinator *session.Coordinator) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, collector.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":          monitor.Status().String(),
			"active_sessions": coordinator.Active(),
			"providers":       registry.HealthSnapshot(),
			"timestamp":       time.Now().UTC(),
		})
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

func shutdownServer(srv *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
}

// runSmoke streams one scenario through the full pipeline using the
// first simulated adapter, verifying coordinator, resolver, router,
// and admission wiring end to end.
func runSmoke(ctx context.Context, coordinator *session.Coordinator, router *migration.Router, registry *providers.Registry, monitor *resources.Monitor, collector *metrics.Collector, tracer *tracing.Tracer) error {
	var adapter providers.Adapter
	for _, a := range registry.All() {
		if a.Type() == providers.TypeSimulated {
			adapter = a
			break
		}
	}
	if adapter == nil {
		return fmt.Errorf("no simulated provider configured")
	}

	provider := adapter.Name()
	if err := monitor.CheckAvailability(provider, resources.PriorityNormal); err != nil {
		return fmt.Errorf("admission rejected: %w", err)
	}
	monitor.RegisterStart(provider)

	const scenario = "A cargo ship loses power in a shipping lane."
	streamOnce := func(ctx context.Context) error {
		ctx, span := tracer.Start(ctx, "session.stream")
		defer span.End()

		s := coordinator.Start(ctx, session.Options{
			Provider: provider,
			Scenario: scenario,
			Source: func(ctx context.Context) (<-chan *providers.StreamChunk, error) {
				return adapter.StreamScenario(ctx, &providers.ScenarioRequest{Scenario: scenario})
			},
		})
		span.SetAttributes(tracing.SessionAttributes(s.ID(), provider, scenario)...)
		collector.SessionStarted(provider)

		start := time.Now()
		var failure error
		for ev := range s.Events() {
			switch ev.Type {
			case session.EventError, session.EventStreamTimeout:
				failure = ev.Err
			}
		}
		m := s.Metrics()
		outcome := "completed"
		if failure != nil {
			outcome = "error"
		}
		collector.SessionFinished(provider, outcome, time.Since(start))
		monitor.RegisterCompletion(provider, failure != nil)
		tracing.SetStreamTotals(span, m.ChunkCount, m.ByteCount)
		tracing.SetStatus(span, failure)

		if failure != nil {
			return failure
		}
		slog.Info("smoke session completed",
			"provider", provider,
			"chunks", m.ChunkCount,
			"bytes", m.ByteCount,
		)
		return nil
	}

	_, err := router.Do(ctx, "smoke", provider, migration.OpStreaming, streamOnce, streamOnce)
	return err
}
