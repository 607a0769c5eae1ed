// owsync - 1-Wire attribute synchronization daemon
//
// owsync bridges a hierarchical versioned store with 1-Wire device
// attributes: store entries configure which attribute values are written to
// devices and which device readings are polled back into the store. Every
// sync path's working/error state is persisted under an errors prefix and,
// optionally, mirrored over MQTT.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/onewire-sync/internal/api"
	"github.com/nerrad567/onewire-sync/internal/health"
	"github.com/nerrad567/onewire-sync/internal/infrastructure/config"
	"github.com/nerrad567/onewire-sync/internal/infrastructure/influxdb"
	"github.com/nerrad567/onewire-sync/internal/infrastructure/logging"
	"github.com/nerrad567/onewire-sync/internal/infrastructure/mqtt"
	"github.com/nerrad567/onewire-sync/internal/onewire"
	"github.com/nerrad567/onewire-sync/internal/store"
	"github.com/nerrad567/onewire-sync/internal/store/sqlitestore"
	"github.com/nerrad567/onewire-sync/internal/tree"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting owsync",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the embedded store
	client, err := sqlitestore.Open(ctx, sqlitestore.Config{
		Path:        cfg.Store.Path,
		WALMode:     cfg.Store.WALMode,
		BusyTimeout: cfg.Store.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer func() {
		log.Info("closing store")
		if closeErr := client.Close(); closeErr != nil {
			log.Error("error closing store", "error", closeErr)
		}
	}()
	log.Info("store opened", "path", cfg.Store.Path)

	prefix := store.ParsePath(cfg.Store.Prefix)
	errorPrefix := store.ParsePath(cfg.Store.ErrorPrefix)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	// Build the sink chain: per-path state always lands in the store;
	// with MQTT it is also mirrored to retained state topics.
	storeSink := health.NewStoreSink(client, errorPrefix)
	storeSink.SetLogger(log)

	var sink health.Sink = storeSink
	var reporter *health.Reporter
	if mqttClient != nil {
		reporter = health.NewReporter(health.ReporterConfig{
			ServiceID: cfg.Service.ID,
			Version:   version,
			Interval:  cfg.GetHealthInterval(),
			QoS:       byte(cfg.MQTT.QoS),
			Publisher: mqttClient,
		})
		reporter.SetLogger(log)
		sink = health.MultiSink{storeSink, reporter}
	}

	// Build the entity tree
	root := tree.NewRoot(client, sink, prefix)
	root.SetLogger(log)
	if reporter != nil {
		reporter.SetDeviceCounter(root)
		if err := reporter.PublishStarting(); err != nil {
			log.Warn("failed to publish starting status", "error", err)
		}
		reporter.Start(ctx)
		defer reporter.Stop()
	}

	// Create the bus backend
	backend, err := newBackend(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info("closing bus backend")
		if closeErr := backend.Close(); closeErr != nil {
			log.Error("error closing backend", "error", closeErr)
		}
	}()

	// Seed config-file gateways into the store so the tree registers them
	// alongside store-configured ones.
	if err := seedGateways(ctx, client, prefix, cfg.OWFS.Servers); err != nil {
		return fmt.Errorf("seeding gateways: %w", err)
	}

	// Bus monitor: routes backend events into the tree
	var telemetry tree.TelemetryRecorder
	if influxClient != nil {
		telemetry = influxClient
	}
	monitor := tree.NewMonitor(root, backend, telemetry)
	monitor.SetLogger(log)

	// Status API (optional)
	if cfg.API.Enabled {
		deps := api.Deps{
			Config:  cfg.API,
			Logger:  log,
			Tree:    root,
			Store:   client,
			Version: version,
		}
		if mqttClient != nil {
			deps.MQTT = mqttClient
		}
		if influxClient != nil {
			deps.Influx = influxClient
		}
		apiServer, newErr := api.New(deps)
		if newErr != nil {
			return fmt.Errorf("creating API server: %w", newErr)
		}
		if startErr := apiServer.Start(ctx); startErr != nil {
			return fmt.Errorf("starting API server: %w", startErr)
		}
		defer func() {
			if closeErr := apiServer.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
		log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))
	} else {
		log.Info("API server disabled")
	}

	// Verify infrastructure connections before entering the run loop
	if err := healthCheck(ctx, client, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	// Run the tree watcher and the bus monitor until shutdown
	errCh := make(chan error, 2)
	go func() {
		errCh <- root.Run(ctx)
	}()
	go func() {
		errCh <- monitor.Run(ctx)
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sync engine failed: %w", err)
		}
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("owsync stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses OWSYNC_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OWSYNC_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// newBackend creates the bus backend selected by config. Only the simulated
// backend ships with the daemon; owserver connectivity plugs in behind the
// same Backend contract.
func newBackend(cfg *config.Config, log *logging.Logger) (onewire.Backend, error) {
	if cfg.OWFS.Simulate {
		log.Info("using simulated bus backend")
		return onewire.NewSimulator(), nil
	}
	return nil, fmt.Errorf("no owserver backend in this build, set owfs.simulate: true")
}

// seedGateways writes config-file gateway records under <prefix>/server so
// they flow through the same store path as operator-configured ones. Set is
// idempotent, so unchanged records produce no events.
func seedGateways(ctx context.Context, client store.Client, prefix store.Path, servers []config.OWFSServerConfig) error {
	for _, srv := range servers {
		if srv.Name == "" || srv.Host == "" {
			continue
		}
		port := srv.Port
		if port == 0 {
			port = onewire.DefaultPort
		}
		path := prefix.Child("server", srv.Name)
		value := map[string]any{
			"server": map[string]any{
				"host": srv.Host,
				"port": port,
			},
		}
		if _, err := client.Set(ctx, path, value); err != nil {
			return fmt.Errorf("gateway %s: %w", srv.Name, err)
		}
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
func healthCheck(ctx context.Context, client *sqlitestore.Store, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("store: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
