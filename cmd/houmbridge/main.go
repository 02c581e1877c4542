// Houm Bridge - Houm.io light synchronisation daemon
//
// This is the main entry point for the Houm bridge. The bridge keeps a
// local registry of the remote-controlled lights on one Houm site in
// sync with the Houm cloud service, over two channels at once:
//   - periodic HTTP snapshot polling for discovery and reconciliation
//   - a persistent bidirectional event stream for push updates and
//     outbound commands
//
// Local consumers reach the registry through MQTT (retained state and
// command topics), InfluxDB telemetry, and a read-only HTTP status API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/houm-bridge/internal/api"
	"github.com/nerrad567/houm-bridge/internal/fanout"
	"github.com/nerrad567/houm-bridge/internal/houm"
	"github.com/nerrad567/houm-bridge/internal/infrastructure/config"
	"github.com/nerrad567/houm-bridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/houm-bridge/internal/infrastructure/logging"
	"github.com/nerrad567/houm-bridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/houm-bridge/internal/light"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
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
	log.Info("starting Houm bridge",
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
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
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
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Assemble the notification fan-out: logging always, MQTT and
	// InfluxDB when configured.
	var mqttNotifier *fanout.MQTT
	if mqttClient != nil {
		mqttNotifier = fanout.NewMQTT(mqttClient, cfg.Site.Key, log)
	}
	sinks := []light.Notifier{fanout.NewLog(log)}
	if mqttNotifier != nil {
		sinks = append(sinks, mqttNotifier)
	}
	if influxClient != nil {
		sinks = append(sinks, fanout.NewInflux(influxClient))
	}
	notifier := fanout.NewMulti(sinks...)

	// Create the bridge controller. A missing site key leaves it inert
	// rather than failing startup.
	controller, err := houm.NewController(houm.ControllerOptions{
		SiteKey:          cfg.Site.Key,
		ServiceURL:       cfg.Houm.URL,
		Devices:          cfg.Devices,
		KindFilter:       cfg.Filters.Kinds,
		ProtocolFilter:   cfg.Filters.Protocols,
		PollInterval:     cfg.GetPollInterval(),
		RefreshRateLimit: cfg.GetRefreshRateLimit(),
		Notifier:         notifier,
		Logger:           log.With("component", "houm"),
		ReconnectPolicy:  houm.PolicyFromConfig(cfg.Houm.Reconnect),
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}

	if err := controller.Start(ctx); err != nil {
		return fmt.Errorf("starting controller: %w", err)
	}
	defer func() {
		log.Info("stopping controller")
		controller.Close()
	}()

	// Accept light commands over MQTT once the registry exists.
	if mqttNotifier != nil && !controller.Inert() {
		if err := mqttNotifier.SubscribeCommands(controller.Registry()); err != nil {
			log.Warn("MQTT command subscription failed", "error", err)
		}
	}

	// Start the read-only status API (optional)
	if cfg.API.Enabled {
		server, err := api.New(api.Deps{
			Config:   cfg.API,
			Logger:   log.With("component", "api"),
			Registry: controller.Registry(),
			Stream:   controller,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := server.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := server.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	} else {
		log.Info("status API disabled")
	}

	// Verify infrastructure connections are healthy
	if err := healthCheck(ctx, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Controller (poller stopped, stream disconnected)
	// 3. InfluxDB (if enabled)
	// 4. MQTT (if enabled)

	log.Info("Houm bridge stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HOUMBRIDGE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HOUMBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the optional infrastructure connections.
func healthCheck(ctx context.Context, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
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
