// Tankwatch - Real-Time Tank Level Dashboard
//
// This is the main entry point for the tankwatch service. Tankwatch
// supervises a water tank over MQTT: it tracks the fill level, switches
// three heater power channels and a pump, and arbitrates control between
// a human operator and an external automation agent.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/openfluids/tankwatch/internal/api"
	"github.com/openfluids/tankwatch/internal/history"
	"github.com/openfluids/tankwatch/internal/infrastructure/config"
	"github.com/openfluids/tankwatch/internal/infrastructure/database"
	"github.com/openfluids/tankwatch/internal/infrastructure/influxdb"
	"github.com/openfluids/tankwatch/internal/infrastructure/logging"
	"github.com/openfluids/tankwatch/internal/infrastructure/mqtt"
	"github.com/openfluids/tankwatch/internal/session"
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
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting tankwatch",
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

	// Open database for the command log
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	commandLog := history.NewSQLiteRepository(db.DB)

	// The recorder writes command log entries from its own goroutine so the
	// session event path never waits on the disk. Closed after the session
	// (deferred later, so it runs earlier), which guarantees no entry is
	// enqueued after the flush.
	recorder := history.NewRecorder(commandLog, log)
	recorder.Start()
	defer recorder.Close()

	// Create the MQTT connection manager. Start() is asynchronous: the
	// service comes up immediately and the link connects in the background.
	mqttClient := mqtt.New(cfg.MQTT)
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT connected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	mqttClient.SetOnStateChange(func(state mqtt.ConnectionState) {
		log.Info("MQTT connection state changed", "state", state)
	})

	defer func() {
		log.Info("closing MQTT connection")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()

	// Create the control session over the connection manager. Subscriptions
	// registered here are issued once the link comes up and restored on
	// every reconnect.
	sess := session.New(mqttClient, byte(cfg.MQTT.QoS))
	sess.SetLogger(log)
	if err := sess.Start(); err != nil {
		return fmt.Errorf("starting control session: %w", err)
	}
	defer sess.Close()
	log.Info("control session started")

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

	// Create the API server
	apiServer, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log,
		Session: sess,
		History: commandLog,
		Version: version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Fan session state transitions out to WebSocket clients, the command
	// log, and telemetry. The callback runs on the mutating goroutine, so
	// every branch hands off without blocking: the hub drops slow clients,
	// the recorder buffers, and InfluxDB writes are batched.
	sess.SetOnEvent(func(evt session.Event) {
		apiServer.BroadcastEvent(evt)
		recordEvent(recorder, evt)
		writeTelemetry(influxClient, evt)
	})

	// Bring up the broker link after the session is subscribed so the
	// connect-time subscription replay covers every tank topic.
	if err := mqttClient.Start(); err != nil {
		return fmt.Errorf("starting MQTT connection: %w", err)
	}
	log.Info("MQTT connecting",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Start the API server
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Verify local infrastructure. The MQTT link is excluded: it connects
	// asynchronously and the service is designed to run while it is down.
	if err := healthCheck(ctx, db, apiServer, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. Session, then MQTT
	// 4. Command log recorder (flushes buffered entries)
	// 5. Database

	log.Info("tankwatch stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses TANKWATCH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("TANKWATCH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// recordEvent enqueues channel and mode transitions for the command log.
// Level readings are high-frequency telemetry and go to InfluxDB instead.
func recordEvent(recorder *history.Recorder, evt session.Event) {
	switch evt.Kind {
	case session.EventChannel:
		value := "off"
		if evt.On {
			value = "on"
		}
		recorder.Enqueue(&history.Entry{
			Kind:    history.KindChannel,
			Channel: string(evt.Channel),
			Value:   value,
			Source:  string(evt.Source),
		})
	case session.EventMode:
		recorder.Enqueue(&history.Entry{
			Kind:   history.KindMode,
			Value:  string(evt.Mode),
			Source: string(evt.Source),
		})
	}
}

// writeTelemetry forwards a state transition to InfluxDB. Writes are
// batched and non-blocking; a nil client means telemetry is disabled.
func writeTelemetry(client *influxdb.Client, evt session.Event) {
	if client == nil {
		return
	}

	switch evt.Kind {
	case session.EventLevel:
		client.WriteTankLevel(evt.Level, string(evt.Source))
	case session.EventChannel:
		client.WriteChannelState(string(evt.Channel), evt.On, string(evt.Source))
	case session.EventMode:
		client.WriteMode(string(evt.Mode), string(evt.Source))
	}
}

// healthCheck verifies local infrastructure is healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - apiServer: API server to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, apiServer *api.Server, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if err := apiServer.HealthCheck(ctx); err != nil {
		return fmt.Errorf("api: %w", err)
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
