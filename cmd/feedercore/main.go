// Feeder Core - Smart Pet Feeder Backend
//
// This is the main entry point for the Feeder Core application, the
// server side of the Feedwell connected pet feeder:
//   - Device connectivity over WebSocket channels with heartbeat
//     supervision
//   - Feeding schedules pushed to hardware and materialised into a
//     daily feeding diary
//   - Account management and telemetry relay for home automation
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	_ "github.com/feedwell/feeder-core/migrations"

	"github.com/feedwell/feeder-core/internal/api"
	"github.com/feedwell/feeder-core/internal/auth"
	"github.com/feedwell/feeder-core/internal/conn"
	"github.com/feedwell/feeder-core/internal/feeder"
	"github.com/feedwell/feeder-core/internal/infrastructure/config"
	"github.com/feedwell/feeder-core/internal/infrastructure/database"
	"github.com/feedwell/feeder-core/internal/infrastructure/influxdb"
	"github.com/feedwell/feeder-core/internal/infrastructure/logging"
	"github.com/feedwell/feeder-core/internal/infrastructure/mqtt"
	"github.com/feedwell/feeder-core/internal/record"
	"github.com/feedwell/feeder-core/internal/telemetry"
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
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Feeder Core",
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

	loc, err := cfg.Location()
	if err != nil {
		return fmt.Errorf("resolving site timezone: %w", err)
	}
	log.Info("reference timezone set", "timezone", cfg.Site.Timezone)

	// Open database
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

	// Optional telemetry backends
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
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT telemetry relay enabled",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT telemetry relay disabled")
	}

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
		log.Info("InfluxDB telemetry enabled",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB telemetry disabled")
	}

	publisher := telemetry.NewPublisher(mqttClient, influxClient)
	publisher.SetLogger(log)

	// Repositories
	userRepo := auth.NewUserRepository(db.DB)
	feederRepo := feeder.NewSQLiteRepository(db.DB)
	recordRepo := record.NewSQLiteRepository(db.DB, loc)

	// Connection tracking
	registry := conn.NewRegistry()
	registry.SetLogger(log)
	dispatcher := conn.NewDispatcher(registry)
	dispatcher.SetLogger(log)
	heartbeat := conn.NewHeartbeat(registry, cfg.HeartbeatInterval())
	heartbeat.SetLogger(log)

	// Record engine
	materializer := record.NewMaterializer(recordRepo, feederRepo, loc)
	materializer.SetLogger(log)
	materializer.SetCommandSender(dispatcher)
	materializer.SetMealTelemetry(publisher)

	// Tokens and feeder service
	tokens := auth.NewTokenService(
		cfg.Security.JWT.Secret,
		cfg.Security.JWT.AccessTokenTTL,
		cfg.Security.JWT.RefreshTokenTTL,
		cfg.Security.JWT.DeviceTokenTTL,
	)
	feederSvc := feeder.NewService(feederRepo, userRepo, materializer, tokens)
	feederSvc.SetLogger(log)
	feederSvc.SetTelemetry(publisher)

	// Schedule snapshot pushes on control channel registration
	registry.SetConfigProvider(feederSvc)

	// API server
	server, err := api.New(api.Deps{
		Config:     cfg.API,
		Channels:   cfg.Channels,
		Logger:     log,
		Registry:   registry,
		Dispatcher: dispatcher,
		Feeders:    feederSvc,
		Records:    materializer,
		Users:      userRepo,
		Tokens:     tokens,
		Version:    version,
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

	log.Info("initialisation complete")

	// Run background workers until the shutdown signal
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return heartbeat.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown signal received, cleaning up")
	log.Info("Feeder Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses FEEDERCORE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("FEEDERCORE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
