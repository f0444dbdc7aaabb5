package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"wagerbook/api"
	"wagerbook/config"
	"wagerbook/database"
	"wagerbook/events"
	"wagerbook/infrastructure"
	"wagerbook/metrics"
	"wagerbook/repository"
	"wagerbook/service"

	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	configureLogging(cfg)

	return run(ctx, cfg, service.DefaultPolicyTable())
}

// startupSettings are the values checked before any connection is opened
type startupSettings struct {
	policy        service.PolicyTable
	handlePattern *regexp.Regexp
	txOptions     pgx.TxOptions
}

// startupChecks validates the policy table and the config values the services depend on
func startupChecks(cfg *config.Config, policy service.PolicyTable) (*startupSettings, error) {
	if err := service.CheckPolicyTable(policy); err != nil {
		return nil, fmt.Errorf("invalid parameter policy table: %w", err)
	}

	handlePattern, err := cfg.HandlePattern()
	if err != nil {
		return nil, err
	}

	txOptions, err := database.TxOptions(cfg.TxIsolation)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction isolation: %w", err)
	}

	return &startupSettings{
		policy:        policy,
		handlePattern: handlePattern,
		txOptions:     txOptions,
	}, nil
}

func run(ctx context.Context, cfg *config.Config, policy service.PolicyTable) error {
	log.WithField("environment", cfg.Environment).Info("Starting wagerbook...")

	settings, err := startupChecks(cfg, policy)
	if err != nil {
		return err
	}

	// Initialize database connection
	log.Info("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.GetDatabaseURL())
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()
	log.Info("Database connection established successfully")

	eventBus := events.NewBus()
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus, settings.txOptions)

	recorder := metrics.NewRecorder(prometheus.DefaultRegisterer)
	recorder.Subscribe(eventBus)

	// Event forwarding is optional
	var natsClient *infrastructure.NATSClient
	if servers := cfg.NATSServerList(); len(servers) > 0 {
		natsClient = infrastructure.NewNATSClient(servers)
		if err := natsClient.Connect(ctx); err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		infrastructure.NewEventForwarder(natsClient, cfg.NATSSubjectPrefix).Subscribe(eventBus)
		log.WithField("servers", strings.Join(servers, ",")).Info("Forwarding events to NATS")
	}

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = metrics.StartServer(cfg.MetricsAddr, prometheus.DefaultGatherer, db.Ping)
		log.WithField("addr", cfg.MetricsAddr).Info("Metrics server listening")
	}

	// Initialize services
	operationService := service.NewOperationService(uowFactory, settings.policy, settings.handlePattern, recorder)
	wagerService := service.NewWagerService(uowFactory)

	handler := api.NewHandler(operationService, wagerService, db.Ping)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(handler, cfg.AllowedOrigins()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serverErr:
		if err != nil {
			log.WithError(err).Error("HTTP server stopped")
		}
	}

	log.Info("Shutting down wagerbook...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("Error shutting down HTTP server")
	}
	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("Error shutting down metrics server")
		}
	}

	// Let in-flight event handlers finish before closing their sinks
	eventBus.Close()

	if natsClient != nil {
		if err := natsClient.Close(); err != nil {
			log.WithError(err).Error("Error closing NATS connection")
		}
	}

	log.Info("Shutdown completed")
	return nil
}

func configureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
