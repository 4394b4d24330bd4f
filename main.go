package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"traffic-director/internal/auth"
	"traffic-director/internal/circuitbreaker"
	"traffic-director/internal/common/logging"
	"traffic-director/internal/config"
	"traffic-director/internal/handlers"
	"traffic-director/internal/middleware"
	"traffic-director/internal/routing"
	"traffic-director/internal/server"
	"traffic-director/internal/snapshot"
	"traffic-director/internal/telemetry"
)

func main() {
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := logging.NewZapLogger(logging.LogConfig{
		Level: logging.ParseLevel(cfg.LogLevel),
		Name:  "traffic-director",
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)

	// Load the initial snapshot; refusing to start without one beats
	// serving no-route for everything.
	store := snapshot.NewStore(logger)
	if err := store.Reload(cfg.RulesFile); err != nil {
		log.Fatalf("Failed to load routing rules from %s: %v", cfg.RulesFile, err)
	}

	seed, ok := cfg.Seed()
	if !ok {
		seed = time.Now().UnixNano()
	}
	engine := routing.NewEngine(routing.NewLockedSource(seed), logger)
	breakers := circuitbreaker.NewManager(logger)

	policyClient := telemetry.Client(telemetry.NopClient{})
	if cfg.TelemetryAddress != "" {
		policyClient, err = telemetry.Dial(cfg.TelemetryAddress, logger)
		if err != nil {
			log.Fatalf("Failed to connect policy backend at %s: %v", cfg.TelemetryAddress, err)
		}
	}
	defer policyClient.Close()

	h := handlers.New(store, engine, breakers, policyClient, cfg, logger)
	adminAuth := auth.New(cfg.AdminJWTSecret)

	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/decide", h.HandleDecide).Methods("POST")
	api.HandleFunc("/snapshot", h.GetSnapshot).Methods("GET")
	api.Handle("/snapshot/reload", adminAuth.RequireAuth(http.HandlerFunc(h.ReloadSnapshot))).Methods("POST")
	api.HandleFunc("/stats", h.GetStats).Methods("GET")
	api.HandleFunc("/breakers", h.GetBreakers).Methods("GET")
	api.HandleFunc("/breakers/cluster", h.GetClusterBreaker).Methods("GET")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")

	srv := server.New(router, cfg.Port)
	logger.Info("admin API starting", logging.Field{Key: "port", Value: cfg.Port})
	if err := srv.Start(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}

	// SIGHUP reloads the rules file; a rejected snapshot keeps the
	// previous one active.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := store.Reload(cfg.RulesFile); err != nil {
				logger.Error("reload on SIGHUP rejected", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
}
