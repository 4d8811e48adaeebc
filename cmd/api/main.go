package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"loadplan/internal/api"
	"loadplan/internal/config"
	"loadplan/internal/metrics"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}
	if cfg.Environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	metrics.RegisterDefault()

	srvDeps, err := api.NewServer(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot init server")
	}

	mux := http.NewServeMux()

	// Demand and reference data
	mux.HandleFunc("/v1/shipments", srvDeps.ShipmentsHandler)
	mux.HandleFunc("/v1/carriers", srvDeps.CarriersHandler)
	mux.HandleFunc("/v1/restrictions", srvDeps.RestrictionsHandler)
	mux.HandleFunc("/v1/distances", srvDeps.DistancesHandler)
	mux.HandleFunc("/v1/durations", srvDeps.DurationsHandler)
	mux.HandleFunc("/v1/imports/demand", srvDeps.DemandImportHandler)

	// Planning
	mux.HandleFunc("/v1/plans", srvDeps.PlansHandler)
	mux.HandleFunc("/v1/plans/", srvDeps.PlanByIDHandler) // includes /events/stream, /events/ws
	mux.HandleFunc("/v1/planner/config", srvDeps.PlannerConfigHandler)

	// Webhook subscriptions
	mux.HandleFunc("/v1/subscriptions", srvDeps.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", srvDeps.SubscriptionByIDHandler)

	// Health and metrics
	mux.HandleFunc("/healthz", srvDeps.HealthHandler)
	mux.HandleFunc("/readyz", srvDeps.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.HTTPServerAddress,
		Handler:           srvDeps.Middleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	worker := srvDeps.NewWebhookWorker()
	worker.Start()

	go func() {
		log.Info().Str("addr", cfg.HTTPServerAddress).Msg("API listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	close(worker.Stop)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
