package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"zerostress/internal/config"
	"zerostress/internal/handler"
	"zerostress/internal/infra"
	"zerostress/internal/router"
	"zerostress/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	var zs *infra.ZSClient
	if cfg.UsesRemote() {
		cb := infra.NewCircuitBreaker(infra.DefaultCBConfig())
		zs = infra.NewZSClient(cfg.RemoteAPIURL, time.Duration(cfg.RemoteAPITimeoutSeconds)*time.Second, cb)
		log.Info().Str("url", cfg.RemoteAPIURL).Msg("keys and payments served by the external API")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Worker handlers are wired here (composition root) so the pool has
	// access to the services and the mailer.
	dispatcher := worker.NewDispatcher(rdb)
	svcs := router.NewServices(cfg, db, rdb, zs, dispatcher)

	mailer := infra.NewMailer(cfg)
	workers := worker.StartWorkerPool(ctx, rdb, cfg.WorkerPoolSize, map[string]worker.JobHandler{
		worker.JobCierre: worker.NewCierreWorker(svcs.Cajas, mailer, cfg.CierreEmailTo, cfg.ReportStoragePath),
	})

	hub := handler.NewTableroHub()
	refresher := worker.TableroRefresherConfig{
		Llaves:    svcs.Llaves,
		Publisher: hub,
		Interval:  time.Duration(cfg.BoardRefreshSeconds) * time.Second,
	}
	if zs != nil {
		refresher.CB = zs.Breaker()
	}
	worker.StartTableroRefresher(ctx, refresher)

	r := router.New(cfg, db, rdb, zs, svcs, hub)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("Zero Stress backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}

	cancel()
	workers.Wait()
	log.Info().Msg("server exited")
}
