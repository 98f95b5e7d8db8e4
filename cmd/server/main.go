package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/smart-canteen/api/internal/cache"
	"github.com/smart-canteen/api/internal/config"
	"github.com/smart-canteen/api/internal/database"
	"github.com/smart-canteen/api/internal/events"
	"github.com/smart-canteen/api/internal/logging"
	"github.com/smart-canteen/api/internal/metrics"
	"github.com/smart-canteen/api/internal/router"
	"github.com/smart-canteen/api/internal/service"
	"github.com/smart-canteen/api/internal/ws"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "err", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(dctx)
	}()
	if err := database.EnsureIndexes(ctx, db); err != nil {
		return err
	}
	slog.Info("connected to MongoDB", "db", cfg.MongoDB)

	queries := database.New(db)

	var canteens *service.ActiveCanteen
	if cfg.RedisAddr != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.RedisAddr, "canteen-api")
		if err != nil {
			return err
		}
		defer rc.Close()
		canteens = service.NewActiveCanteen(queries, rc, cfg.CanteenCacheTTL)
		slog.Info("active canteen cache enabled", "addr", cfg.RedisAddr)
	} else {
		canteens = service.NewActiveCanteen(queries, nil, 0)
	}

	// Stopped only after srv.Shutdown has drained in-flight requests.
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := ws.NewHub()
	go hub.Run(hubCtx)

	publishers := service.FanOut{ws.NewOrderFeed(hub)}
	if cfg.NATSURL != "" {
		nc, err := events.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			return err
		}
		defer nc.Close()
		publishers = append(publishers, nc)
		slog.Info("publishing order events to NATS", "url", cfg.NATSURL)
	}

	m := metrics.New()
	orders := service.NewOrderService(queries, canteens, publishers, m)

	r := router.New(cfg, router.Deps{
		Queries:  queries,
		Orders:   orders,
		Canteens: canteens,
		Hub:      hub,
		Metrics:  m,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", cfg.Port)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = srv.Shutdown(sctx)
	stopHub()
	return err
}
