package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/facility-reservation/internal/config"
	"github.com/iliyamo/facility-reservation/internal/database"
	"github.com/iliyamo/facility-reservation/internal/engine"
	"github.com/iliyamo/facility-reservation/internal/handler"
	"github.com/iliyamo/facility-reservation/internal/queue"
	"github.com/iliyamo/facility-reservation/internal/repository"
	"github.com/iliyamo/facility-reservation/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema migration failed: %v", err)
	}
	cancel()

	store := repository.NewStore(db)
	eng := engine.New(store)
	accounts := repository.NewAccountRepo(db)

	// Redis is optional: without it the report cache and rate limiter
	// disable themselves and everything else works unchanged.
	rdb := config.NewRedisClient()

	h := router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, accounts),
		Reservation: handler.NewReservationHandler(cfg, eng),
		Report:      handler.NewReportHandler(cfg, eng),
		Account:     handler.NewAccountHandler(cfg, accounts),
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e, cfg, h, rdb)

	// Audit log consumer runs for the life of the process and
	// reconnects on broker failures.
	go func() {
		if err := queue.StartEventConsumer(); err != nil {
			log.Printf("event consumer stopped: %v", err)
		}
	}()

	log.Printf("facility %s listening on :%s (env=%s)", cfg.Facility, cfg.Port, cfg.Env)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
