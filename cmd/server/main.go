package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	goredis "github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/api"
	"github.com/playmatatu/pooltable/internal/config"
	"github.com/playmatatu/pooltable/internal/database"
	"github.com/playmatatu/pooltable/internal/migrations"
	"github.com/playmatatu/pooltable/internal/redis"
	"github.com/playmatatu/pooltable/internal/room"
	"github.com/playmatatu/pooltable/internal/store"
	"github.com/playmatatu/pooltable/internal/ws"
)

func main() {
	// Initialize configuration (loads .env when present)
	cfg := config.Load()
	dev := cfg.Environment == "development"

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Postgres and Redis are optional in development: tables still run,
	// only history and cross-instance features are lost.
	var db *sqlx.DB
	if conn, err := database.Connect(cfg.DatabaseURL); err != nil {
		if !dev {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		log.Printf("[DB] database unavailable, running without table history: %v", err)
	} else {
		db = conn
		defer db.Close()

		if cfg.MigrateOnStart {
			log.Println("↗ Running DB migrations on startup...")
			if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatalf("Failed to run migrations: %v", err)
			}
		}
	}

	var rdb *goredis.Client
	if client, err := redis.Connect(cfg.RedisURL); err != nil {
		if !dev {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		log.Printf("[REDIS] redis unavailable, running single-instance: %v", err)
	} else {
		rdb = client
		defer rdb.Close()
	}

	// The store outlives the rooms so their close events are still written.
	storeCtx, stopStore := context.WithCancel(context.Background())
	st := store.New(db, rdb)
	st.Start(storeCtx)

	hub := ws.NewHub()
	go hub.Run(ctx.Done())
	hub.StartEventRelay(ctx, rdb)

	manager := room.NewManager(ctx, cfg, st, hub)
	room.StartReaper(ctx, manager, rdb)
	room.StartCommandSubscriber(ctx, manager, rdb)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	api.SetupRoutes(router, api.Deps{
		DB:      db,
		Redis:   rdb,
		Config:  cfg,
		Manager: manager,
		Store:   st,
		Hub:     hub,
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{Addr: ":" + port, Handler: router}

	go func() {
		log.Printf("Starting pool table server on port %s", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	manager.Shutdown()
	stopStore()
	st.Wait()
	log.Println("Server stopped")
}
