package api

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/api/handlers"
	"github.com/playmatatu/pooltable/internal/config"
	"github.com/playmatatu/pooltable/internal/middleware"
	"github.com/playmatatu/pooltable/internal/room"
	"github.com/playmatatu/pooltable/internal/store"
	"github.com/playmatatu/pooltable/internal/ws"
)

// Deps bundles what the handlers need. DB and Redis may be nil.
type Deps struct {
	DB      *sqlx.DB
	Redis   *redis.Client
	Config  *config.Config
	Manager *room.Manager
	Store   *store.Store
	Hub     *ws.Hub
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	cfg := d.Config
	router.Use(middleware.CORSMiddleware(cfg))

	if cfg.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Header("Pragma", "no-cache")
			c.Header("Expires", "0")
			c.Next()
		})
		log.Println("[DEV MODE] no-cache headers enabled for all routes")
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.Manager, d.DB, d.Redis))

		tables := v1.Group("/tables")
		{
			tables.POST("", handlers.CreateTable(d.Manager, d.Redis, cfg))
			tables.GET("/:token", handlers.GetTable(d.Manager, d.Store))
			tables.GET("/:token/events", handlers.ListTableEvents(d.Store))
			tables.POST("/:token/reset", handlers.ResetTable(d.Manager, cfg))
			tables.GET("/:token/ws", middleware.WebSocketCORSCheck(cfg), handlers.HandleTableWebSocket(d.Hub, d.Manager, d.Redis, cfg))
		}

		admin := v1.Group("/admin", middleware.AdminOnly(cfg))
		{
			admin.GET("/tables", handlers.AdminListTables(d.Manager, d.Hub))
			admin.DELETE("/tables/:token", handlers.AdminCloseTable(d.Manager, d.Redis))
		}
	}
}
