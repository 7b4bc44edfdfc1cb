package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/room"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports uptime, live tables and backend reachability.
// Missing backends are reported, not treated as failures.
func HealthCheck(manager *room.Manager, db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		c.JSON(http.StatusOK, gin.H{
			"status":   "ok",
			"service":  "pooltable",
			"version":  version,
			"uptime":   time.Since(startTime).String(),
			"tables":   len(manager.List()),
			"postgres": backendStatus(db != nil, func() error { return db.PingContext(ctx) }),
			"redis":    backendStatus(rdb != nil, func() error { return rdb.Ping(ctx).Err() }),
		})
	}
}

func backendStatus(configured bool, ping func() error) string {
	if !configured {
		return "disabled"
	}
	if err := ping(); err != nil {
		return "down"
	}
	return "up"
}
