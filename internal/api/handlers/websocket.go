package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/config"
	"github.com/playmatatu/pooltable/internal/room"
	"github.com/playmatatu/pooltable/internal/ws"
)

// HandleTableWebSocket handles real-time table communication
func HandleTableWebSocket(hub *ws.Hub, manager *room.Manager, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return ws.HandleWebSocket(hub, manager, rdb, cfg)
}
