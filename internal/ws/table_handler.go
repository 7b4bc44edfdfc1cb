package ws

import (
	"context"
	"errors"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/auth"
	"github.com/playmatatu/pooltable/internal/config"
	"github.com/playmatatu/pooltable/internal/room"
)

// touchEvery throttles idle-index writes per connection; pointer_move
// arrives at frame rate.
const touchEvery = 5 * time.Second

// HandleWebSocket upgrades /tables/:token/ws?pt=<seat token> and attaches
// the connection to the live room.
func HandleWebSocket(hub *Hub, manager *room.Manager, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tableToken := c.Param("token")
		seatToken := c.Query("pt")
		if tableToken == "" || seatToken == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "token and pt required"})
			return
		}

		granted, err := auth.ParseSeatToken(cfg.JWTSecret, seatToken)
		if err != nil || granted != tableToken {
			c.JSON(http.StatusForbidden, gin.H{"error": auth.ErrInvalidSeatToken.Error()})
			return
		}

		r, err := manager.Get(tableToken)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, room.ErrTableNotFound) {
				status = http.StatusNotFound
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade error: %v", err)
			return
		}

		client := &Client{
			hub:        hub,
			conn:       conn,
			id:         newClientID(),
			tableToken: tableToken,
			room:       r,
			send:       make(chan []byte, sendBuffer),
		}
		if !hub.join(client) {
			log.Printf("[WS] hub stopped, refusing client for table %s", tableToken)
			conn.Close()
			return
		}

		var mu sync.Mutex
		var lastTouch time.Time
		onActivity := func(token string) {
			mu.Lock()
			if time.Since(lastTouch) < touchEvery {
				mu.Unlock()
				return
			}
			lastTouch = time.Now()
			mu.Unlock()
			room.Touch(context.Background(), rdb, token)
		}

		go client.writePump()
		go client.readPump(onActivity)
	}
}
