package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/room"
	"github.com/playmatatu/pooltable/internal/ws"
)

type adminTable struct {
	room.Info
	Clients int `json:"clients"`
}

// AdminListTables lists this instance's live tables.
func AdminListTables(manager *room.Manager, hub *ws.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		infos := manager.List()
		tables := make([]adminTable, 0, len(infos))
		for _, info := range infos {
			tables = append(tables, adminTable{Info: info, Clients: hub.ClientCount(info.Token)})
		}
		c.JSON(http.StatusOK, gin.H{"tables": tables, "count": len(tables)})
	}
}

// AdminCloseTable closes a table here, or asks the other instances to.
func AdminCloseTable(manager *room.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		err := manager.Close(token)
		if err == nil {
			log.Printf("[ADMIN] closed table %s", token)
			c.JSON(http.StatusOK, gin.H{"status": "closed"})
			return
		}
		if !errors.Is(err, room.ErrTableNotFound) || rdb == nil {
			respondError(c, err)
			return
		}
		if err := room.PublishClose(c.Request.Context(), rdb, token); err != nil {
			respondError(c, err)
			return
		}
		log.Printf("[ADMIN] close request for table %s published", token)
		c.JSON(http.StatusAccepted, gin.H{"status": "close requested"})
	}
}
