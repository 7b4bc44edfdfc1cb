package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/playmatatu/pooltable/internal/auth"
	"github.com/playmatatu/pooltable/internal/config"
	"github.com/playmatatu/pooltable/internal/game"
	"github.com/playmatatu/pooltable/internal/room"
	"github.com/playmatatu/pooltable/internal/store"
)

// CreateTableRequest is the body of POST /tables. Every field is optional.
type CreateTableRequest struct {
	Kind   string  `json:"kind" binding:"omitempty,oneof=pool cannon"`
	Width  float64 `json:"width" binding:"omitempty,gte=200,lte=4000"`
	Height float64 `json:"height" binding:"omitempty,gte=200,lte=4000"`
}

// CreateTableResponse carries the seat token needed to drive the table.
type CreateTableResponse struct {
	Token         string    `json:"token"`
	Kind          string    `json:"kind"`
	Width         float64   `json:"width"`
	Height        float64   `json:"height"`
	SeatToken     string    `json:"seat_token"`
	SeatExpiresAt time.Time `json:"seat_expires_at"`
	WebSocketURL  string    `json:"ws_url"`
}

// CreateTable starts a new table room.
func CreateTable(manager *room.Manager, rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateTableRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if req.Kind == "" {
			req.Kind = game.KindPool
		}

		r, err := manager.Create(req.Kind, req.Width, req.Height)
		if err != nil {
			respondError(c, err)
			return
		}
		info := r.Info()

		seat, exp, err := auth.IssueSeatToken(cfg.JWTSecret, info.Token, time.Duration(cfg.SeatTokenHours)*time.Hour)
		if err != nil {
			manager.Close(info.Token)
			respondError(c, err)
			return
		}
		room.Touch(c.Request.Context(), rdb, info.Token)

		c.Header("X-Table-Token", info.Token)
		c.JSON(http.StatusCreated, CreateTableResponse{
			Token:         info.Token,
			Kind:          info.Kind,
			Width:         info.Width,
			Height:        info.Height,
			SeatToken:     seat,
			SeatExpiresAt: exp,
			WebSocketURL:  fmt.Sprintf("/api/v1/tables/%s/ws?pt=%s", info.Token, seat),
		})
	}
}

// GetTable returns the live snapshot. Once the table has closed it returns
// whatever is left: the session row and the last snapshot mirrored to Redis.
func GetTable(manager *room.Manager, st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")

		if r, err := manager.Get(token); err == nil {
			c.JSON(http.StatusOK, gin.H{
				"table":    r.Info(),
				"live":     true,
				"snapshot": r.Snapshot(),
			})
			return
		}

		ctx := c.Request.Context()
		snap, snapErr := st.LoadSnapshot(ctx, token)
		session, sessErr := st.Session(ctx, token)
		if snapErr != nil && sessErr != nil {
			respondError(c, snapErr)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"table":    gin.H{"token": token, "status": room.StatusClosed},
			"live":     false,
			"session":  session,
			"snapshot": snap,
		})
	}
}

// ListTableEvents returns persisted history, newest first.
func ListTableEvents(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
		events, err := st.ListEvents(c.Request.Context(), c.Param("token"), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
	}
}

// ResetTable re-racks a pool table or returns the cannon projectile. The
// caller must hold the table's seat token as a bearer token.
func ResetTable(manager *room.Manager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Param("token")
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing seat token"})
			return
		}
		granted, err := auth.ParseSeatToken(cfg.JWTSecret, strings.TrimPrefix(header, "Bearer "))
		if err == nil && granted != token {
			err = auth.ErrInvalidSeatToken
		}
		if err != nil {
			respondError(c, err)
			return
		}

		r, err := manager.Get(token)
		if err != nil {
			respondError(c, err)
			return
		}
		// Both scenes name their reset command "reset".
		if err := r.Enqueue(game.Command{Type: game.CmdReset}); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "reset queued"})
	}
}
