package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/pooltable/internal/auth"
	"github.com/playmatatu/pooltable/internal/config"
)

// AdminOnly requires an X-Admin-Token header matching ADMIN_TOKEN_HASH.
// With no hash configured the admin routes are closed.
func AdminOnly(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminTokenHash == "" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access disabled"})
			return
		}
		token := c.GetHeader("X-Admin-Token")
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing admin token"})
			return
		}
		if !auth.VerifyAdminToken(cfg.AdminTokenHash, token) {
			log.Printf("[ADMIN] Token verification failed from %s", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid admin token"})
			return
		}
		c.Next()
	}
}
