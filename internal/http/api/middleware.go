package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/schooltrack/schooltrack/internal/auth"
	"github.com/schooltrack/schooltrack/internal/config"
	"github.com/schooltrack/schooltrack/internal/security"
	log "github.com/sirupsen/logrus"
)

// Context keys set by AuthMiddleware for downstream handlers.
const (
	ContextUserID = "userID"
	ContextEmail  = "userEmail"
	ContextRole   = "userRole"
	ContextToken  = "authToken"
)

// AuthMiddleware validates bearer tokens, rejects revoked ones, and loads
// the token claims into the request context.
func AuthMiddleware(jwtCfg config.JWTConfig, blacklist auth.Blacklist) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "No token provided"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Empty token"})
			return
		}

		revoked, errRevoked := blacklist.IsRevoked(c.Request.Context(), token)
		if errRevoked != nil {
			// A store outage fails closed: a revoked token must never pass.
			log.WithError(errRevoked).Error("revocation check failed")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unable to verify token. Please try again."})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Token has been revoked. Please login again."})
			return
		}

		claims, errJWT := security.ParseSessionToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextRole, claims.Role)
		c.Set(ContextToken, token)
		c.Next()
	}
}

// RequireRoles allows only callers whose role is in the allow-list.
func RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextRole)
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "Forbidden: Insufficient permissions"})
	}
}
