package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ahmedelhadi17776/worklog/internal/domain/authz"
	"github.com/ahmedelhadi17776/worklog/pkg/logger"
	"github.com/ahmedelhadi17776/worklog/pkg/security/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.NewLogger()

const (
	bearerSchema = "Bearer "
	apiKeyHeader = "apikey"

	callerKey = "caller"
	userIDKey = "user_id"
	tokenKey  = "token"
)

// CallerResolver loads the current role and status of an authenticated user
type CallerResolver interface {
	ResolveCaller(ctx context.Context, id uuid.UUID) (authz.Caller, error)
}

// APIKeyMiddleware rejects requests without the public client key. An empty key disables the check.
func APIKeyMiddleware(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		sent := c.GetHeader(apiKeyHeader)
		if sent == "" {
			sent = c.Query(apiKeyHeader)
		}
		if subtle.ConstantTimeCompare([]byte(sent), []byte(key)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or invalid api key"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// NewAuthMiddleware validates the bearer token and its session, then resolves
// the caller from the stored profile so role changes apply immediately.
func NewAuthMiddleware(jwtSecret string, resolver CallerResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization header is required"})
			c.Abort()
			return
		}

		if auth.GetTokenBlacklist().IsBlacklisted(tokenString) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token has been invalidated"})
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			log.Warn("Token validation failed", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		session, exists := auth.GetSessionStore().GetSession(tokenString)
		if !exists || session.UserID != claims.UserID {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			c.Abort()
			return
		}
		auth.GetSessionStore().UpdateSessionActivity(tokenString)

		caller, err := resolver.ResolveCaller(c.Request.Context(), claims.UserID)
		if err != nil {
			log.Warn("Caller resolution failed", zap.String("user_id", claims.UserID.String()), zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
			c.Abort()
			return
		}
		if !caller.IsActive() {
			c.JSON(http.StatusForbidden, gin.H{"error": authz.ErrInactive.Error()})
			c.Abort()
			return
		}

		c.Set(callerKey, caller)
		c.Set(userIDKey, caller.ID)
		c.Set(tokenKey, tokenString)
		c.Next()
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// websocket upgrades, so a token query parameter is accepted as well.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, bearerSchema) {
		return strings.TrimSpace(header[len(bearerSchema):]), true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// RequireView aborts unless the caller may open the view
func RequireView(view authz.View) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, _ := GetCaller(c)
		if err := authz.RequireView(caller, view); err != nil {
			status := http.StatusForbidden
			if errors.Is(err, authz.ErrUnauthenticated) {
				status = http.StatusUnauthorized
			}
			c.JSON(status, gin.H{"error": err.Error()})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimitMiddleware limits requests per client IP and path
func RateLimitMiddleware(limiter auth.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", c.ClientIP(), c.FullPath())

		allowed, remaining, resetTime, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// fail open
			log.Error("Rate limiter error", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
		c.Header("X-RateLimit-Reset", resetTime.UTC().Format(time.RFC3339))
		if !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":    "rate limit exceeded",
				"reset_in": time.Until(resetTime).Round(time.Second).String(),
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetCaller returns the caller set by the auth middleware, or an anonymous one
func GetCaller(c *gin.Context) (authz.Caller, bool) {
	v, exists := c.Get(callerKey)
	if !exists {
		return authz.Caller{}, false
	}
	caller, ok := v.(authz.Caller)
	return caller, ok
}

// GetUserID retrieves the authenticated user's ID from the context
func GetUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return uuid.Nil, false
	}
	return userID.(uuid.UUID), true
}

// GetToken returns the raw bearer token of the request
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
