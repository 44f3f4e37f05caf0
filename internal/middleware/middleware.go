package middleware

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tickbol/internal/cache"
	"tickbol/internal/models"
	"tickbol/internal/repository"
)

// Ctx key and helpers for the authenticated staff account
// Using unexported type to avoid collisions

type ctxKey string

const staffIDKey ctxKey = "staff_id"
const staffRoleKey ctxKey = "staff_role"

func ContextWithStaff(ctx context.Context, staffID int64, role string) context.Context {
	ctx = context.WithValue(ctx, staffIDKey, staffID)
	return context.WithValue(ctx, staffRoleKey, role)
}

func StaffIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(staffIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func StaffRoleFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(staffRoleKey)
	if v == nil {
		return "", false
	}
	role, ok := v.(string)
	return role, ok
}

// CORS handles cross-origin requests from the admin and porteria frontends
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// Logger emits one structured log line per completed request
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		latency := time.Since(start)
		staffID, exists := c.Get("staff_id")

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
		}

		if exists {
			logFields = append(logFields, "staff_id", staffID)
		}

		if c.Writer.Status() >= 400 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			slog.Error("Request completed with error", logFields...)
		}
	}
}

// Recovery turns panics into 500s with detailed logging
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		slog.Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
		)

		if !c.Writer.Written() {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
	})
}

// BasicAuth authenticates staff via HTTP Basic Auth, checking the Valkey
// cache first and falling back to the database
func BasicAuth(staffRepo repository.StaffStore, valkeyClient *cache.ValkeyClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok {
			c.Header("WWW-Authenticate", "Basic realm=\"Restricted\"")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		ctx := c.Request.Context()

		hash := sha256.Sum256([]byte(password))
		passwordHash := fmt.Sprintf("%x", hash)

		if valkeyClient != nil {
			staffID, role, err := valkeyClient.GetStaffByAuth(ctx, username, passwordHash)
			if err == nil {
				setStaff(c, staffID, role)
				c.Next()
				return
			}
		}

		staff, err := staffRepo.GetByEmail(ctx, username)
		if err != nil || staff == nil || !staff.IsActive {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if staff.PasswordHash == "" || passwordHash != staff.PasswordHash {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
			return
		}

		if valkeyClient != nil {
			valkeyClient.SetStaffAuth(ctx, username, passwordHash, staff.ID, staff.Role)
		}

		setStaff(c, staff.ID, staff.Role)
		c.Next()
	}
}

func setStaff(c *gin.Context, staffID int64, role string) {
	c.Set("staff_id", staffID)
	c.Set("staff_role", role)
	c.Request = c.Request.WithContext(ContextWithStaff(c.Request.Context(), staffID, role))
}

// RequireRole aborts with 403 unless the authenticated staff member holds
// one of the given roles. Fine-grained checks still happen in the service
// layer; this keeps obviously wrong requests out early.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := StaffRoleFromContext(c.Request.Context())
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
	}
}

// AdminOrPorteria allows door staff and admins through.
func AdminOrPorteria() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin, models.RolePorteria)
}
