package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"octofit/tracker/internal/domain"
	"octofit/tracker/internal/observability"
	"octofit/tracker/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Constants for context keys
const (
	ContextUserIDKey   = "userID"
	ContextUserRoleKey = "userRole"
	ContextClaimsKey   = "tokenClaims"
)

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(authService service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		// Parse, validate and check the token against the denylist
		claims, err := authService.Authenticate(c.Request.Context(), parts[1])
		if err != nil {
			// Bad or revoked tokens are the caller's problem; anything else is ours
			if errors.Is(err, service.ErrInvalidToken) || errors.Is(err, service.ErrTokenRevoked) {
				abortWithError(c, http.StatusUnauthorized, err.Error())
				return
			}
			log.Error().Err(err).Msg("token verification failed")
			abortWithError(c, http.StatusInternalServerError, "Could not verify token")
			return
		}

		// --- Token is valid ---
		// Set user information in the context for downstream handlers
		c.Set(ContextUserIDKey, claims.UserID) // Hex ObjectID string
		c.Set(ContextUserRoleKey, claims.Role)
		c.Set(ContextClaimsKey, claims) // logout needs the jti and expiry

		// Continue to the next handler
		c.Next()
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// RoleMiddleware creates middleware to check if user has the required role(s).
// Must run AFTER AuthMiddleware.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, err := getUserRoleFromContext(c)
		if err != nil {
			// This should not happen if AuthMiddleware ran correctly
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}

		// Check if the user's role is in the allowed list
		for _, allowedRole := range allowedRoles {
			if userRole == allowedRole {
				c.Next()
				return
			}
		}
		abortWithError(c, http.StatusForbidden, fmt.Sprintf("Access denied: Role '%s' does not have permission", userRole))
	}
}

// RequestLogger logs every request with zerolog and records HTTP metrics.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next() // run the rest of the chain first, then log what happened

		elapsed := time.Since(start)
		status := c.Writer.Status()
		// Use the route template (/api/teams/:id) so metric labels stay bounded
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		observability.ObserveHTTPRequest(c.Request.Method, route, strconv.Itoa(status), elapsed)

		// Pick the level from the status code
		event := log.Info()
		switch {
		case status >= http.StatusInternalServerError:
			event = log.Error()
		case status >= http.StatusBadRequest:
			event = log.Warn()
		}
		if userID, err := getUserIDFromContext(c); err == nil {
			event = event.Str("user_id", userID)
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", elapsed).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}

// Helper function to get User ID from context (used by handlers)
func getUserIDFromContext(c *gin.Context) (string, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return "", errors.New("user ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok {
		return "", errors.New("invalid user ID type in context")
	}
	return idStr, nil
}

// Helper function to get User Role from context (used by handlers)
func getUserRoleFromContext(c *gin.Context) (domain.Role, error) {
	roleRaw, exists := c.Get(ContextUserRoleKey)
	if !exists {
		return "", errors.New("user role not found in context")
	}
	role, ok := roleRaw.(domain.Role)
	if !ok {
		return "", errors.New("invalid user role type in context")
	}
	return role, nil
}

func getClaimsFromContext(c *gin.Context) (*service.TokenClaims, error) {
	raw, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, errors.New("token claims not found in context")
	}
	claims, ok := raw.(*service.TokenClaims)
	if !ok {
		return nil, errors.New("invalid token claims type in context")
	}
	return claims, nil
}

// getActor resolves the authenticated caller, aborting with 401 when the
// context carries no usable identity.
func getActor(c *gin.Context) (service.Actor, bool) {
	claims, err := getClaimsFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token")
		return service.Actor{}, false
	}
	actor, err := claims.Actor()
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Invalid user ID format in token")
		return service.Actor{}, false
	}
	return actor, true
}
