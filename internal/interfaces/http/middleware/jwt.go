package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/pharmacy/backend/internal/infrastructure/auth"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"github.com/pharmacy/backend/internal/interfaces/http/dto"
)

// Context keys for the authenticated caller.
const (
	JWTClaimsKey = "jwt_claims"
	JWTUserIDKey = "jwt_user_id"

	bearerPrefix = "Bearer "
)

// JWTMiddlewareConfig holds configuration for JWT middleware.
type JWTMiddlewareConfig struct {
	JWTService *auth.JWTService
	// SkipPaths bypass authentication entirely, exact match.
	SkipPaths []string
	// SkipPathPrefixes bypass authentication by prefix.
	SkipPathPrefixes []string
	Logger           *zap.Logger
}

// JWTAuthMiddleware authenticates with the health endpoints exempted.
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{"/health", "/api/v1/system/ping"},
	})
}

// JWTAuthMiddlewareWithConfig validates the bearer token and records the
// caller in both the gin context and the request logger, so invoices can
// name the pharmacist who filed them.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if skipAuth(cfg, c.Request.URL.Path) {
			c.Next()
			return
		}

		token := bearerToken(c)
		if token == "" {
			refuseAuth(c, cfg, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.ValidateToken(token)
		if err != nil {
			refuseAuth(c, cfg, err, "Token validation failed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(JWTUserIDKey, claims.UserID)

		ctx := c.Request.Context()
		ctx, _ = logger.WithUserID(ctx, logger.FromContext(ctx), claims.UserID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func skipAuth(cfg JWTMiddlewareConfig, path string) bool {
	for _, skip := range cfg.SkipPaths {
		if path == skip {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// bearerToken extracts the token from the Authorization header, empty when
// the header is absent or not bearer-shaped.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return ""
	}
	return strings.TrimPrefix(header, bearerPrefix)
}

func refuseAuth(c *gin.Context, cfg JWTMiddlewareConfig, err error, message string) {
	if cfg.Logger != nil {
		cfg.Logger.Warn("JWT authentication failed",
			zap.Error(err),
			zap.String("message", message),
			zap.String("path", c.Request.URL.Path),
		)
	}

	code, text := "INVALID_TOKEN", "Invalid token"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, text = "TOKEN_EXPIRED", "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, text = "TOKEN_NOT_VALID", "Token is not yet valid"
	}
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponse(code, text))
}

// GetJWTClaims returns the validated claims, nil outside an authenticated
// request.
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, ok := c.Get(JWTClaimsKey); ok {
		if jwtClaims, valid := claims.(*auth.Claims); valid {
			return jwtClaims
		}
	}
	return nil
}

// GetJWTUserID returns the authenticated user's id, empty when anonymous.
func GetJWTUserID(c *gin.Context) string {
	if userID, ok := c.Get(JWTUserIDKey); ok {
		if id, valid := userID.(string); valid {
			return id
		}
	}
	return ""
}
