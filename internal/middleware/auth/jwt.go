package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// JWTConfig holds the configuration for JWT middleware
type JWTConfig struct {
	Secret string
	Logger *zap.Logger

	// Optional lets unauthenticated requests through without setting an
	// account id, so the handler (or the rate limiter) can fall back to
	// anonymous handling. A present-but-invalid token is still rejected.
	Optional bool
}

// JWTMiddleware creates a middleware that validates bearer tokens and stores
// the authenticated account id in the echo context under "account_id".
func JWTMiddleware(config JWTConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path

			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				if config.Optional {
					return next(c)
				}
				config.Logger.Warn("Missing authorization header",
					zap.String("path", path),
					zap.String("method", c.Request().Method))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Authorization header required",
					"code":  "MISSING_AUTH_HEADER",
				})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				config.Logger.Warn("Invalid authorization header format",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid authorization header format. Expected: Bearer <token>",
					"code":  "INVALID_AUTH_FORMAT",
				})
			}

			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return []byte(config.Secret), nil
			})
			if err != nil {
				config.Logger.Warn("JWT validation failed",
					zap.Error(err),
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid or expired token",
					"code":  "INVALID_TOKEN",
				})
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok || !token.Valid {
				config.Logger.Warn("Invalid JWT claims",
					zap.String("path", path))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Invalid token claims",
					"code":  "INVALID_CLAIMS",
				})
			}

			subject, _ := claims["sub"].(string)
			accountID, parseErr := uuid.Parse(subject)
			if parseErr != nil {
				config.Logger.Warn("Invalid subject claim",
					zap.String("path", path),
					zap.Error(parseErr))
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"error": "Token subject must be a valid account id",
					"code":  "INVALID_SUBJECT",
				})
			}

			c.Set("account_id", accountID.String())

			config.Logger.Debug("Account authenticated",
				zap.String("account_id", accountID.String()),
				zap.String("path", path))

			return next(c)
		}
	}
}

// AccountID extracts the authenticated account id set by JWTMiddleware.
func AccountID(c echo.Context) (uuid.UUID, bool) {
	raw, ok := c.Get("account_id").(string)
	if !ok || raw == "" {
		return uuid.Nil, false
	}
	accountID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, false
	}
	return accountID, true
}
