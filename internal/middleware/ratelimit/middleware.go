package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/petmily/billing-service/internal/infrastructure/metrics"
)

// MiddlewareConfig holds the configuration for the rate limit middleware
type MiddlewareConfig struct {
	Limiter *Limiter
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Middleware creates a middleware that enforces the limiter's policy per
// request identifier. Authenticated requests are counted per account,
// everything else per client IP.
func Middleware(config MiddlewareConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identifier := identify(c)
			result := config.Limiter.Check(identifier)

			c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))

			if !result.Allowed {
				if config.Metrics != nil {
					config.Metrics.RateLimitedTotal.Inc()
				}
				if config.Logger != nil {
					config.Logger.Warn("Rate limit exceeded",
						zap.String("identifier", identifier),
						zap.String("path", c.Request().URL.Path))
				}

				retryAfter := int(result.ResetIn.Seconds())
				if retryAfter < 1 {
					retryAfter = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error": "Too many requests. Please try again later.",
					"code":  "RATE_LIMITED",
				})
			}

			return next(c)
		}
	}
}

// identify resolves the counting key for a request. An authenticated account
// id set by the auth middleware wins; otherwise the client IP is used, taken
// from the first X-Forwarded-For hop when present.
func identify(c echo.Context) string {
	if accountID, ok := c.Get("account_id").(string); ok && accountID != "" {
		return fmt.Sprintf("user:%s", accountID)
	}

	if forwarded := c.Request().Header.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.SplitN(forwarded, ",", 2)[0])
		if first != "" {
			return fmt.Sprintf("ip:%s", first)
		}
	}

	if ip := c.RealIP(); ip != "" {
		return fmt.Sprintf("ip:%s", ip)
	}
	return "ip:anonymous"
}
