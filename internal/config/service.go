package config

import (
	"time"

	"github.com/petmily/billing-service/internal/middleware/ratelimit"
	"github.com/petmily/billing-service/internal/retryx"
)

type ServiceConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
	ClientURL   string `yaml:"client_url"`
}

type TossConfig struct {
	SecretKey string `yaml:"secret_key"`
	ClientKey string `yaml:"client_key"`
	BaseURL   string `yaml:"base_url"`
}

type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// RateLimitConfig holds rate limiting configuration. Zero values fall back to
// the limiter's defaults.
type RateLimitConfig struct {
	MaxRequests int `yaml:"max_requests"`
	WindowMS    int `yaml:"window_ms"`
}

// Policy converts the config into a limiter policy.
func (c *RateLimitConfig) Policy() ratelimit.Policy {
	return ratelimit.Policy{
		MaxRequests: c.MaxRequests,
		Window:      time.Duration(c.WindowMS) * time.Millisecond,
	}
}

// RetryConfig holds retry configuration for outbound gateway calls. Zero
// values fall back to the executor's defaults.
type RetryConfig struct {
	MaxRetries        int     `yaml:"max_retries"`
	InitialDelayMS    int     `yaml:"initial_delay_ms"`
	BackoffMultiplier float64 `yaml:"backoff_multiplier"`
	MaxDelayMS        int     `yaml:"max_delay_ms"`
	TimeoutMS         int     `yaml:"timeout_ms"`
}

// Options converts the config into executor options.
func (c *RetryConfig) Options() retryx.Options {
	return retryx.Options{
		MaxRetries:        c.MaxRetries,
		InitialDelay:      time.Duration(c.InitialDelayMS) * time.Millisecond,
		BackoffMultiplier: c.BackoffMultiplier,
		MaxDelay:          time.Duration(c.MaxDelayMS) * time.Millisecond,
		Timeout:           time.Duration(c.TimeoutMS) * time.Millisecond,
	}
}
