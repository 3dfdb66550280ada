package config

import (
	"fmt"
	"time"
)

// DatabaseConfig holds database connection configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// Connection pool settings
	MaxOpenConns     int `yaml:"max_open_conns"`
	MaxIdleConns     int `yaml:"max_idle_conns"`
	ConnMaxLifetimeS int `yaml:"conn_max_lifetime_s"`
	ConnMaxIdleTimeS int `yaml:"conn_max_idle_time_s"`
}

// ConnMaxLifetime returns the configured connection lifetime.
func (c *DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeS) * time.Second
}

// ConnMaxIdleTime returns the configured idle connection lifetime.
func (c *DatabaseConfig) ConnMaxIdleTime() time.Duration {
	return time.Duration(c.ConnMaxIdleTimeS) * time.Second
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s",
		c.Host, c.Port, c.User, c.Password, c.Name)
}
