// Copyright (c) 2026 Koshly. All rights reserved.
// Author: dev@koshly.app

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, verify, identity) via constructors.
  - Zero Hidden State: No global variables are used to store config.

This ensures the application is Twelve-Factor compliant by storing config in the env.
*/
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Koshly auth gateway.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// AppHostname is the hostname the verification service must report for a
	// token to be accepted (the hostname the challenge widget ran on).
	AppHostname string `env:"APP_HOSTNAME" envDefault:"koshly.app"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Human-verification service (Turnstile siteverify)
	VerifySecretKey string `env:"VERIFY_SECRET_KEY,required"`
	VerifyEndpoint  string `env:"VERIFY_ENDPOINT" envDefault:"https://challenges.cloudflare.com/turnstile/v0/siteverify"`

	// Identity provider (GoTrue-compatible REST API)
	IdentityBaseURL string `env:"IDENTITY_BASE_URL,required"`
	IdentityAPIKey  string `env:"IDENTITY_API_KEY,required"`

	// SessionJWTSecret is the identity provider's JWT signing secret, used
	// only to VERIFY provider-issued session tokens locally. The gateway
	// never signs tokens of its own.
	SessionJWTSecret string `env:"SESSION_JWT_SECRET,required"`

	// Security policy toggles. Every relaxation is an explicit deployment
	// decision rather than an implicit runtime-mode branch, so both postures
	// can be exercised deterministically in tests.
	EnforceVerification  bool `env:"ENFORCE_VERIFICATION"   envDefault:"true"`
	EnforceHostnameCheck bool `env:"ENFORCE_HOSTNAME_CHECK" envDefault:"true"`
	EnforceActionCheck   bool `env:"ENFORCE_ACTION_CHECK"   envDefault:"true"`
	EnforceRateLimit     bool `env:"ENFORCE_RATE_LIMIT"     envDefault:"true"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
