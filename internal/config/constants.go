package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Code issuance bounds. The whole issue operation gets IssueTimeout; the
// best-effort deactivation of prior codes and the final write each get their
// own tighter bound inside it.
const (
	IssueTimeout          = 20 * time.Second
	DeactivateStepTimeout = 8 * time.Second
	DeactivateItemTimeout = 5 * time.Second
	CodeWriteTimeout      = 10 * time.Second
	CollisionScanTimeout  = 8 * time.Second
)

// Resolve bounds and retry policy
const (
	ResolveTimeout      = 25 * time.Second
	ResolveQueryTimeout = 15 * time.Second
	ResolveMaxAttempts  = 3
	ResolveRetryBase    = 1 * time.Second
	ResolveListLimit    = 10
)

// Connection establishment bounds
const (
	DuplicateCheckTimeout  = 10 * time.Second
	ConnectionWriteTimeout = 12 * time.Second
)

// Device registry bounds
const (
	DeviceWriteTimeout = 10 * time.Second
	DeviceQueryTimeout = 15 * time.Second
)

// Background job intervals
const CleanupJobInterval = 5 * time.Minute

// Default rate limiting
const DefaultRateLimitPerMin = 60
