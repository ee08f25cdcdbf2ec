// Package config provides centralized configuration management for the
// order synchronizer. It loads configuration from environment variables
// with sensible defaults and validates all settings on startup to fail
// fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Mongo      MongoConfig
	Salesforce SalesforceConfig
	Sync       SyncConfig
	Audit      AuditConfig
	Server     ServerConfig
	Logging    LoggingConfig
}

// MongoConfig holds source store connection settings.
type MongoConfig struct {
	// URI is the MongoDB connection string (required)
	URI string `env:"MONGO_URI" required:"true"`

	// Database is the database holding order documents (default: OrdenesTest)
	Database string `env:"MONGO_DB" default:"OrdenesTest"`

	// Collection is the order collection name (default: Ordenes)
	Collection string `env:"MONGO_COLLECTION" default:"Ordenes"`

	// ConnectTimeout bounds the initial connect and ping (default: 10s)
	ConnectTimeout time.Duration `env:"MONGO_CONNECT_TIMEOUT" default:"10s"`
}

// SalesforceConfig holds CRM session settings.
type SalesforceConfig struct {
	// Username is the Salesforce login username (required)
	Username string `env:"SF_USERNAME" required:"true"`

	// Password is the Salesforce login password (required)
	Password string `env:"SF_PASSWORD" required:"true"`

	// SecurityToken is appended to the password at login (required)
	SecurityToken string `env:"SF_TOKEN" required:"true"`

	// Domain is the login domain: "login", "test", or a My Domain prefix (default: login)
	Domain string `env:"SF_DOMAIN" default:"login"`

	// ClientID is the API client identifier reported in login call options
	ClientID string `env:"CLIENT"`

	// APIVersion is the REST API version used for sobject calls (default: 59.0)
	APIVersion string `env:"SF_API_VERSION" default:"59.0"`

	// Timeout is the per-request HTTP timeout (default: 30s)
	Timeout time.Duration `env:"SF_TIMEOUT" default:"30s"`
}

// SyncConfig holds pipeline behavior settings.
type SyncConfig struct {
	// Workers is the number of concurrent resolve+upsert workers.
	// 1 preserves strictly sequential processing (default: 1).
	Workers int `env:"SYNC_WORKERS" default:"1"`

	// DateFallback controls whether unparsable close dates degrade to
	// today's date. When false, such records are skipped instead of
	// synced with a fabricated date (default: true).
	DateFallback bool `env:"SYNC_DATE_FALLBACK" default:"true"`

	// CustomerPlaceholder substitutes for a missing customer name in the
	// derived Opportunity name (default: Unknown)
	CustomerPlaceholder string `env:"SYNC_CUSTOMER_PLACEHOLDER" default:"Unknown"`

	// ShipmentPlaceholder substitutes for a missing shipment id in the
	// derived Opportunity name (default: No ID)
	ShipmentPlaceholder string `env:"SYNC_SHIPMENT_PLACEHOLDER" default:"No ID"`
}

// AuditConfig holds run-history recorder settings.
type AuditConfig struct {
	// DatabaseURL is an optional PostgreSQL connection string. When set,
	// a summary row is recorded for every completed run.
	DatabaseURL string `env:"AUDIT_DATABASE_URL"`
}

// ServerConfig holds HTTP server settings for serve mode.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}
