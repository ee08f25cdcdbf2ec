package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		envName := field.Tag.Get("env")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		value := os.Getenv(envName)

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Source store validation
	if c.Mongo.URI == "" {
		errs = append(errs, "MONGO_URI is required")
	}
	if c.Mongo.Database == "" {
		errs = append(errs, "MONGO_DB must not be empty")
	}
	if c.Mongo.Collection == "" {
		errs = append(errs, "MONGO_COLLECTION must not be empty")
	}
	if c.Mongo.ConnectTimeout <= 0 {
		errs = append(errs, "MONGO_CONNECT_TIMEOUT must be positive")
	}

	// Salesforce validation
	if c.Salesforce.Username == "" {
		errs = append(errs, "SF_USERNAME is required")
	}
	if c.Salesforce.Password == "" {
		errs = append(errs, "SF_PASSWORD is required")
	}
	if c.Salesforce.SecurityToken == "" {
		errs = append(errs, "SF_TOKEN is required")
	}
	if c.Salesforce.Domain == "" {
		errs = append(errs, "SF_DOMAIN must not be empty")
	}
	if c.Salesforce.Timeout <= 0 {
		errs = append(errs, "SF_TIMEOUT must be positive")
	}

	// Sync validation
	if c.Sync.Workers <= 0 {
		errs = append(errs, fmt.Sprintf("SYNC_WORKERS (%d) must be positive", c.Sync.Workers))
	}
	if strings.TrimSpace(c.Sync.CustomerPlaceholder) == "" {
		errs = append(errs, "SYNC_CUSTOMER_PLACEHOLDER must not be empty")
	}
	if strings.TrimSpace(c.Sync.ShipmentPlaceholder) == "" {
		errs = append(errs, "SYNC_SHIPMENT_PLACEHOLDER must not be empty")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Credentials and connection strings are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Mongo: {URI: [MASKED], Database: %q, Collection: %q}, ",
		c.Mongo.Database, c.Mongo.Collection))
	b.WriteString(fmt.Sprintf("Salesforce: {Username: %q, Domain: %q, APIVersion: %q}, ",
		c.Salesforce.Username, c.Salesforce.Domain, c.Salesforce.APIVersion))
	b.WriteString(fmt.Sprintf("Sync: {Workers: %d, DateFallback: %v}, ",
		c.Sync.Workers, c.Sync.DateFallback))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
