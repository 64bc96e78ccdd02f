package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/godtm/godtm/internal/channel"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for errors and inconsistencies and
// resolves the channel plan into cfg.Channels.
// Returns nil if valid, or an error describing the problem.
func Validate(cfg *Config) error {
	var errs []error

	// Device indices must be non-negative
	if cfg.Adapter < 0 {
		errs = append(errs, ValidationError{
			Field:   "adapter",
			Message: "must not be negative",
		})
	}
	if cfg.Tuner < 0 {
		errs = append(errs, ValidationError{
			Field:   "tuner",
			Message: "must not be negative",
		})
	}

	// Resolve the channel plan
	plan, err := channel.Parse(cfg.Frequencies)
	if err != nil {
		errs = append(errs, ValidationError{
			Field:   "frequencies",
			Message: err.Error(),
		})
	} else {
		cfg.Channels = plan
	}

	// Step must be positive
	if cfg.Step <= 0 {
		errs = append(errs, ValidationError{
			Field:   "step",
			Message: "must be positive",
		})
	}

	// Every channel needs at least one second of scan time
	if len(cfg.Channels) > 0 && cfg.Step > 0 {
		if cfg.Budget() < time.Second {
			errs = append(errs, ValidationError{
				Field:   "step",
				Message: fmt.Sprintf("%v split across %d channels leaves less than one second per channel", cfg.Step, len(cfg.Channels)),
			})
		}
	}

	// Interval and locktime must not be negative
	if cfg.Interval < 0 {
		errs = append(errs, ValidationError{
			Field:   "interval",
			Message: "must not be negative",
		})
	}
	if cfg.LockTime < 0 {
		errs = append(errs, ValidationError{
			Field:   "locktime",
			Message: "must not be negative",
		})
	}

	// Backend must be valid
	validBackends := map[string]bool{"influxdb": true, "graphite": true}
	if !validBackends[cfg.Backend] {
		errs = append(errs, ValidationError{
			Field:   "backend",
			Message: fmt.Sprintf("must be 'influxdb' or 'graphite' (got %q)", cfg.Backend),
		})
	}

	// Backend-specific settings
	if cfg.Backend == "influxdb" {
		if err := validateURL(cfg.InfluxURL); err != nil {
			errs = append(errs, ValidationError{
				Field:   "influx_url",
				Message: err.Error(),
			})
		}
		if cfg.InfluxDatabase == "" {
			errs = append(errs, ValidationError{
				Field:   "influx_database",
				Message: "must not be empty",
			})
		}
	}
	if cfg.Backend == "graphite" {
		if cfg.GraphiteHost == "" {
			errs = append(errs, ValidationError{
				Field:   "graphite_host",
				Message: "must not be empty",
			})
		}
		if cfg.GraphitePort < 1 || cfg.GraphitePort > 65535 {
			errs = append(errs, ValidationError{
				Field:   "graphite_port",
				Message: fmt.Sprintf("must be between 1 and 65535 (got %d)", cfg.GraphitePort),
			})
		}
		if cfg.GraphitePrefix == "" {
			errs = append(errs, ValidationError{
				Field:   "graphite_prefix",
				Message: "must not be empty",
			})
		}
	}

	// Metrics listener needs an address
	if cfg.MetricsAddr == "" {
		errs = append(errs, ValidationError{
			Field:   "metrics_addr",
			Message: "must not be empty",
		})
	}

	// Log format must be valid
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		errs = append(errs, ValidationError{
			Field:   "log_format",
			Message: fmt.Sprintf("must be 'json' or 'text' (got %q)", cfg.LogFormat),
		})
	}

	// Return combined errors
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// validateURL checks if the URL is valid and uses http or https.
func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https (got %q)", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("URL must have a host")
	}

	return nil
}
