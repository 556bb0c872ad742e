package config

import (
	"fmt"
	"net/url"

	"github.com/grovetools/lumin/errors"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	urls := []struct {
		field   string
		value   string
		schemes []string
	}{
		{"backend_url", c.BackendURL, []string{"http", "https"}},
		{"webhook_url", c.WebhookURL, []string{"http", "https"}},
		{"events_url", c.EventsURL, []string{"ws", "wss", "http", "https"}},
	}
	for _, u := range urls {
		if err := validateURL(u.value, u.schemes); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigValidation, fmt.Sprintf("invalid %s", u.field)).
				WithDetail("field", u.field)
		}
	}

	if c.Transport.Timeout.Std() <= 0 {
		return validationErr("transport.timeout", "must be positive")
	}
	if c.Resilience.FailureThreshold < 1 {
		return validationErr("resilience.failure_threshold", "must be at least 1")
	}
	if c.Capture.Interval.Std() <= 0 {
		return validationErr("capture.interval", "must be positive")
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		return validationErr("capture.jpeg_quality", "must be between 1 and 100")
	}
	if c.Capture.Width < 1 || c.Capture.Height < 1 {
		return validationErr("capture.width", "resolution must be positive")
	}
	if c.Capture.FacingMode != "user" && c.Capture.FacingMode != "environment" {
		return validationErr("capture.facing_mode", "must be user or environment")
	}
	if c.Events.MaxReconnectAttempts < 0 {
		return validationErr("events.max_reconnect_attempts", "must not be negative")
	}
	if c.Simulator.FeedbackInterval.Std() < 0 {
		return validationErr("simulator.feedback_interval", "must not be negative")
	}

	return nil
}

func validateURL(raw string, schemes []string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Host == "" {
		return fmt.Errorf("%q has no host", raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%q: unsupported scheme %q", raw, u.Scheme)
}

func validationErr(field, reason string) error {
	return errors.New(errors.ErrCodeConfigValidation, fmt.Sprintf("%s %s", field, reason)).
		WithDetail("field", field)
}
