package config

import (
	"fmt"
	"time"

	"github.com/grovetools/lumin/util/pathutil"
	"github.com/invopop/jsonschema"
	"github.com/mitchellh/mapstructure"
)

// Duration is a time.Duration that reads and writes as a Go duration string
// ("30s", "1.5s") in both YAML and TOML files.
type Duration time.Duration

// Std returns the standard library duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String implements fmt.Stringer.
func (d Duration) String() string { return time.Duration(d).String() }

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// JSONSchema describes Duration as a duration string.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Pattern:     `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		Description: "Go duration string, e.g. 30s or 1.5s",
	}
}

// TransportConfig controls the request/response backend and webhook clients.
type TransportConfig struct {
	Timeout Duration `yaml:"timeout,omitempty" toml:"timeout,omitempty" json:"timeout,omitempty" jsonschema:"description=Ceiling for every remote call; exceeding it counts as the network being unavailable"`
}

// ResilienceConfig controls when a module gives up on the backend.
type ResilienceConfig struct {
	FailureThreshold int `yaml:"failure_threshold,omitempty" toml:"failure_threshold,omitempty" json:"failure_threshold,omitempty" jsonschema:"minimum=1,description=Consecutive frame-submission failures before coaching switches to demo mode"`
	// CountRemoteErrors keeps backend 4xx/5xx answers counting toward demo mode.
	CountRemoteErrors *bool `yaml:"count_remote_errors,omitempty" toml:"count_remote_errors,omitempty" json:"count_remote_errors,omitempty" jsonschema:"description=Whether a reachable backend answering with an error counts as a failure (default: true)"`
}

// CaptureConfig controls camera acquisition and the frame loop.
type CaptureConfig struct {
	Interval    Duration `yaml:"interval,omitempty" toml:"interval,omitempty" json:"interval,omitempty" jsonschema:"description=Frame sampling cadence"`
	DeviceID    string   `yaml:"device_id,omitempty" toml:"device_id,omitempty" json:"device_id,omitempty" jsonschema:"description=Explicit device to open; empty uses facing mode and resolution"`
	FacingMode  string   `yaml:"facing_mode,omitempty" toml:"facing_mode,omitempty" json:"facing_mode,omitempty" jsonschema:"enum=user,enum=environment,description=Preferred camera when no device id is given"`
	Width       int      `yaml:"width,omitempty" toml:"width,omitempty" json:"width,omitempty" jsonschema:"minimum=1"`
	Height      int      `yaml:"height,omitempty" toml:"height,omitempty" json:"height,omitempty" jsonschema:"minimum=1"`
	JPEGQuality int      `yaml:"jpeg_quality,omitempty" toml:"jpeg_quality,omitempty" json:"jpeg_quality,omitempty" jsonschema:"minimum=1,maximum=100"`
	Devices     int      `yaml:"devices,omitempty" toml:"devices,omitempty" json:"devices,omitempty" jsonschema:"minimum=1,description=Number of synthetic cameras exposed by the built-in source"`
}

// EventsConfig controls the real-time event channel.
type EventsConfig struct {
	Enabled              *bool    `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	MaxReconnectAttempts int      `yaml:"max_reconnect_attempts,omitempty" toml:"max_reconnect_attempts,omitempty" json:"max_reconnect_attempts,omitempty" jsonschema:"minimum=0"`
	ReconnectDelay       Duration `yaml:"reconnect_delay,omitempty" toml:"reconnect_delay,omitempty" json:"reconnect_delay,omitempty"`
}

// SimulatorConfig controls demo-mode data generation.
type SimulatorConfig struct {
	FeedbackInterval Duration `yaml:"feedback_interval,omitempty" toml:"feedback_interval,omitempty" json:"feedback_interval,omitempty" jsonschema:"description=Delay between simulated agent feedback entries"`
	DemoGrace        Duration `yaml:"demo_grace,omitempty" toml:"demo_grace,omitempty" json:"demo_grace,omitempty" jsonschema:"description=How long a live analysis waits for pushed feedback before simulating"`
	Seed             int64    `yaml:"seed,omitempty" toml:"seed,omitempty" json:"seed,omitempty" jsonschema:"description=Random seed; 0 seeds from the clock"`
}

// AuthConfig controls where credentials are persisted.
type AuthConfig struct {
	StateFile string `yaml:"state_file,omitempty" toml:"state_file,omitempty" json:"state_file,omitempty" jsonschema:"description=Path of the persisted user and token file"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled,omitempty" toml:"enabled,omitempty" json:"enabled,omitempty"`
	Addr    string `yaml:"addr,omitempty" toml:"addr,omitempty" json:"addr,omitempty" jsonschema:"description=Listen address for /metrics, e.g. 127.0.0.1:9464"`
}

// Config represents the lumin.yml configuration
type Config struct {
	BackendURL string `yaml:"backend_url,omitempty" toml:"backend_url,omitempty" json:"backend_url,omitempty" jsonschema:"description=Base URL of the request/response backend"`
	WebhookURL string `yaml:"webhook_url,omitempty" toml:"webhook_url,omitempty" json:"webhook_url,omitempty" jsonschema:"description=Base URL of the automation webhook"`
	EventsURL  string `yaml:"events_url,omitempty" toml:"events_url,omitempty" json:"events_url,omitempty" jsonschema:"description=WebSocket URL of the real-time event channel"`

	Transport  TransportConfig  `yaml:"transport,omitempty" toml:"transport,omitempty" json:"transport,omitempty"`
	Resilience ResilienceConfig `yaml:"resilience,omitempty" toml:"resilience,omitempty" json:"resilience,omitempty"`
	Capture    CaptureConfig    `yaml:"capture,omitempty" toml:"capture,omitempty" json:"capture,omitempty"`
	Events     EventsConfig     `yaml:"events,omitempty" toml:"events,omitempty" json:"events,omitempty"`
	Simulator  SimulatorConfig  `yaml:"simulator,omitempty" toml:"simulator,omitempty" json:"simulator,omitempty"`
	Auth       AuthConfig       `yaml:"auth,omitempty" toml:"auth,omitempty" json:"auth,omitempty"`
	Metrics    MetricsConfig    `yaml:"metrics,omitempty" toml:"metrics,omitempty" json:"metrics,omitempty"`

	// Logging is decoded by the logging package through UnmarshalExtension.
	Logging map[string]interface{} `yaml:"logging,omitempty" toml:"logging,omitempty" json:"logging,omitempty" jsonschema:"description=Logging configuration (level, format, file sink)"`

	// Extensions holds free-form sections for tools built on top of lumin.
	Extensions map[string]interface{} `yaml:"extensions,omitempty" toml:"extensions,omitempty" json:"extensions,omitempty"`
}

// Default values
const (
	DefaultBackendURL           = "http://localhost:3001/api"
	DefaultWebhookURL           = "http://localhost:5678/webhook"
	DefaultEventsURL            = "ws://localhost:3001"
	DefaultTimeout              = 30 * time.Second
	DefaultFailureThreshold     = 3
	DefaultCaptureInterval      = time.Second
	DefaultFacingMode           = "user"
	DefaultWidth                = 1280
	DefaultHeight               = 720
	DefaultJPEGQuality          = 80
	DefaultDevices              = 1
	DefaultMaxReconnectAttempts = 5
	DefaultReconnectDelay       = 2 * time.Second
	DefaultFeedbackInterval     = 1500 * time.Millisecond
	DefaultDemoGrace            = 2 * time.Second
	DefaultMetricsAddr          = "127.0.0.1:9464"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.BackendURL == "" {
		c.BackendURL = DefaultBackendURL
	}
	if c.WebhookURL == "" {
		c.WebhookURL = DefaultWebhookURL
	}
	if c.EventsURL == "" {
		c.EventsURL = DefaultEventsURL
	}
	if c.Transport.Timeout == 0 {
		c.Transport.Timeout = Duration(DefaultTimeout)
	}
	if c.Resilience.FailureThreshold == 0 {
		c.Resilience.FailureThreshold = DefaultFailureThreshold
	}
	if c.Resilience.CountRemoteErrors == nil {
		countRemote := true
		c.Resilience.CountRemoteErrors = &countRemote
	}
	if c.Capture.Interval == 0 {
		c.Capture.Interval = Duration(DefaultCaptureInterval)
	}
	if c.Capture.FacingMode == "" {
		c.Capture.FacingMode = DefaultFacingMode
	}
	if c.Capture.Width == 0 {
		c.Capture.Width = DefaultWidth
	}
	if c.Capture.Height == 0 {
		c.Capture.Height = DefaultHeight
	}
	if c.Capture.JPEGQuality == 0 {
		c.Capture.JPEGQuality = DefaultJPEGQuality
	}
	if c.Capture.Devices == 0 {
		c.Capture.Devices = DefaultDevices
	}
	if c.Events.Enabled == nil {
		enabled := true
		c.Events.Enabled = &enabled
	}
	if c.Events.MaxReconnectAttempts == 0 {
		c.Events.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.Events.ReconnectDelay == 0 {
		c.Events.ReconnectDelay = Duration(DefaultReconnectDelay)
	}
	if c.Simulator.FeedbackInterval == 0 {
		c.Simulator.FeedbackInterval = Duration(DefaultFeedbackInterval)
	}
	if c.Simulator.DemoGrace == 0 {
		c.Simulator.DemoGrace = Duration(DefaultDemoGrace)
	}
	if c.Auth.StateFile == "" {
		c.Auth.StateFile = defaultAuthStateFile()
	} else if p, err := pathutil.Expand(c.Auth.StateFile); err == nil {
		c.Auth.StateFile = p
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
}

// UnmarshalExtension decodes a named section of the loaded configuration
// into the provided target struct. The target must be a pointer.
// "logging" refers to the top-level logging section; every other key is
// looked up in the extensions map.
//
// Example:
//
//	var logCfg logging.Config
//	err := cfg.UnmarshalExtension("logging", &logCfg)
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	var section interface{}
	if key == "logging" {
		if c.Logging == nil {
			return nil
		}
		section = c.Logging
	} else {
		extensionConfig, ok := c.Extensions[key]
		if !ok {
			// It's not an error if the key doesn't exist.
			return nil
		}
		section = extensionConfig
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(section); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}

// EventsEnabled reports whether the event channel should be dialed.
func (c *Config) EventsEnabled() bool {
	return c.Events.Enabled == nil || *c.Events.Enabled
}
