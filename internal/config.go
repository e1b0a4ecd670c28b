package internal

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/chalkbook/internal/climbstore"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Storage  StorageConfig     `yaml:"storage"`
	Calendar CalendarConfig    `yaml:"calendar"`
	Auth     AuthConfig        `yaml:"auth"`
	Events   EventsConfig      `yaml:"events"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	if err := c.Calendar.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Events.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// StorageConfig selects where the climb collection is persisted.
//
// Path is the settings directory for the file backend and the database
// file for the sqlite backend. Watch reloads the store when the file
// backend's blob is changed by another process.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	Key     string `yaml:"key"`
	Watch   bool   `yaml:"watch"`
}

// Validate validates the storage configuration.
func (c *StorageConfig) Validate() error {
	if c.Key == "" {
		c.Key = climbstore.DefaultKey
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Backend, validation.Required, validation.In(BackendFile, BackendSQLite, BackendMemory)),
		validation.Field(&c.Path, validation.When(c.Backend != BackendMemory, validation.Required)),
	)
}

// CalendarConfig holds the time zone used to group climbs by day.
// An empty Timezone means the host's local zone.
type CalendarConfig struct {
	Timezone string `yaml:"timezone"`
}

// Validate validates the calendar configuration.
func (c *CalendarConfig) Validate() error {
	_, err := c.Location()
	return err
}

// Location resolves Timezone.
func (c *CalendarConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("calendar: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// EventsConfig holds SSE configuration.
type EventsConfig struct {
	// Throttle is the minimum gap between stats.updated events.
	Throttle time.Duration `yaml:"throttle"`
}

// Validate validates the events configuration.
func (c *EventsConfig) Validate() error {
	if c.Throttle < 0 {
		return errors.New("events: throttle must not be negative")
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Storage: StorageConfig{
			Backend: BackendFile,
			Path:    "./data",
			Key:     climbstore.DefaultKey,
			Watch:   true,
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Events: EventsConfig{
			Throttle: 2 * time.Second,
		},
	}
}
