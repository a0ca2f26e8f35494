package internal

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lexikon/internal/register"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App      ApplicationConfig `yaml:"app"`
	Data     DataConfig        `yaml:"data"`
	SQLite   SQLiteConfig      `yaml:"sqlite"`
	Auth     AuthConfig        `yaml:"auth"`
	Register RegisterConfig    `yaml:"register"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Data.Validate(); err != nil {
		return err
	}
	if err := c.SQLite.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Register.Validate()
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

// DataConfig locates the persisted registers and the update inbox.
// Inbox is relative to Path.
type DataConfig struct {
	Path  string `yaml:"path"`
	Inbox string `yaml:"inbox"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
		validation.Field(&c.Inbox, validation.Required),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
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

// RegisterConfig tunes the register engine.
type RegisterConfig struct {
	// VolumesFile replaces the built-in volume catalog when set.
	VolumesFile string `yaml:"volumes_file"`
	// Alphabet lists the alphabetic register boundaries, ascending.
	Alphabet          []string      `yaml:"alphabet"`
	DuplicateDistance int           `yaml:"duplicate_distance"`
	AllowedDuplicates []string      `yaml:"allowed_duplicates"`
	SortKeyCacheSize  int           `yaml:"sortkey_cache_size"`
	EventThrottle     time.Duration `yaml:"event_throttle"`
}

// Validate validates the register configuration.
func (c *RegisterConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Alphabet, validation.Length(2, 0)),
		validation.Field(&c.DuplicateDistance, validation.Min(0)),
		validation.Field(&c.SortKeyCacheSize, validation.Required, validation.Min(1)),
	); err != nil {
		return err
	}
	for i := 1; i < len(c.Alphabet); i++ {
		if c.Alphabet[i-1] >= c.Alphabet[i] {
			return fmt.Errorf("register: alphabet boundaries must ascend: %q >= %q", c.Alphabet[i-1], c.Alphabet[i])
		}
	}
	return nil
}

// Catalog loads VolumesFile, or returns the built-in catalog.
func (c *RegisterConfig) Catalog() (*register.Catalog, error) {
	if c.VolumesFile == "" {
		return register.DefaultCatalog(), nil
	}
	data, err := os.ReadFile(c.VolumesFile)
	if err != nil {
		return nil, fmt.Errorf("read volumes file: %w", err)
	}
	return register.LoadCatalog(data)
}

// CheckOptions converts the duplicate thresholds.
func (c *RegisterConfig) CheckOptions() register.CheckOptions {
	opts := register.CheckOptions{DuplicateDistance: c.DuplicateDistance}
	if len(c.AllowedDuplicates) > 0 {
		opts.AllowedDuplicates = make(map[string]bool, len(c.AllowedDuplicates))
		for _, title := range c.AllowedDuplicates {
			opts.AllowedDuplicates[title] = true
		}
	}
	return opts
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
		Data: DataConfig{
			Path:  "./data",
			Inbox: "inbox",
		},
		SQLite: SQLiteConfig{
			Path: "./lexikon.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		Register: RegisterConfig{
			DuplicateDistance: register.DefaultDuplicateDistance,
			SortKeyCacheSize:  4096,
			EventThrottle:     2 * time.Second,
		},
	}
}
