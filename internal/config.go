package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/leadnotes/leadnotes/internal/auth"
)

// Mail transport modes.
const (
	MailModeFile = "file"
	MailModeSMTP = "smtp"
)

// Config represents the application configuration.
type Config struct {
	App   ApplicationConfig `yaml:"app"`
	Mongo MongoConfig       `yaml:"mongo"`
	Auth  AuthConfig        `yaml:"auth"`
	Mail  MailConfig        `yaml:"mail"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Mongo.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	return c.Mail.Validate()
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

// Address returns the HTTP server listen address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// MongoConfig holds the durable store configuration. An empty URI means the
// process runs fallback-only for its whole lifetime.
type MongoConfig struct {
	URI         string `yaml:"uri"`
	Database    string `yaml:"database"`
	Collection  string `yaml:"collection"`
	PingSeconds int    `yaml:"ping_seconds"`
}

// Enabled reports whether a durable store is configured at all.
func (c *MongoConfig) Enabled() bool {
	return c.URI != ""
}

// Validate validates the Mongo configuration.
func (c *MongoConfig) Validate() error {
	if c.PingSeconds == 0 {
		c.PingSeconds = 5
	}
	if !c.Enabled() {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Database, validation.Required),
		validation.Field(&c.Collection, validation.Required),
		validation.Field(&c.PingSeconds, validation.Min(1)),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how the gate behaves:
//   - "disabled" (default): every request passes through unauthenticated.
//   - "dev": verification is bypassed even though a secret may be set.
//   - "enforced": requests need a valid Bearer JWT; Secret must be non-empty.
type AuthConfig struct {
	Mode   string `yaml:"mode"`
	Secret string `yaml:"secret"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for local/demo operation.
	if c.Mode == "" {
		c.Mode = auth.ModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required,
			validation.In(auth.ModeDisabled, auth.ModeDev, auth.ModeEnforced)),
	); err != nil {
		return err
	}
	if c.Mode == auth.ModeEnforced && c.Secret == "" {
		return fmt.Errorf("auth: mode is %q but secret is empty", auth.ModeEnforced)
	}
	return nil
}

// Enforced returns true when token verification is active.
func (c *AuthConfig) Enforced() bool {
	return c.Mode == auth.ModeEnforced
}

// MailConfig holds the notification transport configuration.
type MailConfig struct {
	Mode     string     `yaml:"mode"`
	From     string     `yaml:"from"`
	SpoolDir string     `yaml:"spool_dir"`
	SMTP     SMTPConfig `yaml:"smtp"`
}

// SMTPConfig holds SMTP provider credentials.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Validate validates the mail configuration.
func (c *MailConfig) Validate() error {
	// The file transport needs no configuration; it is the default.
	if c.Mode == "" {
		c.Mode = MailModeFile
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(MailModeFile, MailModeSMTP)),
	); err != nil {
		return err
	}
	if c.Mode == MailModeSMTP {
		return validation.ValidateStruct(&c.SMTP,
			validation.Field(&c.SMTP.Host, validation.Required),
			validation.Field(&c.SMTP.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		)
	}
	return nil
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 5003,
			},
		},
		Mongo: MongoConfig{
			Database:    "leadnotes",
			Collection:  "notes",
			PingSeconds: 5,
		},
		Auth: AuthConfig{
			Mode: auth.ModeDisabled,
		},
		Mail: MailConfig{
			Mode: MailModeFile,
		},
	}
}
