// Package config provides configuration loading and defaults for the
// servercard banner server and its webhook refresher.
//
// Settings are layered, later layers winning: built-in defaults, an
// optional TOML file, a .env file, then the process environment. The result
// is loaded once at startup and treated as read-only afterwards.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/servercard/internal/atomicfile"
	"tools.zach/dev/servercard/internal/card"
	"tools.zach/dev/servercard/internal/paths"
)

// ///////////////////////////////////////////////
// Configuration Types
// ///////////////////////////////////////////////

// Config represents the top-level application configuration.
type Config struct {
	// Server holds HTTP listener settings.
	Server ServerConfig `toml:"server"`
	// Target identifies the game server shown on the card by default.
	Target TargetConfig `toml:"target"`
	// Card holds canvas size and theme settings.
	Card CardConfig `toml:"card"`
	// Display toggles optional card elements.
	Display DisplayConfig `toml:"display"`
	// Fonts controls typeface discovery.
	Fonts FontsConfig `toml:"fonts"`
	// Probe holds status probe settings.
	Probe ProbeConfig `toml:"probe"`
	// Refresh holds webhook publisher settings.
	Refresh RefreshConfig `toml:"refresh"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// Port is the TCP port the banner server listens on.
	Port int `toml:"port"`
	// RequestTimeoutSeconds bounds a whole banner request, probe included.
	RequestTimeoutSeconds float64 `toml:"request_timeout_seconds"`
}

// TargetConfig identifies the default game server.
type TargetConfig struct {
	// Address is host or host:port of the game server.
	Address string `toml:"address"`
	// Name is the display name drawn as the card title.
	Name string `toml:"name"`
	// Port is appended to Address when Address has no port (0 = none).
	Port int `toml:"port"`
}

// CardConfig holds canvas and theme settings.
type CardConfig struct {
	// Width is the output canvas width in pixels.
	Width int `toml:"width"`
	// Height is the output canvas height in pixels.
	Height int `toml:"height"`
	// Scale multiplies the fit-to-canvas scale factor.
	Scale float64 `toml:"scale"`
	// AccentHex is the online chip and player bar colour.
	AccentHex string `toml:"accent_hex"`
	// BadHex is the offline chip colour.
	BadHex string `toml:"bad_hex"`
	// IconFile is the fallback icon shown when the server sends none.
	IconFile string `toml:"icon_file"`
	// Timezone is the IANA zone used for the card timestamp ("" = local).
	Timezone string `toml:"timezone,omitempty"`
}

// DisplayConfig toggles optional card elements.
type DisplayConfig struct {
	ShowPort      bool `toml:"show_port"`
	ShowMOTD      bool `toml:"show_motd"`
	ShowPing      bool `toml:"show_ping"`
	ShowVersion   bool `toml:"show_version"`
	ShowPlayers   bool `toml:"show_players"`
	ShowTimestamp bool `toml:"show_timestamp"`
}

// FontsConfig controls typeface discovery.
type FontsConfig struct {
	// Regular is an explicit regular-weight font file.
	Regular string `toml:"regular,omitempty"`
	// Bold is an explicit bold font file.
	Bold string `toml:"bold,omitempty"`
	// Search lists glob patterns tried for the regular weight.
	Search []string `toml:"search"`
	// BoldSearch lists glob patterns tried for the bold weight.
	BoldSearch []string `toml:"bold_search"`
	// Fallback selects the built-in face: "go" or "basic".
	Fallback string `toml:"fallback"`
}

// ProbeConfig holds status probe settings.
type ProbeConfig struct {
	// TimeoutSeconds bounds resolve, connect and the status exchange.
	TimeoutSeconds float64 `toml:"timeout_seconds"`
}

// RefreshConfig holds webhook publisher settings.
type RefreshConfig struct {
	// WebhookURL is the chat webhook the card is posted to.
	WebhookURL string `toml:"webhook_url"`
	// BannerURL is the public URL of /banner.png.
	BannerURL string `toml:"banner_url"`
	// IntervalSeconds is the delay between edits.
	IntervalSeconds int `toml:"interval_seconds"`
	// EmbedTitle is the title of the embed carrying the image.
	EmbedTitle string `toml:"embed_title"`
	// Content is optional message text above the embed.
	Content string `toml:"content"`
	// StateFile persists the id of the managed message.
	StateFile string `toml:"state_file"`
	// MessageID pins an existing message, bypassing the state file.
	MessageID string `toml:"message_id,omitempty"`
	// WarmUp fetches the banner before each edit.
	WarmUp bool `toml:"warm_up"`
	// HTTPTimeoutSeconds bounds each webhook and warm-up request.
	HTTPTimeoutSeconds float64 `toml:"http_timeout_seconds"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error).
	Level string `toml:"level"`
	// File enables rotating file output instead of stderr.
	File string `toml:"file,omitempty"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:                  8080,
			RequestTimeoutSeconds: 10,
		},
		Target: TargetConfig{
			Address: "127.0.0.1:25565",
			Name:    "My Minecraft Server",
		},
		Card: CardConfig{
			Width:     900,
			Height:    240,
			Scale:     1,
			AccentHex: "#40E28C",
			BadHex:    "#E25656",
			IconFile:  paths.DefaultIconFile,
		},
		Display: DisplayConfig{
			ShowPort:      true,
			ShowMOTD:      true,
			ShowPing:      true,
			ShowVersion:   true,
			ShowPlayers:   true,
			ShowTimestamp: true,
		},
		Fonts: FontsConfig{
			Search:     append([]string(nil), paths.DefaultFontSearch...),
			BoldSearch: append([]string(nil), paths.DefaultBoldFontSearch...),
			Fallback:   "go",
		},
		Probe: ProbeConfig{
			TimeoutSeconds: 3,
		},
		Refresh: RefreshConfig{
			IntervalSeconds:    60,
			EmbedTitle:         "Server Status",
			StateFile:          paths.DefaultState(),
			WarmUp:             true,
			HTTPTimeoutSeconds: 15,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ///////////////////////////////////////////////
// Example Configuration
// ///////////////////////////////////////////////

// ExampleConfig returns a Config suitable for generating config.default.toml.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Refresh.WebhookURL = "https://discord.com/api/webhooks/<id>/<token>"
	cfg.Refresh.BannerURL = "https://banner.example.com/banner.png"
	return cfg
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads the TOML file at path over the defaults. An empty path or a
// missing file yields DefaultConfig. The result is not validated; environment
// overrides usually follow.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// validLogLevels is the set of accepted log level strings.
var validLogLevels = map[string]bool{
	"trace": true, "debug": true, "info": true, "warn": true, "warning": true, "error": true,
}

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > math.MaxUint16 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0, got %v", c.Server.RequestTimeoutSeconds)
	}

	if strings.TrimSpace(c.Target.Address) == "" {
		return fmt.Errorf("target.address must not be empty")
	}
	if c.Target.Port < 0 || c.Target.Port > math.MaxUint16 {
		return fmt.Errorf("target.port must be 0-65535, got %d", c.Target.Port)
	}

	if c.Card.Width <= 0 || c.Card.Height <= 0 {
		return fmt.Errorf("card size must be positive, got %dx%d", c.Card.Width, c.Card.Height)
	}
	if c.Card.Width > card.MaxDimension || c.Card.Height > card.MaxDimension {
		return fmt.Errorf("card size must not exceed %d, got %dx%d", card.MaxDimension, c.Card.Width, c.Card.Height)
	}
	if !(c.Card.Scale > 0) || math.IsInf(c.Card.Scale, 0) {
		return fmt.Errorf("card.scale must be > 0, got %v", c.Card.Scale)
	}
	canvas := card.Request{Width: c.Card.Width, Height: c.Card.Height, Multiplier: c.Card.Scale}
	if err := card.Validate(canvas); err != nil {
		return fmt.Errorf("card.width/height/scale: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	switch c.Fonts.Fallback {
	case "go", "basic":
	default:
		return fmt.Errorf("invalid fonts.fallback %q: must be go or basic", c.Fonts.Fallback)
	}

	if c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe.timeout_seconds must be > 0, got %v", c.Probe.TimeoutSeconds)
	}

	if c.Refresh.IntervalSeconds <= 0 {
		return fmt.Errorf("refresh.interval_seconds must be > 0, got %d", c.Refresh.IntervalSeconds)
	}
	if c.Refresh.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("refresh.http_timeout_seconds must be > 0, got %v", c.Refresh.HTTPTimeoutSeconds)
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log.level %q: must be trace, debug, info, warn, or error", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 {
		return fmt.Errorf("log.max_size_mb must be >= 0, got %d", c.Log.MaxSizeMB)
	}

	return nil
}

// ValidateRefresh checks the settings only the refresher needs.
func (c *Config) ValidateRefresh() error {
	if c.Refresh.WebhookURL == "" || c.Refresh.BannerURL == "" {
		return fmt.Errorf("set %s and %s", EnvWebhookURL, EnvBannerURL)
	}
	if c.Refresh.StateFile == "" {
		return fmt.Errorf("refresh.state_file must not be empty")
	}
	return nil
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

// Location returns the timestamp zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Card.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Card.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid card.timezone %q: %w", c.Card.Timezone, err)
	}
	return loc, nil
}

// RequestTimeout is the per-request deadline of the banner server.
func (c *Config) RequestTimeout() time.Duration {
	return seconds(c.Server.RequestTimeoutSeconds)
}

// ProbeTimeout is the deadline of one status probe.
func (c *Config) ProbeTimeout() time.Duration {
	return seconds(c.Probe.TimeoutSeconds)
}

// Interval is the refresher's edit period.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Refresh.IntervalSeconds) * time.Second
}

// HTTPTimeout bounds each refresher HTTP request.
func (c *Config) HTTPTimeout() time.Duration {
	return seconds(c.Refresh.HTTPTimeoutSeconds)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
