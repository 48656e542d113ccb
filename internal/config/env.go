// Environment overrides for the TOML config.
//
// Resolve layers a .env file under the process environment and applies the
// SERVERCARD_* variables on top of the loaded file. Malformed values are
// collected and reported together.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"tools.zach/dev/servercard/internal/paths"
)

// Environment variable names.
const (
	EnvConfigPath     = "SERVERCARD_CONFIG"
	EnvPort           = "PORT"
	EnvServerAddress  = "SERVER_ADDRESS"
	EnvServerName     = "SERVER_NAME"
	EnvServerPort     = "SERVER_PORT"
	EnvAccentHex      = "ACCENT_HEX"
	EnvBadHex         = "BAD_HEX"
	EnvIconFile       = "ICON_FILE"
	EnvCanvasWidth    = "CANVAS_WIDTH"
	EnvCanvasHeight   = "CANVAS_HEIGHT"
	EnvScale          = "SCALE"
	EnvShowPort       = "SHOW_PORT"
	EnvShowMOTD       = "SHOW_MOTD"
	EnvShowPing       = "SHOW_PING"
	EnvShowVersion    = "SHOW_VERSION"
	EnvShowPlayers    = "SHOW_PLAYERS"
	EnvShowTimestamp  = "SHOW_TIMESTAMP"
	EnvFontRegular    = "FONT_REGULAR"
	EnvFontBold       = "FONT_BOLD"
	EnvFontSearch     = "FONT_SEARCH"
	EnvFontFallback   = "FONT_FALLBACK"
	EnvTimezone       = "TIMEZONE"
	EnvProbeTimeout   = "PROBE_TIMEOUT"
	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvLogLevel       = "LOG_LEVEL"
	EnvLogFile        = "LOG_FILE"
	EnvWebhookURL     = "WEBHOOK_URL"
	EnvBannerURL      = "BANNER_URL"
	EnvInterval       = "INTERVAL"
	EnvEmbedTitle     = "EMBED_TITLE"
	EnvContent        = "CONTENT"
	EnvStateFile      = "STATE_FILE"
	EnvMessageID      = "MESSAGE_ID"
)

// LookupFunc reports the value of an environment variable. [os.LookupEnv]
// satisfies it.
type LookupFunc func(key string) (string, bool)

// Options controls [Resolve].
type Options struct {
	// File is the TOML config path. Empty falls back to $SERVERCARD_CONFIG,
	// then ./servercard.toml when present.
	File string
	// EnvFile is a dotenv file whose values sit below the real environment.
	// Empty means ./.env; a missing file is ignored.
	EnvFile string
	// Lookup reads the environment; nil means os.LookupEnv.
	Lookup LookupFunc
}

// Resolve builds the effective configuration from every layer and
// validates it.
func Resolve(opts Options) (*Config, error) {
	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = paths.EnvFile
	}
	dotenv, err := readDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	lookup = layered(lookup, dotenv)

	path := opts.File
	if path == "" {
		if v, ok := lookup(EnvConfigPath); ok {
			path = v
		} else if _, statErr := os.Stat(paths.ConfigFile); statErr == nil {
			path = paths.ConfigFile
		}
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// readDotEnv parses a dotenv file without touching the process environment.
func readDotEnv(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read env file %s: %w", path, err)
	}
	return values, nil
}

func layered(primary LookupFunc, fallback map[string]string) LookupFunc {
	if len(fallback) == 0 {
		return primary
	}
	return func(key string) (string, bool) {
		if v, ok := primary(key); ok {
			return v, true
		}
		v, ok := fallback[key]
		return v, ok
	}
}

// ///////////////////////////////////////////////
// Environment Overrides
// ///////////////////////////////////////////////

// ApplyEnv overlays environment variables onto c. Unset variables leave the
// current value alone; malformed values are an error naming the variable.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	e.setInt(EnvPort, &c.Server.Port)
	e.setSeconds(EnvRequestTimeout, &c.Server.RequestTimeoutSeconds)

	e.setString(EnvServerAddress, &c.Target.Address)
	e.setString(EnvServerName, &c.Target.Name)
	e.setInt(EnvServerPort, &c.Target.Port)

	e.setInt(EnvCanvasWidth, &c.Card.Width)
	e.setInt(EnvCanvasHeight, &c.Card.Height)
	e.setFloat(EnvScale, &c.Card.Scale)
	e.setString(EnvAccentHex, &c.Card.AccentHex)
	e.setString(EnvBadHex, &c.Card.BadHex)
	e.setString(EnvIconFile, &c.Card.IconFile)
	e.setString(EnvTimezone, &c.Card.Timezone)

	e.setBool(EnvShowPort, &c.Display.ShowPort)
	e.setBool(EnvShowMOTD, &c.Display.ShowMOTD)
	e.setBool(EnvShowPing, &c.Display.ShowPing)
	e.setBool(EnvShowVersion, &c.Display.ShowVersion)
	e.setBool(EnvShowPlayers, &c.Display.ShowPlayers)
	e.setBool(EnvShowTimestamp, &c.Display.ShowTimestamp)

	e.setString(EnvFontRegular, &c.Fonts.Regular)
	e.setString(EnvFontBold, &c.Fonts.Bold)
	e.setList(EnvFontSearch, &c.Fonts.Search)
	e.setString(EnvFontFallback, &c.Fonts.Fallback)

	e.setSeconds(EnvProbeTimeout, &c.Probe.TimeoutSeconds)

	e.setString(EnvWebhookURL, &c.Refresh.WebhookURL)
	e.setString(EnvBannerURL, &c.Refresh.BannerURL)
	e.setInt(EnvInterval, &c.Refresh.IntervalSeconds)
	e.setString(EnvEmbedTitle, &c.Refresh.EmbedTitle)
	e.setString(EnvContent, &c.Refresh.Content)
	e.setString(EnvStateFile, &c.Refresh.StateFile)
	e.setString(EnvMessageID, &c.Refresh.MessageID)

	e.setString(EnvLogLevel, &c.Log.Level)
	e.setString(EnvLogFile, &c.Log.File)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envReader) fail(key, v string, err error) {
	e.errs = append(e.errs, fmt.Errorf("invalid %s=%q: %w", key, v, err))
}

func (e *envReader) setString(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) setInt(key string, dst *int) {
	v, ok := e.get(key)
	if !ok || v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = n
}

func (e *envReader) setFloat(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok || v == "" {
		return
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = f
}

// setSeconds accepts plain seconds ("2.5") or a Go duration ("1500ms").
func (e *envReader) setSeconds(key string, dst *float64) {
	v, ok := e.get(key)
	if !ok || v == "" {
		return
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		*dst = f
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = d.Seconds()
}

func (e *envReader) setBool(key string, dst *bool) {
	v, ok := e.get(key)
	if !ok || v == "" {
		return
	}
	b, err := ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return
	}
	*dst = b
}

// setList splits a comma-separated value, dropping empty entries.
func (e *envReader) setList(key string, dst *[]string) {
	v, ok := e.get(key)
	if !ok || v == "" {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// ParseBool extends strconv.ParseBool with yes/no and on/off.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// BoldFont returns the explicit bold font, or the "-Bold" sibling of the
// explicit regular font when such a file exists.
func (c *Config) BoldFont() string {
	if c.Fonts.Bold != "" || c.Fonts.Regular == "" {
		return c.Fonts.Bold
	}
	candidate := paths.BoldVariant(c.Fonts.Regular)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return ""
}
