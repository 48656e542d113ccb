// Package paths centralizes file and directory names used across the project.
// All default file locations are defined here as the single source of truth.
package paths

import (
	"path/filepath"
	"strings"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Default file names.
const (
	ConfigFile = "servercard.toml"
	EnvFile    = ".env"
	StateFile  = "message_id.txt"
	LockExt    = ".lock"
	LogFile    = "servercard.log"
)

// Default absolute locations used by the container image.
const (
	DefaultStateDir = "/state"
	DefaultIconFile = "/app/assets/icon.png"
)

// DefaultFontSearch lists the glob patterns tried when no explicit font file
// is configured. The first match wins.
var DefaultFontSearch = []string{
	"/usr/share/fonts/**/DejaVuSans.ttf",
	"/usr/local/share/fonts/**/DejaVuSans.ttf",
}

// DefaultBoldFontSearch is the bold counterpart of [DefaultFontSearch].
var DefaultBoldFontSearch = []string{
	"/usr/share/fonts/**/DejaVuSans-Bold.ttf",
	"/usr/local/share/fonts/**/DejaVuSans-Bold.ttf",
}

// ///////////////////////////////////////////////
// State Paths
// ///////////////////////////////////////////////

// DefaultState returns the default message-id state file path.
func DefaultState() string { return filepath.Join(DefaultStateDir, StateFile) }

// Lock returns the advisory lock file that guards a state file.
func Lock(statePath string) string { return statePath + LockExt }

// BoldVariant derives the conventional bold sibling of a regular font path:
// "DejaVuSans.ttf" -> "DejaVuSans-Bold.ttf". Returns "" when path is empty.
func BoldVariant(path string) string {
	if path == "" {
		return ""
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + "-Bold" + ext
}
