// Field documentation used by cmd/genconfig to render the example config.

package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "card.accent_hex")
// to their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	// ── Server ───────────────────────────────────────────────────
	"server": {
		Comment: "Banner HTTP server. Env: PORT, REQUEST_TIMEOUT",
	},
	"server.port": {
		Comment: "Listen port for /banner.png",
	},
	"server.request_timeout_seconds": {
		Comment: "Deadline for a whole banner request, probe included",
	},

	// ── Target ───────────────────────────────────────────────────
	"target": {
		Comment: "Default game server. Requests may override with ?address= and ?name=\nEnv: SERVER_ADDRESS, SERVER_NAME, SERVER_PORT",
	},
	"target.address": {
		Comment: "host or host:port. Without a port the _minecraft._tcp SRV record is tried, then 25565.",
		Alternatives: []string{
			`address = "play.example.net"`,
		},
	},
	"target.name": {
		Comment: "Title drawn on the card",
	},
	"target.port": {
		Comment: "Appended to address when it has no port (0 = leave as-is)",
	},

	// ── Card ─────────────────────────────────────────────────────
	"card": {
		Comment: "Canvas and theme. Env: CANVAS_WIDTH, CANVAS_HEIGHT, SCALE, ACCENT_HEX, BAD_HEX, ICON_FILE, TIMEZONE",
	},
	"card.width": {
		Comment: "Output size in pixels. The 900x240 layout is scaled uniformly to fit\nand centred, so other aspect ratios are letterboxed.",
		Alternatives: []string{
			`width = 1800`,
		},
	},
	"card.height": {
		Alternatives: []string{
			`height = 480`,
		},
	},
	"card.scale": {
		Comment: "Extra multiplier on top of the fit-to-canvas scale",
	},
	"card.accent_hex": {
		Comment: "Online chip and player bar colour (6 hex digits, # optional).\nInvalid values fall back to #40E28C.",
	},
	"card.bad_hex": {
		Comment: "Offline chip colour",
	},
	"card.icon_file": {
		Comment: "Icon shown when the server sends no favicon. A missing file draws a placeholder.",
	},
	"card.timezone": {
		Comment: "IANA time zone for the timestamp. Empty uses the host zone.",
		Alternatives: []string{
			`timezone = "Europe/Berlin"`,
		},
	},

	// ── Display ──────────────────────────────────────────────────
	"display": {
		Comment: "Card elements. Env: SHOW_PORT, SHOW_MOTD, SHOW_PING, SHOW_VERSION, SHOW_PLAYERS, SHOW_TIMESTAMP",
	},
	"display.show_port": {
		Comment: "Keep the :port suffix in the address line",
	},
	"display.show_motd": {
		Comment: "Message of the day under the player bar",
	},
	"display.show_ping": {
		Comment: "Latency in the address line",
	},
	"display.show_version": {
		Comment: "Server version in the address line",
	},
	"display.show_players": {
		Comment: "Player count and bar",
	},
	"display.show_timestamp": {
		Comment: "Render time in the bottom-right corner",
	},

	// ── Fonts ────────────────────────────────────────────────────
	"fonts": {
		Comment: "Typefaces. Explicit files win, then the search globs, then the built-in fallback.\nEnv: FONT_REGULAR, FONT_BOLD, FONT_SEARCH (comma-separated), FONT_FALLBACK",
	},
	"fonts.regular": {
		Comment: "TTF, OTF, WOFF or WOFF2 file for body text",
		Alternatives: []string{
			`regular = "/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"`,
		},
	},
	"fonts.bold": {
		Comment: "Title font. Defaults to the -Bold sibling of regular when it exists.",
		Alternatives: []string{
			`bold = "/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"`,
		},
	},
	"fonts.search": {
		Comment: "Glob patterns (** supported) tried in order for the regular face",
	},
	"fonts.bold_search": {},
	"fonts.fallback": {
		Comment: "Built-in face when nothing is found. Options: \"go\", \"basic\"\n  go:    embedded Go fonts, scalable\n  basic: fixed 7x13 bitmap, ignores scale",
		Alternatives: []string{
			`fallback = "basic"`,
		},
	},

	// ── Probe ────────────────────────────────────────────────────
	"probe": {
		Comment: "Status probe. Env: PROBE_TIMEOUT",
	},
	"probe.timeout_seconds": {
		Comment: "Resolve, connect and status exchange deadline. On expiry the card shows OFFLINE.",
	},

	// ── Refresh ──────────────────────────────────────────────────
	"refresh": {
		Comment: "Webhook refresher (servercard-refresh).\nEnv: WEBHOOK_URL, BANNER_URL, INTERVAL, EMBED_TITLE, CONTENT, STATE_FILE, MESSAGE_ID",
	},
	"refresh.webhook_url": {
		Comment: "Required. Webhook the status message is posted through.",
	},
	"refresh.banner_url": {
		Comment: "Required. Public URL of /banner.png; a ?v=<unix time> cache buster is appended.",
	},
	"refresh.interval_seconds": {
		Comment: "Seconds between edits",
	},
	"refresh.embed_title": {},
	"refresh.content": {
		Comment: "Optional message text. Mentions are never pinged.",
	},
	"refresh.state_file": {
		Comment: "Stores the managed message id. Edits to this file are picked up live.",
	},
	"refresh.message_id": {
		Comment: "Pin an existing message instead of the state file.",
		Alternatives: []string{
			`message_id = "123456789012345678"`,
		},
	},
	"refresh.warm_up": {
		Comment: "Fetch the banner once before each edit so it is rendered fresh",
	},
	"refresh.http_timeout_seconds": {
		Comment: "Timeout for each webhook and warm-up request",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Env: LOG_LEVEL, LOG_FILE",
	},
	"log.level": {
		Comment: "Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
		},
	},
	"log.file": {
		Comment: "Write logs to a rotating file instead of stderr.",
		Alternatives: []string{
			`file = "/var/log/servercard.log"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Rotate the log file at this size",
	},
}
