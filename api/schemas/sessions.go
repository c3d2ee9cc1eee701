package schemas

import "time"

// -- Session Schemas --

// SessionConfig is the configuration snapshot taken when a session opens.
// Zero values are filled from the daemon-wide browser defaults before the
// driver handle is constructed, so the stored snapshot always reflects what
// the driver actually received.
type SessionConfig struct {
	// ID is the caller-requested identifier; one is generated when empty.
	ID             string `json:"id,omitempty" mapstructure:"id"`
	Headless       bool   `json:"headless" mapstructure:"headless"`
	ViewportWidth  int    `json:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight int    `json:"viewport_height" mapstructure:"viewport_height"`
	// Browser selects a configured browser variant (e.g. "chrome",
	// "chromium"); the variant resolves to an executable path, if any.
	Browser   string `json:"browser,omitempty" mapstructure:"browser"`
	UserAgent string `json:"user_agent,omitempty" mapstructure:"user_agent"`
	// Proxy is an outbound proxy URL handed to the browser process.
	Proxy string `json:"proxy,omitempty" mapstructure:"proxy"`
}

// SessionSummary is the exported projection of a live session. It carries
// everything list callers need and nothing that could reach the driver
// handle.
type SessionSummary struct {
	ID         string        `json:"id"`
	CreatedAt  time.Time     `json:"created_at"`
	LastUsedAt time.Time     `json:"last_used_at"`
	Config     SessionConfig `json:"config"`
}

// ConsoleEntry is one captured browser console message. Entries live in a
// bounded per-session buffer that evicts oldest-first at capacity.
type ConsoleEntry struct {
	Level     string    `json:"level"`
	Text      string    `json:"text"`
	URL       string    `json:"url,omitempty"`
	Line      int64     `json:"line,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
