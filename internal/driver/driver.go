// File: internal/driver/driver.go

// Package driver abstracts the browser automation backend behind a narrow
// per-session interface. The production implementation owns one Chrome
// process per handle and speaks the DevTools protocol through chromedp;
// tests substitute the doubles from the mocks package.
package driver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
)

// ConsoleFunc receives console messages, log entries, and uncaught exceptions
// emitted by the page. It is invoked from the driver's event goroutine and
// must not block.
type ConsoleFunc func(schemas.ConsoleEntry)

// Config describes one browser instance. Zero values fall back to the
// backend's defaults.
type Config struct {
	Headless        bool
	ViewportWidth   int
	ViewportHeight  int
	UserAgent       string
	Proxy           string
	IgnoreTLSErrors bool
	// ExecPath points at the browser executable; empty lets the backend
	// locate the system installation.
	ExecPath string
	// Args are extra command line switches, with or without the leading
	// dashes, in "name" or "name=value" form.
	Args []string
}

// Driver is the per-session automation handle. One handle drives exactly one
// browser instance, and it is not safe for concurrent use; the session layer
// serializes access. Every method observes ctx for cancellation and deadline,
// and failures come back classified into the schemas error taxonomy.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, sel schemas.Selector) error
	DoubleClick(ctx context.Context, sel schemas.Selector) error
	RightClick(ctx context.Context, sel schemas.Selector) error
	Hover(ctx context.Context, sel schemas.Selector) error
	DragAndDrop(ctx context.Context, source, target schemas.Selector) error
	// SendKeys types text into the matched element, appending to any existing
	// value.
	SendKeys(ctx context.Context, sel schemas.Selector, text string) error
	// PressKey dispatches a single named key ("Enter", "Tab", "ArrowDown", a
	// lone character, ...). A nil selector targets the focused element.
	PressKey(ctx context.Context, sel *schemas.Selector, key string) error
	// SelectOption picks the option of a select element whose value, label,
	// or visible text equals option, then fires input and change events.
	SelectOption(ctx context.Context, sel schemas.Selector, option string) error
	// Scroll brings the matched element into view, or scrolls the page down
	// by most of a viewport when sel is nil.
	Scroll(ctx context.Context, sel *schemas.Selector) error
	// Wait blocks for the duration or until ctx or the session ends.
	Wait(ctx context.Context, d time.Duration) error
	// ExecuteScript evaluates script in the page and returns the
	// JSON-encoded result, "" when the script yields undefined. Args are
	// exposed to the script through the arguments object.
	ExecuteScript(ctx context.Context, script string, args []any) (string, error)
	// Screenshot captures the current viewport as base64-encoded PNG.
	Screenshot(ctx context.Context) (string, error)
	Text(ctx context.Context, sel schemas.Selector) (string, error)
	Title(ctx context.Context) (string, error)
	CurrentURL(ctx context.Context) (string, error)
	// Close tears down the browser instance. Idempotent.
	Close() error
}

// Factory constructs the Driver for a freshly opened session. Production
// wiring passes ChromeFactory; tests inject a mock factory.
type Factory func(ctx context.Context, cfg Config, logger *zap.Logger, onConsole ConsoleFunc) (Driver, error)
