// File: internal/driver/chrome.go
package driver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	cdplog "github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
)

const (
	// navigateSettleTimeout bounds the post-navigation readiness wait.
	navigateSettleTimeout = 5 * time.Second
	// closeGraceTimeout bounds how long Close waits for the browser
	// process to exit on its own before forcing teardown.
	closeGraceTimeout = 5 * time.Second
)

// Chrome drives one Chrome process over the DevTools protocol. Every
// instance owns its own allocator so per-session flags such as proxies and
// user agents apply to exactly one browser.
type Chrome struct {
	logger      *zap.Logger
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	closeOnce   sync.Once
}

var _ Driver = (*Chrome)(nil)

// ChromeFactory builds Chrome-backed drivers. It satisfies Factory.
func ChromeFactory(ctx context.Context, cfg Config, logger *zap.Logger, onConsole ConsoleFunc) (Driver, error) {
	return NewChrome(ctx, cfg, logger, onConsole)
}

// NewChrome launches a browser process and attaches to a fresh tab. The
// context bounds the launch only; the browser lives until Close.
func NewChrome(ctx context.Context, cfg Config, logger *zap.Logger, onConsole ConsoleFunc) (*Chrome, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(cfg)...)
	browserCtx, cancel := chromedp.NewContext(allocCtx)

	c := &Chrome{
		logger:      logger,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      cancel,
	}

	// The first run starts the process and materializes the target; the
	// console listener needs the target to exist before it attaches.
	if err := c.run(ctx, runtime.Enable(), cdplog.Enable()); err != nil {
		cancel()
		allocCancel()
		return nil, classify(fmt.Errorf("launching browser: %w", err))
	}
	if onConsole != nil {
		c.listenConsole(onConsole)
	}
	c.logger.Debug("browser launched",
		zap.Bool("headless", cfg.Headless),
		zap.String("proxy", cfg.Proxy),
	)
	return c, nil
}

// run executes actions against the target, bounded by both the browser
// lifetime and the caller's deadline.
func (c *Chrome) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := combineContext(c.ctx, ctx)
	defer cancel()
	err := chromedp.Run(runCtx, actions...)
	if err == nil {
		return nil
	}
	// chromedp reports cancellation of the combined context as plain
	// context.Canceled, which hides whether the caller's deadline fired or
	// the browser went away. Recover the original cause.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if c.ctx.Err() != nil {
		return schemas.ErrSessionNotFound
	}
	return err
}

func (c *Chrome) Navigate(ctx context.Context, url string) error {
	if err := c.run(ctx, chromedp.Navigate(url)); err != nil {
		return classify(fmt.Errorf("navigating to %s: %w", url, err))
	}
	// Pages with long-polling or busy SPAs may never fire load events, so
	// readiness of the document body is best effort.
	settleCtx, cancel := context.WithTimeout(ctx, navigateSettleTimeout)
	defer cancel()
	if err := c.run(settleCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		c.logger.Debug("page did not settle after navigation",
			zap.String("url", url), zap.Error(err))
	}
	return nil
}

func (c *Chrome) Click(ctx context.Context, sel schemas.Selector) error {
	q, opt, err := buildQuery(sel)
	if err != nil {
		return err
	}
	err = c.run(ctx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.Click(q, opt),
	)
	if err != nil {
		return classify(fmt.Errorf("clicking %s: %w", selLabel(sel), err))
	}
	return nil
}

func (c *Chrome) DoubleClick(ctx context.Context, sel schemas.Selector) error {
	q, opt, err := buildQuery(sel)
	if err != nil {
		return err
	}
	err = c.run(ctx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.DoubleClick(q, opt),
	)
	if err != nil {
		return classify(fmt.Errorf("double clicking %s: %w", selLabel(sel), err))
	}
	return nil
}

func (c *Chrome) RightClick(ctx context.Context, sel schemas.Selector) error {
	q, opt, err := buildQuery(sel)
	if err != nil {
		return err
	}
	var nodes []*cdp.Node
	err = c.run(ctx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.Nodes(q, &nodes, opt),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return chromedp.ErrNoResults
			}
			return chromedp.MouseClickNode(nodes[0], chromedp.Button("right")).Do(ctx)
		}),
	)
	if err != nil {
		return classify(fmt.Errorf("right clicking %s: %w", selLabel(sel), err))
	}
	return nil
}

func (c *Chrome) Hover(ctx context.Context, sel schemas.Selector) error {
	q, opt, err := buildQuery(sel)
	if err != nil {
		return err
	}
	var nodes []*cdp.Node
	err = c.run(ctx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.Nodes(q, &nodes, opt),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(nodes) == 0 {
				return chromedp.ErrNoResults
			}
			x, y, err := nodeCenter(ctx, nodes[0])
			if err != nil {
				return err
			}
			return chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx)
		}),
	)
	if err != nil {
		return classify(fmt.Errorf("hovering over %s: %w", selLabel(sel), err))
	}
	return nil
}

func (c *Chrome) DragAndDrop(ctx context.Context, source, target schemas.Selector) error {
	sq, sopt, err := buildQuery(source)
	if err != nil {
		return err
	}
	tq, topt, err := buildQuery(target)
	if err != nil {
		return err
	}
	var src, dst []*cdp.Node
	err = c.run(ctx,
		chromedp.ScrollIntoView(sq, sopt),
		chromedp.WaitVisible(sq, sopt),
		chromedp.Nodes(sq, &src, sopt),
		chromedp.Nodes(tq, &dst, topt),
		chromedp.ActionFunc(func(ctx context.Context) error {
			if len(src) == 0 || len(dst) == 0 {
				return chromedp.ErrNoResults
			}
			sx, sy, err := nodeCenter(ctx, src[0])
			if err != nil {
				return err
			}
			tx, ty, err := nodeCenter(ctx, dst[0])
			if err != nil {
				return err
			}
			return dragPath(ctx, sx, sy, tx, ty)
		}),
	)
	if err != nil {
		return classify(fmt.Errorf("dragging %s to %s: %w", selLabel(source), selLabel(target), err))
	}
	return nil
}

// dragPath presses at the start point, walks the pointer across a few
// intermediate positions so drag handlers observe movement, and releases.
func dragPath(ctx context.Context, sx, sy, tx, ty float64) error {
	err := chromedp.MouseEvent(input.MousePressed, sx, sy,
		chromedp.Button("left"), chromedp.ClickCount(1)).Do(ctx)
	if err != nil {
		return err
	}
	const steps = 6
	for i := 1; i <= steps; i++ {
		f := float64(i) / steps
		x := sx + (tx-sx)*f
		y := sy + (ty-sy)*f
		if err := chromedp.MouseEvent(input.MouseMoved, x, y).Do(ctx); err != nil {
			return err
		}
	}
	return chromedp.MouseEvent(input.MouseReleased, tx, ty,
		chromedp.Button("left"), chromedp.ClickCount(1)).Do(ctx)
}

func (c *Chrome) SendKeys(ctx context.Context, sel schemas.Selector, text string) error {
	q, opt, err := buildQuery(sel)
	if err != nil {
		return err
	}
	err = c.run(ctx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.SendKeys(q, text, opt),
	)
	if err != nil {
		return classify(fmt.Errorf("typing into %s: %w", selLabel(sel), err))
	}
	return nil
}

func (c *Chrome) PressKey(ctx context.Context, sel *schemas.Selector, key string) error {
	seq, err := keySequence(key)
	if err != nil {
		return err
	}
	if sel == nil {
		// Deliver to whichever element currently holds focus.
		err = c.run(ctx, chromedp.SendKeys("document.activeElement", seq, chromedp.ByJSPath))
		if err != nil {
			return classify(fmt.Errorf("pressing %q: %w", key, err))
		}
		return nil
	}
	q, opt, err := buildQuery(*sel)
	if err != nil {
		return err
	}
	err = c.run(ctx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.SendKeys(q, seq, opt),
	)
	if err != nil {
		return classify(fmt.Errorf("pressing %q on %s: %w", key, selLabel(*sel), err))
	}
	return nil
}

// selectOptionScript resolves an option by value first, then by visible
// label, and fires the events frameworks listen for.
const selectOptionScript = `(() => {
	const el = %s;
	if (!el) { return "missing"; }
	const want = %s;
	const options = Array.from(el.options || []);
	const match = options.find(o => o.value === want)
		|| options.find(o => o.label === want || o.text === want);
	if (!match) { return "nomatch"; }
	el.value = match.value;
	el.dispatchEvent(new Event("input", { bubbles: true }));
	el.dispatchEvent(new Event("change", { bubbles: true }));
	return "ok";
})()`

func (c *Chrome) SelectOption(ctx context.Context, sel schemas.Selector, option string) error {
	q, opt, err := buildQuery(sel)
	if err != nil {
		return err
	}
	locator, err := jsLocator(sel)
	if err != nil {
		return err
	}
	script := fmt.Sprintf(selectOptionScript, locator, jsString(option))
	var status string
	err = c.run(ctx,
		chromedp.ScrollIntoView(q, opt),
		chromedp.WaitVisible(q, opt),
		chromedp.Evaluate(script, &status),
	)
	if err != nil {
		return classify(fmt.Errorf("selecting %q in %s: %w", option, selLabel(sel), err))
	}
	switch status {
	case "ok":
		return nil
	case "missing":
		return fmt.Errorf("%w: %s", schemas.ErrElementNotFound, selLabel(sel))
	case "nomatch":
		return fmt.Errorf("%w: %s has no option %q", schemas.ErrElementNotFound, selLabel(sel), option)
	default:
		return fmt.Errorf("%w: unexpected select status %q", schemas.ErrScriptExecution, status)
	}
}

// pageScrollScript advances the viewport by most of one screen so that
// consecutive scrolls overlap slightly.
const pageScrollScript = `window.scrollBy(0, Math.max(200, Math.floor(window.innerHeight * 0.8)))`

func (c *Chrome) Scroll(ctx context.Context, sel *schemas.Selector) error {
	if sel == nil {
		if err := c.run(ctx, chromedp.Evaluate(pageScrollScript, nil)); err != nil {
			return classify(fmt.Errorf("scrolling page: %w", err))
		}
		return nil
	}
	q, opt, err := buildQuery(*sel)
	if err != nil {
		return err
	}
	if err := c.run(ctx, chromedp.ScrollIntoView(q, opt)); err != nil {
		return classify(fmt.Errorf("scrolling to %s: %w", selLabel(*sel), err))
	}
	return nil
}

func (c *Chrome) Wait(ctx context.Context, d time.Duration) error {
	if err := c.run(ctx, chromedp.Sleep(d)); err != nil {
		return classify(err)
	}
	return nil
}

func (c *Chrome) ExecuteScript(ctx context.Context, script string, args []any) (string, error) {
	var raw []byte
	var err error
	if len(args) == 0 {
		err = c.run(ctx, chromedp.Evaluate(script, &raw))
	} else {
		// Wrapping in a function exposes the caller's values through the
		// standard arguments object.
		decl := "function() { " + script + " }"
		err = c.run(ctx, chromedp.CallFunctionOn(decl, &raw, nil, args...))
	}
	if err != nil {
		return "", classify(fmt.Errorf("evaluating script: %w", err))
	}
	return string(raw), nil
}

func (c *Chrome) Screenshot(ctx context.Context) (string, error) {
	var buf []byte
	if err := c.run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", classify(fmt.Errorf("capturing screenshot: %w", err))
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func (c *Chrome) Text(ctx context.Context, sel schemas.Selector) (string, error) {
	q, opt, err := buildQuery(sel)
	if err != nil {
		return "", err
	}
	var out string
	if err := c.run(ctx, chromedp.Text(q, &out, opt)); err != nil {
		return "", classify(fmt.Errorf("reading text of %s: %w", selLabel(sel), err))
	}
	return out, nil
}

func (c *Chrome) Title(ctx context.Context) (string, error) {
	var title string
	if err := c.run(ctx, chromedp.Title(&title)); err != nil {
		return "", classify(err)
	}
	return title, nil
}

func (c *Chrome) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	if err := c.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", classify(err)
	}
	return loc, nil
}

// Close shuts the browser down. The first call waits briefly for a clean
// process exit; later calls are no-ops.
func (c *Chrome) Close() error {
	c.closeOnce.Do(func() {
		done := make(chan struct{})
		go func() {
			chromedp.Cancel(c.ctx)
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(closeGraceTimeout):
			c.logger.Warn("browser did not exit in time, forcing teardown")
		}
		c.cancel()
		c.allocCancel()
	})
	return nil
}

// listenConsole forwards console API calls, log entries and uncaught
// exceptions from the target into the session's console sink.
func (c *Chrome) listenConsole(onConsole ConsoleFunc) {
	chromedp.ListenTarget(c.ctx, func(ev any) {
		switch e := ev.(type) {
		case *runtime.EventConsoleAPICalled:
			entry := schemas.ConsoleEntry{
				Level:     normalizeConsoleLevel(string(e.Type)),
				Text:      consoleText(e.Args),
				Timestamp: time.Now().UTC(),
			}
			if e.StackTrace != nil && len(e.StackTrace.CallFrames) > 0 {
				entry.URL = e.StackTrace.CallFrames[0].URL
				entry.Line = e.StackTrace.CallFrames[0].LineNumber
			}
			onConsole(entry)
		case *runtime.EventExceptionThrown:
			if e.ExceptionDetails == nil {
				return
			}
			onConsole(schemas.ConsoleEntry{
				Level:     "error",
				Text:      e.ExceptionDetails.Error(),
				URL:       e.ExceptionDetails.URL,
				Line:      e.ExceptionDetails.LineNumber,
				Timestamp: time.Now().UTC(),
			})
		case *cdplog.EventEntryAdded:
			if e.Entry == nil {
				return
			}
			onConsole(schemas.ConsoleEntry{
				Level:     normalizeConsoleLevel(string(e.Entry.Level)),
				Text:      e.Entry.Text,
				URL:       e.Entry.URL,
				Line:      e.Entry.LineNumber,
				Timestamp: time.Now().UTC(),
			})
		}
	})
}

// consoleText flattens console call arguments into one line. Primitive
// values render through their JSON form; everything else falls back to the
// protocol description.
func consoleText(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		if len(arg.Value) > 0 {
			var v any
			if err := json.Unmarshal(arg.Value, &v); err == nil {
				parts = append(parts, fmt.Sprintf("%v", v))
				continue
			}
		}
		if arg.Description != "" {
			parts = append(parts, arg.Description)
			continue
		}
		parts = append(parts, "["+string(arg.Type)+"]")
	}
	return strings.Join(parts, " ")
}

func normalizeConsoleLevel(level string) string {
	switch level {
	case "warning", "warn":
		return "warn"
	case "error", "assert":
		return "error"
	case "debug", "verbose", "trace":
		return "debug"
	default:
		return "info"
	}
}

// nodeCenter returns the centroid of the node's content box.
func nodeCenter(ctx context.Context, n *cdp.Node) (float64, float64, error) {
	box, err := dom.GetBoxModel().WithNodeID(n.NodeID).Do(ctx)
	if err != nil {
		return 0, 0, err
	}
	if box == nil || len(box.Content) < 8 {
		return 0, 0, chromedp.ErrInvalidBoxModel
	}
	var x, y float64
	for i := 0; i < 8; i += 2 {
		x += box.Content[i]
		y += box.Content[i+1]
	}
	return x / 4, y / 4, nil
}
