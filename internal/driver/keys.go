// File: internal/driver/keys.go
package driver

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/chromedp/chromedp/kb"

	"github.com/vxkeys/puppetry/api/schemas"
)

// namedKeys maps the key names accepted by the press_key action to the
// DevTools key sequences chromedp expects.
var namedKeys = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Escape":     kb.Escape,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"Insert":     kb.Insert,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"Home":       kb.Home,
	"End":        kb.End,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
}

// keySequence resolves a key name to the sequence passed to SendKeys.
// Named keys match case-insensitively; any single rune is sent as-is.
func keySequence(key string) (string, error) {
	if seq, ok := namedKeys[key]; ok {
		return seq, nil
	}
	for name, seq := range namedKeys {
		if strings.EqualFold(name, key) {
			return seq, nil
		}
	}
	if utf8.RuneCountInString(key) == 1 {
		return key, nil
	}
	return "", fmt.Errorf("%w: unsupported key %q", schemas.ErrInvalidArgument, key)
}
