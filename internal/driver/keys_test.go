// File: internal/driver/keys_test.go
package driver

import (
	"testing"

	"github.com/chromedp/chromedp/kb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxkeys/puppetry/api/schemas"
)

func TestKeySequence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		key  string
		want string
	}{
		{"enter", "Enter", kb.Enter},
		{"tab", "Tab", kb.Tab},
		{"escape", "Escape", kb.Escape},
		{"backspace", "Backspace", kb.Backspace},
		{"arrow down", "ArrowDown", kb.ArrowDown},
		{"page up", "PageUp", kb.PageUp},
		{"case insensitive", "enter", kb.Enter},
		{"mixed case", "pageDown", kb.PageDown},
		{"single letter", "a", "a"},
		{"single rune", "ü", "ü"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := keySequence(tc.key)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestKeySequenceRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "Bogus", "ctrl+c", "F13"} {
		_, err := keySequence(key)
		require.Error(t, err, "key %q", key)
		assert.ErrorIs(t, err, schemas.ErrInvalidArgument)
	}
}
