// File: internal/driver/query_test.go
package driver

import (
	"reflect"
	"testing"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxkeys/puppetry/api/schemas"
)

// optionName resolves a chromedp query option back to its name through the
// function pointer, since QueryOption values cannot be compared directly.
func optionName(opt chromedp.QueryOption) string {
	switch reflect.ValueOf(opt).Pointer() {
	case reflect.ValueOf(chromedp.ByQuery).Pointer():
		return "ByQuery"
	case reflect.ValueOf(chromedp.BySearch).Pointer():
		return "BySearch"
	default:
		return "unknown"
	}
}

func TestBuildQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sel     schemas.Selector
		wantQ   string
		wantOpt string
	}{
		{"css", schemas.Selector{Using: schemas.ByCSS, Value: "#login > button"}, "#login > button", "ByQuery"},
		{"empty strategy defaults to css", schemas.Selector{Value: "div.row"}, "div.row", "ByQuery"},
		{"xpath", schemas.Selector{Using: schemas.ByXPath, Value: "//div[@id='x']"}, "//div[@id='x']", "BySearch"},
		{"id", schemas.Selector{Using: schemas.ByID, Value: "submit"}, "#submit", "ByQuery"},
		{"name", schemas.Selector{Using: schemas.ByName, Value: "email"}, `[name="email"]`, "ByQuery"},
		{"tag", schemas.Selector{Using: schemas.ByTag, Value: "textarea"}, "textarea", "ByQuery"},
		{"class", schemas.Selector{Using: schemas.ByClass, Value: "btn-primary"}, ".btn-primary", "ByQuery"},
		{"text", schemas.Selector{Using: schemas.ByText, Value: "Sign in"}, `//*[contains(text(), "Sign in")]`, "BySearch"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			q, opt, err := buildQuery(tc.sel)
			require.NoError(t, err)
			assert.Equal(t, tc.wantQ, q)
			assert.Equal(t, tc.wantOpt, optionName(opt))
		})
	}
}

func TestBuildQueryRejectsBadSelectors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sel  schemas.Selector
	}{
		{"empty value", schemas.Selector{Using: schemas.ByCSS}},
		{"blank value", schemas.Selector{Using: schemas.ByID, Value: "   "}},
		{"unknown strategy", schemas.Selector{Using: "glob", Value: "*"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := buildQuery(tc.sel)
			require.Error(t, err)
			assert.ErrorIs(t, err, schemas.ErrInvalidSelector)
		})
	}
}

func TestJSLocator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sel  schemas.Selector
		want string
	}{
		{"css", schemas.Selector{Using: schemas.ByCSS, Value: "select#country"},
			`document.querySelector("select#country")`},
		{"id", schemas.Selector{Using: schemas.ByID, Value: "country"},
			`document.getElementById("country")`},
		{"name", schemas.Selector{Using: schemas.ByName, Value: "country"},
			`(document.getElementsByName("country")[0] || null)`},
		{"tag", schemas.Selector{Using: schemas.ByTag, Value: "select"},
			`(document.getElementsByTagName("select")[0] || null)`},
		{"class", schemas.Selector{Using: schemas.ByClass, Value: "picker"},
			`(document.getElementsByClassName("picker")[0] || null)`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := jsLocator(tc.sel)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("xpath evaluates to first match", func(t *testing.T) {
		t.Parallel()
		got, err := jsLocator(schemas.Selector{Using: schemas.ByXPath, Value: "//select[1]"})
		require.NoError(t, err)
		assert.Equal(t,
			`document.evaluate("//select[1]", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue`,
			got)
	})

	t.Run("text builds a contains expression", func(t *testing.T) {
		t.Parallel()
		got, err := jsLocator(schemas.Selector{Using: schemas.ByText, Value: "Pick me"})
		require.NoError(t, err)
		assert.Contains(t, got, "document.evaluate(")
		assert.Contains(t, got, "Pick me")
		assert.Contains(t, got, "singleNodeValue")
	})

	t.Run("unknown strategy", func(t *testing.T) {
		t.Parallel()
		_, err := jsLocator(schemas.Selector{Using: "glob", Value: "*"})
		assert.ErrorIs(t, err, schemas.ErrInvalidSelector)
	})
}

func TestXPathLiteral(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"Sign in", `"Sign in"`},
		{"it's here", `"it's here"`},
		{`say "hi"`, `'say "hi"'`},
		{`it's "x"`, `concat("it's ", '"', "x", '"')`},
		{`"`, `'"'`},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, xpathLiteral(tc.in), "input %q", tc.in)
	}
}

func TestSelLabel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "'div.row'", selLabel(schemas.Selector{Using: schemas.ByCSS, Value: "div.row"}))
	assert.Equal(t, "'div.row'", selLabel(schemas.Selector{Value: "div.row"}))
	assert.Equal(t, "xpath '//a'", selLabel(schemas.Selector{Using: schemas.ByXPath, Value: "//a"}))
}
