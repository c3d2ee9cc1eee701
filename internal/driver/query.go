// File: internal/driver/query.go
package driver

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chromedp/chromedp"

	"github.com/vxkeys/puppetry/api/schemas"
)

// buildQuery maps a selector onto a chromedp query. Strategies expressible as
// CSS compile down to querySelector form; xpath and text ride the DevTools
// search API, which accepts XPath expressions.
func buildQuery(sel schemas.Selector) (string, chromedp.QueryOption, error) {
	if strings.TrimSpace(sel.Value) == "" {
		return "", nil, fmt.Errorf("%w: empty selector value", schemas.ErrInvalidSelector)
	}
	switch sel.Using {
	case schemas.ByCSS, "":
		return sel.Value, chromedp.ByQuery, nil
	case schemas.ByXPath:
		return sel.Value, chromedp.BySearch, nil
	case schemas.ByID:
		return "#" + sel.Value, chromedp.ByQuery, nil
	case schemas.ByName:
		return fmt.Sprintf("[name=%q]", sel.Value), chromedp.ByQuery, nil
	case schemas.ByTag:
		return sel.Value, chromedp.ByQuery, nil
	case schemas.ByClass:
		return "." + sel.Value, chromedp.ByQuery, nil
	case schemas.ByText:
		return "//*[contains(text(), " + xpathLiteral(sel.Value) + ")]", chromedp.BySearch, nil
	default:
		return "", nil, fmt.Errorf("%w: unknown strategy %q", schemas.ErrInvalidSelector, sel.Using)
	}
}

// jsLocator compiles a selector into a JavaScript expression that yields the
// first matching element or null. Used where an action must reach the element
// from inside page script instead of through a DevTools node query.
func jsLocator(sel schemas.Selector) (string, error) {
	if strings.TrimSpace(sel.Value) == "" {
		return "", fmt.Errorf("%w: empty selector value", schemas.ErrInvalidSelector)
	}
	quoted := jsString(sel.Value)
	switch sel.Using {
	case schemas.ByCSS, "":
		return "document.querySelector(" + quoted + ")", nil
	case schemas.ByXPath:
		return xpathEval(sel.Value), nil
	case schemas.ByID:
		return "document.getElementById(" + quoted + ")", nil
	case schemas.ByName:
		return "(document.getElementsByName(" + quoted + ")[0] || null)", nil
	case schemas.ByTag:
		return "(document.getElementsByTagName(" + quoted + ")[0] || null)", nil
	case schemas.ByClass:
		return "(document.getElementsByClassName(" + quoted + ")[0] || null)", nil
	case schemas.ByText:
		return xpathEval("//*[contains(text(), " + xpathLiteral(sel.Value) + ")]"), nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", schemas.ErrInvalidSelector, sel.Using)
	}
}

func xpathEval(expr string) string {
	return "document.evaluate(" + jsString(expr) +
		", document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue"
}

// jsString quotes s as a string literal valid in both Go and JavaScript
// source.
func jsString(s string) string {
	return strconv.Quote(s)
}

// xpathLiteral renders s as an XPath string literal. XPath 1.0 has no escape
// syntax, so values mixing both quote characters fall back to concat().
func xpathLiteral(s string) string {
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	if !strings.Contains(s, "'") {
		return "'" + s + "'"
	}
	parts := strings.Split(s, `"`)
	pieces := make([]string, 0, len(parts)*2)
	for i, part := range parts {
		if i > 0 {
			pieces = append(pieces, `'"'`)
		}
		if part != "" {
			pieces = append(pieces, `"`+part+`"`)
		}
	}
	if len(pieces) == 1 {
		return pieces[0]
	}
	return "concat(" + strings.Join(pieces, ", ") + ")"
}

// selLabel renders a selector for error messages.
func selLabel(sel schemas.Selector) string {
	if sel.Using == "" || sel.Using == schemas.ByCSS {
		return fmt.Sprintf("'%s'", sel.Value)
	}
	return fmt.Sprintf("%s '%s'", sel.Using, sel.Value)
}
