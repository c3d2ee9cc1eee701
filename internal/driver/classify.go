// File: internal/driver/classify.go
package driver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/vxkeys/puppetry/api/schemas"
)

// classify folds a raw driver failure into the action error taxonomy.
// Deadline expiry always wins, a dead target counts as a vanished session,
// and anything unrecognized passes through for the caller's fallback
// classification.
func classify(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", schemas.ErrTimeout, err)
	case errors.Is(err, context.Canceled),
		errors.Is(err, chromedp.ErrInvalidContext),
		errors.Is(err, chromedp.ErrInvalidTarget):
		return fmt.Errorf("%w: %v", schemas.ErrSessionNotFound, err)
	}

	var exc *runtime.ExceptionDetails
	if errors.As(err, &exc) {
		return fmt.Errorf("%w: %v", schemas.ErrScriptExecution, err)
	}

	msg := err.Error()
	switch {
	case errors.Is(err, chromedp.ErrNoResults),
		strings.Contains(msg, "could not find node"):
		return fmt.Errorf("%w: %v", schemas.ErrElementNotFound, err)
	case strings.Contains(msg, "net::ERR"),
		strings.Contains(msg, "page load error"):
		return fmt.Errorf("%w: %v", schemas.ErrNavigation, err)
	}
	return err
}
