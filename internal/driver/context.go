// File: internal/driver/context.go
package driver

import "context"

// combineContext derives a context from the session context that is also
// canceled when the per-call context ends. chromedp reads its connection
// state from context values, so the session context must be the parent; the
// call context contributes only its cancellation signal.
func combineContext(session, call context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(session)
	go func() {
		select {
		case <-call.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
