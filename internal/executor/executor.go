// File: internal/executor/executor.go

// Package executor runs ordered action sequences against registry sessions.
// It serves as the single dispatch point for every browser operation, routing
// each action descriptor to the handler registered for its kind, so single
// actions, sequences, and scenario playback all share one code path.
package executor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/driver"
	"github.com/vxkeys/puppetry/internal/session"
)

// Observer sees every attempted action together with the session it ran
// against, success or failure. The scenario recorder hangs off this seam.
type Observer interface {
	Observe(sessionID string, action schemas.ActionDescriptor)
}

// Handler executes one action kind against a driver handle. The returned
// payload lands in the action result verbatim.
type Handler func(ctx context.Context, drv driver.Driver, action schemas.ActionDescriptor) (string, error)

// Executor dispatches action descriptors through a closed handler table.
type Executor struct {
	registry *session.Registry
	cfg      config.ExecutorConfig
	logger   *zap.Logger
	handlers map[schemas.ActionKind]Handler

	obsMu    sync.RWMutex
	observer Observer
}

// Option configures an Executor.
type Option func(*Executor)

// WithHandlers replaces the default handler table. This is primarily used by
// tests that exercise sequencing and policy without a browser behind them.
func WithHandlers(handlers map[schemas.ActionKind]Handler) Option {
	return func(e *Executor) {
		e.handlers = handlers
	}
}

// New builds an executor over the given registry. Timeout defaults come from
// cfg; a descriptor's own timeout override always wins.
func New(registry *session.Registry, cfg config.ExecutorConfig, logger *zap.Logger, opts ...Option) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Executor{
		registry: registry,
		cfg:      cfg,
		logger:   logger.Named("executor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.handlers == nil {
		e.handlers = defaultHandlers()
	}
	return e
}

// SetObserver registers the recorder hook. Wiring order is executor first,
// recorder second, so the hook arrives after construction.
func (e *Executor) SetObserver(obs Observer) {
	e.obsMu.Lock()
	e.observer = obs
	e.obsMu.Unlock()
}

func (e *Executor) observe(sessionID string, action schemas.ActionDescriptor) {
	e.obsMu.RLock()
	obs := e.observer
	e.obsMu.RUnlock()
	if obs != nil {
		obs.Observe(sessionID, action)
	}
}

// Execute runs the actions strictly in order against the named session (the
// empty id resolves the default session once, up front, so the target stays
// stable for the whole sequence). Action-level failures never surface as a Go
// error; they land in the report, one result per attempted action in issue
// order. The returned error covers impossible preconditions only.
func (e *Executor) Execute(ctx context.Context, sessionID string, actions []schemas.ActionDescriptor, policy schemas.ExecPolicy) (schemas.ExecutionReport, error) {
	if e.registry == nil {
		return schemas.ExecutionReport{}, errors.New("executor has no session registry")
	}

	target := sessionID
	if s, err := e.registry.Resolve(sessionID); err == nil {
		target = s.ID()
	}

	report := schemas.ExecutionReport{
		SessionID: target,
		StartedAt: time.Now().UTC(),
	}
	continueAll := !policy.HaltOnFailure()
	failed := false

	for _, action := range actions {
		res := e.runAction(ctx, target, action)
		report.Results = append(report.Results, res)
		e.observe(target, action)

		if !res.Success {
			failed = true
			if !continueAll {
				break
			}
		}
		// A dead caller context stops the sequence; nothing past this point
		// counts as attempted.
		if ctx.Err() != nil {
			break
		}
	}

	report.FinishedAt = time.Now().UTC()
	report.Success = !failed || (continueAll && len(report.Results) > 0)

	e.logger.Debug("Action sequence finished.",
		zap.String("session_id", target),
		zap.Int("attempted", report.Attempted()),
		zap.Bool("success", report.Success),
	)
	return report, nil
}

// runAction resolves the session afresh, bounds the action with its timeout
// and dispatches it. A mid-sequence close therefore fails the remaining
// actions fast instead of hanging on a dead driver.
func (e *Executor) runAction(ctx context.Context, sessionID string, action schemas.ActionDescriptor) schemas.ActionResult {
	started := time.Now()

	h, ok := e.handlers[action.Kind]
	if !ok {
		err := fmt.Errorf("%w: %q", schemas.ErrUnknownActionType, string(action.Kind))
		return e.finish(action.Kind, started, "", err)
	}

	s, err := e.registry.Resolve(sessionID)
	if err != nil {
		return e.finish(action.Kind, started, "", err)
	}

	actx := ctx
	if d := e.actionTimeout(action); d > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	var payload string
	err = s.Do(actx, func(drv driver.Driver) error {
		var herr error
		payload, herr = h(actx, drv, action)
		return herr
	})
	return e.finish(action.Kind, started, payload, err)
}

// actionTimeout resolves the deadline for one action: descriptor override,
// else the kind's configured default. Waits get their own duration plus the
// element budget as slack so long pauses are not cut short.
func (e *Executor) actionTimeout(action schemas.ActionDescriptor) time.Duration {
	if action.TimeoutMillis > 0 {
		return time.Duration(action.TimeoutMillis) * time.Millisecond
	}
	switch action.Kind {
	case schemas.ActionNavigate:
		return e.cfg.NavigationTimeout
	case schemas.ActionExecuteScript:
		return e.cfg.ScriptTimeout
	case schemas.ActionWait:
		if action.DurationMillis > 0 {
			return time.Duration(action.DurationMillis)*time.Millisecond + e.cfg.ActionTimeout
		}
		return e.cfg.ActionTimeout
	default:
		return e.cfg.ActionTimeout
	}
}

// finish seals one attempt into a result and records its metrics.
func (e *Executor) finish(kind schemas.ActionKind, started time.Time, payload string, err error) schemas.ActionResult {
	elapsed := time.Since(started)
	res := schemas.ActionResult{
		Kind:           kind,
		DurationMillis: elapsed.Milliseconds(),
	}
	if err != nil {
		errKind := schemas.Classify(err)
		res.Message = err.Error()
		res.Error = &schemas.ActionError{Kind: errKind, Detail: err.Error()}
		metricActions.WithLabelValues(string(kind), "failure").Inc()
		e.logger.Debug("Action failed.",
			zap.String("kind", string(kind)),
			zap.String("error_kind", string(errKind)),
			zap.Error(err),
		)
	} else {
		res.Success = true
		res.Message = successMessage(kind)
		res.Payload = payload
		metricActions.WithLabelValues(string(kind), "success").Inc()
	}
	metricActionDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
	return res
}
