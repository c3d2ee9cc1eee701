// File: internal/session/registry.go
package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/driver"
)

// DropHook is called with a session id when that session leaves the
// registry, so state bound to it (an active recording) can be discarded.
type DropHook func(sessionID string)

// Registry maps identifiers to live sessions. It enforces the concurrent
// session budget, resolves the default session, and sweeps idle sessions.
type Registry struct {
	logger  *zap.Logger
	cfg     config.RegistryConfig
	browser config.BrowserConfig
	factory driver.Factory
	sem     *semaphore.Weighted

	mu       sync.RWMutex
	sessions map[string]*Session
	seq      uint64
	dropHook DropHook

	sweepStop chan struct{}
	sweepDone chan struct{}
	stopOnce  sync.Once
}

// NewRegistry wires a registry over the given driver factory. The idle
// sweep starts immediately when an idle timeout is configured; Shutdown
// stops it.
func NewRegistry(cfg config.RegistryConfig, browser config.BrowserConfig, factory driver.Factory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		logger:   logger.Named("session_registry"),
		cfg:      cfg,
		browser:  browser,
		factory:  factory,
		sem:      semaphore.NewWeighted(int64(cfg.MaxSessions)),
		sessions: make(map[string]*Session),
	}
	if cfg.IdleTimeout > 0 {
		r.sweepStop = make(chan struct{})
		r.sweepDone = make(chan struct{})
		go r.sweepIdle()
	}
	return r
}

// SetDropHook registers the callback run when a session leaves the
// registry. Set it during wiring, before sessions open.
func (r *Registry) SetDropHook(hook DropHook) {
	r.mu.Lock()
	r.dropHook = hook
	r.mu.Unlock()
}

// fillDefaults completes a session config from the daemon-wide browser
// defaults, so the stored snapshot always matches what the driver received.
func (r *Registry) fillDefaults(cfg schemas.SessionConfig) schemas.SessionConfig {
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = r.browser.ViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = r.browser.ViewportHeight
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = r.browser.UserAgent
	}
	if cfg.Proxy == "" {
		cfg.Proxy = r.browser.Proxy
	}
	if cfg.Browser == "" {
		cfg.Browser = r.browser.DefaultVariant
	}
	return cfg
}

// driverConfig maps the session snapshot onto driver flags, resolving the
// browser variant to an executable path when one is configured.
func (r *Registry) driverConfig(cfg schemas.SessionConfig) driver.Config {
	return driver.Config{
		Headless:        cfg.Headless,
		ViewportWidth:   cfg.ViewportWidth,
		ViewportHeight:  cfg.ViewportHeight,
		UserAgent:       cfg.UserAgent,
		Proxy:           cfg.Proxy,
		IgnoreTLSErrors: r.browser.IgnoreTLSErrors,
		ExecPath:        r.browser.Variants[cfg.Browser],
		Args:            r.browser.Args,
	}
}

// Open launches a browser for the given configuration and registers the
// session. The id is generated when empty; a live duplicate is rejected
// before any browser work happens.
func (r *Registry) Open(ctx context.Context, cfg schemas.SessionConfig) (*Session, error) {
	cfg = r.fillDefaults(cfg)
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	r.mu.RLock()
	_, exists := r.sessions[cfg.ID]
	r.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("%w: %q", schemas.ErrDuplicateIdentifier, cfg.ID)
	}

	if !r.sem.TryAcquire(1) {
		return nil, fmt.Errorf("%w: at most %d concurrent sessions", schemas.ErrSessionLimit, r.cfg.MaxSessions)
	}

	console := newConsoleBuffer(r.browser.ConsoleBufferSize)
	drvLogger := r.logger.Named("driver").With(zap.String("session_id", cfg.ID))
	drv, err := r.factory(ctx, r.driverConfig(cfg), drvLogger, console.Append)
	if err != nil {
		r.sem.Release(1)
		return nil, fmt.Errorf("%w: %v", schemas.ErrDriverInit, err)
	}

	s := newSession(cfg, drv, console, r.logger.With(zap.String("session_id", cfg.ID)))

	r.mu.Lock()
	if _, exists := r.sessions[cfg.ID]; exists {
		r.mu.Unlock()
		// Lost a race against a concurrent open with the same id.
		_ = drv.Close()
		r.sem.Release(1)
		return nil, fmt.Errorf("%w: %q", schemas.ErrDuplicateIdentifier, cfg.ID)
	}
	r.seq++
	s.seq = r.seq
	s.onClose = func() { r.remove(s.id) }
	r.sessions[cfg.ID] = s
	r.mu.Unlock()

	metricSessionsOpened.Inc()
	metricSessionsActive.Inc()
	r.logger.Info("Session opened.",
		zap.String("session_id", cfg.ID),
		zap.String("browser", cfg.Browser),
		zap.Bool("headless", cfg.Headless),
	)
	return s, nil
}

// remove drops a closed session from the map, releases its budget unit and
// notifies the drop hook. Runs exactly once per session via Session.Close.
func (r *Registry) remove(id string) {
	r.mu.Lock()
	_, present := r.sessions[id]
	if present {
		delete(r.sessions, id)
	}
	hook := r.dropHook
	r.mu.Unlock()
	if !present {
		return
	}
	r.sem.Release(1)
	metricSessionsActive.Dec()
	if hook != nil {
		hook(id)
	}
	r.logger.Debug("Session removed from registry.", zap.String("session_id", id))
}

// Resolve returns the session for id, or the default session for the empty
// id: the unique live session when exactly one exists, otherwise the
// configured policy picks between the most recently and the first opened.
func (r *Registry) Resolve(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id != "" {
		s, ok := r.sessions[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", schemas.ErrSessionNotFound, id)
		}
		return s, nil
	}

	if len(r.sessions) == 0 {
		return nil, fmt.Errorf("%w: no sessions open", schemas.ErrSessionNotFound)
	}

	var pick *Session
	for _, s := range r.sessions {
		switch {
		case pick == nil:
			pick = s
		case r.cfg.DefaultPolicy == config.DefaultFirstOpened:
			if s.seq < pick.seq {
				pick = s
			}
		default:
			if s.seq > pick.seq {
				pick = s
			}
		}
	}
	return pick, nil
}

// Close tears down one session; the empty id closes the default session.
// Unknown ids and repeated closes are successful no-ops.
func (r *Registry) Close(id string) error {
	var s *Session
	if id == "" {
		var err error
		if s, err = r.Resolve(""); err != nil {
			return nil
		}
	} else {
		r.mu.RLock()
		s = r.sessions[id]
		r.mu.RUnlock()
		if s == nil {
			return nil
		}
	}
	return s.Close()
}

// List snapshots the live sessions in open order. The driver handles stay
// private.
func (r *Registry) List() []schemas.SessionSummary {
	r.mu.RLock()
	open := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		open = append(open, s)
	}
	r.mu.RUnlock()

	sort.Slice(open, func(i, j int) bool { return open[i].seq < open[j].seq })
	out := make([]schemas.SessionSummary, len(open))
	for i, s := range open {
		out[i] = s.Summary()
	}
	return out
}

// Shutdown stops the idle sweep and closes every live session in parallel,
// bounded by ctx.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.stopSweep()

	r.mu.RLock()
	open := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		open = append(open, s)
	}
	r.mu.RUnlock()

	var g errgroup.Group
	for _, s := range open {
		g.Go(func() error {
			if err := s.Close(); err != nil {
				r.logger.Warn("Error closing session during shutdown.",
					zap.String("session_id", s.ID()), zap.Error(err))
			}
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()
	select {
	case <-done:
		r.logger.Info("Session registry shut down.", zap.Int("sessions_closed", len(open)))
		return nil
	case <-ctx.Done():
		r.logger.Warn("Timeout waiting for sessions to close during shutdown.", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (r *Registry) stopSweep() {
	if r.sweepStop == nil {
		return
	}
	r.stopOnce.Do(func() {
		close(r.sweepStop)
		<-r.sweepDone
	})
}

// sweepIdle closes sessions untouched past the configured idle timeout.
func (r *Registry) sweepIdle() {
	defer close(r.sweepDone)

	interval := r.cfg.IdleTimeout / 4
	if interval < 10*time.Millisecond {
		interval = 10 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.sweepStop:
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-r.cfg.IdleTimeout)
			r.mu.RLock()
			var idle []*Session
			for _, s := range r.sessions {
				if s.LastUsed().Before(cutoff) {
					idle = append(idle, s)
				}
			}
			r.mu.RUnlock()

			for _, s := range idle {
				r.logger.Info("Closing idle session.",
					zap.String("session_id", s.ID()),
					zap.Duration("idle_timeout", r.cfg.IdleTimeout))
				if err := s.Close(); err != nil {
					r.logger.Warn("Error closing idle session.",
						zap.String("session_id", s.ID()), zap.Error(err))
				}
				metricSessionsIdleClosed.Inc()
			}
		}
	}
}
