// File: internal/session/session.go

// Package session tracks live browser sessions: one exclusively-owned
// driver handle per session, per-session command serialization, and the
// bounded console buffer fed by the driver's event goroutine.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/driver"
)

// Session owns one driver handle. Every driver command passes through Do,
// which serializes commands on this session without blocking other
// sessions.
type Session struct {
	id        string
	seq       uint64
	createdAt time.Time
	cfg       schemas.SessionConfig
	drv       driver.Driver
	console   *consoleBuffer
	logger    *zap.Logger

	actionMu sync.Mutex

	stateMu    sync.Mutex
	lastUsedAt time.Time
	closed     bool

	closeOnce sync.Once
	onClose   func()
}

func newSession(cfg schemas.SessionConfig, drv driver.Driver, console *consoleBuffer, logger *zap.Logger) *Session {
	now := time.Now().UTC()
	return &Session{
		id:         cfg.ID,
		createdAt:  now,
		lastUsedAt: now,
		cfg:        cfg,
		drv:        drv,
		console:    console,
		logger:     logger,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Config returns the configuration snapshot taken at open time.
func (s *Session) Config() schemas.SessionConfig { return s.cfg }

// Summary projects the session for list responses.
func (s *Session) Summary() schemas.SessionSummary {
	s.stateMu.Lock()
	last := s.lastUsedAt
	s.stateMu.Unlock()
	return schemas.SessionSummary{
		ID:         s.id,
		CreatedAt:  s.createdAt,
		LastUsedAt: last,
		Config:     s.cfg,
	}
}

// LastUsed reports when the session last ran a command.
func (s *Session) LastUsed() time.Time {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.lastUsedAt
}

func (s *Session) touch() {
	s.stateMu.Lock()
	s.lastUsedAt = time.Now().UTC()
	s.stateMu.Unlock()
}

func (s *Session) isClosed() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.closed
}

// Do runs one driver command under the session's action lock. A command
// whose context expired while queued fails without touching the driver; a
// command queued behind a close fails with the session-not-found sentinel.
func (s *Session) Do(ctx context.Context, fn func(drv driver.Driver) error) error {
	s.actionMu.Lock()
	defer s.actionMu.Unlock()
	if s.isClosed() {
		return fmt.Errorf("%w: %q", schemas.ErrSessionNotFound, s.id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.touch()
	return fn(s.drv)
}

// ConsoleLogs returns up to limit of the newest captured console entries in
// arrival order; limit <= 0 returns the whole buffer.
func (s *Session) ConsoleLogs(limit int) []schemas.ConsoleEntry {
	return s.console.Snapshot(limit)
}

// Close tears down the driver handle. It is idempotent and does not wait
// behind the action lock; an in-flight command observes the driver teardown
// instead.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.stateMu.Lock()
		s.closed = true
		s.stateMu.Unlock()

		err = s.drv.Close()
		if s.onClose != nil {
			s.onClose()
		}
		s.logger.Info("Session closed.", zap.String("session_id", s.id))
	})
	return err
}
