package scenario

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/vxkeys/puppetry/api/schemas"
)

// PlayRequest names everything one playback run needs.
type PlayRequest struct {
	// Ref selects the scenario, by id first, then by name.
	Ref string
	// SessionID selects the target session; empty resolves the default.
	SessionID string
	// Overrides shadow the scenario's stored variable defaults.
	Overrides map[string]string
	// Policy controls how the run reacts to a failing step.
	Policy schemas.ExecPolicy
	// PaceMillis overrides the configured pace when positive; zero keeps the
	// configured default.
	PaceMillis int
}

// Play replays a stored scenario. Steps are deep-copied and every ${name}
// placeholder is substituted, overrides beating stored defaults, before
// anything reaches the executor; a placeholder with neither aborts the run
// with no action dispatched. The target session is resolved once up front so
// a paced run cannot drift between sessions. Step failures land in the
// report, not in the returned error.
func (s *Service) Play(ctx context.Context, req PlayRequest) (schemas.ExecutionReport, error) {
	s.mu.RLock()
	entry := s.resolveLocked(req.Ref)
	if entry == nil {
		s.mu.RUnlock()
		return schemas.ExecutionReport{}, fmt.Errorf("%w: %q", schemas.ErrScenarioNotFound, req.Ref)
	}
	sc := entry.Clone()
	s.mu.RUnlock()

	steps, err := resolveSteps(sc, req.Overrides)
	if err != nil {
		return schemas.ExecutionReport{}, err
	}

	sess, err := s.sessions.Resolve(req.SessionID)
	if err != nil {
		return schemas.ExecutionReport{}, err
	}
	target := sess.ID()

	pace := s.pace
	if req.PaceMillis > 0 {
		pace = time.Duration(req.PaceMillis) * time.Millisecond
	}

	s.logger.Info("Playing scenario.",
		zap.String("scenario_id", sc.ID),
		zap.String("name", sc.Name),
		zap.String("session_id", target),
		zap.Int("steps", len(steps)),
		zap.Duration("pace", pace))

	var report schemas.ExecutionReport
	if pace <= 0 {
		report, err = s.runner.Execute(ctx, target, steps, req.Policy)
	} else {
		report, err = s.playPaced(ctx, target, steps, req.Policy, pace)
	}
	if err != nil {
		return schemas.ExecutionReport{}, err
	}

	s.touchLastPlayed(ctx, sc.ID)
	return report, nil
}

// playPaced issues the steps one at a time behind a rate limiter, merging the
// per-step reports into one. The first step goes out immediately; every
// later one waits out the pace interval. The merged report keeps the
// executor's success rule: a halted run fails, a continue-mode run succeeds
// once anything ran.
func (s *Service) playPaced(ctx context.Context, sessionID string, steps []schemas.ActionDescriptor, policy schemas.ExecPolicy, pace time.Duration) (schemas.ExecutionReport, error) {
	limiter := rate.NewLimiter(rate.Every(pace), 1)
	continueAll := !policy.HaltOnFailure()

	report := schemas.ExecutionReport{
		SessionID: sessionID,
		StartedAt: time.Now().UTC(),
	}
	failed := false
	for _, step := range steps {
		if err := limiter.Wait(ctx); err != nil {
			break
		}
		sub, err := s.runner.Execute(ctx, sessionID, []schemas.ActionDescriptor{step}, policy)
		if err != nil {
			return schemas.ExecutionReport{}, err
		}
		report.Results = append(report.Results, sub.Results...)
		for _, r := range sub.Results {
			if !r.Success {
				failed = true
			}
		}
		if failed && !continueAll {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	report.FinishedAt = time.Now().UTC()
	report.Success = !failed || (continueAll && len(report.Results) > 0)
	return report, nil
}

// touchLastPlayed stamps the index entry and persists it best-effort. A
// scenario deleted mid-playback is left alone; a failed save only warns.
func (s *Service) touchLastPlayed(ctx context.Context, id string) {
	s.mu.Lock()
	entry, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	entry.Meta.LastPlayed = time.Now().UTC()
	snapshot := entry.Clone()
	s.mu.Unlock()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Warn("Failed to persist last-played timestamp.",
			zap.String("scenario_id", id), zap.Error(err))
	}
}
