package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
)

// StartRecording binds a fresh draft scenario to the resolved session and
// begins capturing its actions. One recording per session; a second start
// against the same session fails until the first is stopped or dropped. The
// returned scenario is the draft snapshot, id included.
func (s *Service) StartRecording(sessionID, name, description string) (*schemas.Scenario, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: recording name must not be empty", schemas.ErrInvalidArgument)
	}
	sess, err := s.sessions.Resolve(sessionID)
	if err != nil {
		return nil, err
	}
	target := sess.ID()

	now := time.Now().UTC()
	draft := &schemas.Scenario{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		SessionID:   target,
		Steps:       make([]schemas.ActionDescriptor, 0),
		Meta: schemas.ScenarioMeta{
			CreatedAt:    now,
			LastModified: now,
		},
	}

	s.mu.Lock()
	if _, ok := s.recordings[target]; ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: session %q is already recording", schemas.ErrRecordingActive, target)
	}
	s.index[draft.ID] = draft
	s.recordings[target] = &recording{scenario: draft, startedAt: now}
	s.mu.Unlock()

	s.logger.Info("Recording started.",
		zap.String("session_id", target),
		zap.String("scenario_id", draft.ID),
		zap.String("name", name))
	return draft.Clone(), nil
}

// Observe appends one attempted action to the recording bound to sessionID,
// if there is one. The executor calls this after every attempt, failures
// included, so a scenario captures intent rather than outcomes. Steps are
// copied on the way in; the caller's descriptor stays untouched.
func (s *Service) Observe(sessionID string, action schemas.ActionDescriptor) {
	s.mu.Lock()
	rec, ok := s.recordings[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.scenario.Steps = append(rec.scenario.Steps, schemas.CloneStep(action))
	rec.scenario.Meta.TotalSteps = len(rec.scenario.Steps)
	scenarioID := rec.scenario.ID
	s.mu.Unlock()

	s.logger.Debug("Recorded step.",
		zap.String("session_id", sessionID),
		zap.String("scenario_id", scenarioID),
		zap.String("kind", string(action.Kind)))
}

// StopRecording finalizes the recording whose draft scenario carries the
// given name: steps freeze, the wall-clock duration lands in the metadata and
// the recording entry disappears whether or not the save succeeds. With save
// set the finalized scenario is persisted; a storage failure still returns
// the finalized snapshot alongside the error, and the scenario stays in the
// index so nothing recorded is lost.
func (s *Service) StopRecording(ctx context.Context, name string, save bool) (*schemas.Scenario, error) {
	s.mu.Lock()
	sc := s.lookupNameLocked(name)
	if sc == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: no scenario named %q", schemas.ErrScenarioNotFound, name)
	}
	sid, ok := s.recordingSessionLocked(sc.ID)
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: scenario %q is not recording", schemas.ErrNoActiveRecording, name)
	}
	rec := s.recordings[sid]
	delete(s.recordings, sid)

	now := time.Now().UTC()
	sc.Meta.TotalSteps = len(sc.Steps)
	sc.Meta.DurationMillis = now.Sub(rec.startedAt).Milliseconds()
	sc.Meta.LastModified = now
	snapshot := sc.Clone()
	s.mu.Unlock()

	s.logger.Info("Recording stopped.",
		zap.String("session_id", sid),
		zap.String("scenario_id", snapshot.ID),
		zap.Int("steps", snapshot.Meta.TotalSteps),
		zap.Bool("save", save))

	if !save {
		return snapshot, nil
	}
	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Warn("Scenario kept in memory after failed save.",
			zap.String("scenario_id", snapshot.ID), zap.Error(err))
		return snapshot, err
	}
	return snapshot, nil
}

// DropSession discards any recording bound to the session, draft scenario
// included. The registry calls this from its drop hook when a session closes;
// an interrupted recording never materializes on its own.
func (s *Service) DropSession(sessionID string) {
	s.mu.Lock()
	rec, ok := s.recordings[sessionID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.recordings, sessionID)
	delete(s.index, rec.scenario.ID)
	scenarioID, steps := rec.scenario.ID, len(rec.scenario.Steps)
	s.mu.Unlock()

	s.logger.Info("Recording discarded with its session.",
		zap.String("session_id", sessionID),
		zap.String("scenario_id", scenarioID),
		zap.Int("steps_lost", steps))
}
