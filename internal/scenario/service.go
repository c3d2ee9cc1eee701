// Package scenario records live browsing into replayable scenarios and plays
// them back through the action executor. One Service owns the in-memory
// scenario index and the per-session recording state; durability sits behind
// a store.Repository holding whole records, last writer wins.
package scenario

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/session"
	"github.com/vxkeys/puppetry/internal/store"
)

// Runner dispatches resolved steps. The executor satisfies it; scenario code
// never touches a driver handle directly.
type Runner interface {
	Execute(ctx context.Context, sessionID string, actions []schemas.ActionDescriptor, policy schemas.ExecPolicy) (schemas.ExecutionReport, error)
}

// Sessions is the slice of the registry the service needs: mapping an
// optional session id to a live session.
type Sessions interface {
	Resolve(id string) (*session.Session, error)
}

// recording is the live capture state bound to one session. The scenario
// pointer aliases the index entry so observed steps land in both places.
type recording struct {
	scenario  *schemas.Scenario
	startedAt time.Time
}

// Service owns every scenario the process knows about. The index keyed by id
// holds the authoritative in-memory copies; recordings are keyed by the
// session they capture. All public methods hand out clones, never index
// pointers.
type Service struct {
	repo     store.Repository
	runner   Runner
	sessions Sessions
	logger   *zap.Logger
	pace     time.Duration

	mu         sync.RWMutex
	index      map[string]*schemas.Scenario
	recordings map[string]*recording
}

// NewService builds the service and loads every persisted scenario into the
// index.
func NewService(ctx context.Context, repo store.Repository, runner Runner, sessions Sessions, cfg config.PlaybackConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:       repo,
		runner:     runner,
		sessions:   sessions,
		logger:     logger.Named("scenario"),
		pace:       cfg.Pace,
		index:      make(map[string]*schemas.Scenario),
		recordings: make(map[string]*recording),
	}
	stored, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading scenario index: %w", err)
	}
	for _, sc := range stored {
		s.index[sc.ID] = sc
	}
	s.logger.Info("Scenario index loaded.", zap.Int("scenarios", len(s.index)))
	return s, nil
}

// List returns summaries filtered by a case-insensitive substring over name
// and description, most recently modified first. A zero limit returns
// everything.
func (s *Service) List(filter string, limit int) []schemas.ScenarioSummary {
	filter = strings.ToLower(filter)
	s.mu.RLock()
	out := make([]schemas.ScenarioSummary, 0, len(s.index))
	for _, sc := range s.index {
		if filter != "" &&
			!strings.Contains(strings.ToLower(sc.Name), filter) &&
			!strings.Contains(strings.ToLower(sc.Description), filter) {
			continue
		}
		out = append(out, sc.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].LastModified.After(out[j].LastModified)
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Get returns a copy of the scenario matching ref, by id first, then by name
// with the most recently modified winning a name collision.
func (s *Service) Get(ref string) (*schemas.Scenario, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc := s.resolveLocked(ref)
	if sc == nil {
		return nil, fmt.Errorf("%w: %q", schemas.ErrScenarioNotFound, ref)
	}
	return sc.Clone(), nil
}

// Update applies a partial patch and persists the result. Name, description
// and steps replace wholesale when present; variables merge key-wise. A
// scenario still being recorded cannot be patched. On a failed save the
// in-memory entry keeps the new version; the store catches up on the next
// successful write.
func (s *Service) Update(ctx context.Context, ref string, patch schemas.ScenarioPatch) (*schemas.Scenario, error) {
	if patch.Name != nil && *patch.Name == "" {
		return nil, fmt.Errorf("%w: scenario name must not be empty", schemas.ErrInvalidArgument)
	}

	s.mu.Lock()
	sc := s.resolveLocked(ref)
	if sc == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %q", schemas.ErrScenarioNotFound, ref)
	}
	if sid, ok := s.recordingSessionLocked(sc.ID); ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: scenario %q is still recording session %q", schemas.ErrRecordingActive, sc.Name, sid)
	}
	if patch.Name != nil {
		sc.Name = *patch.Name
	}
	if patch.Description != nil {
		sc.Description = *patch.Description
	}
	if patch.Steps != nil {
		sc.Steps = schemas.CloneSteps(*patch.Steps)
	}
	if len(patch.Variables) > 0 {
		if sc.Variables == nil {
			sc.Variables = make(map[string]string, len(patch.Variables))
		}
		for k, v := range patch.Variables {
			sc.Variables[k] = v
		}
	}
	sc.Meta.TotalSteps = len(sc.Steps)
	sc.Meta.LastModified = time.Now().UTC()
	snapshot := sc.Clone()
	s.mu.Unlock()

	if err := s.repo.Save(ctx, snapshot); err != nil {
		s.logger.Warn("Scenario updated in memory but not persisted.",
			zap.String("scenario_id", snapshot.ID), zap.Error(err))
		return nil, err
	}
	s.logger.Info("Scenario updated.",
		zap.String("scenario_id", snapshot.ID), zap.String("name", snapshot.Name))
	return snapshot, nil
}

// Delete removes a scenario from the index and the store. It refuses to act
// without confirm and treats an already-missing persisted record as deleted.
// Deleting a scenario that is mid-recording discards the recording with it.
func (s *Service) Delete(ctx context.Context, ref string, confirm bool) error {
	if !confirm {
		return fmt.Errorf("%w: deleting scenario %q requires confirmation", schemas.ErrConfirmationNeeded, ref)
	}

	s.mu.Lock()
	sc := s.resolveLocked(ref)
	if sc == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %q", schemas.ErrScenarioNotFound, ref)
	}
	delete(s.index, sc.ID)
	if sid, ok := s.recordingSessionLocked(sc.ID); ok {
		delete(s.recordings, sid)
	}
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, sc.ID); err != nil {
		return err
	}
	s.logger.Info("Scenario deleted.",
		zap.String("scenario_id", sc.ID), zap.String("name", sc.Name))
	return nil
}

// resolveLocked maps a ref to its index entry: exact id match first, then
// name lookup. Caller holds mu.
func (s *Service) resolveLocked(ref string) *schemas.Scenario {
	if sc, ok := s.index[ref]; ok {
		return sc
	}
	return s.lookupNameLocked(ref)
}

// lookupNameLocked finds the most recently modified scenario with the given
// name. Caller holds mu.
func (s *Service) lookupNameLocked(name string) *schemas.Scenario {
	var best *schemas.Scenario
	for _, sc := range s.index {
		if sc.Name != name {
			continue
		}
		if best == nil || sc.Meta.LastModified.After(best.Meta.LastModified) {
			best = sc
		}
	}
	return best
}

// recordingSessionLocked reports which session, if any, is recording into the
// given scenario. Caller holds mu.
func (s *Service) recordingSessionLocked(scenarioID string) (string, bool) {
	for sid, rec := range s.recordings {
		if rec.scenario.ID == scenarioID {
			return sid, true
		}
	}
	return "", false
}
