// File: internal/scenario/service_test.go
package scenario_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/executor"
	"github.com/vxkeys/puppetry/internal/mocks"
	"github.com/vxkeys/puppetry/internal/scenario"
	"github.com/vxkeys/puppetry/internal/session"
)

// rig wires a real registry and executor over mock drivers to a Service
// backed by a mock repository, the same shape the daemon assembles.
type rig struct {
	factory  *mocks.MockDriverFactory
	registry *session.Registry
	repo     *mocks.MockRepository
	exec     *executor.Executor
	svc      *scenario.Service
}

func newRig(t *testing.T, stored []*schemas.Scenario, prepare func(d *mocks.MockDriver)) *rig {
	t.Helper()
	factory := &mocks.MockDriverFactory{
		Prepare: func(d *mocks.MockDriver) {
			d.On("Close").Return(nil).Maybe()
			if prepare != nil {
				prepare(d)
			}
		},
	}
	regCfg := config.RegistryConfig{MaxSessions: 4, DefaultPolicy: config.DefaultMostRecent}
	browserCfg := config.BrowserConfig{
		ViewportWidth:     1280,
		ViewportHeight:    720,
		DefaultVariant:    "chrome",
		ConsoleBufferSize: 16,
	}
	reg := session.NewRegistry(regCfg, browserCfg, factory.New, zaptest.NewLogger(t))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = reg.Shutdown(ctx)
	})

	execCfg := config.ExecutorConfig{
		ActionTimeout:     2 * time.Second,
		NavigationTimeout: 3 * time.Second,
		ScriptTimeout:     3 * time.Second,
	}
	exec := executor.New(reg, execCfg, zaptest.NewLogger(t))

	repo := &mocks.MockRepository{}
	repo.On("List", mock.Anything).Return(stored, nil).Once()

	svc, err := scenario.NewService(context.Background(), repo, exec, reg, config.PlaybackConfig{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	exec.SetObserver(svc)
	reg.SetDropHook(svc.DropSession)

	return &rig{factory: factory, registry: reg, repo: repo, exec: exec, svc: svc}
}

func (r *rig) open(t *testing.T, id string) *session.Session {
	t.Helper()
	s, err := r.registry.Open(context.Background(), schemas.SessionConfig{ID: id})
	require.NoError(t, err)
	return s
}

func storedScenario(name string, modified time.Time) *schemas.Scenario {
	return &schemas.Scenario{
		ID:   uuid.NewString(),
		Name: name,
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "https://example.com"},
		},
		Meta: schemas.ScenarioMeta{
			TotalSteps:   1,
			CreatedAt:    modified.Add(-time.Minute),
			LastModified: modified,
		},
	}
}

func TestNewService_LoadsPersistedIndex(t *testing.T) {
	now := time.Now().UTC()
	a := storedScenario("alpha", now.Add(-time.Hour))
	b := storedScenario("beta", now)
	r := newRig(t, []*schemas.Scenario{a, b}, nil)

	got, err := r.svc.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, "alpha", got.Name)

	assert.Len(t, r.svc.List("", 0), 2)
	r.repo.AssertExpectations(t)
}

func TestNewService_StorageFailure(t *testing.T) {
	repo := &mocks.MockRepository{}
	repo.On("List", mock.Anything).Return(nil, fmt.Errorf("%w: index scan failed", schemas.ErrStorage))

	_, err := scenario.NewService(context.Background(), repo, nil, nil, config.PlaybackConfig{}, zaptest.NewLogger(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrStorage)
}

func TestList_FilterOrderingAndLimit(t *testing.T) {
	now := time.Now().UTC()
	oldest := storedScenario("login-checkout", now.Add(-3*time.Hour))
	middle := storedScenario("Login Smoke", now.Add(-2*time.Hour))
	newest := storedScenario("inventory", now.Add(-time.Hour))
	newest.Description = "nightly LOGIN sweep"
	r := newRig(t, []*schemas.Scenario{oldest, middle, newest}, nil)

	all := r.svc.List("", 0)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"inventory", "Login Smoke", "login-checkout"},
		[]string{all[0].Name, all[1].Name, all[2].Name}, "most recently modified first")

	filtered := r.svc.List("login", 0)
	require.Len(t, filtered, 3, "filter matches name and description, case-insensitively")

	limited := r.svc.List("login", 2)
	require.Len(t, limited, 2)
	assert.Equal(t, "inventory", limited[0].Name)
	assert.Equal(t, "Login Smoke", limited[1].Name)

	assert.Empty(t, r.svc.List("no-such-text", 0))
}

func TestGet_ResolvesByIDThenName(t *testing.T) {
	now := time.Now().UTC()
	older := storedScenario("dupe", now.Add(-time.Hour))
	newer := storedScenario("dupe", now)
	r := newRig(t, []*schemas.Scenario{older, newer}, nil)

	byID, err := r.svc.Get(older.ID)
	require.NoError(t, err)
	assert.Equal(t, older.ID, byID.ID)

	byName, err := r.svc.Get("dupe")
	require.NoError(t, err)
	assert.Equal(t, newer.ID, byName.ID, "name collision resolves to the most recently modified")

	_, err = r.svc.Get("missing")
	assert.ErrorIs(t, err, schemas.ErrScenarioNotFound)
}

func TestGet_ReturnsACopy(t *testing.T) {
	sc := storedScenario("isolated", time.Now().UTC())
	r := newRig(t, []*schemas.Scenario{sc}, nil)

	first, err := r.svc.Get(sc.ID)
	require.NoError(t, err)
	first.Name = "mutated"
	first.Steps[0].URL = "https://tampered.example"

	second, err := r.svc.Get(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "isolated", second.Name)
	assert.Equal(t, "https://example.com", second.Steps[0].URL)
}

func TestUpdate_PatchesAndPersists(t *testing.T) {
	sc := storedScenario("orders", time.Now().UTC().Add(-time.Hour))
	sc.Variables = map[string]string{"env": "staging", "user": "bot"}
	r := newRig(t, []*schemas.Scenario{sc}, nil)

	var saved *schemas.Scenario
	r.repo.On("Save", mock.Anything, mock.AnythingOfType("*schemas.Scenario")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*schemas.Scenario) }).
		Return(nil)

	newName := "orders-v2"
	newDesc := "checkout regression"
	newSteps := []schemas.ActionDescriptor{
		{Kind: schemas.ActionNavigate, URL: "https://shop.example"},
		{Kind: schemas.ActionClick, Selector: &schemas.Selector{Using: schemas.ByCSS, Value: "#buy"}},
	}
	before := time.Now().UTC()
	updated, err := r.svc.Update(context.Background(), sc.ID, schemas.ScenarioPatch{
		Name:        &newName,
		Description: &newDesc,
		Steps:       &newSteps,
		Variables:   map[string]string{"env": "prod", "retries": "3"},
	})
	require.NoError(t, err)

	assert.Equal(t, "orders-v2", updated.Name)
	assert.Equal(t, "checkout regression", updated.Description)
	assert.Equal(t, 2, updated.Meta.TotalSteps, "step count follows the replaced steps")
	assert.Equal(t, map[string]string{"env": "prod", "user": "bot", "retries": "3"}, updated.Variables,
		"variables merge key-wise")
	assert.False(t, updated.Meta.LastModified.Before(before))

	require.NotNil(t, saved)
	assert.Equal(t, updated.ID, saved.ID)
	assert.Equal(t, "orders-v2", saved.Name)

	got, err := r.svc.Get("orders-v2")
	require.NoError(t, err)
	assert.Equal(t, 2, len(got.Steps))
}

func TestUpdate_Validation(t *testing.T) {
	sc := storedScenario("fixed", time.Now().UTC())
	r := newRig(t, []*schemas.Scenario{sc}, nil)

	empty := ""
	_, err := r.svc.Update(context.Background(), sc.ID, schemas.ScenarioPatch{Name: &empty})
	assert.ErrorIs(t, err, schemas.ErrInvalidArgument)

	_, err = r.svc.Update(context.Background(), "missing", schemas.ScenarioPatch{})
	assert.ErrorIs(t, err, schemas.ErrScenarioNotFound)

	r.repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUpdate_RejectedWhileRecording(t *testing.T) {
	r := newRig(t, nil, nil)
	r.open(t, "s1")
	_, err := r.svc.StartRecording("s1", "draft", "")
	require.NoError(t, err)

	desc := "late edit"
	_, err = r.svc.Update(context.Background(), "draft", schemas.ScenarioPatch{Description: &desc})
	assert.ErrorIs(t, err, schemas.ErrRecordingActive)
}

func TestUpdate_SaveFailureKeepsTheNewVersion(t *testing.T) {
	sc := storedScenario("sticky", time.Now().UTC())
	r := newRig(t, []*schemas.Scenario{sc}, nil)
	r.repo.On("Save", mock.Anything, mock.Anything).
		Return(fmt.Errorf("%w: disk full", schemas.ErrStorage))

	name := "sticky-v2"
	_, err := r.svc.Update(context.Background(), sc.ID, schemas.ScenarioPatch{Name: &name})
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrStorage)

	got, err := r.svc.Get(sc.ID)
	require.NoError(t, err)
	assert.Equal(t, "sticky-v2", got.Name, "memory keeps the patch; the store catches up later")
}

func TestDelete_RequiresConfirmation(t *testing.T) {
	sc := storedScenario("keeper", time.Now().UTC())
	r := newRig(t, []*schemas.Scenario{sc}, nil)

	err := r.svc.Delete(context.Background(), sc.ID, false)
	assert.ErrorIs(t, err, schemas.ErrConfirmationNeeded)

	_, err = r.svc.Get(sc.ID)
	require.NoError(t, err, "an unconfirmed delete must not touch the scenario")
	r.repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete_RemovesIndexAndStore(t *testing.T) {
	sc := storedScenario("doomed", time.Now().UTC())
	r := newRig(t, []*schemas.Scenario{sc}, nil)
	r.repo.On("Delete", mock.Anything, sc.ID).Return(nil)

	require.NoError(t, r.svc.Delete(context.Background(), "doomed", true))

	_, err := r.svc.Get(sc.ID)
	assert.ErrorIs(t, err, schemas.ErrScenarioNotFound)
	r.repo.AssertCalled(t, "Delete", mock.Anything, sc.ID)

	err = r.svc.Delete(context.Background(), "doomed", true)
	assert.ErrorIs(t, err, schemas.ErrScenarioNotFound)
}

func TestDelete_MidRecordingDiscardsTheRecording(t *testing.T) {
	r := newRig(t, nil, nil)
	r.open(t, "s1")
	draft, err := r.svc.StartRecording("s1", "draft", "")
	require.NoError(t, err)
	r.repo.On("Delete", mock.Anything, draft.ID).Return(nil)

	require.NoError(t, r.svc.Delete(context.Background(), draft.ID, true))

	_, err = r.svc.StopRecording(context.Background(), "draft", false)
	assert.ErrorIs(t, err, schemas.ErrScenarioNotFound)

	_, err = r.svc.StartRecording("s1", "fresh", "")
	require.NoError(t, err, "deleting the draft frees the session for a new recording")
}
