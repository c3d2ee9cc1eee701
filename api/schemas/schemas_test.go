package schemas_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxkeys/puppetry/api/schemas"
)

// TestExecPolicyResolution pins the documented resolution of the two policy
// flags: StopOnError wins outright, and both-false still halts.
func TestExecPolicyResolution(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name     string
		policy   schemas.ExecPolicy
		wantHalt bool
	}{
		{"defaults halt", schemas.DefaultExecPolicy(), true},
		{"stop wins over continue", schemas.ExecPolicy{ContinueOnError: true, StopOnError: true}, true},
		{"continue only runs all", schemas.ExecPolicy{ContinueOnError: true, StopOnError: false}, false},
		{"both false halts", schemas.ExecPolicy{ContinueOnError: false, StopOnError: false}, true},
		{"stop only halts", schemas.ExecPolicy{ContinueOnError: false, StopOnError: true}, true},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantHalt, tt.policy.HaltOnFailure())
		})
	}
}

// TestScenarioCloneIsDeep mutates every mutable region of a clone and checks
// the original is untouched. Playback substitution relies on this.
func TestScenarioCloneIsDeep(t *testing.T) {
	t.Parallel()

	original := &schemas.Scenario{
		ID:   "sc-1",
		Name: "login",
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "https://example.test/login"},
			{
				Kind:     schemas.ActionType,
				Selector: &schemas.Selector{Using: schemas.ByCSS, Value: "#user"},
				Text:     "${username}",
			},
			{
				Kind:   schemas.ActionExecuteScript,
				Script: "return arguments[0]",
				Args:   []any{"${username}", float64(2)},
			},
		},
		Variables: map[string]string{"username": "bob"},
		Meta:      schemas.ScenarioMeta{TotalSteps: 3},
	}

	clone := original.Clone()
	require.NotSame(t, original, clone)

	clone.Name = "changed"
	clone.Steps[0].URL = "https://elsewhere.test"
	clone.Steps[1].Selector.Value = "#other"
	clone.Steps[1].Text = "alice"
	clone.Steps[2].Args[0] = "alice"
	clone.Variables["username"] = "alice"
	clone.Meta.TotalSteps = 99

	assert.Equal(t, "login", original.Name)
	assert.Equal(t, "https://example.test/login", original.Steps[0].URL)
	assert.Equal(t, "#user", original.Steps[1].Selector.Value)
	assert.Equal(t, "${username}", original.Steps[1].Text)
	assert.Equal(t, "${username}", original.Steps[2].Args[0])
	assert.Equal(t, "bob", original.Variables["username"])
	assert.Equal(t, 3, original.Meta.TotalSteps)
}

func TestScenarioSummaryProjection(t *testing.T) {
	t.Parallel()

	sc := &schemas.Scenario{
		ID:          "sc-2",
		Name:        "checkout",
		Description: "cart to receipt",
		SessionID:   "s1",
		Steps:       []schemas.ActionDescriptor{{Kind: schemas.ActionClick}},
		Meta:        schemas.ScenarioMeta{TotalSteps: 1, DurationMillis: 1200},
	}

	sum := sc.Summary()
	assert.Equal(t, "sc-2", sum.ID)
	assert.Equal(t, "checkout", sum.Name)
	assert.Equal(t, 1, sum.TotalSteps)
	assert.Equal(t, int64(1200), sum.DurationMillis)
}

// TestClassify covers the sentinel-to-kind mapping, deadline detection through
// wrapping, and the internal fallback.
func TestClassify(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name string
		err  error
		want schemas.ErrorKind
	}{
		{"nil", nil, schemas.ErrorKind("")},
		{"session not found", fmt.Errorf("resolve %q: %w", "s9", schemas.ErrSessionNotFound), schemas.KindSessionNotFound},
		{"duplicate id", schemas.ErrDuplicateIdentifier, schemas.KindDuplicateIdentifier},
		{"driver init", fmt.Errorf("open: %w", schemas.ErrDriverInit), schemas.KindDriverInit},
		{"element", fmt.Errorf("click: %w", schemas.ErrElementNotFound), schemas.KindElementNotFound},
		{"wrapped deadline", fmt.Errorf("navigate: %w", context.DeadlineExceeded), schemas.KindTimeout},
		{"explicit timeout", schemas.ErrTimeout, schemas.KindTimeout},
		{"storage", fmt.Errorf("save: %w", schemas.ErrStorage), schemas.KindStorage},
		{"confirmation", schemas.ErrConfirmationNeeded, schemas.KindConfirmationNeeded},
		{"unclassified", errors.New("socket hangup"), schemas.KindInternal},
	}

	for _, tc := range testCases {
		tt := tc
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, schemas.Classify(tt.err))
		})
	}
}

func TestCloneStepsNil(t *testing.T) {
	t.Parallel()
	assert.Nil(t, schemas.CloneSteps(nil))
	var sc *schemas.Scenario
	assert.Nil(t, sc.Clone())
}
