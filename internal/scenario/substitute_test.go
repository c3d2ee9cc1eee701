package scenario

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vxkeys/puppetry/api/schemas"
)

func sel(value string) *schemas.Selector {
	return &schemas.Selector{Using: schemas.ByCSS, Value: value}
}

func TestResolveSteps_SubstitutesEveryField(t *testing.T) {
	sc := &schemas.Scenario{
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "${base}/login"},
			{Kind: schemas.ActionType, Selector: sel("#${field}"), Text: "${username}"},
			{Kind: schemas.ActionPressKey, Key: "${key}"},
			{Kind: schemas.ActionDragAndDrop, Selector: sel("#${card}"), Target: sel("#${column}")},
			{
				Kind:   schemas.ActionExecuteScript,
				Script: "return fetch('${base}/api')",
				Args:   []any{"${username}", float64(7), true},
			},
		},
		Variables: map[string]string{
			"base":     "https://stored.example",
			"field":    "user",
			"username": "stored-user",
			"key":      "Enter",
			"card":     "card-1",
			"column":   "done",
		},
	}

	steps, err := resolveSteps(sc, map[string]string{
		"base":     "https://override.example",
		"username": "alice",
	})
	require.NoError(t, err)
	require.Len(t, steps, 5)

	assert.Equal(t, "https://override.example/login", steps[0].URL, "override should beat the stored default")
	assert.Equal(t, "#user", steps[1].Selector.Value)
	assert.Equal(t, "alice", steps[1].Text)
	assert.Equal(t, "Enter", steps[2].Key)
	assert.Equal(t, "#card-1", steps[3].Selector.Value)
	assert.Equal(t, "#done", steps[3].Target.Value)
	assert.Equal(t, "return fetch('https://override.example/api')", steps[4].Script)
	assert.Equal(t, []any{"alice", float64(7), true}, steps[4].Args, "non-string args must pass through untouched")
}

func TestResolveSteps_LeavesTheStoredScenarioAlone(t *testing.T) {
	sc := &schemas.Scenario{
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "${base}/home"},
			{Kind: schemas.ActionType, Selector: sel("#${field}"), Text: "${username}", Args: []any{"${username}"}},
		},
		Variables: map[string]string{"base": "https://a", "field": "f", "username": "u"},
	}
	before := sc.Clone()

	_, err := resolveSteps(sc, nil)
	require.NoError(t, err)

	if diff := cmp.Diff(before, sc); diff != "" {
		t.Fatalf("stored scenario mutated by substitution (-before +after):\n%s", diff)
	}
}

func TestResolveSteps_UndefinedVariable(t *testing.T) {
	sc := &schemas.Scenario{
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "${base}/x"},
			{Kind: schemas.ActionType, Selector: sel("#u"), Text: "${missing}"},
			{Kind: schemas.ActionType, Selector: sel("#p"), Text: "${missing} and ${also_gone}"},
		},
		Variables: map[string]string{"base": "https://a"},
	}

	steps, err := resolveSteps(sc, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, schemas.ErrUndefinedVariable)
	assert.Nil(t, steps)
	assert.Contains(t, err.Error(), "missing, also_gone", "each missing name listed once, in first-seen order")
}

func TestResolveSteps_MalformedPlaceholdersStayLiteral(t *testing.T) {
	sc := &schemas.Scenario{
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "https://a/?q=${}&r=$plain&s=${bad name}"},
		},
	}

	steps, err := resolveSteps(sc, nil)
	require.NoError(t, err)
	assert.Equal(t, "https://a/?q=${}&r=$plain&s=${bad name}", steps[0].URL)
}

func TestResolveSteps_DescriptionIsNotSubstituted(t *testing.T) {
	sc := &schemas.Scenario{
		Steps: []schemas.ActionDescriptor{
			{Kind: schemas.ActionNavigate, URL: "https://a", Description: "go to ${somewhere}"},
		},
	}

	steps, err := resolveSteps(sc, nil)
	require.NoError(t, err, "placeholders in descriptions are display text, not variables")
	assert.Equal(t, "go to ${somewhere}", steps[0].Description)
}

// -- Fuzz Testing --

// FuzzResolveSteps_Placeholder drives one placeholder through the resolver
// with arbitrary names and values.
func FuzzResolveSteps_Placeholder(f *testing.F) {
	f.Add("base", "https://seed.example", "https://override.example")
	f.Add("with.dots-and_underscores", "v", "")
	f.Add("", "unused", "unused")
	f.Add("bad name", "x", "y")
	f.Add("name}", "x", "${name}")

	validName := regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	f.Fuzz(func(t *testing.T, name, def, override string) {
		url := "https://host/${" + name + "}"
		sc := &schemas.Scenario{
			Steps:     []schemas.ActionDescriptor{{Kind: schemas.ActionNavigate, URL: url}},
			Variables: map[string]string{name: def},
		}

		steps, err := resolveSteps(sc, map[string]string{name: override})
		if validName.MatchString(name) {
			require.NoError(t, err, "a placeholder with a binding never fails")
			require.Len(t, steps, 1)
			assert.Equal(t, "https://host/"+override, steps[0].URL)
			return
		}
		// A rejected name either stays literal or, when it embeds brace
		// characters, forms an accidental inner placeholder that may be
		// unbound.
		if err != nil {
			assert.ErrorIs(t, err, schemas.ErrUndefinedVariable)
			return
		}
		require.Len(t, steps, 1)
		if !strings.ContainsAny(name, "${}") {
			assert.Equal(t, url, steps[0].URL, "text that does not parse as a placeholder stays literal")
		}
	})
}

// FuzzResolveSteps_Structured generates whole scenarios and checks the
// resolver's contract: no panic, the only error is an undefined variable, the
// step count is preserved and the input is never mutated.
func FuzzResolveSteps_Structured(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		sc := &schemas.Scenario{}
		if err := fuzzConsumer.GenerateStruct(sc); err != nil {
			return
		}
		overrides := map[string]string{}
		if err := fuzzConsumer.FuzzMap(&overrides); err != nil {
			overrides = nil
		}
		before := sc.Clone()

		steps, err := resolveSteps(sc, overrides)
		if err != nil {
			assert.ErrorIs(t, err, schemas.ErrUndefinedVariable)
			assert.Nil(t, steps)
		} else {
			assert.Len(t, steps, len(sc.Steps))
		}
		if diff := cmp.Diff(before, sc); diff != "" {
			t.Fatalf("input scenario mutated (-before +after):\n%s", diff)
		}
	})
}

func TestPlaceholderPattern(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"${a}", []string{"a"}},
		{"${a}${b}", []string{"a", "b"}},
		{"x ${long-name_1.2} y", []string{"long-name_1.2"}},
		{"${}", nil},
		{"$a", nil},
		{"${a b}", nil},
		{"${{a}}", nil},
	}
	for _, tc := range cases {
		var got []string
		for _, m := range placeholderPattern.FindAllStringSubmatch(tc.in, -1) {
			got = append(got, m[1])
		}
		assert.Equal(t, tc.want, got, "input %q", tc.in)
	}
}

func TestResolveSteps_ErrorIsDistinguishable(t *testing.T) {
	sc := &schemas.Scenario{
		Steps: []schemas.ActionDescriptor{{Kind: schemas.ActionNavigate, URL: "${gone}"}},
	}
	_, err := resolveSteps(sc, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schemas.ErrUndefinedVariable))
	assert.Equal(t, schemas.KindUndefinedVariable, schemas.Classify(err))
}
