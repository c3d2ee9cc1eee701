package schemas

import "time"

// -- Scenario Schemas --

// ScenarioMeta is bookkeeping attached to a scenario. TotalSteps always
// equals len(Scenario.Steps); every mutation path recomputes it.
type ScenarioMeta struct {
	TotalSteps     int       `json:"total_steps"`
	DurationMillis int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
	LastModified   time.Time `json:"last_modified"`
	LastPlayed     time.Time `json:"last_played,omitempty"`
}

// Scenario is a named, persisted, ordered sequence of action descriptors,
// optionally parameterized by ${name} placeholders with stored defaults.
type Scenario struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// SessionID names the session the scenario was recorded against.
	SessionID string             `json:"session_id,omitempty"`
	Steps     []ActionDescriptor `json:"steps"`
	// Variables maps placeholder names to their default values.
	Variables map[string]string `json:"variables,omitempty"`
	Meta      ScenarioMeta      `json:"meta"`
}

// Clone returns a deep copy. Steps and Variables are copied so playback
// substitution and patch application never reach back into the stored entity;
// script args are copied one level deep, which covers substitution because it
// only ever writes replacement strings into the copied slice.
func (s *Scenario) Clone() *Scenario {
	if s == nil {
		return nil
	}
	out := *s
	out.Steps = CloneSteps(s.Steps)
	if s.Variables != nil {
		out.Variables = make(map[string]string, len(s.Variables))
		for k, v := range s.Variables {
			out.Variables[k] = v
		}
	}
	return &out
}

// CloneStep deep-copies one step, including selector pointers and the arg
// slice.
func CloneStep(step ActionDescriptor) ActionDescriptor {
	out := step
	if step.Selector != nil {
		sel := *step.Selector
		out.Selector = &sel
	}
	if step.Target != nil {
		tgt := *step.Target
		out.Target = &tgt
	}
	if step.Args != nil {
		out.Args = make([]any, len(step.Args))
		copy(out.Args, step.Args)
	}
	return out
}

// CloneSteps deep-copies a step list.
func CloneSteps(steps []ActionDescriptor) []ActionDescriptor {
	if steps == nil {
		return nil
	}
	out := make([]ActionDescriptor, len(steps))
	for i, step := range steps {
		out[i] = CloneStep(step)
	}
	return out
}

// ScenarioSummary is the list projection of a scenario; step bodies stay out
// of list responses.
type ScenarioSummary struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description,omitempty"`
	SessionID      string    `json:"session_id,omitempty"`
	TotalSteps     int       `json:"total_steps"`
	DurationMillis int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
	LastModified   time.Time `json:"last_modified"`
}

// Summary projects the scenario for list responses.
func (s *Scenario) Summary() ScenarioSummary {
	return ScenarioSummary{
		ID:             s.ID,
		Name:           s.Name,
		Description:    s.Description,
		SessionID:      s.SessionID,
		TotalSteps:     s.Meta.TotalSteps,
		DurationMillis: s.Meta.DurationMillis,
		CreatedAt:      s.Meta.CreatedAt,
		LastModified:   s.Meta.LastModified,
	}
}

// ScenarioPatch carries a partial update. Nil pointers leave the field
// untouched; Variables are merged key-wise into the existing map rather than
// replacing it.
type ScenarioPatch struct {
	Name        *string             `json:"name,omitempty"`
	Description *string             `json:"description,omitempty"`
	Steps       *[]ActionDescriptor `json:"steps,omitempty"`
	Variables   map[string]string   `json:"variables,omitempty"`
}
