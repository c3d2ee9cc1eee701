package schemas

import (
	"time"
)

// -- Action Schemas --

// ActionKind discriminates the closed set of action variants the executor
// knows how to dispatch. Unknown kinds are rejected, never silently skipped.
type ActionKind string

const (
	ActionNavigate      ActionKind = "navigate"
	ActionClick         ActionKind = "click"
	ActionDoubleClick   ActionKind = "double_click"
	ActionRightClick    ActionKind = "right_click"
	ActionHover         ActionKind = "hover"
	ActionDragAndDrop   ActionKind = "drag_and_drop"
	ActionType          ActionKind = "type"
	ActionPressKey      ActionKind = "press_key"
	ActionSelectOption  ActionKind = "select_option"
	ActionScroll        ActionKind = "scroll"
	ActionWait          ActionKind = "wait"
	ActionExecuteScript ActionKind = "execute_script"
	ActionScreenshot    ActionKind = "screenshot"
	ActionGetText       ActionKind = "get_text"
	ActionGetTitle      ActionKind = "get_title"
	ActionGetURL        ActionKind = "get_url"
)

// SelectorStrategy names the locator strategy a selector value should be
// interpreted with. The daemon does not parse selector syntax itself; the
// strategy plus raw value are handed to the driver.
type SelectorStrategy string

const (
	ByCSS   SelectorStrategy = "css"
	ByXPath SelectorStrategy = "xpath"
	ByID    SelectorStrategy = "id"
	ByName  SelectorStrategy = "name"
	ByTag   SelectorStrategy = "tag"
	ByClass SelectorStrategy = "class"
	ByText  SelectorStrategy = "text"
)

// Selector locates one element: a strategy plus the strategy-specific value.
type Selector struct {
	Using SelectorStrategy `json:"using"`
	Value string           `json:"value"`
}

// ActionDescriptor is one requested operation against a session. Only the
// fields relevant to Kind are consulted; Description is carried into reports
// verbatim and never participates in dispatch.
type ActionDescriptor struct {
	Kind     ActionKind `json:"kind"`
	Selector *Selector  `json:"selector,omitempty"`
	// Target is the drop destination for drag_and_drop.
	Target *Selector `json:"target,omitempty"`
	URL    string    `json:"url,omitempty"`
	Text   string    `json:"text,omitempty"`
	Key    string    `json:"key,omitempty"`
	Script string    `json:"script,omitempty"`
	Args   []any     `json:"args,omitempty"`
	// DurationMillis is the pause length for wait actions.
	DurationMillis int `json:"duration_ms,omitempty"`
	// TimeoutMillis overrides the kind's default per-action timeout.
	TimeoutMillis int    `json:"timeout_ms,omitempty"`
	Description   string `json:"description,omitempty"`
}

// ActionError carries the classified failure of a single action.
type ActionError struct {
	Kind   ErrorKind `json:"kind"`
	Detail string    `json:"detail"`
}

// ActionResult records the outcome of one attempted action. Exactly one is
// produced per attempted action, success or failure, so sequence reports can
// show partial progress.
type ActionResult struct {
	Kind    ActionKind `json:"kind"`
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
	// Payload holds extracted text, a page title, a URL, a base64 screenshot,
	// or a JSON-encoded script return value, depending on Kind.
	Payload        string       `json:"payload,omitempty"`
	Error          *ActionError `json:"error,omitempty"`
	DurationMillis int64        `json:"duration_ms"`
}

// ExecutionReport aggregates an action sequence run. Results holds one entry
// per attempted action in the exact order of issue; this ordering is the
// report's core guarantee.
type ExecutionReport struct {
	SessionID  string         `json:"session_id"`
	Success    bool           `json:"success"`
	Results    []ActionResult `json:"results"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
}

// Attempted reports how many actions produced a result.
func (r *ExecutionReport) Attempted() int { return len(r.Results) }

// ExecPolicy controls how a sequence reacts to a failing action. The two
// flags come from the wire as independent booleans; HaltOnFailure states the
// resolved rule: StopOnError wins outright, and with both flags false the
// sequence still halts at the first failure.
type ExecPolicy struct {
	ContinueOnError bool `json:"continue_on_error"`
	StopOnError     bool `json:"stop_on_error"`
}

// DefaultExecPolicy matches the documented defaults: halt at first failure.
func DefaultExecPolicy() ExecPolicy {
	return ExecPolicy{ContinueOnError: false, StopOnError: true}
}

// HaltOnFailure collapses the flag pair into the single mode the executor
// acts on.
func (p ExecPolicy) HaltOnFailure() bool {
	if p.StopOnError {
		return true
	}
	return !p.ContinueOnError
}
