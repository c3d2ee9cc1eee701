// File: internal/server/tools_actions.go
package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vxkeys/puppetry/api/schemas"
)

// actionArgs is the shared argument envelope for the single-action tools.
// Each tool consults only the fields its kind needs; kind-specific
// requirements are enforced by the executor so the rules live in one place.
type actionArgs struct {
	SessionID      string `json:"session_id,omitempty"`
	URL            string `json:"url,omitempty"`
	Selector       string `json:"selector,omitempty"`
	Using          string `json:"using,omitempty"`
	Source         string `json:"source,omitempty"`
	Target         string `json:"target,omitempty"`
	Text           string `json:"text,omitempty"`
	Key            string `json:"key,omitempty"`
	Option         string `json:"option,omitempty"`
	Script         string `json:"script,omitempty"`
	Args           []any  `json:"args,omitempty"`
	DurationMillis int    `json:"duration_ms,omitempty"`
	TimeoutMillis  int    `json:"timeout_ms,omitempty"`
}

func (r *actionArgs) strategy() schemas.SelectorStrategy {
	if r.Using == "" {
		return schemas.ByCSS
	}
	return schemas.SelectorStrategy(r.Using)
}

func (r *actionArgs) elementSelector() *schemas.Selector {
	if r.Selector == "" {
		return nil
	}
	return &schemas.Selector{Using: r.strategy(), Value: r.Selector}
}

// actionResponse is the single-action tool payload. A failed action arrives
// here with Result.Success false and a classified error, not as a tool error.
type actionResponse struct {
	SessionID string               `json:"session_id"`
	Result    schemas.ActionResult `json:"result"`
}

func propStr(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func propInt(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

var propUsing = map[string]any{
	"type":        "string",
	"enum":        []any{"css", "xpath", "id", "name", "tag", "class", "text"},
	"description": "Selector strategy (default css)",
}

// actionToolDef describes one single-action tool: its schema surface plus how
// its arguments map onto an action descriptor.
type actionToolDef struct {
	name        string
	description string
	kind        schemas.ActionKind
	props       map[string]any
	required    []string
	build       func(r *actionArgs, d *schemas.ActionDescriptor)
}

func actionToolDefs() []actionToolDef {
	return []actionToolDef{
		{
			name:        "navigate",
			description: "Navigate the session to a URL and wait for the page to settle.",
			kind:        schemas.ActionNavigate,
			props:       map[string]any{"url": propStr("Destination URL")},
			required:    []string{"url"},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.URL = r.URL },
		},
		{
			name:        "click",
			description: "Click an element.",
			kind:        schemas.ActionClick,
			props:       map[string]any{"selector": propStr("Element selector"), "using": propUsing},
			required:    []string{"selector"},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.Selector = r.elementSelector() },
		},
		{
			name:        "double_click",
			description: "Double-click an element.",
			kind:        schemas.ActionDoubleClick,
			props:       map[string]any{"selector": propStr("Element selector"), "using": propUsing},
			required:    []string{"selector"},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.Selector = r.elementSelector() },
		},
		{
			name:        "right_click",
			description: "Right-click an element.",
			kind:        schemas.ActionRightClick,
			props:       map[string]any{"selector": propStr("Element selector"), "using": propUsing},
			required:    []string{"selector"},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.Selector = r.elementSelector() },
		},
		{
			name:        "hover",
			description: "Move the pointer over an element.",
			kind:        schemas.ActionHover,
			props:       map[string]any{"selector": propStr("Element selector"), "using": propUsing},
			required:    []string{"selector"},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.Selector = r.elementSelector() },
		},
		{
			name:        "drag_and_drop",
			description: "Drag one element onto another.",
			kind:        schemas.ActionDragAndDrop,
			props: map[string]any{
				"source": propStr("Selector of the element to drag"),
				"target": propStr("Selector of the drop destination"),
				"using":  propUsing,
			},
			required: []string{"source", "target"},
			build: func(r *actionArgs, d *schemas.ActionDescriptor) {
				if r.Source != "" {
					d.Selector = &schemas.Selector{Using: r.strategy(), Value: r.Source}
				}
				if r.Target != "" {
					d.Target = &schemas.Selector{Using: r.strategy(), Value: r.Target}
				}
			},
		},
		{
			name:        "type_text",
			description: "Type text into an element, character by character.",
			kind:        schemas.ActionType,
			props: map[string]any{
				"selector": propStr("Element selector"),
				"text":     propStr("Text to type"),
				"using":    propUsing,
			},
			required: []string{"selector", "text"},
			build: func(r *actionArgs, d *schemas.ActionDescriptor) {
				d.Selector = r.elementSelector()
				d.Text = r.Text
			},
		},
		{
			name:        "press_key",
			description: "Press a single key, on an element or on the focused element when no selector is given.",
			kind:        schemas.ActionPressKey,
			props: map[string]any{
				"key":      propStr("Key name (e.g. Enter, Tab, Escape, ArrowDown) or a single character"),
				"selector": propStr("Optional element to focus first"),
				"using":    propUsing,
			},
			required: []string{"key"},
			build: func(r *actionArgs, d *schemas.ActionDescriptor) {
				d.Key = r.Key
				d.Selector = r.elementSelector()
			},
		},
		{
			name:        "select_option",
			description: "Select a dropdown option by its visible text.",
			kind:        schemas.ActionSelectOption,
			props: map[string]any{
				"selector": propStr("Select element selector"),
				"option":   propStr("Visible text of the option to select"),
				"using":    propUsing,
			},
			required: []string{"selector", "option"},
			build: func(r *actionArgs, d *schemas.ActionDescriptor) {
				d.Selector = r.elementSelector()
				d.Text = r.Option
			},
		},
		{
			name:        "scroll",
			description: "Scroll an element into view, or scroll the page when no selector is given.",
			kind:        schemas.ActionScroll,
			props:       map[string]any{"selector": propStr("Optional element selector"), "using": propUsing},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.Selector = r.elementSelector() },
		},
		{
			name:        "wait",
			description: "Pause the sequence for a fixed duration.",
			kind:        schemas.ActionWait,
			props:       map[string]any{"duration_ms": propInt("Pause length in milliseconds")},
			required:    []string{"duration_ms"},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.DurationMillis = r.DurationMillis },
		},
		{
			name:        "execute_script",
			description: "Evaluate JavaScript in the page and return the JSON-encoded result.",
			kind:        schemas.ActionExecuteScript,
			props: map[string]any{
				"script": propStr("JavaScript source to evaluate"),
				"args":   map[string]any{"type": "array", "description": "Values exposed to the script as `arguments`"},
			},
			required: []string{"script"},
			build: func(r *actionArgs, d *schemas.ActionDescriptor) {
				d.Script = r.Script
				d.Args = r.Args
			},
		},
		{
			name:        "take_screenshot",
			description: "Capture the viewport as a base64-encoded PNG.",
			kind:        schemas.ActionScreenshot,
			props:       map[string]any{},
		},
		{
			name:        "get_text",
			description: "Extract the visible text of an element.",
			kind:        schemas.ActionGetText,
			props:       map[string]any{"selector": propStr("Element selector"), "using": propUsing},
			required:    []string{"selector"},
			build:       func(r *actionArgs, d *schemas.ActionDescriptor) { d.Selector = r.elementSelector() },
		},
		{
			name:        "get_title",
			description: "Return the current page title.",
			kind:        schemas.ActionGetTitle,
			props:       map[string]any{},
		},
		{
			name:        "get_url",
			description: "Return the current page URL.",
			kind:        schemas.ActionGetURL,
			props:       map[string]any{},
		},
	}
}

func (s *Server) registerActionTools() {
	for _, def := range actionToolDefs() {
		s.registerActionTool(def)
	}
	s.registerExecuteActionsTool()
}

func (s *Server) registerActionTool(def actionToolDef) {
	props := make(map[string]any, len(def.props)+2)
	for k, v := range def.props {
		props[k] = v
	}
	props["session_id"] = propStr("Target session; default session when omitted")
	props["timeout_ms"] = propInt("Per-action timeout override in milliseconds")

	tool := &mcp.Tool{
		Name:        def.name,
		Description: def.description,
		InputSchema: inputSchema(props, def.required),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r actionArgs
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		action := schemas.ActionDescriptor{Kind: def.kind, TimeoutMillis: r.TimeoutMillis}
		if def.build != nil {
			def.build(&r, &action)
		}
		report, err := s.deps.Executor.Execute(ctx, r.SessionID, []schemas.ActionDescriptor{action}, schemas.DefaultExecPolicy())
		if err != nil {
			return nil, err
		}
		return actionResponse{SessionID: report.SessionID, Result: report.Results[0]}, nil
	})
}

// --- execute_actions ---

type executeActionsRequest struct {
	SessionID       string                     `json:"session_id,omitempty"`
	Actions         []schemas.ActionDescriptor `json:"actions"`
	ContinueOnError bool                       `json:"continue_on_error,omitempty"`
	StopOnError     bool                       `json:"stop_on_error,omitempty"`
}

func (s *Server) registerExecuteActionsTool() {
	tool := &mcp.Tool{
		Name:        "execute_actions",
		Description: "Run an ordered sequence of action descriptors against one session and return the full report. Stops at the first failure unless continue_on_error is set.",
		InputSchema: inputSchema(map[string]any{
			"session_id": propStr("Target session; default session when omitted"),
			"actions": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "object"},
				"description": "Action descriptors, executed strictly in order",
			},
			"continue_on_error": map[string]any{"type": "boolean", "description": "Attempt every action even after failures"},
			"stop_on_error":     map[string]any{"type": "boolean", "description": "Halt at the first failure; wins over continue_on_error"},
		}, []string{"actions"}),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r executeActionsRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		if len(r.Actions) == 0 {
			return nil, fmt.Errorf("%w: actions must not be empty", schemas.ErrInvalidArgument)
		}
		policy := schemas.ExecPolicy{ContinueOnError: r.ContinueOnError, StopOnError: r.StopOnError}
		report, err := s.deps.Executor.Execute(ctx, r.SessionID, r.Actions, policy)
		if err != nil {
			return nil, err
		}
		return report, nil
	})
}
