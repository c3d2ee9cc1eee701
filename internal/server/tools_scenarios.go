// File: internal/server/tools_scenarios.go
package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/scenario"
)

func (s *Server) registerScenarioTools() {
	s.registerStartRecordingTool()
	s.registerStopRecordingTool()
	s.registerPlayScenarioTool()
	s.registerListScenariosTool()
	s.registerGetScenarioTool()
	s.registerUpdateScenarioTool()
	s.registerDeleteScenarioTool()
}

// requireRef rejects scenario tools called without a scenario reference.
func requireRef(ref string) error {
	if ref == "" {
		return fmt.Errorf("%w: scenario is required", schemas.ErrInvalidArgument)
	}
	return nil
}

// --- start_recording ---

type startRecordingRequest struct {
	Name        string `json:"name"`
	SessionID   string `json:"session_id,omitempty"`
	Description string `json:"description,omitempty"`
}

func (s *Server) registerStartRecordingTool() {
	tool := &mcp.Tool{
		Name:        "start_recording",
		Description: "Start recording the session's executed actions into a new named scenario. One recording per session.",
		InputSchema: inputSchema(map[string]any{
			"name":        propStr("Name for the new scenario"),
			"session_id":  propStr("Session to record; default session when omitted"),
			"description": propStr("Free-form description"),
		}, []string{"name"}),
	}

	s.addTool(tool, func(_ context.Context, args []byte) (any, error) {
		var r startRecordingRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		return s.deps.Scenarios.StartRecording(r.SessionID, r.Name, r.Description)
	})
}

// --- stop_recording ---

type stopRecordingRequest struct {
	Name string `json:"name"`
	// Save defaults to true when absent.
	Save *bool `json:"save,omitempty"`
}

func (s *Server) registerStopRecordingTool() {
	tool := &mcp.Tool{
		Name:        "stop_recording",
		Description: "Stop the named recording and return the captured scenario. Persisted unless save is false.",
		InputSchema: inputSchema(map[string]any{
			"name": propStr("Name of the recording scenario"),
			"save": map[string]any{"type": "boolean", "description": "Persist the scenario (default true)"},
		}, []string{"name"}),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r stopRecordingRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		save := true
		if r.Save != nil {
			save = *r.Save
		}
		return s.deps.Scenarios.StopRecording(ctx, r.Name, save)
	})
}

// --- play_scenario ---

type playScenarioRequest struct {
	Scenario        string            `json:"scenario"`
	SessionID       string            `json:"session_id,omitempty"`
	Variables       map[string]string `json:"variables,omitempty"`
	ContinueOnError bool              `json:"continue_on_error,omitempty"`
	StopOnError     bool              `json:"stop_on_error,omitempty"`
	PaceMillis      int               `json:"pace_ms,omitempty"`
}

func (s *Server) registerPlayScenarioTool() {
	tool := &mcp.Tool{
		Name:        "play_scenario",
		Description: "Replay a stored scenario against a session, substituting ${name} placeholders from variables, and return the execution report.",
		InputSchema: inputSchema(map[string]any{
			"scenario":          propStr("Scenario id or name"),
			"session_id":        propStr("Target session; default session when omitted"),
			"variables":         map[string]any{"type": "object", "description": "Placeholder values; override the scenario's stored defaults"},
			"continue_on_error": map[string]any{"type": "boolean", "description": "Attempt every step even after failures"},
			"stop_on_error":     map[string]any{"type": "boolean", "description": "Halt at the first failing step; wins over continue_on_error"},
			"pace_ms":           propInt("Minimum interval between steps in milliseconds; overrides the configured pace"),
		}, []string{"scenario"}),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r playScenarioRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		if err := requireRef(r.Scenario); err != nil {
			return nil, err
		}
		return s.deps.Scenarios.Play(ctx, scenario.PlayRequest{
			Ref:        r.Scenario,
			SessionID:  r.SessionID,
			Overrides:  r.Variables,
			Policy:     schemas.ExecPolicy{ContinueOnError: r.ContinueOnError, StopOnError: r.StopOnError},
			PaceMillis: r.PaceMillis,
		})
	})
}

// --- list_scenarios ---

type listScenariosRequest struct {
	Filter string `json:"filter,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

type scenarioListResponse struct {
	Count     int                       `json:"count"`
	Scenarios []schemas.ScenarioSummary `json:"scenarios"`
}

func (s *Server) registerListScenariosTool() {
	tool := &mcp.Tool{
		Name:        "list_scenarios",
		Description: "List stored scenarios, most recently modified first. Step bodies are not included.",
		InputSchema: inputSchema(map[string]any{
			"filter": propStr("Case-insensitive substring match on name and description"),
			"limit":  propInt("Return at most N scenarios"),
		}, nil),
	}

	s.addTool(tool, func(_ context.Context, args []byte) (any, error) {
		var r listScenariosRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		list := s.deps.Scenarios.List(r.Filter, r.Limit)
		return scenarioListResponse{Count: len(list), Scenarios: list}, nil
	})
}

// --- get_scenario ---

type getScenarioRequest struct {
	Scenario string `json:"scenario"`
}

func (s *Server) registerGetScenarioTool() {
	tool := &mcp.Tool{
		Name:        "get_scenario",
		Description: "Return a stored scenario in full, including its steps and variable defaults.",
		InputSchema: inputSchema(map[string]any{
			"scenario": propStr("Scenario id or name"),
		}, []string{"scenario"}),
	}

	s.addTool(tool, func(_ context.Context, args []byte) (any, error) {
		var r getScenarioRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		if err := requireRef(r.Scenario); err != nil {
			return nil, err
		}
		return s.deps.Scenarios.Get(r.Scenario)
	})
}

// --- update_scenario ---

type updateScenarioRequest struct {
	Scenario    string                      `json:"scenario"`
	Name        *string                     `json:"name,omitempty"`
	Description *string                     `json:"description,omitempty"`
	Steps       *[]schemas.ActionDescriptor `json:"steps,omitempty"`
	Variables   map[string]string           `json:"variables,omitempty"`
}

func (s *Server) registerUpdateScenarioTool() {
	tool := &mcp.Tool{
		Name:        "update_scenario",
		Description: "Patch a stored scenario. Omitted fields stay untouched; variables merge key-wise into the existing defaults.",
		InputSchema: inputSchema(map[string]any{
			"scenario":    propStr("Scenario id or name"),
			"name":        propStr("New name"),
			"description": propStr("New description"),
			"steps": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "object"},
				"description": "Replacement step list of action descriptors",
			},
			"variables": map[string]any{"type": "object", "description": "Variable defaults to merge in"},
		}, []string{"scenario"}),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r updateScenarioRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		if err := requireRef(r.Scenario); err != nil {
			return nil, err
		}
		return s.deps.Scenarios.Update(ctx, r.Scenario, schemas.ScenarioPatch{
			Name:        r.Name,
			Description: r.Description,
			Steps:       r.Steps,
			Variables:   r.Variables,
		})
	})
}

// --- delete_scenario ---

type deleteScenarioRequest struct {
	Scenario string `json:"scenario"`
	Confirm  bool   `json:"confirm,omitempty"`
}

type deleteScenarioResponse struct {
	Scenario string `json:"scenario"`
	Deleted  bool   `json:"deleted"`
}

func (s *Server) registerDeleteScenarioTool() {
	tool := &mcp.Tool{
		Name:        "delete_scenario",
		Description: "Delete a stored scenario. Refuses to act until confirm is true.",
		InputSchema: inputSchema(map[string]any{
			"scenario": propStr("Scenario id or name"),
			"confirm":  map[string]any{"type": "boolean", "description": "Must be true; guards against accidental deletion"},
		}, []string{"scenario", "confirm"}),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r deleteScenarioRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		if err := requireRef(r.Scenario); err != nil {
			return nil, err
		}
		if err := s.deps.Scenarios.Delete(ctx, r.Scenario, r.Confirm); err != nil {
			return nil, err
		}
		return deleteScenarioResponse{Scenario: r.Scenario, Deleted: true}, nil
	})
}
