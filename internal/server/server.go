// Package server exposes the daemon to clients: the full tool surface over
// the Model Context Protocol, plus an optional HTTP listener with read-only
// views of the session and scenario state.
//
// Domain failures never surface as protocol errors. A failed precondition
// becomes an MCP error result carrying the classified kind; a failed browser
// action travels inside the JSON report exactly as the executor produced it.
package server

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/vxkeys/puppetry/api/schemas"
	"github.com/vxkeys/puppetry/internal/config"
	"github.com/vxkeys/puppetry/internal/executor"
	"github.com/vxkeys/puppetry/internal/scenario"
	"github.com/vxkeys/puppetry/internal/session"
)

// Deps bundles the core services the tool surface is built from. Plugins
// receive the same bundle.
type Deps struct {
	Registry  *session.Registry
	Executor  *executor.Executor
	Scenarios *scenario.Service
	Logger    *zap.Logger
}

// Server hosts the MCP tool surface and the optional HTTP listener.
type Server struct {
	cfg     *config.Config
	version string
	log     *zap.Logger
	deps    Deps

	mcp *mcp.Server
	// tools tracks registered tool names so a plugin cannot shadow a
	// built-in or another plugin.
	tools   map[string]struct{}
	plugins []string
}

// New builds a server with every built-in tool registered. The caller owns
// the lifecycle of the services inside deps.
func New(cfg *config.Config, version string, deps Deps) *Server {
	s := &Server{
		cfg:     cfg,
		version: version,
		log:     deps.Logger.Named("server"),
		deps:    deps,
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    "puppetry",
			Version: version,
		}, nil),
		tools: make(map[string]struct{}),
	}
	s.registerSessionTools()
	s.registerActionTools()
	s.registerScenarioTools()
	return s
}

// Run serves the MCP protocol on stdio until ctx ends.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("MCP server listening on stdio.", zap.Int("tools", len(s.tools)))
	return s.Serve(ctx, &mcp.StdioTransport{})
}

// Serve runs the MCP protocol over the given transport. Tests connect an
// in-memory transport here.
func (s *Server) Serve(ctx context.Context, t mcp.Transport) error {
	return s.mcp.Run(ctx, t)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// addTool registers one built-in tool. The handler receives the raw argument
// bytes and returns the response value to marshal; a handler error is folded
// into an MCP error result, so the protocol call itself still succeeds.
func (s *Server) addTool(tool *mcp.Tool, handle func(ctx context.Context, args []byte) (any, error)) {
	s.tools[tool.Name] = struct{}{}
	s.mcp.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		resp, err := handle(ctx, req.Params.Arguments)
		if err != nil {
			metricToolCalls.WithLabelValues(tool.Name, "error").Inc()
			s.log.Debug("Tool call failed.", zap.String("tool", tool.Name), zap.Error(err))
			return errorResult(err), nil
		}
		metricToolCalls.WithLabelValues(tool.Name, "ok").Inc()
		return textResult(resp)
	})
}

// decodeArgs unmarshals tool arguments into the given request struct. Absent
// arguments decode to the zero request so tools without required fields work
// with an empty call.
func decodeArgs(raw []byte, into any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return fmt.Errorf("%w: %v", schemas.ErrInvalidArgument, err)
	}
	return nil
}

// textResult marshals v into a single JSON text content block.
func textResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return errorResult(fmt.Errorf("encoding response: %v", err)), nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

// errorResult folds a failure into an MCP error result, prefixed with the
// classified kind so callers can branch without parsing prose.
func errorResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(fmt.Errorf("%s: %s", schemas.Classify(err), err.Error()))
	return &res
}
