// File: internal/server/plugin.go
package server

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"
)

// ToolSpec pairs a tool definition with its handler.
type ToolSpec struct {
	Tool   *mcp.Tool
	Handle func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Plugin contributes extra tools to the MCP surface. Tools is called once,
// at registration, with the same dependency bundle the built-in tools use.
type Plugin interface {
	Name() string
	Tools(deps Deps) []ToolSpec
}

// RegisterPlugin adds a plugin's tools to the server. Registration is
// all-or-nothing: a nil spec or a name collision rejects the whole plugin.
func (s *Server) RegisterPlugin(p Plugin) error {
	specs := p.Tools(s.deps)
	seen := make(map[string]struct{}, len(specs))
	for _, spec := range specs {
		if spec.Tool == nil || spec.Handle == nil {
			return fmt.Errorf("plugin %q: tool spec missing tool or handler", p.Name())
		}
		if _, dup := s.tools[spec.Tool.Name]; dup {
			return fmt.Errorf("plugin %q: tool %q is already registered", p.Name(), spec.Tool.Name)
		}
		if _, dup := seen[spec.Tool.Name]; dup {
			return fmt.Errorf("plugin %q: tool %q appears twice", p.Name(), spec.Tool.Name)
		}
		seen[spec.Tool.Name] = struct{}{}
	}
	for _, spec := range specs {
		s.tools[spec.Tool.Name] = struct{}{}
		s.mcp.AddTool(spec.Tool, spec.Handle)
	}
	s.plugins = append(s.plugins, p.Name())
	s.log.Info("Plugin registered.", zap.String("plugin", p.Name()), zap.Int("tools", len(specs)))
	return nil
}

// Plugins lists the registered plugin names in registration order.
func (s *Server) Plugins() []string {
	out := make([]string, len(s.plugins))
	copy(out, s.plugins)
	return out
}
