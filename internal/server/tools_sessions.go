// File: internal/server/tools_sessions.go
package server

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vxkeys/puppetry/api/schemas"
)

func (s *Server) registerSessionTools() {
	s.registerOpenSessionTool()
	s.registerCloseSessionTool()
	s.registerListSessionsTool()
	s.registerConsoleLogsTool()
}

// --- open_session ---

type openSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Browser   string `json:"browser,omitempty"`
	// Headless distinguishes "not provided" from an explicit false; the
	// daemon-wide default applies when absent.
	Headless       *bool  `json:"headless,omitempty"`
	ViewportWidth  int    `json:"viewport_width,omitempty"`
	ViewportHeight int    `json:"viewport_height,omitempty"`
	UserAgent      string `json:"user_agent,omitempty"`
	Proxy          string `json:"proxy,omitempty"`
}

func (s *Server) registerOpenSessionTool() {
	tool := &mcp.Tool{
		Name:        "open_session",
		Description: "Open a new browser session. Returns the session id and the effective configuration.",
		InputSchema: inputSchema(map[string]any{
			"session_id":      map[string]any{"type": "string", "description": "Requested session id; generated when omitted"},
			"browser":         map[string]any{"type": "string", "description": "Configured browser variant (e.g. chrome, chromium)"},
			"headless":        map[string]any{"type": "boolean", "description": "Run without a visible window (default from daemon config)"},
			"viewport_width":  map[string]any{"type": "integer", "description": "Viewport width in pixels"},
			"viewport_height": map[string]any{"type": "integer", "description": "Viewport height in pixels"},
			"user_agent":      map[string]any{"type": "string", "description": "User-Agent override"},
			"proxy":           map[string]any{"type": "string", "description": "Outbound proxy URL"},
		}, nil),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r openSessionRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		cfg := schemas.SessionConfig{
			ID:             r.SessionID,
			Browser:        r.Browser,
			Headless:       s.cfg.Browser.Headless,
			ViewportWidth:  r.ViewportWidth,
			ViewportHeight: r.ViewportHeight,
			UserAgent:      r.UserAgent,
			Proxy:          r.Proxy,
		}
		if r.Headless != nil {
			cfg.Headless = *r.Headless
		}
		sess, err := s.deps.Registry.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return sess.Summary(), nil
	})
}

// --- close_session ---

type closeSessionRequest struct {
	SessionID string `json:"session_id,omitempty"`
}

type closeSessionResponse struct {
	SessionID string `json:"session_id,omitempty"`
	Closed    bool   `json:"closed"`
}

func (s *Server) registerCloseSessionTool() {
	tool := &mcp.Tool{
		Name:        "close_session",
		Description: "Close a browser session. Omitting session_id closes the default session; closing an unknown session is a no-op.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session to close; default session when omitted"},
		}, nil),
	}

	s.addTool(tool, func(ctx context.Context, args []byte) (any, error) {
		var r closeSessionRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		// Resolve first so the response names the session that actually
		// closed, including the default-session case.
		sess, err := s.deps.Registry.Resolve(r.SessionID)
		if err != nil {
			return closeSessionResponse{SessionID: r.SessionID, Closed: false}, nil
		}
		if err := s.deps.Registry.Close(sess.ID()); err != nil {
			return nil, err
		}
		return closeSessionResponse{SessionID: sess.ID(), Closed: true}, nil
	})
}

// --- list_sessions ---

type sessionListResponse struct {
	Count    int                      `json:"count"`
	Sessions []schemas.SessionSummary `json:"sessions"`
}

func (s *Server) registerListSessionsTool() {
	tool := &mcp.Tool{
		Name:        "list_sessions",
		Description: "List live browser sessions in open order with their configuration snapshots.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	s.addTool(tool, func(_ context.Context, _ []byte) (any, error) {
		sessions := s.deps.Registry.List()
		return sessionListResponse{Count: len(sessions), Sessions: sessions}, nil
	})
}

// --- console_logs ---

type consoleLogsRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

type consoleLogsResponse struct {
	SessionID string                 `json:"session_id"`
	Count     int                    `json:"count"`
	Entries   []schemas.ConsoleEntry `json:"entries"`
}

func (s *Server) registerConsoleLogsTool() {
	tool := &mcp.Tool{
		Name:        "console_logs",
		Description: "Return captured browser console messages for a session, oldest first.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Session to read; default session when omitted"},
			"limit":      map[string]any{"type": "integer", "description": "Return only the newest N entries"},
		}, nil),
	}

	s.addTool(tool, func(_ context.Context, args []byte) (any, error) {
		var r consoleLogsRequest
		if err := decodeArgs(args, &r); err != nil {
			return nil, err
		}
		sess, err := s.deps.Registry.Resolve(r.SessionID)
		if err != nil {
			return nil, err
		}
		entries := sess.ConsoleLogs(r.Limit)
		return consoleLogsResponse{SessionID: sess.ID(), Count: len(entries), Entries: entries}, nil
	})
}
