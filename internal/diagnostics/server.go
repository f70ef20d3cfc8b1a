// Package diagnostics exposes an MCP introspection server over the
// running daemon's adapter set and recent verdict history, for operators
// and AI agents debugging module behavior without touching the decision
// path itself.
package diagnostics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"zynx/internal/adapter"
	"zynx/internal/model"
	"zynx/internal/policy"
)

// verdictRecord is one entry in the recent-history ring buffer.
type verdictRecord struct {
	When    time.Time
	ModuleID string
	Verdict model.Verdict
}

// Server is the MCP diagnostics endpoint. It never influences a check
// call; it only observes.
type Server struct {
	mcpServer *server.MCPServer
	engine    *policy.Engine

	mu        sync.RWMutex
	history   []verdictRecord
	startTime time.Time
}

// NewServer builds a diagnostics server over engine's adapter set.
func NewServer(engine *policy.Engine) *Server {
	s := &Server{
		engine:    engine,
		startTime: time.Now(),
	}

	srv := server.NewMCPServer(
		"zynxd",
		"1.0.0",
		server.WithToolCapabilities(false),
	)
	s.registerTools(srv)
	s.mcpServer = srv
	return s
}

// RecordResults appends one fork event's per-adapter results to the
// history ring buffer, called by the daemon after each Evaluate.
func (s *Server) RecordResults(results []policy.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for _, r := range results {
		s.history = append(s.history, verdictRecord{When: now, ModuleID: r.ModuleID, Verdict: r.Verdict})
	}
	if len(s.history) > 1000 {
		s.history = s.history[len(s.history)-1000:]
	}
}

// ServeStdio blocks serving the MCP protocol over stdin/stdout.
func (s *Server) ServeStdio(ctx context.Context) error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("get_status",
		mcp.WithDescription("Get zynxd daemon status"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.mu.RLock()
		historyCount := len(s.history)
		s.mu.RUnlock()
		data := map[string]any{
			"status":        "running",
			"uptime":        time.Since(s.startTime).String(),
			"adapter_count": len(s.engine.Adapters()),
			"history_count": historyCount,
		}
		return jsonResult(data)
	})

	srv.AddTool(mcp.NewTool("list_adapters",
		mcp.WithDescription("List configured adapters and their transport kind"),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		adapters := s.engine.Adapters()
		result := make([]map[string]any, len(adapters))
		for i, a := range adapters {
			result[i] = map[string]any{
				"module_id": a.ModuleID(),
				"filter":    a.FilterKind().String(),
			}
		}
		return jsonResult(result)
	})

	srv.AddTool(mcp.NewTool("get_recent_verdicts",
		mcp.WithDescription("Get recent per-adapter verdicts"),
		mcp.WithNumber("limit", mcp.Description("Max number of records to return (default 20)")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := 20
		if args := req.Params.Arguments; args != nil {
			if l, ok := args["limit"].(float64); ok && l > 0 {
				limit = int(l)
			}
		}
		s.mu.RLock()
		records := s.history
		s.mu.RUnlock()
		if len(records) > limit {
			records = records[len(records)-limit:]
		}
		result := make([]map[string]any, len(records))
		for i, r := range records {
			result[i] = map[string]any{
				"time":      r.When.Format(time.RFC3339Nano),
				"module_id": r.ModuleID,
				"verdict":   r.Verdict.String(),
			}
		}
		return jsonResult(result)
	})

	srv.AddTool(mcp.NewTool("probe_adapter",
		mcp.WithDescription("Run one synthetic check against a single adapter by module id"),
		mcp.WithString("module_id", mcp.Required(), mcp.Description("Module id to probe")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var moduleID string
		if args := req.Params.Arguments; args != nil {
			moduleID, _ = args["module_id"].(string)
		}
		if moduleID == "" {
			return mcp.NewToolResultError("module_id is required"), nil
		}
		var target *adapter.Adapter
		for _, a := range s.engine.Adapters() {
			if a.ModuleID() == moduleID {
				target = a
				break
			}
		}
		if target == nil {
			return mcp.NewToolResultError(fmt.Sprintf("no adapter with module_id %q", moduleID)), nil
		}

		probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		verdict := target.Check(probeCtx, syntheticProbeArgs(), func(ctx context.Context) model.SlowArgs {
			return model.SlowArgs{Fast: syntheticProbeArgs()}
		})
		return jsonResult(map[string]any{"module_id": moduleID, "verdict": verdict.String()})
	})
}

// syntheticProbeArgs is an inert fast-args value used only for manual
// probing; it does not correspond to any real fork event.
func syntheticProbeArgs() model.FastArgs {
	return model.FastArgs{
		UID: 0,
		GID: 0,
		PackageInfo: []model.PackageInfo{
			{PackageName: "diagnostics.probe", DataDir: "/data/data/diagnostics.probe", SEInfo: "default"},
		},
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
