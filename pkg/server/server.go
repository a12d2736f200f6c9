// Package server exposes the proxy over the MCP protocol and a small HTTP
// API. Every view gets its own MCP server instance; the default namespace
// is mounted at /mcp and views under /views/{name}/mcp.
package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy"
	"github.com/toolview/toolview/pkg/proxy/router"
	"github.com/toolview/toolview/pkg/proxy/view"
)

// serverVersion is advertised in the MCP handshake.
const serverVersion = "0.1.0"

// Server bridges the router to the MCP wire protocol.
type Server struct {
	cfg    *config.Config
	router *router.Router

	// mcpServers maps view name to its MCP server instance.
	mcpServers map[string]*server.MCPServer
}

// New creates the server and one MCP server per view, tools not yet
// registered. Call SyncTools after the first discovery refresh.
func New(cfg *config.Config, rt *router.Router) *Server {
	s := &Server{
		cfg:        cfg,
		router:     rt,
		mcpServers: make(map[string]*server.MCPServer),
	}

	for _, d := range rt.Views() {
		s.mcpServers[d.Name] = server.NewMCPServer(
			fmt.Sprintf("%s/%s", cfg.Name, d.Name),
			serverVersion,
			server.WithToolCapabilities(true),
			server.WithLogging(),
		)
	}
	return s
}

// SyncTools re-registers every view's tool surface from its current
// catalog. Called after startup discovery and after any refresh.
func (s *Server) SyncTools() error {
	for name, mcpServer := range s.mcpServers {
		v, err := s.router.View(name)
		if err != nil {
			return err
		}

		var tools []server.ServerTool
		if v.Exposure() == config.ExposureSearch {
			tools = s.searchModeTools(v)
		} else {
			tools, err = s.directModeTools(v)
			if err != nil {
				return err
			}
		}

		mcpServer.SetTools(tools...)
		logger.Debugw("registered view tools", "view", name, "count", len(tools))
	}
	return nil
}

// directModeTools registers every catalog entry individually.
func (s *Server) directModeTools(v *view.View) ([]server.ServerTool, error) {
	catalog := v.Catalog()
	tools := make([]server.ServerTool, 0, len(catalog))

	for _, d := range catalog {
		schema := d.InputSchema
		if schema == nil {
			// Config-only entry, upstream schema not yet known.
			schema = map[string]any{"type": "object"}
		}
		schemaJSON, err := json.Marshal(schema)
		if err != nil {
			return nil, fmt.Errorf("marshaling schema for tool %s: %w", d.Name, err)
		}

		tools = append(tools, server.ServerTool{
			Tool: mcp.Tool{
				Name:           d.Name,
				Description:    d.Description,
				RawInputSchema: schemaJSON,
			},
			Handler: s.toolHandler(v.Name(), d.Name),
		})
	}
	return tools, nil
}

// searchModeTools registers only the fuzzy-search meta-tool and its
// companion call tool.
func (s *Server) searchModeTools(v *view.View) []server.ServerTool {
	searchTool := mcp.NewTool(v.SearchToolName(),
		mcp.WithDescription(fmt.Sprintf(
			"Fuzzily search the %q view's tools by name and description. Returns the best matching tools.", v.Name())),
		mcp.WithString("query",
			mcp.Description("Free-text query. Empty lists the first tools in the catalog.")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of results.")),
	)

	callTool := mcp.NewTool(v.CallToolName(),
		mcp.WithDescription(fmt.Sprintf(
			"Invoke a tool from the %q view by name, e.g. one found via %s.", v.Name(), v.SearchToolName())),
		mcp.WithString("tool_name",
			mcp.Required(),
			mcp.Description("Exposed name of the tool to invoke.")),
		mcp.WithObject("arguments",
			mcp.Description("Arguments to pass to the tool.")),
	)

	return []server.ServerTool{
		{Tool: searchTool, Handler: s.searchHandler(v.Name())},
		{Tool: callTool, Handler: s.callToolHandler(v.Name())},
	}
}

// toolHandler forwards one exposed tool through the router.
func (s *Server) toolHandler(viewName, toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := s.router.CallTool(ctx, viewName, toolName, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return resultToMCP(res), nil
	}
}

// searchHandler serves the search meta-tool.
func (s *Server) searchHandler(viewName string) server.ToolHandlerFunc {
	return func(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		v, err := s.router.View(viewName)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		query := req.GetString("query", "")
		limit := req.GetInt("limit", 0)

		matches := v.Search(query, limit)
		items := make([]map[string]any, 0, len(matches))
		for _, m := range matches {
			items = append(items, map[string]any{
				"name":        m.Name,
				"description": m.Description,
				"server":      m.Server,
			})
		}

		payload, err := json.Marshal(map[string]any{"tools": items})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}

// callToolHandler serves the companion call meta-tool in search mode.
func (s *Server) callToolHandler(viewName string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		toolName, err := req.RequireString("tool_name")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var args map[string]any
		if raw, ok := req.GetArguments()["arguments"].(map[string]any); ok {
			args = raw
		}

		res, err := s.router.CallTool(ctx, viewName, toolName, args)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return resultToMCP(res), nil
	}
}

// resultToMCP converts a domain result to the SDK shape.
func resultToMCP(res *proxy.Result) *mcp.CallToolResult {
	if res == nil {
		return &mcp.CallToolResult{}
	}

	out := &mcp.CallToolResult{IsError: res.IsError}
	if res.StructuredContent != nil {
		out.StructuredContent = res.StructuredContent
	}

	for _, c := range res.Content {
		switch c.Type {
		case "text":
			out.Content = append(out.Content, mcp.NewTextContent(c.Text))
		case "image":
			out.Content = append(out.Content, mcp.NewImageContent(c.Data, c.MimeType))
		case "audio":
			out.Content = append(out.Content, mcp.NewAudioContent(c.Data, c.MimeType))
		default:
			out.Content = append(out.Content, mcp.NewTextContent(c.Text))
		}
	}

	// Structured-only results still need a content item for clients that
	// ignore structuredContent.
	if len(out.Content) == 0 && res.StructuredContent != nil {
		if payload, err := json.Marshal(res.StructuredContent); err == nil {
			out.Content = append(out.Content, mcp.NewTextContent(string(payload)))
		}
	}
	return out
}
