// Package client implements the upstream link over the MCP protocol using
// the mark3labs/mcp-go SDK. A link is one long-lived connection to one
// upstream server, reused across calls, supporting stdio, SSE and
// streamable-HTTP transports.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/toolview/toolview/pkg/config"
	"github.com/toolview/toolview/pkg/logger"
	"github.com/toolview/toolview/pkg/proxy"
)

const (
	// httpTimeout bounds individual HTTP requests to upstream servers.
	httpTimeout = 30 * time.Second

	// clientName identifies the proxy in the MCP handshake.
	clientName = "toolview"

	// clientVersion is reported alongside clientName.
	clientVersion = "0.1.0"
)

// Link is a live connection to one upstream MCP server.
type Link struct {
	server string
	client *client.Client
}

var _ proxy.UpstreamLink = (*Link)(nil)

// Connect establishes a link to an upstream server: builds the transport
// for the configured protocol, starts the connection and completes the MCP
// initialization handshake.
func Connect(ctx context.Context, server string, cfg *config.UpstreamServer) (*Link, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", server, err)
	}

	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("server %s: starting connection: %w", server, err)
	}

	if _, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("server %s: initialize handshake: %w", server, err)
	}

	logger.Debugf("Connected to upstream server %s (%s)", server, cfg.Transport)
	return &Link{server: server, client: c}, nil
}

// newClient builds the transport-specific MCP client.
func newClient(cfg *config.UpstreamServer) (*client.Client, error) {
	switch cfg.Transport {
	case config.TransportStdio:
		env := make([]string, 0, len(cfg.Env))
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		return client.NewStdioMCPClient(cfg.Command[0], env, cfg.Command[1:]...)

	case config.TransportSSE:
		return client.NewSSEMCPClient(
			cfg.URL,
			transport.WithHTTPClient(newHTTPClient(cfg.Headers)),
		)

	case config.TransportStreamableHTTP:
		return client.NewStreamableHttpClient(
			cfg.URL,
			transport.WithHTTPTimeout(httpTimeout),
			transport.WithHTTPBasicClient(newHTTPClient(cfg.Headers)),
		)

	default:
		return nil, fmt.Errorf("%w: unsupported transport %q", proxy.ErrInvalidConfig, cfg.Transport)
	}
}

// headerRoundTripper injects configured headers into every upstream request.
type headerRoundTripper struct {
	base    http.RoundTripper
	headers map[string]string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range h.headers {
		req.Header.Set(k, v)
	}
	return h.base.RoundTrip(req)
}

func newHTTPClient(headers map[string]string) *http.Client {
	rt := http.DefaultTransport
	if len(headers) > 0 {
		rt = &headerRoundTripper{base: http.DefaultTransport, headers: headers}
	}
	return &http.Client{Transport: rt, Timeout: httpTimeout}
}

// ListTools queries the upstream server's tool catalog.
func (l *Link) ListTools(ctx context.Context) ([]proxy.Tool, error) {
	result, err := l.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, wrapUpstreamError(err, l.server, "list tools")
	}

	tools := make([]proxy.Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tools = append(tools, proxy.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: schemaToMap(t.InputSchema),
			Server:      l.server,
		})
	}
	return tools, nil
}

// CallTool invokes a tool on the upstream server.
func (l *Link) CallTool(ctx context.Context, name string, args map[string]any) (*proxy.Result, error) {
	result, err := l.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, wrapUpstreamError(err, l.server, "call "+name)
	}

	return resultFromMCP(result), nil
}

// Close shuts the connection down.
func (l *Link) Close() error {
	return l.client.Close()
}

// wrapUpstreamError maps transport errors onto the domain's sentinel errors
// so callers can use errors.Is instead of string matching.
func wrapUpstreamError(err error, server, operation string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s on %s: %v", proxy.ErrTimeout, operation, server, err)
	}
	return fmt.Errorf("%s on %s: %w", operation, server, err)
}

// schemaToMap converts the SDK's schema struct to the plain map the rest of
// the system works with. Round-tripping through JSON keeps raw schemas and
// typed schemas in the same shape.
func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// resultFromMCP converts an SDK tool result into the domain shape.
func resultFromMCP(result *mcp.CallToolResult) *proxy.Result {
	if result == nil {
		return nil
	}

	out := &proxy.Result{IsError: result.IsError}

	if sc, ok := result.StructuredContent.(map[string]any); ok {
		out.StructuredContent = sc
	}

	for _, content := range result.Content {
		out.Content = append(out.Content, convertContent(content))
	}
	return out
}

func convertContent(content mcp.Content) proxy.Content {
	if text, ok := mcp.AsTextContent(content); ok {
		return proxy.Content{Type: "text", Text: text.Text}
	}
	if image, ok := mcp.AsImageContent(content); ok {
		return proxy.Content{Type: "image", Data: image.Data, MimeType: image.MIMEType}
	}
	if audio, ok := mcp.AsAudioContent(content); ok {
		return proxy.Content{Type: "audio", Data: audio.Data, MimeType: audio.MIMEType}
	}
	if res, ok := mcp.AsEmbeddedResource(content); ok {
		if text, ok := res.Resource.(mcp.TextResourceContents); ok {
			return proxy.Content{Type: "resource", Text: text.Text, URI: text.URI, MimeType: text.MIMEType}
		}
		if blob, ok := res.Resource.(mcp.BlobResourceContents); ok {
			return proxy.Content{Type: "resource", Data: blob.Blob, URI: blob.URI, MimeType: blob.MIMEType}
		}
	}
	logger.Warnf("Encountered unknown content type %T, marking as unknown content", content)
	return proxy.Content{Type: "unknown"}
}
