package domtools

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domq/kit"
)

// RegisterMCP registers the document tools on an MCP server.
func (t *Tools) RegisterMCP(srv *mcp.Server) {
	t.registerFindTool(srv)
	t.registerTextTool(srv)
	t.registerRemoveTool(srv)
	t.registerAttrTool(srv)
	t.registerMarkdownTool(srv)
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

// queryProperties are shared by every tool.
func queryProperties(extra map[string]any) map[string]any {
	p := map[string]any{
		"html":  map[string]any{"type": "string", "description": "HTML document or fragment"},
		"css":   map[string]any{"type": "string", "description": "CSS selector"},
		"xpath": map[string]any{"type": "string", "description": "XPath expression, used when css is empty"},
	}
	for k, v := range extra {
		p[k] = v
	}
	return p
}

func (t *Tools) endpoint(fn kit.Endpoint) kit.Endpoint {
	return kit.Chain(kit.Logging(t.logger))(fn)
}

func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

// --- find ---

type findRequest struct {
	Query
	Format string `json:"format,omitempty"`
}

func (t *Tools) registerFindTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dom_find",
		Description: "Select nodes in an HTML document with a CSS selector or XPath expression. Returns each match as HTML, text or Markdown.",
		InputSchema: inputSchema(queryProperties(map[string]any{
			"format": map[string]any{"type": "string", "enum": []any{"html", "text", "markdown"}, "description": "Output format (default: html)"},
		}), []string{"html"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*findRequest)
		return t.Find(r.Query, r.Format)
	}

	kit.RegisterMCPTool(srv, tool, t.endpoint(endpoint), decodeInto[findRequest])
}

// --- text ---

func (t *Tools) registerTextTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dom_text",
		Description: "Return the text content of the matching nodes, joined with spaces.",
		InputSchema: inputSchema(queryProperties(nil), []string{"html"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		text, err := t.Text(*req.(*Query))
		if err != nil {
			return nil, err
		}
		return map[string]string{"text": text}, nil
	}

	kit.RegisterMCPTool(srv, tool, t.endpoint(endpoint), decodeInto[Query])
}

// --- remove ---

func (t *Tools) registerRemoveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dom_remove",
		Description: "Remove the matching nodes and return the resulting document.",
		InputSchema: inputSchema(queryProperties(nil), []string{"html"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		return t.Remove(*req.(*Query))
	}

	kit.RegisterMCPTool(srv, tool, t.endpoint(endpoint), decodeInto[Query])
}

// --- attr ---

type attrRequest struct {
	Query
	Name  string  `json:"name"`
	Value *string `json:"value,omitempty"`
}

func (t *Tools) registerAttrTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dom_attr",
		Description: "Read an attribute from the first match, or set it on every match when value is given.",
		InputSchema: inputSchema(queryProperties(map[string]any{
			"name":  map[string]any{"type": "string", "description": "Attribute name"},
			"value": map[string]any{"type": "string", "description": "New value; omit to read"},
		}), []string{"html", "name"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*attrRequest)
		return t.Attr(r.Query, r.Name, r.Value)
	}

	kit.RegisterMCPTool(srv, tool, t.endpoint(endpoint), decodeInto[attrRequest])
}

// --- markdown ---

func (t *Tools) registerMarkdownTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dom_markdown",
		Description: "Convert the matching nodes, or the whole document without a selector, to Markdown.",
		InputSchema: inputSchema(queryProperties(nil), []string{"html"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		md, err := t.Markdown(*req.(*Query))
		if err != nil {
			return nil, err
		}
		return map[string]string{"markdown": md}, nil
	}

	kit.RegisterMCPTool(srv, tool, t.endpoint(endpoint), decodeInto[Query])
}
