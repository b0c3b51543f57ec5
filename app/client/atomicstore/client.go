package atomicstore

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/samber/do"
	"github.com/samber/oops"

	"memhub/app/config"
	"memhub/app/util/errcode"
)

const initTimeout = time.Minute

// The store exposes a single meta-tool and dispatches on tool_name inside
// its argument map.
const executeTool = "execute_tool"

var _ do.Shutdownable = (*Client)(nil)

// ToolCaller is the slice of the MCP client this package needs. Tests
// substitute an in-memory implementation.
type ToolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Client talks to the atomic-record memory store over MCP. Unlike the graph
// store, records here carry explicit metadata (title, importance, keywords)
// and relationships are plain lists of linked record ids.
type Client struct {
	caller ToolCaller
	closer io.Closer
}

func NewClient(di *do.Injector) (*Client, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	mcpClient, err := connect(ctx, cfg.Memory.Atomic)
	if err != nil {
		return nil, err
	}

	return &Client{
		caller: mcpClient,
		closer: mcpClient,
	}, nil
}

// NewWithCaller wraps an existing tool caller, bypassing transport setup.
func NewWithCaller(caller ToolCaller) *Client {
	return &Client{caller: caller}
}

func connect(ctx context.Context, cfg config.AtomicStore) (*client.Client, error) {
	var (
		mcpClient *client.Client
		err       error
	)

	if cfg.URL != "" {
		mcpClient, err = client.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to create atomic store client: %w", err)
		}

		if err = mcpClient.Start(ctx); err != nil {
			return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to connect to atomic store at %s: %w", cfg.URL, err)
		}
	} else {
		mcpClient, err = client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
		if err != nil {
			return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to start atomic store process: %w", err)
		}
	}

	initCtx, cancel := context.WithTimeout(ctx, initTimeout)
	defer cancel()

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "memhub",
		Version: "1.0.0",
	}

	if _, err = mcpClient.Initialize(initCtx, initRequest); err != nil {
		return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to initialize atomic store client: %w", err)
	}

	return mcpClient, nil
}

func (c *Client) QueryMemories(ctx context.Context, query string, projectIDs []int, limit int) ([]Memory, error) {
	var result memoriesResult

	err := c.Execute(ctx, "query_memory", map[string]any{
		"query":         query,
		"project_ids":   projectIDs,
		"k":             limit,
		"include_links": true,
	}, &result)
	if err != nil {
		return nil, err
	}

	return result.Memories, nil
}

func (c *Client) CreateMemory(ctx context.Context, req CreateMemoryRequest) (int, error) {
	var result createMemoryResult

	err := c.Execute(ctx, "create_memory", map[string]any{
		"title":       req.Title,
		"content":     req.Content,
		"importance":  req.Importance,
		"project_ids": req.ProjectIDs,
		"keywords":    req.Keywords,
		"tags":        req.Tags,
		"context":     req.Context,
	}, &result)
	if err != nil {
		return 0, err
	}

	switch {
	case result.MemoryID != nil:
		return *result.MemoryID, nil
	case result.ID != nil:
		return *result.ID, nil
	default:
		return 0, oops.Code(errcode.Translation).Errorf("create_memory result carries no id")
	}
}

func (c *Client) ListMemories(ctx context.Context, projectIDs []int, limit int) ([]Memory, error) {
	var result memoriesResult

	err := c.Execute(ctx, "list_memories", map[string]any{
		"project_ids": projectIDs,
		"limit":       limit,
		"sort_by":     "created_at",
		"sort_order":  "desc",
	}, &result)
	if err != nil {
		return nil, err
	}

	return result.Memories, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var result projectsResult

	if err := c.Execute(ctx, "list_projects", map[string]any{}, &result); err != nil {
		return nil, err
	}

	return result.Projects, nil
}

func (c *Client) CreateProject(ctx context.Context, name, description string) (int, error) {
	var result createProjectResult

	err := c.Execute(ctx, "create_project", map[string]any{
		"name":        name,
		"description": description,
	}, &result)
	if err != nil {
		return 0, err
	}

	switch {
	case result.ProjectID != nil:
		return *result.ProjectID, nil
	case result.ID != nil:
		return *result.ID, nil
	default:
		return 0, oops.Code(errcode.Translation).Errorf("create_project result carries no id")
	}
}

// Execute invokes one of the store's named tools with an argument map and
// decodes the JSON payload of the response into out.
func (c *Client) Execute(ctx context.Context, tool string, args map[string]any, out any) error {
	callRequest := mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
	}

	callRequest.Params.Name = executeTool
	callRequest.Params.Arguments = map[string]any{
		"tool_name": tool,
		"arguments": args,
	}

	response, err := c.caller.CallTool(ctx, callRequest)
	if err != nil {
		return oops.Code(errcode.BackendUnavailable).Errorf("atomic store call %s failed: %w", tool, err)
	}

	text := textContent(response)

	if response.IsError {
		return oops.Code(errcode.BackendUnavailable).Errorf("atomic store call %s returned an error: %s", tool, text)
	}

	if err = json.Unmarshal([]byte(text), out); err != nil {
		return oops.Code(errcode.Translation).Errorf("failed to decode %s result: %w", tool, err)
	}

	return nil
}

func textContent(response *mcp.CallToolResult) string {
	var result strings.Builder

	for _, content := range response.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			result.WriteString(textContent.Text)
		}
	}

	return strings.TrimSpace(result.String())
}

func (c *Client) Shutdown() error {
	if c.closer == nil {
		return nil
	}

	return c.closer.Close()
}
