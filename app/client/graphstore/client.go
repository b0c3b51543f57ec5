package graphstore

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

var _ do.Shutdownable = (*Client)(nil)

// ToolCaller is the slice of the MCP client this package needs. Tests
// substitute an in-memory implementation.
type ToolCaller interface {
	CallTool(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// Client talks to the graph-native memory store over MCP. The store
// extracts entities and relationships from saved episodes on its own, so
// this client only covers the four tools the adapter needs.
type Client struct {
	caller ToolCaller
	closer io.Closer
}

func NewClient(di *do.Injector) (*Client, error) {
	ctx := do.MustInvoke[context.Context](di)
	cfg := do.MustInvoke[*config.Config](di)

	mcpClient, err := connect(ctx, cfg.Memory.Graph)
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

func connect(ctx context.Context, cfg config.GraphStore) (*client.Client, error) {
	var (
		mcpClient *client.Client
		err       error
	)

	if cfg.Command != "" {
		mcpClient, err = client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
		if err != nil {
			return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to start graph store process: %w", err)
		}
	} else {
		mcpClient, err = client.NewSSEMCPClient(cfg.URL)
		if err != nil {
			return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to create graph store client: %w", err)
		}

		if err = mcpClient.Start(ctx); err != nil {
			return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to connect to graph store at %s: %w", cfg.URL, err)
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
		return nil, oops.Code(errcode.BackendUnavailable).Errorf("failed to initialize graph store client: %w", err)
	}

	return mcpClient, nil
}

func (c *Client) SearchNodes(ctx context.Context, query string, groupIDs []string, maxNodes int) ([]Node, error) {
	var result searchNodesResult

	err := c.call(ctx, "search_memory_nodes", map[string]any{
		"query":     query,
		"group_ids": groupIDs,
		"max_nodes": maxNodes,
	}, &result)
	if err != nil {
		return nil, err
	}

	return result.Nodes, nil
}

func (c *Client) SearchFacts(ctx context.Context, query string, groupIDs []string, maxFacts int) ([]Fact, error) {
	var result searchFactsResult

	err := c.call(ctx, "search_memory_facts", map[string]any{
		"query":     query,
		"group_ids": groupIDs,
		"max_facts": maxFacts,
	}, &result)
	if err != nil {
		return nil, err
	}

	return result.Facts, nil
}

func (c *Client) AddEpisode(ctx context.Context, req AddEpisodeRequest) (string, error) {
	var result addEpisodeResult

	err := c.call(ctx, "add_memory", map[string]any{
		"name":               req.Name,
		"episode_body":       req.Body,
		"group_id":           req.GroupID,
		"source":             req.Source,
		"source_description": req.SourceDescription,
	}, &result)
	if err != nil {
		return "", err
	}

	switch {
	case result.EpisodeID != "":
		return result.EpisodeID, nil
	case result.UUID != "":
		return result.UUID, nil
	default:
		return "unknown", nil
	}
}

func (c *Client) GetEpisodes(ctx context.Context, groupIDs []string, maxEpisodes int) ([]Episode, error) {
	var result getEpisodesResult

	err := c.call(ctx, "get_episodes", map[string]any{
		"group_ids":    groupIDs,
		"max_episodes": maxEpisodes,
	}, &result)
	if err != nil {
		return nil, err
	}

	return result.Episodes, nil
}

func (c *Client) call(ctx context.Context, tool string, args map[string]any, out any) error {
	callRequest := mcp.CallToolRequest{
		Request: mcp.Request{
			Method: "tools/call",
		},
	}

	callRequest.Params.Name = tool
	callRequest.Params.Arguments = args

	response, err := c.caller.CallTool(ctx, callRequest)
	if err != nil {
		return oops.Code(errcode.BackendUnavailable).Errorf("graph store call %s failed: %w", tool, err)
	}

	text := textContent(response)

	if response.IsError {
		return oops.Code(errcode.BackendUnavailable).Errorf("graph store call %s returned an error: %s", tool, text)
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
