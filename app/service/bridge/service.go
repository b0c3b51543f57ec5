package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/tools"

	"memhub/app/service/memory"
)

// Service exposes every adapter operation as a langchaingo tool so an
// orchestrating agent can call memory with plain JSON payloads.
type Service struct {
	adapter *memory.Adapter
}

func New(di *do.Injector) (*Service, error) {
	adapter, err := do.Invoke[*memory.Adapter](di)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory adapter: %w", err)
	}

	return &Service{adapter: adapter}, nil
}

// NewWithAdapter wraps an already-built adapter.
func NewWithAdapter(adapter *memory.Adapter) *Service {
	return &Service{adapter: adapter}
}

type bridgeTool struct {
	name        string
	description string
	call        func(ctx context.Context, input string) (string, error)
}

func (t *bridgeTool) Name() string {
	return t.name
}

func (t *bridgeTool) Description() string {
	return t.description
}

func (t *bridgeTool) Call(ctx context.Context, input string) (string, error) {
	return t.call(ctx, input)
}

type queryInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type saveInput struct {
	Content    string   `json:"content"`
	Title      string   `json:"title"`
	Importance int      `json:"importance"`
	Keywords   []string `json:"keywords"`
	Tags       []string `json:"tags"`
}

type exploreInput struct {
	Start string `json:"start"`
	Depth int    `json:"depth"`
}

type limitInput struct {
	Limit int `json:"limit"`
}

func (s *Service) Tools() []tools.Tool {
	return []tools.Tool{
		&bridgeTool{
			name:        "memory_query",
			description: "Search project memory by semantic similarity. Input must be JSON with query (string) and limit (int) fields.",
			call: func(ctx context.Context, input string) (string, error) {
				var req queryInput
				if err := json.Unmarshal([]byte(input), &req); err != nil {
					return "", fmt.Errorf("invalid query JSON: %w", err)
				}

				if req.Limit <= 0 {
					req.Limit = 10
				}

				memories, err := s.adapter.Query(ctx, req.Query, req.Limit)
				if err != nil {
					return "", err
				}

				return marshal(memories)
			},
		},
		&bridgeTool{
			name:        "memory_save",
			description: "Save one memory. Input must be JSON with content (string) and optional title (string), importance (int 1-10), keywords and tags (string[]) fields. Returns the new memory id.",
			call: func(ctx context.Context, input string) (string, error) {
				var req saveInput
				if err := json.Unmarshal([]byte(input), &req); err != nil {
					return "", fmt.Errorf("invalid save JSON: %w", err)
				}

				meta := map[string]any{}
				if req.Title != "" {
					meta[memory.MetaTitle] = req.Title
				}
				if req.Importance != 0 {
					meta[memory.MetaImportance] = req.Importance
				}
				if len(req.Keywords) > 0 {
					meta[memory.MetaKeywords] = req.Keywords
				}
				if len(req.Tags) > 0 {
					meta[memory.MetaTags] = req.Tags
				}

				return s.adapter.Save(ctx, req.Content, meta)
			},
		},
		&bridgeTool{
			name:        "memory_search_relationships",
			description: "Search for relationships between memories. Input must be JSON with query (string) and limit (int) fields.",
			call: func(ctx context.Context, input string) (string, error) {
				var req queryInput
				if err := json.Unmarshal([]byte(input), &req); err != nil {
					return "", fmt.Errorf("invalid query JSON: %w", err)
				}

				if req.Limit <= 0 {
					req.Limit = 20
				}

				relationships, err := s.adapter.SearchRelationships(ctx, req.Query, req.Limit)
				if err != nil {
					return "", err
				}

				return marshal(relationships)
			},
		},
		&bridgeTool{
			name:        "memory_explore",
			description: "Traverse the knowledge graph from a starting point. Input must be JSON with start (string) and depth (int, 0 for seed nodes only) fields.",
			call: func(ctx context.Context, input string) (string, error) {
				var req exploreInput
				if err := json.Unmarshal([]byte(input), &req); err != nil {
					return "", fmt.Errorf("invalid explore JSON: %w", err)
				}

				graph, err := s.adapter.Explore(ctx, req.Start, req.Depth)
				if err != nil {
					return "", err
				}

				return marshal(graph)
			},
		},
		&bridgeTool{
			name:        "memory_list_recent",
			description: "List recent memories, newest first. Input must be JSON with a limit (int) field.",
			call: func(ctx context.Context, input string) (string, error) {
				var req limitInput
				if err := json.Unmarshal([]byte(input), &req); err != nil {
					return "", fmt.Errorf("invalid limit JSON: %w", err)
				}

				if req.Limit <= 0 {
					req.Limit = 20
				}

				memories, err := s.adapter.ListRecent(ctx, req.Limit)
				if err != nil {
					return "", err
				}

				return marshal(memories)
			},
		},
		&bridgeTool{
			name:        "memory_capabilities",
			description: "List the operations the configured memory backend supports. Input is ignored.",
			call: func(_ context.Context, _ string) (string, error) {
				return marshal(s.adapter.Capabilities())
			},
		},
	}
}

func marshal(value any) (string, error) {
	result, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	return string(result), nil
}
