package memory

import (
	"context"
	"fmt"

	"github.com/elliotchance/pie/v2"
	"golang.org/x/sync/errgroup"

	"memhub/app/client/graphstore"
)

// Explore fetch sizes mirror the store's own defaults for combined
// node+fact retrieval.
const (
	exploreNodeLimit = 10
	exploreFactLimit = 20
)

// GraphBackend adapts the graph-native store. The store extracts entities
// and relationships from saved text on its own and its fact search already
// returns a transitively connected set, so no client-side traversal is
// needed. Importance does not exist in this store's schema and is never
// set or populated.
type GraphBackend struct {
	client *graphstore.Client
	ops    operationSet
}

func NewGraphBackend(client *graphstore.Client) *GraphBackend {
	return &GraphBackend{
		client: client,
		ops:    graphOperations,
	}
}

func (b *GraphBackend) Query(ctx context.Context, groupID, query string, limit int) ([]Memory, error) {
	nodes, err := b.client.SearchNodes(ctx, query, []string{groupID}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search nodes: %w", err)
	}

	return pie.Map(nodes, nodeToMemory), nil
}

func (b *GraphBackend) Save(ctx context.Context, groupID, content string, meta map[string]any) (string, error) {
	id, err := b.client.AddEpisode(ctx, graphstore.AddEpisodeRequest{
		Name:              metaString(meta, MetaTitle, "Untitled"),
		Body:              content,
		GroupID:           groupID,
		Source:            metaString(meta, MetaSource, "memhub"),
		SourceDescription: metaString(meta, MetaSourceDescription, "Saved via memhub"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to add episode: %w", err)
	}

	return id, nil
}

func (b *GraphBackend) SearchRelationships(ctx context.Context, groupID, query string, limit int) ([]Relationship, error) {
	facts, err := b.client.SearchFacts(ctx, query, []string{groupID}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search facts: %w", err)
	}

	return pie.Map(facts, factToRelationship), nil
}

// Explore combines a node search with a fact search over the same text.
// Depth 0 returns seed nodes only; any deeper traversal is handled natively
// by the store's fact search.
func (b *GraphBackend) Explore(ctx context.Context, groupID, start string, depth int) (*KnowledgeGraph, error) {
	graph := &KnowledgeGraph{
		Nodes: []Memory{},
		Edges: []Relationship{},
	}

	if depth <= 0 {
		nodes, err := b.Query(ctx, groupID, start, exploreNodeLimit)
		if err != nil {
			return nil, err
		}

		graph.Nodes = nodes

		return graph, nil
	}

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		nodes, err := b.Query(egCtx, groupID, start, exploreNodeLimit)
		if err != nil {
			return err
		}

		graph.Nodes = nodes

		return nil
	})

	eg.Go(func() error {
		edges, err := b.SearchRelationships(egCtx, groupID, start, exploreFactLimit)
		if err != nil {
			return err
		}

		graph.Edges = edges

		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return graph, nil
}

func (b *GraphBackend) ListRecent(ctx context.Context, groupID string, limit int) ([]Memory, error) {
	episodes, err := b.client.GetEpisodes(ctx, []string{groupID}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get episodes: %w", err)
	}

	return pie.Map(episodes, episodeToMemory), nil
}

func (b *GraphBackend) Capabilities() []OperationInfo {
	return b.ops.capabilities()
}

func (b *GraphBackend) Schema(operation string) (OperationSchema, error) {
	return b.ops.schema(operation)
}

func (b *GraphBackend) Examples(operation string) ([]string, error) {
	return b.ops.examples(operation)
}

func nodeToMemory(node graphstore.Node) Memory {
	return Memory{
		ID:        node.UUID,
		Content:   node.Name,
		CreatedAt: parseTimestamp(node.CreatedAt),
		Metadata: map[string]any{
			"summary": node.Summary,
		},
	}
}

func factToRelationship(fact graphstore.Fact) Relationship {
	return Relationship{
		Source:       fact.SourceNodeUUID,
		Target:       fact.TargetNodeUUID,
		RelationType: fact.Fact,
		Metadata: map[string]any{
			"created_at": fact.CreatedAt,
		},
	}
}

func episodeToMemory(episode graphstore.Episode) Memory {
	content := episode.Content
	if content == "" {
		content = episode.Name
	}

	return Memory{
		ID:        episode.UUID,
		Content:   content,
		CreatedAt: parseTimestamp(episode.CreatedAt),
		Metadata: map[string]any{
			"name":   episode.Name,
			"source": episode.Source,
		},
	}
}

var graphOperations = operationSet{
	{
		Name:        "query",
		Description: "Search for memories by semantic similarity",
		Params:      map[string]string{"query": "string", "limit": "int"},
		Example:     `adapter.Query(ctx, "auth patterns", 10)`,
	},
	{
		Name:        "save",
		Description: "Save a new episode to the knowledge graph",
		Params:      map[string]string{"content": "string", "title": "string (optional)"},
		Example:     `adapter.Save(ctx, "Decision: Using JWT for auth", map[string]any{"title": "Auth Decision"})`,
	},
	{
		Name:        "search_relationships",
		Description: "Search for relationships between entities",
		Params:      map[string]string{"query": "string", "limit": "int"},
		Example:     `adapter.SearchRelationships(ctx, "authentication flow", 20)`,
	},
	{
		Name:        "explore",
		Description: "Traverse the knowledge graph from a starting point",
		Params:      map[string]string{"start": "string", "depth": "int"},
		Example:     `adapter.Explore(ctx, "authentication", 2)`,
	},
	{
		Name:        "list_recent",
		Description: "List recent memories",
		Params:      map[string]string{"limit": "int"},
		Example:     `adapter.ListRecent(ctx, 20)`,
	},
}
