package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/elliotchance/pie/v2"

	"memhub/app/client/atomicstore"
)

const (
	// Importance assigned when the caller does not provide one (mid-scale
	// on the store's 1-10 range).
	defaultImportance = 5

	// Records fetched per traversal step during Explore.
	exploreQueryLimit = 5

	// Relationship type synthesized from the store's linked_memory_ids
	// field, which is untyped.
	linkedTo = "linked_to"
)

// AtomicBackend adapts the atomic-record store. The store has no grouping
// key of its own: records live in projects, so every operation first maps
// the scope identifier onto a project id, creating the project on first
// use. The store also has no native relationship search or traversal; both
// are synthesized from each record's linked_memory_ids.
type AtomicBackend struct {
	client *atomicstore.Client
	ops    operationSet

	mu       sync.Mutex
	projects map[string]int
}

func NewAtomicBackend(client *atomicstore.Client) *AtomicBackend {
	return &AtomicBackend{
		client:   client,
		ops:      atomicOperations,
		projects: make(map[string]int),
	}
}

func (b *AtomicBackend) Query(ctx context.Context, groupID, query string, limit int) ([]Memory, error) {
	projectID, err := b.resolveProject(ctx, groupID)
	if err != nil {
		return nil, err
	}

	records, err := b.client.QueryMemories(ctx, query, []int{projectID}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query memories: %w", err)
	}

	return pie.Map(records, recordToMemory), nil
}

func (b *AtomicBackend) Save(ctx context.Context, groupID, content string, meta map[string]any) (string, error) {
	projectID, err := b.resolveProject(ctx, groupID)
	if err != nil {
		return "", err
	}

	id, err := b.client.CreateMemory(ctx, atomicstore.CreateMemoryRequest{
		Title:      metaString(meta, MetaTitle, "Untitled"),
		Content:    content,
		Importance: metaInt(meta, MetaImportance, defaultImportance),
		ProjectIDs: []int{projectID},
		Keywords:   metaStrings(meta, MetaKeywords),
		Tags:       metaStrings(meta, MetaTags),
		Context:    metaString(meta, MetaContext, ""),
	})
	if err != nil {
		return "", fmt.Errorf("failed to create memory: %w", err)
	}

	return strconv.Itoa(id), nil
}

// SearchRelationships has no native equivalent in this store: it queries
// records and emits one edge per linked record id.
func (b *AtomicBackend) SearchRelationships(ctx context.Context, groupID, query string, limit int) ([]Relationship, error) {
	memories, err := b.Query(ctx, groupID, query, limit)
	if err != nil {
		return nil, err
	}

	relationships := make([]Relationship, 0)

	for _, mem := range memories {
		for _, target := range linkedIDs(mem) {
			relationships = append(relationships, Relationship{
				Source:       mem.ID,
				Target:       target,
				RelationType: linkedTo,
				Metadata:     map[string]any{},
			})
		}
	}

	return relationships, nil
}

// Explore runs a breadth-first traversal over linked record ids. Each
// frontier entry is re-resolved through a textual query, matching the
// store's retrieval model. Depth 0 returns seed nodes only.
func (b *AtomicBackend) Explore(ctx context.Context, groupID, start string, depth int) (*KnowledgeGraph, error) {
	graph := &KnowledgeGraph{
		Nodes: []Memory{},
		Edges: []Relationship{},
	}

	if depth <= 0 {
		nodes, err := b.Query(ctx, groupID, start, exploreQueryLimit)
		if err != nil {
			return nil, err
		}

		graph.Nodes = nodes

		return graph, nil
	}

	type frontierItem struct {
		query string
		depth int
	}

	visited := make(map[string]bool)
	frontier := []frontierItem{{query: start, depth: 0}}

	for len(frontier) > 0 {
		current := frontier[0]
		frontier = frontier[1:]

		if current.depth > depth {
			break
		}

		memories, err := b.Query(ctx, groupID, current.query, exploreQueryLimit)
		if err != nil {
			return nil, err
		}

		for _, mem := range memories {
			if visited[mem.ID] {
				continue
			}
			visited[mem.ID] = true

			graph.Nodes = append(graph.Nodes, mem)

			for _, target := range linkedIDs(mem) {
				graph.Edges = append(graph.Edges, Relationship{
					Source:       mem.ID,
					Target:       target,
					RelationType: linkedTo,
					Metadata:     map[string]any{},
				})

				if current.depth < depth {
					frontier = append(frontier, frontierItem{
						query: target,
						depth: current.depth + 1,
					})
				}
			}
		}
	}

	return graph, nil
}

func (b *AtomicBackend) ListRecent(ctx context.Context, groupID string, limit int) ([]Memory, error) {
	projectID, err := b.resolveProject(ctx, groupID)
	if err != nil {
		return nil, err
	}

	records, err := b.client.ListMemories(ctx, []int{projectID}, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list memories: %w", err)
	}

	return pie.Map(records, recordToMemory), nil
}

func (b *AtomicBackend) Capabilities() []OperationInfo {
	return b.ops.capabilities()
}

func (b *AtomicBackend) Schema(operation string) (OperationSchema, error) {
	return b.ops.schema(operation)
}

func (b *AtomicBackend) Examples(operation string) ([]string, error) {
	return b.ops.examples(operation)
}

// resolveProject maps the scope identifier onto the store's project id:
// cache, then lookup by name, then create. The lock spans the whole miss
// path so a race on first use cannot create the project twice.
func (b *AtomicBackend) resolveProject(ctx context.Context, groupID string) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.projects[groupID]; ok {
		return id, nil
	}

	projects, err := b.client.ListProjects(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list projects: %w", err)
	}

	for _, project := range projects {
		if project.Name == groupID {
			b.projects[groupID] = project.ID
			return project.ID, nil
		}
	}

	id, err := b.client.CreateProject(ctx, groupID, fmt.Sprintf("Auto-created for scope %s", groupID))
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}

	b.projects[groupID] = id

	return id, nil
}

func recordToMemory(record atomicstore.Memory) Memory {
	importance := record.Importance

	return Memory{
		ID:         strconv.Itoa(record.ID),
		Content:    record.Content,
		CreatedAt:  parseTimestamp(record.CreatedAt),
		Importance: &importance,
		Metadata: map[string]any{
			"title":             record.Title,
			"keywords":          record.Keywords,
			"tags":              record.Tags,
			"linked_memory_ids": pie.Map(record.LinkedMemoryIDs, strconv.Itoa),
		},
	}
}

func linkedIDs(mem Memory) []string {
	return metaStrings(mem.Metadata, "linked_memory_ids")
}

var atomicOperations = operationSet{
	{
		Name:        "query",
		Description: "Search for memories by semantic similarity",
		Params:      map[string]string{"query": "string", "limit": "int"},
		Example:     `adapter.Query(ctx, "auth patterns", 10)`,
	},
	{
		Name:        "save",
		Description: "Save a new memory record",
		Params:      map[string]string{"content": "string", "title": "string", "importance": "int (1-10)"},
		Example:     `adapter.Save(ctx, "Decision: JWT auth", map[string]any{"title": "Auth", "importance": 9})`,
	},
	{
		Name:        "search_relationships",
		Description: "Find links between memory records",
		Params:      map[string]string{"query": "string", "limit": "int"},
		Example:     `adapter.SearchRelationships(ctx, "authentication flow", 20)`,
	},
	{
		Name:        "explore",
		Description: "Follow record links breadth-first from a starting point",
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
